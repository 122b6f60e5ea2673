package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// MediaAsset is the catalog row for bytes that are fully present in the
// object store. The row is always the last write of a successful upload.
type MediaAsset struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	FilePath     string    `json:"file_path"`
	FileURL      string    `json:"file_url"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	AltText      string    `json:"alt_text"`
	DisplayOrder int       `json:"display_order"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type Store struct {
	db *sql.DB
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS media_assets (
            id UUID PRIMARY KEY,
            owner_id TEXT NOT NULL,
            file_path TEXT NOT NULL UNIQUE,
            file_url TEXT NOT NULL,
            original_name TEXT NOT NULL DEFAULT '',
            mime_type TEXT NOT NULL DEFAULT 'application/octet-stream',
            file_type TEXT NOT NULL DEFAULT 'file',
            file_size BIGINT NOT NULL DEFAULT 0,
            alt_text TEXT NOT NULL DEFAULT '',
            display_order INT NOT NULL DEFAULT 0,
            uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS media_assets_owner_order
            ON media_assets(owner_id, display_order)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// InsertParams carries the metadata for a new asset. FilePath and FileURL
// must already point at durably stored bytes.
type InsertParams struct {
	OwnerID      string
	FilePath     string
	FileURL      string
	OriginalName string
	MimeType     string
	FileSize     int64
	AltText      string
}

// Insert appends the asset at the end of the owner's ordering. Orders are
// not reused after deletions; gaps are tolerated, only relative order
// matters. Concurrent inserts for one owner can race on the count.
func (s *Store) Insert(ctx context.Context, p InsertParams) (*MediaAsset, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media_assets WHERE owner_id=$1`, p.OwnerID).Scan(&count); err != nil {
		return nil, fmt.Errorf("count assets: %w", err)
	}

	asset := &MediaAsset{
		ID:           uuid.NewString(),
		OwnerID:      p.OwnerID,
		FilePath:     p.FilePath,
		FileURL:      p.FileURL,
		OriginalName: p.OriginalName,
		MimeType:     p.MimeType,
		FileType:     MediaKindFromMime(p.MimeType),
		FileSize:     p.FileSize,
		AltText:      p.AltText,
		DisplayOrder: count,
		UploadedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO media_assets(id, owner_id, file_path, file_url, original_name,
            mime_type, file_type, file_size, alt_text, display_order, uploaded_at)
         VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		asset.ID, asset.OwnerID, asset.FilePath, asset.FileURL, asset.OriginalName,
		asset.MimeType, asset.FileType, asset.FileSize, asset.AltText, asset.DisplayOrder, asset.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	return asset, nil
}

// Reorder rewrites display_order to the index of each id in orderedIDs.
// Re-applying the same sequence is idempotent. A failure mid-sequence
// leaves a mixed ordering; the caller retries with the full list.
func (s *Store) Reorder(ctx context.Context, ownerID string, orderedIDs []string) error {
	for i, id := range orderedIDs {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE media_assets SET display_order=$1 WHERE id=$2 AND owner_id=$3`,
			i, id, ownerID); err != nil {
			return fmt.Errorf("reorder asset %s: %w", id, err)
		}
	}
	return nil
}

// Delete removes the catalog row and returns the stored file path so the
// caller can delete the object. Object deletion is best-effort and never
// blocks row removal.
func (s *Store) Delete(ctx context.Context, id string) (string, error) {
	var filePath string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM media_assets WHERE id=$1 RETURNING file_path`, id).Scan(&filePath)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delete asset: %w", err)
	}
	return filePath, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]MediaAsset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, file_path, file_url, original_name, mime_type,
                file_type, file_size, alt_text, display_order, uploaded_at
         FROM media_assets WHERE owner_id=$1
         ORDER BY display_order ASC, uploaded_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	assets := []MediaAsset{}
	for rows.Next() {
		var a MediaAsset
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.FilePath, &a.FileURL, &a.OriginalName,
			&a.MimeType, &a.FileType, &a.FileSize, &a.AltText, &a.DisplayOrder, &a.UploadedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// Get looks up one asset by id.
func (s *Store) Get(ctx context.Context, id string) (*MediaAsset, error) {
	var a MediaAsset
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, file_path, file_url, original_name, mime_type,
                file_type, file_size, alt_text, display_order, uploaded_at
         FROM media_assets WHERE id=$1`, id).
		Scan(&a.ID, &a.OwnerID, &a.FilePath, &a.FileURL, &a.OriginalName,
			&a.MimeType, &a.FileType, &a.FileSize, &a.AltText, &a.DisplayOrder, &a.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

var ErrNotFound = errors.New("asset not found")

// MediaKindFromMime maps a MIME type onto the coarse kind stored with the
// asset: image, video, or file.
func MediaKindFromMime(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	default:
		return "file"
	}
}
