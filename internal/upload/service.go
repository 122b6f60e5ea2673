package upload

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/malekbenamor02/AyachiProd/internal/catalog"
	"github.com/malekbenamor02/AyachiProd/internal/config"
	"github.com/malekbenamor02/AyachiProd/internal/s3"
)

// Service owns the server side of all three upload strategies. It keeps no
// session state between requests: uploadId and filePath are round-tripped
// by the caller and the store is the source of truth for session validity.
type Service struct {
	store   ObjectStore
	catalog Catalog
	opts    config.UploadOptions
	log     *zap.SugaredLogger
}

func NewService(store ObjectStore, cat Catalog, opts config.UploadOptions, log *zap.SugaredLogger) *Service {
	return &Service{store: store, catalog: cat, opts: opts, log: log}
}

func (s *Service) presignTTL() time.Duration {
	return time.Duration(s.opts.PresignTTLSeconds) * time.Second
}

// UploadInline stores the whole payload and registers it. Used only for
// files under the inline threshold.
func (s *Service) UploadInline(ctx context.Context, namespace, ownerID, filename, contentType string, data []byte, altText string) (*catalog.MediaAsset, error) {
	if len(data) == 0 {
		return nil, validationErrorf("empty file")
	}
	if contentType == "" {
		contentType = defaultContentType
	}
	key := s3.ObjectKeyFor(namespace, ownerID, filename)

	if err := s.store.PutObject(ctx, key, data, contentType); err != nil {
		return nil, classifyStorageError("put", err)
	}
	return s.insertAsset(ctx, ownerID, key, filename, contentType, int64(len(data)), altText)
}

// PresignDirect hands out a one-shot PUT URL; the catalog row is written
// later by Confirm.
func (s *Service) PresignDirect(ctx context.Context, namespace, ownerID string, req *PresignRequest) (*PresignResponse, error) {
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = "file"
	}
	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}

	key := s3.ObjectKeyFor(namespace, ownerID, filename)
	putURL, err := s.store.PresignPutObject(ctx, key, contentType, s.presignTTL())
	if err != nil {
		return nil, classifyStorageError("presign-put", err)
	}
	return &PresignResponse{
		PutURL:   putURL,
		FilePath: key,
		FileURL:  s.store.PublicURL(key),
	}, nil
}

// Confirm registers an asset whose bytes the client already PUT directly to
// the store. The row is the last write of the strategy.
func (s *Service) Confirm(ctx context.Context, ownerID string, req *ConfirmRequest) (*catalog.MediaAsset, error) {
	filePath := strings.TrimSpace(req.FilePath)
	if filePath == "" {
		return nil, validationErrorf("missing filePath")
	}
	contentType := strings.TrimSpace(req.FileType)
	if contentType == "" {
		contentType = defaultContentType
	}
	originalName := req.OriginalName
	if originalName == "" {
		originalName = path.Base(filePath)
	}
	return s.insertAsset(ctx, ownerID, filePath, originalName, contentType, req.FileSize, req.AltText)
}

// Init starts a multipart session. recommendedPartSize is fixed at the
// store minimum so the caller can compute a part count.
func (s *Service) Init(ctx context.Context, namespace, ownerID string, req *InitRequest) (*InitResponse, error) {
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = "file"
	}
	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}

	key := s3.ObjectKeyFor(namespace, ownerID, filename)
	uploadID, err := s.store.CreateMultipartUpload(ctx, key, contentType)
	if err != nil {
		return nil, classifyStorageError("initiate", err)
	}
	s.log.Infow("multipart session initiated", "owner", ownerID, "key", key, "uploadId", uploadID)
	return &InitResponse{
		UploadID: uploadID,
		FilePath: key,
		PartSize: s.opts.PartSizeBytes(),
	}, nil
}

// PartURL presigns one part for a direct client→store PUT.
func (s *Service) PartURL(ctx context.Context, req *PartURLRequest) (*PartURLResponse, error) {
	if req.UploadID == "" || req.FilePath == "" || req.PartNumber < 1 {
		return nil, validationErrorf("missing uploadId, filePath, or partNumber")
	}
	putURL, err := s.store.PresignUploadPart(ctx, req.FilePath, req.UploadID, int32(req.PartNumber), s.presignTTL())
	if err != nil {
		return nil, classifyStorageError("presign-part", err)
	}
	return &PartURLResponse{PutURL: putURL}, nil
}

// UploadPartProxy forwards part bytes through the server and returns the
// eTag stripped of surrounding quotes. Resubmitting a part number is an
// idempotent retry: the store keeps the last bytes for that number.
func (s *Service) UploadPartProxy(ctx context.Context, uploadID, filePath string, partNumber int, data []byte) (*PartResponse, error) {
	if uploadID == "" || filePath == "" || partNumber < 1 {
		return nil, validationErrorf("missing %s, %s, or %s", HeaderUploadID, HeaderFilePath, HeaderPartNumber)
	}
	if len(data) == 0 {
		return nil, validationErrorf("empty part body")
	}
	eTag, err := s.store.UploadPart(ctx, filePath, uploadID, int32(partNumber), data)
	if err != nil {
		return nil, classifyStorageError("upload-part", err)
	}
	return &PartResponse{ETag: strings.Trim(eTag, `"`)}, nil
}

// Complete validates the parts list, completes the session, and only then
// writes the catalog row. A completion failure never leaves a row behind.
func (s *Service) Complete(ctx context.Context, ownerID string, req *CompleteRequest) (*catalog.MediaAsset, error) {
	if req.UploadID == "" || req.FilePath == "" {
		return nil, validationErrorf("missing uploadId or filePath")
	}
	parts, err := normalizeParts(req.Parts)
	if err != nil {
		return nil, err
	}

	if err := s.store.CompleteMultipartUpload(ctx, req.FilePath, req.UploadID, parts); err != nil {
		return nil, classifyStorageError("complete", err)
	}

	contentType := strings.TrimSpace(req.FileType)
	if contentType == "" {
		contentType = defaultContentType
	}
	originalName := req.OriginalName
	if originalName == "" {
		originalName = path.Base(req.FilePath)
	}
	return s.insertAsset(ctx, ownerID, req.FilePath, originalName, contentType, req.FileSize, req.AltText)
}

// Abort releases any bytes stored for unfinished parts. No catalog row is
// ever created for an aborted session.
func (s *Service) Abort(ctx context.Context, req *AbortRequest) error {
	if req.UploadID == "" || req.FilePath == "" {
		return validationErrorf("missing uploadId or filePath")
	}
	if err := s.store.AbortMultipartUpload(ctx, req.FilePath, req.UploadID); err != nil {
		return classifyStorageError("abort", err)
	}
	s.log.Infow("multipart session aborted", "key", req.FilePath, "uploadId", req.UploadID)
	return nil
}

// Delete removes the catalog row, then deletes the object best-effort. A
// storage failure here is logged and never blocks the row delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	filePath, err := s.catalog.Delete(ctx, id)
	if err != nil {
		if err == catalog.ErrNotFound {
			return err
		}
		return &CatalogError{Op: "delete", Err: err}
	}
	if err := s.store.DeleteObject(ctx, filePath); err != nil {
		s.log.Warnw("object delete failed after row delete", "key", filePath, "error", err)
	}
	return nil
}

func (s *Service) Reorder(ctx context.Context, ownerID string, req *ReorderRequest) error {
	if len(req.Order) == 0 {
		return validationErrorf("order must not be empty")
	}
	if err := s.catalog.Reorder(ctx, ownerID, req.Order); err != nil {
		return &CatalogError{Op: "reorder", Err: err}
	}
	return nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]catalog.MediaAsset, error) {
	assets, err := s.catalog.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, &CatalogError{Op: "list", Err: err}
	}
	return assets, nil
}

// DownloadURL presigns a GET that forces attachment disposition with the
// asset's original name.
func (s *Service) DownloadURL(ctx context.Context, id string) (*DownloadURLResponse, error) {
	asset, err := s.catalog.Get(ctx, id)
	if err != nil {
		if err == catalog.ErrNotFound {
			return nil, err
		}
		return nil, &CatalogError{Op: "get", Err: err}
	}
	downloadName := asset.OriginalName
	if downloadName == "" {
		downloadName = "download"
	}
	url, err := s.store.PresignGetObject(ctx, asset.FilePath, downloadName, s.presignTTL())
	if err != nil {
		return nil, classifyStorageError("presign-get", err)
	}
	return &DownloadURLResponse{URL: url}, nil
}

func (s *Service) insertAsset(ctx context.Context, ownerID, key, originalName, contentType string, size int64, altText string) (*catalog.MediaAsset, error) {
	asset, err := s.catalog.Insert(ctx, catalog.InsertParams{
		OwnerID:      ownerID,
		FilePath:     key,
		FileURL:      s.store.PublicURL(key),
		OriginalName: originalName,
		MimeType:     contentType,
		FileSize:     size,
		AltText:      strings.TrimSpace(altText),
	})
	if err != nil {
		// Bytes are durable but uncataloged: an accepted orphan, surfaced
		// in the logs for manual reconciliation.
		s.log.Errorw("catalog insert failed after store write", "owner", ownerID, "key", key, "error", err)
		return nil, &CatalogError{Op: "insert", Err: err}
	}
	return asset, nil
}

// normalizeParts rejects an empty list, non-positive part numbers, empty
// eTags, and duplicates, then returns the parts sorted into a contiguous
// 1-based run with eTags re-quoted for the store.
func normalizeParts(in []CompletedPart) ([]s3.PartInfo, error) {
	if len(in) == 0 {
		return nil, validationErrorf("parts must not be empty")
	}
	seen := make(map[int]bool, len(in))
	parts := make([]s3.PartInfo, 0, len(in))
	for _, p := range in {
		eTag := strings.Trim(strings.TrimSpace(p.ETag), `"`)
		if p.PartNumber < 1 || eTag == "" {
			return nil, validationErrorf("invalid part entry: number=%d", p.PartNumber)
		}
		if seen[p.PartNumber] {
			return nil, validationErrorf("duplicate part number %d", p.PartNumber)
		}
		seen[p.PartNumber] = true
		parts = append(parts, s3.PartInfo{PartNumber: p.PartNumber, ETag: `"` + eTag + `"`})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	for i, p := range parts {
		if p.PartNumber != i+1 {
			return nil, validationErrorf("parts must form a contiguous run starting at 1")
		}
	}
	return parts, nil
}
