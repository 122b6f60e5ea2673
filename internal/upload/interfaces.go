package upload

import (
	"context"
	"time"

	"github.com/malekbenamor02/AyachiProd/internal/catalog"
	"github.com/malekbenamor02/AyachiProd/internal/s3"
)

// ObjectStore is the object-store surface the session manager depends on;
// satisfied by *s3.Client and by mocks in tests.
type ObjectStore interface {
	PublicURL(key string) string
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	PresignPutObject(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PresignGetObject(ctx context.Context, key, downloadName string, expires time.Duration) (string, error)
	CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error)
	UploadPart(ctx context.Context, key, uploadID string, partNumber int32, data []byte) (string, error)
	PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32, expires time.Duration) (string, error)
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []s3.PartInfo) error
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
}

// Catalog is the relational surface; satisfied by *catalog.Store.
type Catalog interface {
	Insert(ctx context.Context, p catalog.InsertParams) (*catalog.MediaAsset, error)
	Reorder(ctx context.Context, ownerID string, orderedIDs []string) error
	Delete(ctx context.Context, id string) (string, error)
	ListByOwner(ctx context.Context, ownerID string) ([]catalog.MediaAsset, error)
	Get(ctx context.Context, id string) (*catalog.MediaAsset, error)
}
