package upload

// Wire types for the upload protocol. Field names match what the admin
// frontend sends.

// InitRequest starts a multipart session.
type InitRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// InitResponse hands the caller everything it needs to round-trip the
// session: the manager holds no state between requests.
type InitResponse struct {
	UploadID string `json:"uploadId"`
	FilePath string `json:"filePath"`
	PartSize int64  `json:"partSize"`
}

// PartURLRequest asks for a presigned URL for one part.
type PartURLRequest struct {
	UploadID   string `json:"uploadId"`
	FilePath   string `json:"filePath"`
	PartNumber int    `json:"partNumber"`
}

type PartURLResponse struct {
	PutURL string `json:"putUrl"`
}

// PartResponse returns the eTag of a part proxied through the server,
// stripped of surrounding quotes.
type PartResponse struct {
	ETag string `json:"etag"`
}

// CompletedPart names one uploaded part. PartNumbers are 1-indexed.
type CompletedPart struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"etag"`
}

// CompleteRequest finishes a multipart session and registers the asset.
// FileType carries the declared MIME type of the whole object.
type CompleteRequest struct {
	UploadID     string          `json:"uploadId"`
	FilePath     string          `json:"filePath"`
	Parts        []CompletedPart `json:"parts"`
	FileType     string          `json:"file_type"`
	AltText      string          `json:"alt_text"`
	OriginalName string          `json:"original_name"`
	FileSize     int64           `json:"file_size"`
}

type AbortRequest struct {
	UploadID string `json:"uploadId"`
	FilePath string `json:"filePath"`
}

type AbortResponse struct {
	OK bool `json:"ok"`
}

// PresignRequest asks for a one-shot direct-upload URL.
type PresignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type PresignResponse struct {
	PutURL   string `json:"putUrl"`
	FilePath string `json:"filePath"`
	FileURL  string `json:"fileUrl"`
}

// ConfirmRequest registers an asset after a successful direct PUT.
type ConfirmRequest struct {
	FilePath     string `json:"filePath"`
	FileType     string `json:"file_type"`
	AltText      string `json:"alt_text"`
	OriginalName string `json:"original_name"`
	FileSize     int64  `json:"file_size"`
}

type ReorderRequest struct {
	Order []string `json:"order"`
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}

// Part upload headers for the server-proxied path.
const (
	HeaderUploadID   = "X-Upload-Id"
	HeaderFilePath   = "X-File-Path"
	HeaderPartNumber = "X-Part-Number"
)

const defaultContentType = "application/octet-stream"
