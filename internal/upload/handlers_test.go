package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/malekbenamor02/AyachiProd/internal/auth"
	"github.com/malekbenamor02/AyachiProd/internal/config"
	"github.com/malekbenamor02/AyachiProd/internal/s3"
)

func newTestMux(store ObjectStore, cat Catalog) *http.ServeMux {
	opts := config.DefaultUploadOptions()
	log := zap.NewNop().Sugar()
	service := NewService(store, cat, opts, log)
	mux := http.NewServeMux()
	NewHandler(service, "galleries", opts, log).Register(mux, "/api/galleries/{ownerID}/media")
	return mux
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func doJSON(t *testing.T, mux *http.ServeMux, method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestHandleInit(t *testing.T) {
	mux := newTestMux(&MockObjectStore{}, &memCatalog{})

	rec, env := doJSON(t, mux, http.MethodPost, "/api/galleries/g1/media/upload-init", InitRequest{
		Filename:    "video file.mp4",
		ContentType: "video/mp4",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp InitResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.UploadID == "" || resp.FilePath == "" {
		t.Errorf("Incomplete init response: %+v", resp)
	}
	if resp.PartSize != 5*mib {
		t.Errorf("Expected 5 MiB part size, got %d", resp.PartSize)
	}
}

func TestHandlePart_HeadersAndBody(t *testing.T) {
	mux := newTestMux(&MockObjectStore{}, &memCatalog{})

	req := httptest.NewRequest(http.MethodPost, "/api/galleries/g1/media/upload-part",
		bytes.NewReader([]byte("part bytes")))
	req.Header.Set(HeaderUploadID, "u1")
	req.Header.Set(HeaderFilePath, "galleries/g1/1-x.mp4")
	req.Header.Set(HeaderPartNumber, "1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	var resp PartResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.ETag != "etag-1" {
		t.Errorf("Expected unquoted eTag, got %q", resp.ETag)
	}
}

func TestHandlePart_MissingHeaders(t *testing.T) {
	mux := newTestMux(&MockObjectStore{}, &memCatalog{})

	req := httptest.NewRequest(http.MethodPost, "/api/galleries/g1/media/upload-part",
		bytes.NewReader([]byte("part bytes")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestHandleComplete(t *testing.T) {
	cat := &memCatalog{}
	mux := newTestMux(&MockObjectStore{}, cat)

	rec, env := doJSON(t, mux, http.MethodPost, "/api/galleries/g1/media/upload-complete", CompleteRequest{
		UploadID: "u1",
		FilePath: "galleries/g1/1-x.mp4",
		Parts: []CompletedPart{
			{PartNumber: 1, ETag: "a"},
			{PartNumber: 2, ETag: "b"},
		},
		FileType: "video/mp4",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !env.Success {
		t.Error("Expected success envelope")
	}
	if len(cat.assets) != 1 {
		t.Fatalf("Expected one catalog row, got %d", len(cat.assets))
	}
}

func TestHandleComplete_EmptyParts(t *testing.T) {
	cat := &memCatalog{}
	mux := newTestMux(&MockObjectStore{}, cat)

	rec, env := doJSON(t, mux, http.MethodPost, "/api/galleries/g1/media/upload-complete", CompleteRequest{
		UploadID: "u1",
		FilePath: "galleries/g1/1-x.mp4",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if env.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR code, got %s", env.Code)
	}
	if len(cat.assets) != 0 {
		t.Error("No catalog row may exist after a rejected completion")
	}
}

func TestHandleComplete_TransientStorageFailure(t *testing.T) {
	store := &MockObjectStore{
		completeMultipartFunc: func(ctx context.Context, key, uploadID string, parts []s3.PartInfo) error {
			return errors.New("unreachable")
		},
	}
	mux := newTestMux(store, &memCatalog{})

	rec, env := doJSON(t, mux, http.MethodPost, "/api/galleries/g1/media/upload-complete", CompleteRequest{
		UploadID: "u1",
		FilePath: "galleries/g1/1-x.mp4",
		Parts:    []CompletedPart{{PartNumber: 1, ETag: "a"}},
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502 for a transient storage failure, got %d", rec.Code)
	}
	if env.Code != "STORAGE_ERROR" {
		t.Errorf("Expected STORAGE_ERROR code, got %s", env.Code)
	}
}

func TestHandleAbort(t *testing.T) {
	mux := newTestMux(&MockObjectStore{}, &memCatalog{})

	rec, env := doJSON(t, mux, http.MethodPost, "/api/galleries/g1/media/upload-abort", AbortRequest{
		UploadID: "u1",
		FilePath: "galleries/g1/1-x.mp4",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp AbortResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !resp.OK {
		t.Error("Expected ok:true")
	}
}

func TestHandleUpload_MultipartForm(t *testing.T) {
	cat := &memCatalog{}
	mux := newTestMux(&MockObjectStore{}, cat)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("jpeg bytes")); err != nil {
		t.Fatal(err)
	}
	_ = writer.WriteField("alt_text", "a photo")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/galleries/g1/media/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(cat.assets) != 1 {
		t.Fatalf("Expected one catalog row, got %d", len(cat.assets))
	}
	if cat.assets[0].AltText != "a photo" {
		t.Errorf("Expected alt text to round-trip, got %q", cat.assets[0].AltText)
	}
	if cat.assets[0].OriginalName != "photo.jpg" {
		t.Errorf("Expected original name 'photo.jpg', got %q", cat.assets[0].OriginalName)
	}
}

func TestHandleUploadURL(t *testing.T) {
	mux := newTestMux(&MockObjectStore{}, &memCatalog{})

	rec, env := doJSON(t, mux, http.MethodPost, "/api/galleries/g1/media/upload-url", PresignRequest{
		Filename:    "big.mp4",
		ContentType: "video/mp4",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp PresignResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.PutURL == "" || resp.FilePath == "" || resp.FileURL == "" {
		t.Errorf("Incomplete presign response: %+v", resp)
	}
	if !strings.HasPrefix(resp.FileURL, "https://cdn.test/") {
		t.Errorf("Expected CDN file URL, got %s", resp.FileURL)
	}
}

func TestHandlers_WithAuthMiddleware(t *testing.T) {
	mux := newTestMux(&MockObjectStore{}, &memCatalog{})
	middleware := auth.AdminMiddleware(&auth.Config{Token: "secret"})
	gated := middleware(mux)

	tests := []struct {
		name           string
		authHeader     string
		apiKeyHeader   string
		expectedStatus int
	}{
		{"Valid bearer token", "Bearer secret", "", http.StatusOK},
		{"Valid X-API-Key", "", "secret", http.StatusOK},
		{"Wrong token", "Bearer nope", "", http.StatusUnauthorized},
		{"Missing credentials", "", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, _ := json.Marshal(InitRequest{Filename: "a.jpg"})
			req := httptest.NewRequest(http.MethodPost, "/api/galleries/g1/media/upload-init", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.apiKeyHeader != "" {
				req.Header.Set("X-API-Key", tt.apiKeyHeader)
			}
			rec := httptest.NewRecorder()
			gated.ServeHTTP(rec, req)
			if rec.Code != tt.expectedStatus {
				t.Errorf("Expected %d, got %d", tt.expectedStatus, rec.Code)
			}
		})
	}
}
