package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/malekbenamor02/AyachiProd/internal/config"
	"github.com/malekbenamor02/AyachiProd/internal/upload"
)

// Uploader is the caller-side orchestrator: it classifies each file by
// size, drives the chosen strategy end to end, retries transient part
// failures, and aborts the session when a part cannot be delivered.
// Files and parts are processed strictly sequentially; memory stays
// bounded at one part.
type Uploader struct {
	mediaBase string // e.g. https://host/api/galleries/42/media
	token     string
	meta      *http.Client // metadata calls
	data      *http.Client // binary transfers
	opts      config.UploadOptions
	retry     Policy
	progress  ProgressFunc
	lastPct   int
	log       *zap.SugaredLogger
}

// ProgressFunc receives a monotonically non-decreasing percentage in
// [0, 100] covering the whole batch.
type ProgressFunc func(percent int)

// Result summarizes a batch. Partial success is a normal outcome, not an
// error.
type Result struct {
	SuccessCount int
	FailedCount  int
	LastError    error
}

func New(mediaBase, token string, opts config.UploadOptions, log *zap.SugaredLogger) *Uploader {
	return &Uploader{
		mediaBase: strings.TrimSuffix(mediaBase, "/"),
		token:     token,
		meta:      &http.Client{Timeout: 30 * time.Second},
		data:      &http.Client{Timeout: 5 * time.Minute},
		opts:      opts,
		retry: Policy{
			Attempts: opts.PartRetries,
			Delay:    time.Duration(opts.PartRetryDelayMS) * time.Millisecond,
		},
		log: log,
	}
}

func (u *Uploader) SetProgress(fn ProgressFunc) { u.progress = fn }

// report clamps progress to be monotonic.
func (u *Uploader) report(pct int) {
	if pct < u.lastPct {
		pct = u.lastPct
	}
	if pct > 100 {
		pct = 100
	}
	u.lastPct = pct
	if u.progress != nil {
		u.progress(pct)
	}
}

// UploadAll uploads the named files one at a time. A failed file is logged
// and skipped; the batch carries on.
func (u *Uploader) UploadAll(ctx context.Context, paths []string, altText string) Result {
	var res Result
	total := len(paths)
	if total == 0 {
		return res
	}
	u.lastPct = 0

	for i, p := range paths {
		u.report(i * 100 / total)
		fileProgress := func(filePct float64) {
			overall := (float64(i) + filePct) / float64(total) * 100
			if overall > 99 {
				overall = 99
			}
			u.report(int(overall))
		}
		if err := u.UploadFile(ctx, p, altText, fileProgress); err != nil {
			u.log.Warnw("upload failed", "file", p, "error", err)
			res.FailedCount++
			res.LastError = err
		} else {
			res.SuccessCount++
		}
		u.report((i + 1) * 100 / total)
	}
	return res
}

// UploadFile picks and executes the strategy for one file. fileProgress
// receives this file's completion fraction in [0, 1]; pass nil to skip
// reporting.
func (u *Uploader) UploadFile(ctx context.Context, path, altText string, fileProgress func(float64)) error {
	if fileProgress == nil {
		fileProgress = func(float64) {}
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()
	thresholds := upload.Thresholds{
		InlineMax:    u.opts.InlineMaxBytes(),
		SinglePutMax: u.opts.SinglePutMaxBytes(),
	}

	switch upload.SelectStrategy(size, thresholds) {
	case upload.StrategyInline:
		return u.uploadInline(ctx, path, altText, fileProgress)
	case upload.StrategyPresignedPut:
		return u.uploadPresigned(ctx, path, size, altText, fileProgress)
	default:
		return u.uploadMultipart(ctx, path, size, altText, fileProgress)
	}
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// uploadInline sends the whole file through the server in one
// multipart-form request.
func (u *Uploader) uploadInline(ctx context.Context, path, altText string, fileProgress func(float64)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", contentTypeFor(path))
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if altText != "" {
		_ = writer.WriteField("alt_text", altText)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return u.retry.Do(ctx, func() error {
		reader := &progressReader{
			r:     bytes.NewReader(body.Bytes()),
			total: int64(body.Len()),
			fn:    fileProgress,
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.mediaBase+"/upload", reader)
		if err != nil {
			return err
		}
		req.ContentLength = int64(body.Len())
		req.Header.Set("Content-Type", writer.FormDataContentType())
		u.authorize(req)
		return u.doEnvelope(u.data, req, nil)
	})
}

// uploadPresigned asks for a one-shot PUT URL, uploads directly, then
// confirms. A confirm failure after a successful PUT leaves an accepted
// orphan: the driver cannot authenticate a delete without server
// mediation.
func (u *Uploader) uploadPresigned(ctx context.Context, path string, size int64, altText string, fileProgress func(float64)) error {
	contentType := contentTypeFor(path)
	var presign upload.PresignResponse
	err := u.retry.Do(ctx, func() error {
		return u.postJSON(ctx, "/upload-url", upload.PresignRequest{
			Filename:    filepath.Base(path),
			ContentType: contentType,
		}, &presign)
	})
	if err != nil {
		return err
	}
	if presign.PutURL == "" || presign.FilePath == "" {
		return fmt.Errorf("invalid upload URL response")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	err = u.retry.Do(ctx, func() error {
		_, err := u.putBytes(ctx, presign.PutURL, contentType, data, fileProgress)
		return err
	})
	if err != nil {
		return err
	}

	return u.retry.Do(ctx, func() error {
		return u.postJSON(ctx, "/confirm", upload.ConfirmRequest{
			FilePath:     presign.FilePath,
			FileType:     contentType,
			AltText:      altText,
			OriginalName: filepath.Base(path),
			FileSize:     size,
		}, nil)
	})
}

// uploadMultipart drives the full session: init, sequential presigned part
// PUTs with per-part retries, then complete. On an unrecoverable part
// failure the session is aborted before the error is returned.
func (u *Uploader) uploadMultipart(ctx context.Context, path string, size int64, altText string, fileProgress func(float64)) error {
	contentType := contentTypeFor(path)
	var init upload.InitResponse
	err := u.retry.Do(ctx, func() error {
		return u.postJSON(ctx, "/upload-init", upload.InitRequest{
			Filename:    filepath.Base(path),
			ContentType: contentType,
		}, &init)
	})
	if err != nil {
		return err
	}
	partSize := init.PartSize
	if partSize <= 0 {
		partSize = u.opts.PartSizeBytes()
	}
	partCount := int((size + partSize - 1) / partSize)

	file, err := os.Open(path)
	if err != nil {
		u.abort(ctx, init)
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	parts := make([]upload.CompletedPart, 0, partCount)
	buf := make([]byte, partSize)
	for partNumber := 1; partNumber <= partCount; partNumber++ {
		n, err := io.ReadFull(file, buf)
		if err == io.ErrUnexpectedEOF && partNumber == partCount {
			err = nil // short last part
		}
		if err != nil {
			u.abort(ctx, init)
			return fmt.Errorf("read part %d: %w", partNumber, err)
		}
		chunk := buf[:n]

		var eTag string
		err = u.retry.Do(ctx, func() error {
			var partURL upload.PartURLResponse
			if err := u.postJSON(ctx, "/upload-part-url", upload.PartURLRequest{
				UploadID:   init.UploadID,
				FilePath:   init.FilePath,
				PartNumber: partNumber,
			}, &partURL); err != nil {
				return err
			}
			tag, err := u.putBytes(ctx, partURL.PutURL, "", chunk, nil)
			if err != nil {
				return err
			}
			if tag == "" {
				return upload.NewTransientError("upload-part", fmt.Errorf("store returned no eTag for part %d", partNumber))
			}
			eTag = tag
			return nil
		})
		if err != nil {
			u.abort(ctx, init)
			return fmt.Errorf("part %d: %w", partNumber, err)
		}

		parts = append(parts, upload.CompletedPart{PartNumber: partNumber, ETag: eTag})
		fileProgress(float64(partNumber) / float64(partCount))
	}

	if err := u.postJSON(ctx, "/upload-complete", upload.CompleteRequest{
		UploadID:     init.UploadID,
		FilePath:     init.FilePath,
		Parts:        parts,
		FileType:     contentType,
		AltText:      altText,
		OriginalName: filepath.Base(path),
		FileSize:     size,
	}, nil); err != nil {
		u.abort(ctx, init)
		return err
	}
	return nil
}

// abort is best-effort cleanup; its own failure only gets logged.
func (u *Uploader) abort(ctx context.Context, init upload.InitResponse) {
	err := u.postJSON(ctx, "/upload-abort", upload.AbortRequest{
		UploadID: init.UploadID,
		FilePath: init.FilePath,
	}, nil)
	if err != nil {
		u.log.Warnw("abort failed; partial object may remain", "key", init.FilePath, "error", err)
	}
}

func (u *Uploader) authorize(req *http.Request) {
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}
}

// postJSON posts to a server endpoint relative to the media base and
// decodes the response envelope's data into out.
func (u *Uploader) postJSON(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.mediaBase+endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	u.authorize(req)
	return u.doEnvelope(u.meta, req, out)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func (u *Uploader) doEnvelope(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return upload.NewTransientError(req.URL.Path, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= 400 {
		msg := env.Error
		if msg == "" {
			msg = resp.Status
		}
		err := fmt.Errorf("%s: %s", req.URL.Path, msg)
		if retryableStatus(resp.StatusCode) {
			return upload.NewTransientError(req.URL.Path, err)
		}
		return upload.NewPermanentError(req.URL.Path, err)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// putBytes PUTs raw bytes to a presigned URL and returns the eTag header,
// stripped of quotes.
func (u *Uploader) putBytes(ctx context.Context, url, contentType string, data []byte, fileProgress func(float64)) (string, error) {
	var body io.Reader = bytes.NewReader(data)
	if fileProgress != nil {
		body = &progressReader{r: bytes.NewReader(data), total: int64(len(data)), fn: fileProgress}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", err
	}
	req.ContentLength = int64(len(data))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := u.data.Do(req)
	if err != nil {
		return "", upload.NewTransientError("put", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("put failed: %s: %s", resp.Status, strings.TrimSpace(string(text)))
		if retryableStatus(resp.StatusCode) {
			return "", upload.NewTransientError("put", err)
		}
		return "", upload.NewPermanentError("put", err)
	}
	return strings.Trim(resp.Header.Get("ETag"), `"`), nil
}

func retryableStatus(status int) bool {
	return status >= 500 || status == http.StatusRequestTimeout || status == http.StatusTooManyRequests
}

// progressReader reports transport-level byte counts as a completion
// fraction.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	fn    func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 && p.fn != nil {
		p.fn(float64(p.read) / float64(p.total))
	}
	return n, err
}
