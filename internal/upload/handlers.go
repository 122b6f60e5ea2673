package upload

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/malekbenamor02/AyachiProd/internal/catalog"
	"github.com/malekbenamor02/AyachiProd/internal/config"
	"github.com/malekbenamor02/AyachiProd/internal/response"
)

// Handler exposes one owner namespace (galleries or homepage sections) of
// the upload protocol.
type Handler struct {
	service   *Service
	namespace string
	opts      config.UploadOptions
	log       *zap.SugaredLogger
}

func NewHandler(service *Service, namespace string, opts config.UploadOptions, log *zap.SugaredLogger) *Handler {
	return &Handler{service: service, namespace: namespace, opts: opts, log: log}
}

// Register mounts the routes under base, which must contain an {ownerID}
// segment, e.g. /api/galleries/{ownerID}/media.
func (h *Handler) Register(mux *http.ServeMux, base string) {
	mux.HandleFunc("GET "+base, h.HandleList)
	mux.HandleFunc("PATCH "+base+"/reorder", h.HandleReorder)
	mux.HandleFunc("DELETE "+base+"/{id}", h.HandleDelete)
	mux.HandleFunc("POST "+base+"/{id}/download-url", h.HandleDownloadURL)
	mux.HandleFunc("POST "+base+"/upload", h.HandleUpload)
	mux.HandleFunc("POST "+base+"/upload-url", h.HandleUploadURL)
	mux.HandleFunc("POST "+base+"/confirm", h.HandleConfirm)
	mux.HandleFunc("POST "+base+"/upload-init", h.HandleInit)
	mux.HandleFunc("POST "+base+"/upload-part-url", h.HandlePartURL)
	mux.HandleFunc("POST "+base+"/upload-part", h.HandlePart)
	mux.HandleFunc("POST "+base+"/upload-complete", h.HandleComplete)
	mux.HandleFunc("POST "+base+"/upload-abort", h.HandleAbort)
}

// HandleUpload is the small-file path: the whole payload arrives as a
// multipart form and the server writes the store directly.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ownerID := r.PathValue("ownerID")

	limit := h.opts.InlineMaxBytes() + 1<<20 // form framing overhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(h.opts.InlineMaxBytes()); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid multipart form", response.CodeValidation)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("image")
	}
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Missing file field", response.CodeValidation)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Failed to read file", response.CodeValidation)
		return
	}

	contentType := header.Header.Get("Content-Type")
	altText := r.FormValue("alt_text")

	asset, err := h.service.UploadInline(r.Context(), h.namespace, ownerID, header.Filename, contentType, data, altText)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, asset)
}

// HandleUploadURL is step one of the medium-file path.
func (h *Handler) HandleUploadURL(w http.ResponseWriter, r *http.Request) {
	var req PresignRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.PresignDirect(r.Context(), h.namespace, r.PathValue("ownerID"), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

// HandleConfirm is step two of the medium-file path: the row is written
// only after the client's direct PUT succeeded.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if !h.decode(w, r, &req) {
		return
	}
	asset, err := h.service.Confirm(r.Context(), r.PathValue("ownerID"), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, asset)
}

func (h *Handler) HandleInit(w http.ResponseWriter, r *http.Request) {
	var req InitRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.Init(r.Context(), h.namespace, r.PathValue("ownerID"), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

func (h *Handler) HandlePartURL(w http.ResponseWriter, r *http.Request) {
	var req PartURLRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.PartURL(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

// HandlePart receives raw part bytes with the session identity in headers.
func (h *Handler) HandlePart(w http.ResponseWriter, r *http.Request) {
	uploadID := r.Header.Get(HeaderUploadID)
	filePath := r.Header.Get(HeaderFilePath)
	partNumber, _ := strconv.Atoi(r.Header.Get(HeaderPartNumber))

	r.Body = http.MaxBytesReader(w, r.Body, 2*h.opts.PartSizeBytes())
	data, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Failed to read part body", response.CodeValidation)
		return
	}

	resp, err := h.service.UploadPartProxy(r.Context(), uploadID, filePath, partNumber, data)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if !h.decode(w, r, &req) {
		return
	}
	asset, err := h.service.Complete(r.Context(), r.PathValue("ownerID"), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, asset)
}

func (h *Handler) HandleAbort(w http.ResponseWriter, r *http.Request) {
	var req AbortRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.Abort(r.Context(), &req); err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, AbortResponse{OK: true})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.List(r.Context(), r.PathValue("ownerID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, assets)
}

func (h *Handler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.Reorder(r.Context(), r.PathValue("ownerID"), &req); err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Reordered"})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

func (h *Handler) HandleDownloadURL(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.DownloadURL(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", response.CodeValidation)
		return false
	}
	return true
}

// writeServiceError maps the error taxonomy onto HTTP statuses. Transient
// storage failures come back 502 so callers know a retry may succeed.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	var se *StorageError
	var ce *CatalogError
	switch {
	case errors.As(err, &ve):
		response.Error(w, http.StatusBadRequest, ve.Msg, response.CodeValidation)
	case errors.Is(err, catalog.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Not found", response.CodeNotFound)
	case errors.As(err, &se):
		h.log.Errorw("storage error", "op", se.Op, "transient", se.Transient, "error", se.Err)
		if se.Transient {
			response.Error(w, http.StatusBadGateway, "Storage unavailable, retry later", "STORAGE_ERROR")
		} else {
			response.Error(w, http.StatusBadRequest, "Storage rejected the request", "STORAGE_ERROR")
		}
	case errors.As(err, &ce):
		h.log.Errorw("catalog error", "op", ce.Op, "error", ce.Err)
		response.Error(w, http.StatusInternalServerError, "Failed to save record", response.CodeDatabase)
	default:
		h.log.Errorw("internal error", "error", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error", response.CodeInternal)
	}
}
