package http

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "fintastic/internal/errors"
	"fintastic/internal/exporter"
	"fintastic/internal/middleware"
	api "fintastic/pkg/contracts/api/v1"
)

// Upload form limits.
const (
	uploadField     = "file"
	multipartMemory = 8 << 20
	maxPreviewRows  = 1000
	exportBasename  = "processed_data"
)

// DataHandler handles uploads, stored rows and the working table.
type DataHandler struct {
	service      WorkspaceServiceInterface
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewDataHandler creates a new data handler with RFC 7807 error handling
func NewDataHandler(service WorkspaceServiceInterface, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *DataHandler {
	return &DataHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "data_handler")),
	}
}

// Routes returns the data routes; all of them require a token.
func (h *DataHandler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requireAuth)
	r.Get("/", h.Preview)
	r.Post("/upload", h.Upload)
	r.Post("/fetch", h.Fetch)
	r.Get("/export", h.Export)
	return r
}

// Upload handles POST /api/data/upload with a multipart "file" field.
func (h *DataHandler) Upload(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.errorHandler)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(uploadField, "request must be multipart/form-data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(uploadField, "file is required"))
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	res, err := h.service.Upload(r.Context(), p, filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.UploadResponse{
		ResultResponse: api.ResultResponse{Success: true, Message: "File uploaded successfully"},
		Rows:           res.Rows,
		Persisted:      res.Persisted,
		Columns:        columnInfo(res.Columns),
	})
}

// Fetch handles POST /api/data/fetch, loading the caller's stored rows.
func (h *DataHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.errorHandler)
	if !ok {
		return
	}
	state, err := h.service.Fetch(r.Context(), p)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, state)
}

// Preview handles GET /api/data?limit=N
func (h *DataHandler) Preview(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.errorHandler)
	if !ok {
		return
	}
	limit, err := middleware.QueryInt(r, "limit", 1, maxPreviewRows, 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	head, total, err := h.service.Preview(r.Context(), p, limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, tableResponse(head, total))
}

// Export handles GET /api/data/export?format=csv|xlsx
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.errorHandler)
	if !ok {
		return
	}
	format, err := middleware.QueryEnum(r, "format", exportFormats, "csv")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	tbl, err := h.service.Table(r.Context(), p)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	switch format {
	case "xlsx":
		attachment(w, exportBasename+".xlsx", contentTypeXLSX)
		err = exporter.WriteXLSX(w, tbl, exporter.DefaultSheet)
	default:
		attachment(w, exportBasename+".csv", contentTypeCSV)
		err = exporter.WriteCSV(w, tbl, exporter.WriteOptions{})
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "export failed",
			slog.String("format", format),
			slog.String("error", err.Error()))
	}
}
