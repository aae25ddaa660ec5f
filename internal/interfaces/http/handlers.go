package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spendlyhq/invoice-ingest/internal/batch"
	"github.com/spendlyhq/invoice-ingest/internal/export"
	"github.com/spendlyhq/invoice-ingest/internal/repository"
	"github.com/spendlyhq/invoice-ingest/internal/storage"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	coordinator   *batch.Coordinator
	repo          *repository.InvoiceRepository
	files         storage.FileStore
	maxUploadSize int64
	logger        *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	coordinator *batch.Coordinator,
	repo *repository.InvoiceRepository,
	files storage.FileStore,
	maxUploadSize int64,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		coordinator:   coordinator,
		repo:          repo,
		files:         files,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunResponse merges a run's live status with its settled item results
type RunResponse struct {
	batch.Status
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Duplicates int                `json:"duplicates"`
	Results    []batch.ItemResult `json:"results"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// UploadBatch handles POST /api/uploads. The multipart field "files" carries
// any mix of PDFs and ZIP archives; the response is a run id the client polls
// or watches over the WebSocket.
func (h *Handlers) UploadBatch(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.logger.Warn("Invalid upload form", zap.Error(err))
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid multipart form"})
		return
	}

	uploads := form.File["files"]
	if len(uploads) == 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "no files in upload"})
		return
	}

	items := make([]batch.UploadItem, 0, len(uploads))
	for _, header := range uploads {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "failed to read uploaded file"})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "failed to read uploaded file"})
			return
		}
		items = append(items, batch.UploadItem{
			Name:        filepath.Base(header.Filename),
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	receipt, err := h.coordinator.Submit(items)
	if err != nil {
		if errors.Is(err, batch.ErrEmptyBatch) {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
		h.logger.Error("Failed to submit batch", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to start batch"})
		return
	}

	c.JSON(http.StatusAccepted, Response{Success: true, Data: receipt})
}

// GetRun handles GET /api/uploads/:runId
func (h *Handlers) GetRun(c *gin.Context) {
	runID := c.Param("runId")

	status, ok := h.coordinator.Status(runID)
	if !ok {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "run not found"})
		return
	}
	summary, _ := h.coordinator.Summary(runID)

	c.JSON(http.StatusOK, Response{Success: true, Data: RunResponse{
		Status:     status,
		Successful: summary.Successful,
		Failed:     summary.Failed,
		Duplicates: summary.Duplicates,
		Results:    summary.Results,
	}})
}

// PauseRun handles POST /api/uploads/:runId/pause
func (h *Handlers) PauseRun(c *gin.Context) {
	h.controlRun(c, h.coordinator.Pause)
}

// ResumeRun handles POST /api/uploads/:runId/resume
func (h *Handlers) ResumeRun(c *gin.Context) {
	h.controlRun(c, h.coordinator.Resume)
}

// CancelRun handles POST /api/uploads/:runId/cancel
func (h *Handlers) CancelRun(c *gin.Context) {
	h.controlRun(c, h.coordinator.Cancel)
}

func (h *Handlers) controlRun(c *gin.Context, action func(string)) {
	runID := c.Param("runId")
	if _, ok := h.coordinator.Status(runID); !ok {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "run not found"})
		return
	}
	action(runID)

	status, _ := h.coordinator.Status(runID)
	c.JSON(http.StatusOK, Response{Success: true, Data: status})
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	records, err := h.repo.List(repository.ListFilter{
		Platform: c.Query("platform"),
		Status:   c.Query("status"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.logger.Error("Failed to list invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve invoices"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid invoice id"})
		return
	}

	rec, err := h.repo.GetByID(id)
	if err != nil {
		h.logger.Error("Failed to get invoice", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve invoice"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "invoice not found"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: rec})
}

// DeleteInvoice handles DELETE /api/invoices/:id. The stored file goes with
// the record; once both are gone the same file can be uploaded again.
func (h *Handlers) DeleteInvoice(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid invoice id"})
		return
	}

	rec, err := h.repo.GetByID(id)
	if err != nil {
		h.logger.Error("Failed to load invoice for delete", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to delete invoice"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "invoice not found"})
		return
	}

	if err := h.repo.Delete(id); err != nil {
		h.logger.Error("Failed to delete invoice", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to delete invoice"})
		return
	}
	h.files.Delete(rec.FilePath)

	c.JSON(http.StatusOK, Response{Success: true})
}

// AnalyticsSummary handles GET /api/analytics/summary
func (h *Handlers) AnalyticsSummary(c *gin.Context) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.logger.Error("Failed to aggregate analytics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to aggregate analytics"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// ExportInvoices handles GET /api/export/invoices, streaming the current
// records as an xlsx workbook
func (h *Handlers) ExportInvoices(c *gin.Context) {
	records, err := h.repo.List(repository.ListFilter{
		Platform: c.Query("platform"),
		Status:   c.Query("status"),
	})
	if err != nil {
		h.logger.Error("Failed to load invoices for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to export invoices"})
		return
	}

	workbook, err := export.Workbook(records)
	if err != nil {
		h.logger.Error("Failed to build export workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to export invoices"})
		return
	}
	defer workbook.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	if err := workbook.Write(c.Writer); err != nil {
		h.logger.Error("Failed to stream export workbook", zap.Error(err))
	}
}
