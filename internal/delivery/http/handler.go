package http

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/receiptsense/backend/internal/domain"
	"github.com/receiptsense/backend/internal/infrastructure/export"
	"github.com/receiptsense/backend/internal/infrastructure/payload"
	"github.com/receiptsense/backend/internal/usecase"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// workbookFilename is the attachment name of XLSX exports
const workbookFilename = "receipt.xlsx"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	documentService *usecase.DocumentService
	maxUploadBytes  int64
}

// NewHandler creates a new HTTP handler.
// documentService may be nil, in which case document endpoints answer 503.
func NewHandler(documentService *usecase.DocumentService, maxUploadMB int) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &Handler{
		documentService: documentService,
		maxUploadBytes:  int64(maxUploadMB) << 20,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	engine, ready := "none", false
	if h.documentService != nil {
		engine, ready = h.documentService.OCREngine(), h.documentService.OCRReady()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    "receiptsense-backend",
		"version":    Version,
		"ocr_engine": engine,
		"ocr_ready":  ready,
	})
}

// ProcessReceipt runs an uploaded image through OCR and field extraction
func (h *Handler) ProcessReceipt(c *gin.Context) {
	if h.documentService == nil {
		respondError(c, http.StatusServiceUnavailable, "document service not configured")
		return
	}

	if c.Request.ContentLength > h.maxUploadBytes {
		respondError(c, http.StatusRequestEntityTooLarge, h.uploadLimitMessage())
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, http.StatusRequestEntityTooLarge, h.uploadLimitMessage())
			return
		}
		respondError(c, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		respondError(c, http.StatusRequestEntityTooLarge, h.uploadLimitMessage())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unable to read uploaded file")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "unable to read uploaded file")
		return
	}

	doc, err := h.documentService.ProcessImage(c.Request.Context(), image)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"extracted_text":    doc.ExtractedText,
		"processed_time_ms": doc.ProcessedTimeMs,
		"source":            doc.Source,
		"data":              doc.Record,
	})
}

// ExtractLines runs the field extractor on a JSON body of already recognized lines
func (h *Handler) ExtractLines(c *gin.Context) {
	record, ok := h.extractFromBody(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, record)
}

// ExportXLSX extracts a record from a JSON body and returns it as a workbook
func (h *Handler) ExportXLSX(c *gin.Context) {
	record, ok := h.extractFromBody(c)
	if !ok {
		return
	}

	data, err := export.RecordWorkbook(record)
	if err != nil {
		log.Printf("[EXPORT] Failed to render workbook: %v", err)
		respondError(c, http.StatusInternalServerError, "unable to render workbook")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", workbookFilename))
	c.Data(http.StatusOK, export.ContentType, data)
}

// extractFromBody decodes {"lines": [...]} and runs the extractor.
// It writes the error response itself and reports whether the caller should continue.
func (h *Handler) extractFromBody(c *gin.Context) (*domain.StructuredRecord, bool) {
	if h.documentService == nil {
		respondError(c, http.StatusServiceUnavailable, "document service not configured")
		return nil, false
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, http.StatusRequestEntityTooLarge, h.uploadLimitMessage())
			return nil, false
		}
		respondError(c, http.StatusBadRequest, "unable to read request body")
		return nil, false
	}

	lines, err := payload.DecodeLines(body)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return nil, false
	}

	record, err := h.documentService.ExtractLines(c.Request.Context(), lines)
	if err != nil {
		h.handleServiceError(c, err)
		return nil, false
	}

	return record, true
}

// handleServiceError maps domain errors to HTTP status codes
func (h *Handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyImage):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOCRUnavailable):
		respondError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		respondError(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrOCRFailure):
		log.Printf("[OCR] %v", err)
		respondError(c, http.StatusInternalServerError, err.Error())
	default:
		log.Printf("[HTTP] Unexpected error: %v", err)
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) uploadLimitMessage() string {
	return fmt.Sprintf("request exceeds the %d MB upload limit", h.maxUploadBytes>>20)
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
