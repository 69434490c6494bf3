package roast

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"roast-backend/internal/extract"
	"roast-backend/internal/llm"
	"roast-backend/internal/shared/server/middleware"
	"roast-backend/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires the roast function to HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches roast routes to the router group. Callers put
// service auth and rate limiting on the group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/roast-resume", h.roast)
	rg.POST("/roast-resume/upload", h.roastUpload)
	rg.POST("/extract", h.extract)
}

type roastRequest struct {
	ResumeText string `json:"resumeText"`
}

type roastResponse struct {
	Roasts    []Item   `json:"roasts"`
	Degraded  bool     `json:"degraded,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
	IDs       []string `json:"ids,omitempty"`
}

func (h *Handler) roast(c *gin.Context) {
	var req roastRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	out, err := h.Svc.Roast(c.Request.Context(), req.ResumeText)
	if err != nil {
		writeError(c, err)
		return
	}
	h.writeOutcome(c, out)
}

func (h *Handler) roastUpload(c *gin.Context) {
	data, fileName, mimeType, ok := readUpload(c)
	if !ok {
		return
	}
	out, err := h.Svc.RoastDocument(c.Request.Context(), middleware.PrincipalFromContext(c), fileName, mimeType, data)
	if err != nil {
		writeError(c, err)
		return
	}
	h.writeOutcome(c, out)
}

func (h *Handler) extract(c *gin.Context) {
	data, fileName, mimeType, ok := readUpload(c)
	if !ok {
		return
	}
	text, err := h.Svc.Extract(c.Request.Context(), middleware.PrincipalFromContext(c), fileName, mimeType, data)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"text": text})
}

func (h *Handler) writeOutcome(c *gin.Context, out Outcome) {
	c.Set(middleware.LogKeyRoastCount, len(out.Items))
	c.Set(middleware.LogKeyDegraded, out.Degraded)
	c.Set(middleware.LogKeyTruncated, out.Truncated)
	respond.OK(c, roastResponse{
		Roasts:    out.Items,
		Degraded:  out.Degraded,
		Truncated: out.Truncated,
		IDs:       out.RecordIDs,
	})
}

func readUpload(c *gin.Context) ([]byte, string, string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file exceeds the 10MB limit")
			return nil, "", "", false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required")
		return nil, "", "", false
	}
	if fileHeader.Size > maxUploadSize {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file exceeds the 10MB limit")
		return nil, "", "", false
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file")
		return nil, "", "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file")
		return nil, "", "", false
	}
	mimeType := strings.TrimSpace(fileHeader.Header.Get("Content-Type"))
	return data, fileHeader.Filename, mimeType, true
}

// writeError maps pipeline errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Resume text is required")
	case errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusInternalServerError, "not_configured", "AI service not configured")
	case errors.Is(err, llm.ErrRateLimited):
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Please try again in a moment.")
	case errors.Is(err, llm.ErrQuotaExceeded):
		respond.Error(c, http.StatusPaymentRequired, "quota_exceeded", "AI usage limit reached. Please add credits to continue.")
	case errors.Is(err, llm.ErrBadRequest):
		respond.Error(c, http.StatusBadRequest, "upstream_bad_request", "The AI service rejected the request")
	case errors.Is(err, llm.ErrTimeout):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "The AI service took too long to respond. Please try again.")
	case errors.Is(err, extract.ErrEmptyContent):
		respond.Error(c, http.StatusBadRequest, "empty_content", "No text content found in document")
	case errors.Is(err, extract.ErrDecode):
		respond.Error(c, http.StatusBadRequest, "decode_error", "Could not read document")
	case errors.Is(err, extract.ErrUnsupportedType):
		respond.Error(c, http.StatusBadRequest, "unsupported_media_type", "Unsupported file type. Upload a PDF, DOC, DOCX or TXT file.")
	default:
		respond.Error(c, http.StatusInternalServerError, "upstream_error", "Failed to generate roast")
	}
}
