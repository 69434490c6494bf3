package roasts

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"roast-backend/internal/shared/metrics"
	"roast-backend/internal/shared/server/respond"
)

// DefaultSampleSize matches the landing page's three showcase cards.
const DefaultSampleSize = 3

var validate = validator.New()

// Handler serves the landing-page record endpoints.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches record routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/roasts/count", h.count)
	rg.GET("/roasts/sample", h.sample)
	rg.POST("/roasts/:id/reactions", h.react)
}

type reactionRequest struct {
	Reaction string `json:"reaction" validate:"required,oneof=fire laugh thinking"`
}

func (h *Handler) count(c *gin.Context) {
	n, err := h.Repo.Count(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to count roasts")
		return
	}
	respond.OK(c, gin.H{"count": n})
}

func (h *Handler) sample(c *gin.Context) {
	size := DefaultSampleSize
	if v := c.Query("size"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "size must be an integer")
			return
		}
		size = parsed
	}

	records, err := h.Repo.Sample(c.Request.Context(), clampSample(size))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load roasts")
		return
	}
	if records == nil {
		records = []Record{}
	}
	respond.OK(c, records)
}

func (h *Handler) react(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "roast id is required")
		return
	}

	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}
	req.Reaction = strings.ToLower(strings.TrimSpace(req.Reaction))
	if err := validate.Struct(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "reaction must be one of fire, laugh or thinking")
		return
	}
	reaction, err := ParseReaction(req.Reaction)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "reaction must be one of fire, laugh or thinking")
		return
	}

	rec, err := h.Repo.IncrementReaction(c.Request.Context(), id, reaction)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "roast not found")
		case errors.Is(err, ErrInvalidReaction):
			respond.Error(c, http.StatusBadRequest, "validation_error", "reaction must be one of fire, laugh or thinking")
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record reaction")
		}
		return
	}
	metrics.IncReaction()
	respond.OK(c, rec)
}
