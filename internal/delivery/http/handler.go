package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/recipepanel/foodsync/internal/domain"
	"github.com/recipepanel/foodsync/internal/usecase"
	"github.com/recipepanel/foodsync/pkg/logger"
)

// FoodLookup answers search and barcode requests
type FoodLookup interface {
	Search(ctx context.Context, query, locale string) (*usecase.SearchResult, error)
	LookupBarcode(ctx context.Context, barcode, locale string) (*usecase.ProductResult, error)
}

// SeedRunner advances and reports seed runs
type SeedRunner interface {
	Step(ctx context.Context, req usecase.SeedRequest) (*usecase.SeedResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*usecase.SeedResponse, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	food     FoodLookup
	seeds    SeedRunner
	validate *validator.Validate
	version  string
}

// NewHandler creates a new HTTP handler
func NewHandler(food FoodLookup, seeds SeedRunner, version string) *Handler {
	return &Handler{
		food:     food,
		seeds:    seeds,
		validate: validator.New(),
		version:  version,
	}
}

type searchParams struct {
	Q      string `form:"q" validate:"required,min=2,max=200"`
	Locale string `form:"lc" validate:"omitempty,len=2,alpha"`
}

type productParams struct {
	Barcode string `validate:"required,numeric,min=8,max=14"`
	Locale  string `validate:"omitempty,len=2,alpha"`
}

type seedBody struct {
	RunID    string   `json:"runId" validate:"omitempty,uuid"`
	Locale   string   `json:"locale" validate:"omitempty,len=2,alpha"`
	Terms    []string `json:"terms" validate:"omitempty,max=200,dive,max=100"`
	Page     int      `json:"page" validate:"omitempty,min=1"`
	PageSize int      `json:"pageSize" validate:"omitempty,min=1"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "foodsync",
		"version": h.version,
	})
}

// Search handles GET /off/search?q=&lc=
func (h *Handler) Search(c *gin.Context) {
	var params searchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.validate.Struct(params); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.food.Search(c.Request.Context(), params.Q, params.Locale)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Product handles GET /off/product/:barcode?lc=
func (h *Handler) Product(c *gin.Context) {
	params := productParams{
		Barcode: c.Param("barcode"),
		Locale:  c.Query("lc"),
	}
	if err := h.validate.Struct(params); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.food.LookupBarcode(c.Request.Context(), params.Barcode, params.Locale)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Seed handles POST /off/seed. An empty body starts a run with configured defaults.
func (h *Handler) Seed(c *gin.Context) {
	var body seedBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		badRequest(c, err)
		return
	}

	req := usecase.SeedRequest{
		Locale:   body.Locale,
		Terms:    body.Terms,
		Page:     body.Page,
		PageSize: body.PageSize,
	}
	if body.RunID != "" {
		id, err := uuid.Parse(body.RunID)
		if err != nil {
			badRequest(c, err)
			return
		}
		req.RunID = id
	}

	resp, err := h.seeds.Step(c.Request.Context(), req)
	if err != nil {
		if resp != nil && errors.Is(err, domain.ErrSeedStepFailed) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error": err.Error(),
				"runId": resp.RunID,
			})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SeedStatus handles GET /off/seed/:runId
func (h *Handler) SeedStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.seeds.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   domain.ErrInvalidRequest.Error(),
		"details": err.Error(),
	})
}

// writeError maps domain errors to status codes
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrSeedRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrUpstreamUnavailable), errors.Is(err, domain.ErrSeedStepFailed):
		status = http.StatusBadGateway
	}

	if status == http.StatusBadRequest {
		badRequest(c, err)
		return
	}
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
