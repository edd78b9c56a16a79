package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/macrolog/backend/internal/middleware"
	"github.com/pageza/macrolog/backend/internal/service"
)

// MaxUploadBytes caps the size of an uploaded food photo.
const MaxUploadBytes = 10 << 20

// AIHandler serves the model-backed endpoints: photo extraction and meal recommendations.
type AIHandler struct {
	extraction     service.IExtractionService
	recommendation service.IRecommendationService
}

func NewAIHandler(extraction service.IExtractionService, recommendation service.IRecommendationService) *AIHandler {
	return &AIHandler{extraction: extraction, recommendation: recommendation}
}

// RegisterRoutes mounts the endpoints behind extra, typically a rate limiter.
func (h *AIHandler) RegisterRoutes(router *gin.RouterGroup, extra ...gin.HandlerFunc) {
	ai := router.Group("", extra...)
	{
		ai.POST("/foods/upload", h.ExtractFoods)
		ai.GET("/days/:date/meals/:mealName/recs", h.Recommend)
	}
}

// ExtractFoods reads the multipart "image" field and merges the detected foods into the catalog.
func (h *AIHandler) ExtractFoods(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<20)

	header, err := c.FormFile("image")
	if err != nil {
		badRequest(c, fmt.Errorf("image file is required"))
		return
	}
	if header.Size > MaxUploadBytes {
		badRequest(c, fmt.Errorf("image must be at most %d MB", MaxUploadBytes>>20))
		return
	}

	file, err := header.Open()
	if err != nil {
		badRequest(c, fmt.Errorf("failed to read image: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(c, fmt.Errorf("failed to read image: %w", err))
		return
	}

	resp, err := h.extraction.ExtractFoodsFromImage(c.Request.Context(), middleware.UserID(c), data, header.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Recommend suggests catalog foods for the meal in the path.
func (h *AIHandler) Recommend(c *gin.Context) {
	resp, err := h.recommendation.GetMealRecommendations(c.Request.Context(), middleware.UserID(c), c.Param("date"), c.Param("mealName"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
