package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/macrolog/backend/internal/middleware"
	"github.com/pageza/macrolog/backend/internal/service"
	"github.com/pageza/macrolog/backend/internal/types"
)

// FoodHandler serves the food catalog.
type FoodHandler struct {
	foods service.IFoodService
}

func NewFoodHandler(foods service.IFoodService) *FoodHandler {
	return &FoodHandler{foods: foods}
}

func (h *FoodHandler) RegisterRoutes(router *gin.RouterGroup) {
	foods := router.Group("/foods")
	{
		foods.GET("", h.ListFoods)
		foods.POST("", h.CreateFood)
		foods.GET("/:id", h.GetFood)
		foods.PUT("/:id", h.UpdateFood)
		foods.DELETE("/:id", h.DeleteFood)
	}
}

func (h *FoodHandler) ListFoods(c *gin.Context) {
	foods, err := h.foods.ListFoods(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, foods)
}

func (h *FoodHandler) CreateFood(c *gin.Context) {
	var req types.FoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	food, err := h.foods.CreateFood(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, food)
}

func (h *FoodHandler) GetFood(c *gin.Context) {
	food, err := h.foods.GetFood(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, food)
}

func (h *FoodHandler) UpdateFood(c *gin.Context) {
	var req types.FoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	food, err := h.foods.UpdateFood(c.Request.Context(), middleware.UserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, food)
}

func (h *FoodHandler) DeleteFood(c *gin.Context) {
	if err := h.foods.DeleteFood(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
