package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/macrolog/backend/internal/middleware"
	"github.com/pageza/macrolog/backend/internal/service"
	"github.com/pageza/macrolog/backend/internal/types"
)

// DiaryHandler serves days, their meals and the food entries of each meal.
type DiaryHandler struct {
	diary service.IDiaryService
}

func NewDiaryHandler(diary service.IDiaryService) *DiaryHandler {
	return &DiaryHandler{diary: diary}
}

func (h *DiaryHandler) RegisterRoutes(router *gin.RouterGroup) {
	days := router.Group("/days")
	{
		days.GET("", h.ListDays)
		days.POST("", h.CreateDay)
		days.GET("/:date", h.GetDay)
		days.PATCH("/:date", h.UpdateDay)
		days.DELETE("/:date", h.DeleteDay)

		days.GET("/:date/meals", h.ListMeals)
		days.POST("/:date/meals", h.CreateMeal)
		days.GET("/:date/meals/:mealName", h.GetMeal)
		days.PATCH("/:date/meals/:mealName", h.UpdateMeal)
		days.DELETE("/:date/meals/:mealName", h.DeleteMeal)

		days.POST("/:date/meals/:mealName/foods", h.AddFoodEntry)
		days.PATCH("/:date/meals/:mealName/foods/:entryId", h.UpdateFoodEntry)
		days.DELETE("/:date/meals/:mealName/foods/:entryId", h.RemoveFoodEntry)
	}
}

func (h *DiaryHandler) ListDays(c *gin.Context) {
	days, err := h.diary.ListDays(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

func (h *DiaryHandler) CreateDay(c *gin.Context) {
	var req types.DayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	day, err := h.diary.CreateDay(c.Request.Context(), middleware.UserID(c), req.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, day)
}

func (h *DiaryHandler) GetDay(c *gin.Context) {
	day, err := h.diary.GetDay(c.Request.Context(), middleware.UserID(c), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *DiaryHandler) UpdateDay(c *gin.Context) {
	var req types.UpdateDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	day, err := h.diary.UpdateDay(c.Request.Context(), middleware.UserID(c), c.Param("date"), req.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *DiaryHandler) DeleteDay(c *gin.Context) {
	if err := h.diary.DeleteDay(c.Request.Context(), middleware.UserID(c), c.Param("date")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DiaryHandler) ListMeals(c *gin.Context) {
	meals, err := h.diary.ListMealsForDay(c.Request.Context(), middleware.UserID(c), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meals)
}

func (h *DiaryHandler) CreateMeal(c *gin.Context) {
	var req types.MealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	meal, err := h.diary.CreateMeal(c.Request.Context(), middleware.UserID(c), c.Param("date"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meal)
}

func (h *DiaryHandler) GetMeal(c *gin.Context) {
	meal, err := h.diary.GetMealByName(c.Request.Context(), middleware.UserID(c), c.Param("date"), c.Param("mealName"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

func (h *DiaryHandler) UpdateMeal(c *gin.Context) {
	var req types.UpdateMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	meal, err := h.diary.UpdateMeal(c.Request.Context(), middleware.UserID(c), c.Param("date"), c.Param("mealName"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

func (h *DiaryHandler) DeleteMeal(c *gin.Context) {
	if err := h.diary.DeleteMeal(c.Request.Context(), middleware.UserID(c), c.Param("date"), c.Param("mealName")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DiaryHandler) AddFoodEntry(c *gin.Context) {
	var req types.EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	meal, err := h.diary.AddFoodEntry(c.Request.Context(), middleware.UserID(c), c.Param("date"), c.Param("mealName"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meal)
}

func (h *DiaryHandler) UpdateFoodEntry(c *gin.Context) {
	var req types.EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	meal, err := h.diary.UpdateFoodEntry(c.Request.Context(), middleware.UserID(c), c.Param("date"), c.Param("mealName"), c.Param("entryId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

func (h *DiaryHandler) RemoveFoodEntry(c *gin.Context) {
	meal, err := h.diary.RemoveFoodEntry(c.Request.Context(), middleware.UserID(c), c.Param("date"), c.Param("mealName"), c.Param("entryId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}
