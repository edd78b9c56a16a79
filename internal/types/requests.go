package types

import (
	"github.com/google/uuid"
	"github.com/pageza/macrolog/backend/internal/model"
)

// FoodRequest is the body of create and update food calls. Updates replace every field.
type FoodRequest struct {
	Name     string   `json:"name"`
	Brand    string   `json:"brand"`
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Carbs    *float64 `json:"carbs"`
	Fat      *float64 `json:"fat"`
	Tags     []string `json:"tags"`
}

// DayRequest creates a day.
type DayRequest struct {
	Date string `json:"date" binding:"required"`
}

// UpdateDayRequest moves a day to another date.
type UpdateDayRequest struct {
	Date string `json:"date" binding:"required"`
}

// EntryRequest adds or replaces a food entry. Quantity defaults to 1 on add.
type EntryRequest struct {
	FoodID   string   `json:"foodId"`
	Quantity *float64 `json:"quantity"`
}

// MealRequest creates a meal, optionally with initial entries.
type MealRequest struct {
	Name  string         `json:"name" binding:"required"`
	Foods []EntryRequest `json:"foods"`
}

// UpdateMealRequest renames a meal and/or replaces its entries.
type UpdateMealRequest struct {
	Name  *string         `json:"name"`
	Foods *[]EntryRequest `json:"foods"`
}

// Suggestion is one recommended catalog food.
type Suggestion struct {
	FoodID            uuid.UUID    `json:"foodId"`
	Name              string       `json:"name"`
	Portion           string       `json:"portion"`
	Macros            model.Macros `json:"macros"`
	Why               string       `json:"why"`
	SuggestedQuantity float64      `json:"suggestedQuantity"`
}

// RecommendationResponse is returned by the recommendation endpoint.
type RecommendationResponse struct {
	MealName    model.MealName `json:"mealName"`
	Suggestions []Suggestion   `json:"suggestions"`
}

// ExtractionResponse is returned by the photo extraction endpoint.
type ExtractionResponse struct {
	Count    int          `json:"count"`
	Foods    []model.Food `json:"items"`
	PhotoURL string       `json:"photoUrl,omitempty"`
}
