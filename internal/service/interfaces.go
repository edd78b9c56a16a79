package service

import (
	"context"

	"github.com/pageza/macrolog/backend/internal/model"
	"github.com/pageza/macrolog/backend/internal/types"
)

// IFoodService defines the interface for food catalog operations
type IFoodService interface {
	CreateFood(ctx context.Context, userID string, req *types.FoodRequest) (*model.Food, error)
	ListFoods(ctx context.Context, userID string) ([]model.Food, error)
	GetFood(ctx context.Context, userID, id string) (*model.Food, error)
	UpdateFood(ctx context.Context, userID, id string, req *types.FoodRequest) (*model.Food, error)
	DeleteFood(ctx context.Context, userID, id string) error
	UpsertFoods(ctx context.Context, userID string, items []model.Food) ([]model.Food, error)
}

// IDiaryService defines the interface for day, meal and food entry operations
type IDiaryService interface {
	CreateDay(ctx context.Context, userID, date string) (*model.Day, error)
	GetDay(ctx context.Context, userID, date string) (*model.Day, error)
	ListDays(ctx context.Context, userID string) ([]model.Day, error)
	UpdateDay(ctx context.Context, userID, date, newDate string) (*model.Day, error)
	DeleteDay(ctx context.Context, userID, date string) error

	CreateMeal(ctx context.Context, userID, date string, req *types.MealRequest) (*model.Meal, error)
	ListMealsForDay(ctx context.Context, userID, date string) ([]model.Meal, error)
	GetMealByName(ctx context.Context, userID, date, mealName string) (*model.Meal, error)
	UpdateMeal(ctx context.Context, userID, date, mealName string, req *types.UpdateMealRequest) (*model.Meal, error)
	DeleteMeal(ctx context.Context, userID, date, mealName string) error

	AddFoodEntry(ctx context.Context, userID, date, mealName string, req *types.EntryRequest) (*model.Meal, error)
	UpdateFoodEntry(ctx context.Context, userID, date, mealName, entryID string, req *types.EntryRequest) (*model.Meal, error)
	RemoveFoodEntry(ctx context.Context, userID, date, mealName, entryID string) (*model.Meal, error)
}

// IExtractionService defines the interface for photo extraction
type IExtractionService interface {
	ExtractFoodsFromImage(ctx context.Context, userID string, image []byte, mimeType string) (*types.ExtractionResponse, error)
}

// IRecommendationService defines the interface for meal recommendations
type IRecommendationService interface {
	GetMealRecommendations(ctx context.Context, userID, date, mealName string) (*types.RecommendationResponse, error)
}

var (
	_ IFoodService           = (*FoodService)(nil)
	_ IDiaryService          = (*DiaryService)(nil)
	_ IExtractionService     = (*ExtractionService)(nil)
	_ IRecommendationService = (*RecommendationService)(nil)
	_ ModelClient            = (*OpenAIClient)(nil)
	_ ModelClient            = NoModel{}
	_ PhotoArchive           = (*S3PhotoArchive)(nil)
	_ ImageScreener          = (*RekognitionScreener)(nil)
)
