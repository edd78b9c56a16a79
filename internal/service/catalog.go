package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/pageza/macrolog/backend/internal/model"
	"github.com/pageza/macrolog/backend/internal/types"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FoodService manages a user's food catalog.
type FoodService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewFoodService creates a new FoodService instance
func NewFoodService(db *gorm.DB, log logrus.FieldLogger) *FoodService {
	return &FoodService{db: db, log: log}
}

// CreateFood validates req and inserts a new food owned by userID.
func (s *FoodService) CreateFood(ctx context.Context, userID string, req *types.FoodRequest) (*model.Food, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	food, err := foodFromRequest(req)
	if err != nil {
		return nil, err
	}
	food.UserID = userID

	if err := s.db.WithContext(ctx).Create(food).Error; err != nil {
		return nil, storeFault(s.log, "createFood", userID, err)
	}
	return food, nil
}

// ListFoods returns the user's catalog sorted by name.
func (s *FoodService) ListFoods(ctx context.Context, userID string) ([]model.Food, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	foods := []model.Food{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&foods).Error; err != nil {
		return nil, storeFault(s.log, "listFoods", userID, err)
	}
	return foods, nil
}

// GetFood returns one food. Foods owned by other users are reported as not found.
func (s *FoodService) GetFood(ctx context.Context, userID, id string) (*model.Food, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.findFood(s.db.WithContext(ctx), userID, id)
}

// UpdateFood replaces every field of an existing food.
func (s *FoodService) UpdateFood(ctx context.Context, userID, id string, req *types.FoodRequest) (*model.Food, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	next, err := foodFromRequest(req)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	food, err := s.findFood(db, userID, id)
	if err != nil {
		return nil, err
	}

	food.Name = next.Name
	food.Brand = next.Brand
	food.Macros = next.Macros
	food.Tags = next.Tags
	if err := db.Save(food).Error; err != nil {
		return nil, storeFault(s.log, "updateFood", userID, err)
	}
	return food, nil
}

// DeleteFood removes a food. Entries referencing it are left in place.
func (s *FoodService) DeleteFood(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	foodID, err := uuid.Parse(id)
	if err != nil {
		return notFound("food")
	}

	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", foodID, userID).Delete(&model.Food{})
	if res.Error != nil {
		return storeFault(s.log, "deleteFood", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("food")
	}
	return nil
}

func (s *FoodService) findFood(db *gorm.DB, userID, id string) (*model.Food, error) {
	foodID, err := uuid.Parse(id)
	if err != nil {
		return nil, notFound("food")
	}
	var food model.Food
	if err := db.Where("id = ? AND user_id = ?", foodID, userID).First(&food).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("food")
		}
		return nil, storeFault(s.log, "getFood", userID, err)
	}
	return &food, nil
}

func foodFromRequest(req *types.FoodRequest) (*model.Food, error) {
	if req == nil {
		return nil, invalid("", "request body is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if req.Calories == nil {
		return nil, invalid("calories", "is required")
	}

	var macros model.Macros
	fields := []struct {
		name string
		in   *float64
		out  *float64
	}{
		{"calories", req.Calories, &macros.Calories},
		{"protein", req.Protein, &macros.Protein},
		{"carbs", req.Carbs, &macros.Carbs},
		{"fat", req.Fat, &macros.Fat},
	}
	for _, f := range fields {
		if f.in == nil {
			continue
		}
		if math.IsNaN(*f.in) || math.IsInf(*f.in, 0) || *f.in < 0 {
			return nil, invalid(f.name, "must be a non-negative number")
		}
		*f.out = *f.in
	}

	return &model.Food{
		Name:   name,
		Brand:  strings.TrimSpace(req.Brand),
		Macros: macros,
		Tags:   model.CleanTags(req.Tags),
	}, nil
}
