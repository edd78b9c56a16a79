package service

import (
	"context"
	"errors"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/macrolog/backend/internal/model"
	"github.com/pageza/macrolog/backend/internal/types"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DiaryService owns the Day -> Meal -> FoodEntry aggregate. Meals and entries are
// only ever reached through a Day already filtered by user.
type DiaryService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewDiaryService creates a new DiaryService instance
func NewDiaryService(db *gorm.DB, log logrus.FieldLogger) *DiaryService {
	return &DiaryService{db: db, log: log}
}

// CreateDay creates an empty day for date.
func (s *DiaryService) CreateDay(ctx context.Context, userID, date string) (*model.Day, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateDate("date", date); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&model.Day{}).Where("user_id = ? AND date = ?", userID, date).Count(&count).Error; err != nil {
		return nil, storeFault(s.log, "createDay", userID, err)
	}
	if count > 0 {
		return nil, conflict("day %s", date)
	}

	day := &model.Day{UserID: userID, Date: date}
	if err := db.Create(day).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("day %s", date)
		}
		return nil, storeFault(s.log, "createDay", userID, err)
	}
	day.Meals = []model.Meal{}
	return day, nil
}

// GetDay returns a day with its meals, resolved entries and totals.
func (s *DiaryService) GetDay(ctx context.Context, userID, date string) (*model.Day, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateDate("date", date); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	day, err := findDay(db, userID, date)
	if err != nil {
		return nil, storeFault(s.log, "getDay", userID, err)
	}
	days := []model.Day{*day}
	if err := hydrateDays(db, userID, days); err != nil {
		return nil, storeFault(s.log, "getDay", userID, err)
	}
	return &days[0], nil
}

// ListDays returns every day of the user, newest date first.
func (s *DiaryService) ListDays(ctx context.Context, userID string) ([]model.Day, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	days := []model.Day{}
	if err := db.Where("user_id = ?", userID).Order("date DESC").Find(&days).Error; err != nil {
		return nil, storeFault(s.log, "listDays", userID, err)
	}
	if err := hydrateDays(db, userID, days); err != nil {
		return nil, storeFault(s.log, "listDays", userID, err)
	}
	return days, nil
}

// UpdateDay moves a day, with all its meals, to newDate.
func (s *DiaryService) UpdateDay(ctx context.Context, userID, date, newDate string) (*model.Day, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateDate("date", newDate); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		day, err := findDay(tx, userID, date)
		if err != nil {
			return err
		}
		if day.Date == newDate {
			return nil
		}

		var count int64
		if err := tx.Model(&model.Day{}).Where("user_id = ? AND date = ?", userID, newDate).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("day %s", newDate)
		}

		if err := tx.Model(day).Update("date", newDate).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflict("day %s", newDate)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storeFault(s.log, "updateDay", userID, err)
	}
	return s.GetDay(ctx, userID, newDate)
}

// DeleteDay removes a day together with its meals and entries in one transaction.
func (s *DiaryService) DeleteDay(ctx context.Context, userID, date string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		day, err := findDay(tx, userID, date)
		if err != nil {
			return err
		}

		var mealIDs []uuid.UUID
		if err := tx.Model(&model.Meal{}).Where("day_id = ?", day.ID).Pluck("id", &mealIDs).Error; err != nil {
			return err
		}
		if len(mealIDs) > 0 {
			if err := tx.Where("meal_id IN ?", mealIDs).Delete(&model.FoodEntry{}).Error; err != nil {
				return err
			}
			if err := tx.Where("day_id = ?", day.ID).Delete(&model.Meal{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(day).Error
	})
	return storeFault(s.log, "deleteDay", userID, err)
}

// CreateMeal adds a named meal to an existing day, optionally with initial entries.
func (s *DiaryService) CreateMeal(ctx context.Context, userID, date string, req *types.MealRequest) (*model.Meal, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalid("", "request body is required")
	}
	name, err := parseMealName(req.Name)
	if err != nil {
		return nil, err
	}

	var meal *model.Meal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		day, err := findDay(tx, userID, date)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&model.Meal{}).Where("day_id = ? AND name = ?", day.ID, name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("meal %s on %s", name, date)
		}

		meal = &model.Meal{DayID: day.ID, Name: name}
		if err := tx.Omit("Entries").Create(meal).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflict("meal %s on %s", name, date)
			}
			return err
		}
		return replaceEntries(tx, userID, meal.ID, req.Foods)
	})
	if err != nil {
		return nil, storeFault(s.log, "createMeal", userID, err)
	}
	return s.loadMeal(ctx, userID, meal.ID)
}

// ListMealsForDay returns the meals of a day in creation order.
func (s *DiaryService) ListMealsForDay(ctx context.Context, userID, date string) ([]model.Meal, error) {
	day, err := s.GetDay(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return day.Meals, nil
}

// GetMealByName returns one meal of a day with resolved entries and totals.
func (s *DiaryService) GetMealByName(ctx context.Context, userID, date, mealName string) (*model.Meal, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	_, meal, err := findMeal(s.db.WithContext(ctx), userID, date, mealName)
	if err != nil {
		return nil, storeFault(s.log, "getMealByName", userID, err)
	}
	return s.loadMeal(ctx, userID, meal.ID)
}

// UpdateMeal renames a meal to an unused name and/or replaces all of its entries.
func (s *DiaryService) UpdateMeal(ctx context.Context, userID, date, mealName string, req *types.UpdateMealRequest) (*model.Meal, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalid("", "request body is required")
	}

	var mealID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		day, meal, err := findMeal(tx, userID, date, mealName)
		if err != nil {
			return err
		}
		mealID = meal.ID

		if req.Name != nil {
			name, err := parseMealName(*req.Name)
			if err != nil {
				return err
			}
			if name != meal.Name {
				var count int64
				if err := tx.Model(&model.Meal{}).Where("day_id = ? AND name = ?", day.ID, name).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return conflict("meal %s on %s", name, date)
				}
				if err := tx.Model(meal).Update("name", name).Error; err != nil {
					if errors.Is(err, gorm.ErrDuplicatedKey) {
						return conflict("meal %s on %s", name, date)
					}
					return err
				}
			}
		}

		if req.Foods != nil {
			if err := tx.Where("meal_id = ?", meal.ID).Delete(&model.FoodEntry{}).Error; err != nil {
				return err
			}
			return replaceEntries(tx, userID, meal.ID, *req.Foods)
		}
		return nil
	})
	if err != nil {
		return nil, storeFault(s.log, "updateMeal", userID, err)
	}
	return s.loadMeal(ctx, userID, mealID)
}

// DeleteMeal detaches a meal from its day and removes it with its entries atomically.
func (s *DiaryService) DeleteMeal(ctx context.Context, userID, date, mealName string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, meal, err := findMeal(tx, userID, date, mealName)
		if err != nil {
			return err
		}
		if err := tx.Where("meal_id = ?", meal.ID).Delete(&model.FoodEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(meal).Error
	})
	return storeFault(s.log, "deleteMeal", userID, err)
}

// AddFoodEntry appends a food to a meal. A food may appear at most once per meal.
func (s *DiaryService) AddFoodEntry(ctx context.Context, userID, date, mealName string, req *types.EntryRequest) (*model.Meal, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalid("", "request body is required")
	}
	quantity := 1.0
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if req.FoodID == "" {
		return nil, invalid("foodId", "is required")
	}

	var mealID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, meal, err := findMeal(tx, userID, date, mealName)
		if err != nil {
			return err
		}
		mealID = meal.ID

		food, err := findOwnedFood(tx, userID, req.FoodID)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&model.FoodEntry{}).Where("meal_id = ? AND food_id = ?", meal.ID, food.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("food %s already in %s", food.Name, meal.Name)
		}

		position, err := nextPosition(tx, meal.ID)
		if err != nil {
			return err
		}
		entry := &model.FoodEntry{MealID: meal.ID, FoodID: food.ID, Quantity: quantity, Position: position}
		if err := tx.Create(entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflict("food %s already in %s", food.Name, meal.Name)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storeFault(s.log, "addFoodEntry", userID, err)
	}
	return s.loadMeal(ctx, userID, mealID)
}

// UpdateFoodEntry points an entry at another food and sets its quantity. Both are required.
func (s *DiaryService) UpdateFoodEntry(ctx context.Context, userID, date, mealName, entryID string, req *types.EntryRequest) (*model.Meal, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if req == nil || req.FoodID == "" {
		return nil, invalid("foodId", "is required")
	}
	if req.Quantity == nil {
		return nil, invalid("quantity", "is required")
	}
	if err := validateQuantity(*req.Quantity); err != nil {
		return nil, err
	}

	var mealID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, meal, err := findMeal(tx, userID, date, mealName)
		if err != nil {
			return err
		}
		mealID = meal.ID

		entry, err := findEntry(tx, meal.ID, entryID)
		if err != nil {
			return err
		}
		food, err := findOwnedFood(tx, userID, req.FoodID)
		if err != nil {
			return err
		}

		if food.ID != entry.FoodID {
			var count int64
			if err := tx.Model(&model.FoodEntry{}).Where("meal_id = ? AND food_id = ? AND id <> ?", meal.ID, food.ID, entry.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return conflict("food %s already in %s", food.Name, meal.Name)
			}
		}

		err = tx.Model(entry).Updates(map[string]interface{}{"food_id": food.ID, "quantity": *req.Quantity}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return conflict("food %s already in %s", food.Name, meal.Name)
		}
		return err
	})
	if err != nil {
		return nil, storeFault(s.log, "updateFoodEntry", userID, err)
	}
	return s.loadMeal(ctx, userID, mealID)
}

// RemoveFoodEntry deletes one entry from a meal.
func (s *DiaryService) RemoveFoodEntry(ctx context.Context, userID, date, mealName, entryID string) (*model.Meal, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var mealID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, meal, err := findMeal(tx, userID, date, mealName)
		if err != nil {
			return err
		}
		mealID = meal.ID

		id, err := uuid.Parse(entryID)
		if err != nil {
			return notFound("food entry")
		}
		res := tx.Where("id = ? AND meal_id = ?", id, meal.ID).Delete(&model.FoodEntry{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("food entry")
		}
		return nil
	})
	if err != nil {
		return nil, storeFault(s.log, "removeFoodEntry", userID, err)
	}
	return s.loadMeal(ctx, userID, mealID)
}

func (s *DiaryService) loadMeal(ctx context.Context, userID string, mealID uuid.UUID) (*model.Meal, error) {
	db := s.db.WithContext(ctx)
	var meal model.Meal
	if err := db.First(&meal, "id = ?", mealID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("meal")
		}
		return nil, storeFault(s.log, "loadMeal", userID, err)
	}
	meals := []model.Meal{meal}
	if err := hydrateMeals(db, userID, meals); err != nil {
		return nil, storeFault(s.log, "loadMeal", userID, err)
	}
	return &meals[0], nil
}

func validateDate(field, date string) error {
	if !datePattern.MatchString(date) {
		return invalid(field, "must be formatted YYYY-MM-DD")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return invalid(field, "is not a valid calendar date")
	}
	return nil
}

func validateQuantity(q float64) error {
	if math.IsNaN(q) || math.IsInf(q, 0) || q <= 0 {
		return invalid("quantity", "must be greater than 0")
	}
	return nil
}

func parseMealName(s string) (model.MealName, error) {
	name, err := model.ParseMealName(s)
	if err != nil {
		return "", invalid("name", err.Error())
	}
	return name, nil
}

func findDay(db *gorm.DB, userID, date string) (*model.Day, error) {
	if err := validateDate("date", date); err != nil {
		return nil, err
	}
	var day model.Day
	if err := db.Where("user_id = ? AND date = ?", userID, date).First(&day).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("day")
		}
		return nil, err
	}
	return &day, nil
}

func findMeal(db *gorm.DB, userID, date, mealName string) (*model.Day, *model.Meal, error) {
	name, err := parseMealName(mealName)
	if err != nil {
		return nil, nil, err
	}
	day, err := findDay(db, userID, date)
	if err != nil {
		return nil, nil, err
	}
	var meal model.Meal
	if err := db.Where("day_id = ? AND name = ?", day.ID, name).First(&meal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("meal")
		}
		return nil, nil, err
	}
	return day, &meal, nil
}

func findEntry(db *gorm.DB, mealID uuid.UUID, entryID string) (*model.FoodEntry, error) {
	id, err := uuid.Parse(entryID)
	if err != nil {
		return nil, notFound("food entry")
	}
	var entry model.FoodEntry
	if err := db.Where("id = ? AND meal_id = ?", id, mealID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("food entry")
		}
		return nil, err
	}
	return &entry, nil
}

func findOwnedFood(db *gorm.DB, userID, foodID string) (*model.Food, error) {
	id, err := uuid.Parse(foodID)
	if err != nil {
		return nil, notFound("food")
	}
	var food model.Food
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&food).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("food")
		}
		return nil, err
	}
	return &food, nil
}

func nextPosition(db *gorm.DB, mealID uuid.UUID) (int, error) {
	var last model.FoodEntry
	err := db.Where("meal_id = ?", mealID).Order("position DESC").Take(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return last.Position + 1, nil
}

// replaceEntries inserts reqs as the entries of mealID. Callers clear old entries first.
func replaceEntries(tx *gorm.DB, userID string, mealID uuid.UUID, reqs []types.EntryRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	entries := make([]model.FoodEntry, 0, len(reqs))
	seen := make(map[uuid.UUID]struct{}, len(reqs))
	for i, req := range reqs {
		if req.FoodID == "" {
			return invalid("foods", "entry %d is missing foodId", i)
		}
		quantity := 1.0
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		if err := validateQuantity(quantity); err != nil {
			return err
		}
		food, err := findOwnedFood(tx, userID, req.FoodID)
		if err != nil {
			return err
		}
		if _, dup := seen[food.ID]; dup {
			return conflict("food %s listed twice", food.Name)
		}
		seen[food.ID] = struct{}{}
		entries = append(entries, model.FoodEntry{MealID: mealID, FoodID: food.ID, Quantity: quantity, Position: i})
	}
	if err := tx.Create(&entries).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return conflict("duplicate food in meal")
		}
		return err
	}
	return nil
}

// hydrateDays attaches meals, resolved entries and totals to days.
func hydrateDays(db *gorm.DB, userID string, days []model.Day) error {
	if len(days) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(days))
	for i := range days {
		ids[i] = days[i].ID
	}

	var meals []model.Meal
	if err := db.Where("day_id IN ?", ids).Order("created_at ASC").Find(&meals).Error; err != nil {
		return err
	}
	if err := hydrateMeals(db, userID, meals); err != nil {
		return err
	}

	byDay := make(map[uuid.UUID][]model.Meal, len(days))
	for _, m := range meals {
		byDay[m.DayID] = append(byDay[m.DayID], m)
	}
	for i := range days {
		days[i].Meals = byDay[days[i].ID]
		if days[i].Meals == nil {
			days[i].Meals = []model.Meal{}
		}
		days[i].Totals = model.DayTotals(days[i].Meals, nil)
	}
	return nil
}

// hydrateMeals loads entries, resolves their foods within the user's catalog and computes totals.
func hydrateMeals(db *gorm.DB, userID string, meals []model.Meal) error {
	if len(meals) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(meals))
	for i := range meals {
		ids[i] = meals[i].ID
	}

	var entries []model.FoodEntry
	if err := db.Where("meal_id IN ?", ids).Order("position ASC, created_at ASC").Find(&entries).Error; err != nil {
		return err
	}

	catalog := model.Catalog{}
	if len(entries) > 0 {
		foodIDs := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			foodIDs = append(foodIDs, e.FoodID)
		}
		var foods []model.Food
		if err := db.Where("user_id = ? AND id IN ?", userID, foodIDs).Find(&foods).Error; err != nil {
			return err
		}
		catalog = model.NewCatalog(foods)
	}

	byMeal := make(map[uuid.UUID][]model.FoodEntry, len(meals))
	for _, e := range entries {
		if f, ok := catalog[e.FoodID]; ok {
			food := f
			e.Food = &food
		}
		byMeal[e.MealID] = append(byMeal[e.MealID], e)
	}
	for i := range meals {
		meals[i].Entries = byMeal[meals[i].ID]
		if meals[i].Entries == nil {
			meals[i].Entries = []model.FoodEntry{}
		}
		meals[i].Totals = model.Totals(meals[i].Entries, catalog)
	}
	return nil
}
