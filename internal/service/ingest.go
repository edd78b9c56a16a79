package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pageza/macrolog/backend/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AIGeneratedTag marks foods created by photo extraction.
const AIGeneratedTag = "AI Generated"

// NormalizeItems turns raw model output into catalog-ready foods. It never fails:
// unusable items are dropped. An item is dropped when its name is empty or its
// calories are present but not a finite number.
func NormalizeItems(raw []interface{}) []model.Food {
	out := make([]model.Food, 0, len(raw))
	for _, r := range raw {
		item, ok := r.(map[string]interface{})
		if !ok {
			continue
		}

		name := strings.TrimSpace(stringValue(item["name"]))
		if name == "" {
			continue
		}
		calories := caloriesValue(item["calories"])
		if math.IsNaN(calories) || math.IsInf(calories, 0) {
			continue
		}

		var brand string
		if b := item["brand"]; b != nil {
			brand = strings.TrimSpace(stringValue(b))
		}

		var tags []string
		if list, ok := item["tags"].([]interface{}); ok {
			for _, t := range list {
				tags = append(tags, stringValue(t))
			}
		}

		out = append(out, model.Food{
			Name:  name,
			Brand: brand,
			Macros: model.Macros{
				Calories: nonNegative(calories),
				Protein:  nonNegative(finite(numberValue(item["protein"]))),
				Carbs:    nonNegative(finite(numberValue(item["carbs"]))),
				Fat:      nonNegative(finite(numberValue(item["fat"]))),
			},
			Tags: model.CleanTags(tags),
		})
	}
	return out
}

// numberValue coerces v to a float. Absent or non-numeric values are 0; numeric
// strings are parsed, so "Infinity" yields +Inf.
func numberValue(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) {
			return 0
		}
		return f
	default:
		return 0
	}
}

// caloriesValue is numberValue for the required field: absent or null is 0, but
// anything else that is not a number is NaN so the item gets dropped.
func caloriesValue(v interface{}) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64, float32, int, int64:
		return numberValue(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

// UpsertFoods merges normalized items into the user's catalog in a single
// transaction. An item matches an existing food on name, and on brand when the
// item carries one; matches get their macros and tags overwritten, the rest are
// inserted. The matched and inserted foods are read back after commit.
func (s *FoodService) UpsertFoods(ctx context.Context, userID string, items []model.Food) ([]model.Food, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []model.Food{}, nil
	}

	db := s.db.WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			// serializes concurrent ingestions for the same user
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", userID).Error; err != nil {
				return err
			}
		}

		for _, item := range items {
			q := tx.Where("user_id = ? AND name = ?", userID, item.Name)
			if item.Brand != "" {
				q = q.Where("brand = ?", item.Brand)
			}

			var existing model.Food
			err := q.Order("created_at ASC").Take(&existing).Error
			switch {
			case err == nil:
				err = tx.Model(&existing).Updates(map[string]interface{}{
					"calories": item.Calories,
					"protein":  item.Protein,
					"carbs":    item.Carbs,
					"fat":      item.Fat,
					"tags":     item.Tags,
				}).Error
				if err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				food := model.Food{
					UserID: userID,
					Name:   item.Name,
					Brand:  item.Brand,
					Macros: item.Macros,
					Tags:   item.Tags,
				}
				if err := tx.Create(&food).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": userID, "op": "upsertFoods", "items": len(items)}).WithError(err).Error("bulk upsert failed")
		return nil, fmt.Errorf("upsertFoods failed: %w", err)
	}

	clauses := make([]string, 0, len(items))
	args := make([]interface{}, 0, len(items)*2)
	for _, item := range items {
		if item.Brand != "" {
			clauses = append(clauses, "(name = ? AND brand = ?)")
			args = append(args, item.Name, item.Brand)
		} else {
			clauses = append(clauses, "(name = ?)")
			args = append(args, item.Name)
		}
	}

	foods := []model.Food{}
	err = db.Where("user_id = ?", userID).
		Where(strings.Join(clauses, " OR "), args...).
		Order("name ASC").
		Find(&foods).Error
	if err != nil {
		return nil, storeFault(s.log, "upsertFoods", userID, err)
	}
	return foods, nil
}
