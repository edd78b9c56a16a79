package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// MealName is one of the fixed meal slots of a day.
type MealName string

const (
	Breakfast MealName = "Breakfast"
	Lunch     MealName = "Lunch"
	Dinner    MealName = "Dinner"
	Snack     MealName = "Snack"
)

// MealNames lists the slots in display order.
var MealNames = []MealName{Breakfast, Lunch, Dinner, Snack}

// ParseMealName canonicalizes s ("dinner", " DINNER ") to a slot name.
func ParseMealName(s string) (MealName, error) {
	// a Caser is stateful, so each call gets its own
	name := MealName(cases.Title(language.English).String(strings.TrimSpace(s)))
	if name.Valid() {
		return name, nil
	}
	return "", fmt.Errorf("meal name must be one of Breakfast, Lunch, Dinner, Snack; got %q", s)
}

// Valid reports whether n is one of the fixed slots.
func (n MealName) Valid() bool {
	for _, v := range MealNames {
		if n == v {
			return true
		}
	}
	return false
}

// Day is a user's container for one calendar date.
type Day struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `gorm:"size:255;not null;uniqueIndex:idx_days_user_date,priority:1" json:"user_id"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_days_user_date,priority:2" json:"date"`
	Meals     []Meal    `gorm:"foreignKey:DayID" json:"meals"`
	Totals    Macros    `gorm:"-" json:"totals"`
}

func (d *Day) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Meal is a named slot within a Day. It carries no user id; ownership comes from the Day.
type Meal struct {
	ID        uuid.UUID   `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	DayID     uuid.UUID   `gorm:"type:varchar(36);not null;uniqueIndex:idx_meals_day_name,priority:1" json:"day_id"`
	Name      MealName    `gorm:"size:20;not null;uniqueIndex:idx_meals_day_name,priority:2" json:"name"`
	Entries   []FoodEntry `gorm:"foreignKey:MealID" json:"foods"`
	Totals    Macros      `gorm:"-" json:"totals"`
}

func (m *Meal) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// FoodEntry is a quantity-scaled reference from a Meal to a Food.
type FoodEntry struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	MealID    uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_entries_meal_food,priority:1" json:"meal_id"`
	FoodID    uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_entries_meal_food,priority:2" json:"food_id"`
	Quantity  float64   `gorm:"type:float;not null;default:1" json:"quantity"`
	Position  int       `gorm:"not null;default:0" json:"position"`

	// Food is resolved at read time; nil when the referenced food no longer exists.
	Food *Food `gorm:"-" json:"food"`
}

func (e *FoodEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
