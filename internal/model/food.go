package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Tags is an order-preserving set of labels stored as a JSON array.
type Tags []string

// GormDBDataType picks jsonb on postgres and plain text elsewhere.
func (Tags) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

// Value implements the driver.Valuer interface
func (t Tags) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (t *Tags) Scan(value interface{}) error {
	if value == nil {
		*t = Tags{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported tags value %T", value)
	}

	var out []string
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*t = Tags(out)
	return nil
}

// CleanTags trims every tag, drops empty ones and keeps the first occurrence of duplicates.
func CleanTags(in []string) Tags {
	out := make(Tags, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Contains reports whether tag is present.
func (t Tags) Contains(tag string) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// Macros holds the four tracked nutrition values.
type Macros struct {
	Calories float64 `gorm:"type:float;not null;default:0" json:"calories"`
	Protein  float64 `gorm:"type:float;not null;default:0" json:"protein"`
	Carbs    float64 `gorm:"type:float;not null;default:0" json:"carbs"`
	Fat      float64 `gorm:"type:float;not null;default:0" json:"fat"`
}

// Scale multiplies every field by q.
func (m Macros) Scale(q float64) Macros {
	return Macros{
		Calories: m.Calories * q,
		Protein:  m.Protein * q,
		Carbs:    m.Carbs * q,
		Fat:      m.Fat * q,
	}
}

// Add returns the field-wise sum.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
	}
}

// Food is a per-user catalog record with per-unit macros.
type Food struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `gorm:"size:255;not null;index:idx_foods_user_name,priority:1" json:"user_id"`
	Name      string    `gorm:"size:255;not null;index:idx_foods_user_name,priority:2" json:"name"`
	Brand     string    `gorm:"size:255;not null;default:''" json:"brand,omitempty"`
	Macros    `gorm:"embedded"`
	Tags      Tags `json:"tags"`
}

func (f *Food) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Tags == nil {
		f.Tags = Tags{}
	}
	return nil
}
