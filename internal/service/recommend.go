package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/macrolog/backend/internal/model"
	"github.com/pageza/macrolog/backend/internal/types"
	"github.com/sirupsen/logrus"
)

const (
	minSuggestions = 3
	maxSuggestions = 5
	maxWhyLength   = 200
)

var recommendationInstructions = strings.Join([]string{
	"You are a nutrition assistant.",
	"Pick 3–5 foods from the provided candidates (do not invent new foods).",
	"Ensure foods are tailored to the specific meal you are targeting",
	"Propose practical portion sizes that help close any dietary gaps.",
	"If gaps are nearly closed, favor balance and variety.",
	"Return strictly valid JSON matching the supplied JSON Schema. No extra keys.",
}, "\n")

var macrosSchema = map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"calories", "protein", "carbs", "fat"},
	"properties": map[string]interface{}{
		"calories": map[string]interface{}{"type": "number"},
		"protein":  map[string]interface{}{"type": "number"},
		"carbs":    map[string]interface{}{"type": "number"},
		"fat":      map[string]interface{}{"type": "number"},
	},
}

var recommendationSchema = map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"suggestions"},
	"properties": map[string]interface{}{
		"suggestions": map[string]interface{}{
			"type":     "array",
			"minItems": minSuggestions,
			"maxItems": maxSuggestions,
			"items": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"foodId", "name", "portion", "macros", "why"},
				"properties": map[string]interface{}{
					"foodId":  map[string]interface{}{"type": "string"},
					"name":    map[string]interface{}{"type": "string"},
					"portion": map[string]interface{}{"type": "string", "description": "e.g., '170 g', '1 cup', '2 tortillas'"},
					"macros":  macrosSchema,
					"why":     map[string]interface{}{"type": "string", "maxLength": maxWhyLength},
				},
			},
		},
	},
}

type promptFood struct {
	FoodID   string        `json:"foodId"`
	Name     string        `json:"name"`
	Brand    *string       `json:"brand"`
	Quantity *float64      `json:"quantity,omitempty"`
	PerUnit  model.Macros  `json:"per_unit"`
	Totals   *model.Macros `json:"totals,omitempty"`
	Tags     model.Tags    `json:"tags"`
}

type rawSuggestion struct {
	FoodID  string       `json:"foodId"`
	Name    string       `json:"name"`
	Portion string       `json:"portion"`
	Macros  model.Macros `json:"macros"`
	Why     string       `json:"why"`
}

// RecommendationService suggests catalog foods that fill a meal's macro gaps.
type RecommendationService struct {
	model   ModelClient
	diary   *DiaryService
	foods   *FoodService
	log     logrus.FieldLogger
	modelID string
	timeout time.Duration
}

// NewRecommendationService creates a new RecommendationService instance
func NewRecommendationService(client ModelClient, diary *DiaryService, foods *FoodService, log logrus.FieldLogger, modelID string, timeout time.Duration) *RecommendationService {
	return &RecommendationService{
		model:   client,
		diary:   diary,
		foods:   foods,
		log:     log,
		modelID: modelID,
		timeout: timeout,
	}
}

// GetMealRecommendations asks the model for up to five candidates from the user's
// catalog. Any response that cannot be parsed, or names no known food, is ErrModelCall.
func (s *RecommendationService) GetMealRecommendations(ctx context.Context, userID, date, mealName string) (*types.RecommendationResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	meal, err := s.diary.GetMealByName(ctx, userID, date, mealName)
	if err != nil {
		return nil, err
	}
	candidates, err := s.foods.ListFoods(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, invalid("catalog", "add foods to your catalog before asking for recommendations")
	}

	logger := s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"op":         "getMealRecommendations",
		"entries":    len(meal.Entries),
		"candidates": len(candidates),
	})

	prompt, err := recommendationPrompt(meal, candidates)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, err := s.model.Complete(callCtx, ModelRequest{
		Model:      s.modelID,
		System:     recommendationInstructions,
		User:       prompt,
		SchemaName: "MealRecommendations",
		Schema:     recommendationSchema,
	})
	if err != nil {
		logger.WithError(err).Error("recommendation model call failed")
		return nil, modelFailure(err)
	}

	suggestions, err := parseSuggestions(text, model.NewCatalog(candidates))
	if err != nil {
		logger.WithError(err).Error("bad recommendation response")
		return nil, modelFailure(err)
	}
	if len(suggestions) < minSuggestions {
		logger.WithField("suggestions", len(suggestions)).Warn("fewer recommendations than requested after filtering")
	}
	return &types.RecommendationResponse{MealName: meal.Name, Suggestions: suggestions}, nil
}

func recommendationPrompt(meal *model.Meal, candidates []model.Food) (string, error) {
	current := make([]promptFood, 0, len(meal.Entries))
	for _, e := range meal.Entries {
		if e.Food == nil {
			continue
		}
		q := e.Quantity
		totals := e.Food.Macros.Scale(q)
		current = append(current, promptFood{
			FoodID:   e.Food.ID.String(),
			Name:     e.Food.Name,
			Brand:    optionalString(e.Food.Brand),
			Quantity: &q,
			PerUnit:  e.Food.Macros,
			Totals:   &totals,
			Tags:     nonNilTags(e.Food.Tags),
		})
	}

	available := make([]promptFood, 0, len(candidates))
	for _, f := range candidates {
		available = append(available, promptFood{
			FoodID:  f.ID.String(),
			Name:    f.Name,
			Brand:   optionalString(f.Brand),
			PerUnit: f.Macros,
			Tags:    nonNilTags(f.Tags),
		})
	}

	currentJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal meal foods: %w", err)
	}
	availableJSON, err := json.MarshalIndent(available, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal candidates: %w", err)
	}

	return strings.Join([]string{
		"Meal: " + string(meal.Name),
		"Foods already in meal (quantity, per-unit macros, totals):",
		string(currentJSON),
		"Candidate foods available to recommend:",
		string(availableJSON),
	}, "\n\n"), nil
}

// parseSuggestions keeps only suggestions naming a known candidate, at most five.
func parseSuggestions(text string, catalog model.Catalog) ([]types.Suggestion, error) {
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}
	var payload struct {
		Suggestions []rawSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("bad response shape: %w", err)
	}
	if payload.Suggestions == nil {
		return nil, fmt.Errorf("bad response shape: missing suggestions")
	}

	out := make([]types.Suggestion, 0, maxSuggestions)
	for _, raw := range payload.Suggestions {
		id, err := uuid.Parse(raw.FoodID)
		if err != nil {
			continue
		}
		food, ok := catalog[id]
		if !ok {
			continue
		}
		name := raw.Name
		if name == "" {
			name = food.Name
		}
		out = append(out, types.Suggestion{
			FoodID:            id,
			Name:              name,
			Portion:           raw.Portion,
			Macros:            raw.Macros,
			Why:               truncateRunes(raw.Why, maxWhyLength),
			SuggestedQuantity: SuggestedQuantity(raw.Macros, food.Macros),
		})
		if len(out) == maxSuggestions {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no suggestion references a catalog food")
	}
	return out, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNilTags(t model.Tags) model.Tags {
	if t == nil {
		return model.Tags{}
	}
	return t
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
