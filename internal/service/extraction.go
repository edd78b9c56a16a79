package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pageza/macrolog/backend/internal/types"
	"github.com/sirupsen/logrus"
)

var extractionInstructions = strings.Join([]string{
	"You are extracting foods/macros for a calorie tracker.",
	"Respond with JSON that matches the provided schema exactly.",
	"Each item maps to one product or dish that appears in the image.",
	"Return numbers only. Missing macros → 0.",
	"Prefer per serving; if only per 100 g is present, use that.",
	"Merge duplicate items and add obvious tags.",
	"Always include '" + AIGeneratedTag + "' in the tags array.",
	`Example: {"items":[{"name":"Greek Yogurt","calories":130,"protein":11,"carbs":9,"fat":5,"tags":["` + AIGeneratedTag + `","Dairy"],"brand":""}]}`,
}, "\n")

var extractionSchema = map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"items"},
	"properties": map[string]interface{}{
		"items": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"name", "calories", "protein", "carbs", "fat", "tags", "brand"},
				"properties": map[string]interface{}{
					"name":     map[string]interface{}{"type": "string"},
					"calories": map[string]interface{}{"type": "number"},
					"protein":  map[string]interface{}{"type": "number"},
					"carbs":    map[string]interface{}{"type": "number"},
					"fat":      map[string]interface{}{"type": "number"},
					"tags":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"brand":    map[string]interface{}{"type": "string"},
				},
			},
		},
	},
}

// ExtractionService turns a food photo into catalog entries.
type ExtractionService struct {
	model    ModelClient
	foods    *FoodService
	log      logrus.FieldLogger
	modelID  string
	timeout  time.Duration
	archive  PhotoArchive
	screener ImageScreener
}

// ExtractionOption configures optional collaborators.
type ExtractionOption func(*ExtractionService)

// WithPhotoArchive stores every successfully extracted photo.
func WithPhotoArchive(a PhotoArchive) ExtractionOption {
	return func(s *ExtractionService) { s.archive = a }
}

// WithScreener rejects photos the screener does not consider food before calling the model.
func WithScreener(sc ImageScreener) ExtractionOption {
	return func(s *ExtractionService) { s.screener = sc }
}

// NewExtractionService creates a new ExtractionService instance
func NewExtractionService(client ModelClient, foods *FoodService, log logrus.FieldLogger, modelID string, timeout time.Duration, opts ...ExtractionOption) *ExtractionService {
	s := &ExtractionService{
		model:   client,
		foods:   foods,
		log:     log,
		modelID: modelID,
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractFoodsFromImage reads foods from a photo and merges them into the user's
// catalog. Nothing detected is ErrExtractionEmpty; a failed model call is ErrModelCall.
func (s *ExtractionService) ExtractFoodsFromImage(ctx context.Context, userID string, image []byte, mimeType string) (*types.ExtractionResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, invalid("image", "is required")
	}
	mimeType = imageMIMEType(image, mimeType)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, invalid("image", "must be an image, got %s", mimeType)
	}

	logger := s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"op":          "extractFoodsFromImage",
		"image_bytes": len(image),
		"mime_type":   mimeType,
	})

	if s.screener != nil {
		ok, err := s.screener.LooksLikeFood(ctx, image)
		switch {
		case err != nil:
			logger.WithError(err).Warn("image screening failed, continuing with model call")
		case !ok:
			logger.Info("image screener found no food")
			return nil, ErrExtractionEmpty
		}
	}

	raw, err := s.extractItems(ctx, image, mimeType)
	if err != nil {
		logger.WithError(err).Error("extraction model call failed")
		return nil, err
	}

	items := NormalizeItems(raw)
	for i := range items {
		if !items[i].Tags.Contains(AIGeneratedTag) {
			items[i].Tags = append(items[i].Tags, AIGeneratedTag)
		}
	}
	if len(items) == 0 {
		logger.WithField("items", len(raw)).Info("no usable items extracted")
		return nil, ErrExtractionEmpty
	}

	foods, err := s.foods.UpsertFoods(ctx, userID, items)
	if err != nil {
		return nil, err
	}

	resp := &types.ExtractionResponse{Count: len(foods), Foods: foods}
	if s.archive != nil {
		url, err := s.archive.Store(ctx, userID, image, mimeType)
		if err != nil {
			logger.WithError(err).Warn("failed to archive photo")
		} else {
			resp.PhotoURL = url
		}
	}
	return resp, nil
}

// extractItems returns the raw items array. No text, unparseable text and a
// missing items array all yield an empty result rather than an error.
func (s *ExtractionService) extractItems(ctx context.Context, image []byte, mimeType string) ([]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.model.Complete(ctx, ModelRequest{
		Model:      s.modelID,
		System:     extractionInstructions,
		ImageURL:   "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image),
		SchemaName: "create_foods",
		Schema:     extractionSchema,
	})
	if err != nil {
		return nil, modelFailure(err)
	}
	if text == "" {
		s.log.Warn("no text payload returned from model")
		return nil, nil
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		s.log.WithError(err).Warn("failed to parse model payload")
		return nil, nil
	}
	items, ok := payload["items"].([]interface{})
	if !ok {
		s.log.Warn("model payload missing items array")
		return nil, nil
	}
	return items, nil
}

// imageMIMEType trusts the declared type unless it is missing or generic, in
// which case the content is sniffed.
func imageMIMEType(image []byte, declared string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared == "" || declared == "application/octet-stream" {
		detected := mimetype.Detect(image).String()
		if i := strings.Index(detected, ";"); i >= 0 {
			detected = detected[:i]
		}
		return detected
	}
	return declared
}
