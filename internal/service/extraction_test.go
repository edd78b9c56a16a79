package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pageza/macrolog/backend/internal/model"
	"github.com/pageza/macrolog/backend/internal/service"
	"github.com/pageza/macrolog/backend/internal/testhelpers"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type extractionFixture struct {
	client *testhelpers.MockModelClient
	foods  *service.FoodService
	hook   *test.Hook
}

func newExtraction(t *testing.T, opts ...service.ExtractionOption) (*service.ExtractionService, *extractionFixture) {
	logger, hook := test.NewNullLogger()
	foods := service.NewFoodService(testhelpers.SetupTestDB(t), logger)
	client := &testhelpers.MockModelClient{}
	svc := service.NewExtractionService(client, foods, logger, "o4-mini", 5*time.Second, opts...)
	return svc, &extractionFixture{client: client, foods: foods, hook: hook}
}

func TestExtractFoodsFromImage(t *testing.T) {
	svc, f := newExtraction(t)
	ctx := context.Background()

	existing, err := f.foods.CreateFood(ctx, "u1", foodReq("Greek Yogurt", 100))
	require.NoError(t, err)

	f.client.On("Complete", mock.Anything, mock.MatchedBy(func(req service.ModelRequest) bool {
		return req.Model == "o4-mini" &&
			req.SchemaName == "create_foods" &&
			strings.HasPrefix(req.ImageURL, "data:image/png;base64,") &&
			strings.Contains(req.System, "AI Generated")
	})).Return(`{"items":[
		{"name":"Greek Yogurt","calories":130,"protein":11,"carbs":9,"fat":5,"tags":["Dairy"],"brand":""},
		{"name":"Granola","calories":"200","protein":5,"carbs":30,"fat":8,"tags":["AI Generated","Cereal"],"brand":"Nature"},
		{"name":"","calories":10,"protein":0,"carbs":0,"fat":0,"tags":[],"brand":""}
	]}`, nil).Once()

	resp, err := svc.ExtractFoodsFromImage(ctx, "u1", pngBytes, "image/png")
	require.NoError(t, err)
	require.Len(t, resp.Foods, 2)
	assert.Empty(t, resp.PhotoURL)

	byName := map[string]model.Food{}
	for _, food := range resp.Foods {
		assert.True(t, food.Tags.Contains(service.AIGeneratedTag), food.Name)
		byName[food.Name] = food
	}
	assert.Equal(t, existing.ID, byName["Greek Yogurt"].ID)
	assert.Equal(t, 130.0, byName["Greek Yogurt"].Calories)
	assert.Equal(t, model.Tags{"Dairy", service.AIGeneratedTag}, byName["Greek Yogurt"].Tags)
	assert.Equal(t, "Nature", byName["Granola"].Brand)
	assert.Equal(t, model.Tags{service.AIGeneratedTag, "Cereal"}, byName["Granola"].Tags)

	f.client.AssertExpectations(t)
}

func TestExtractFoodsNewUserScenario(t *testing.T) {
	svc, f := newExtraction(t)
	ctx := context.Background()

	f.client.On("Complete", mock.Anything, mock.Anything).Return(
		`{"items":[{"name":"Greek Yogurt","calories":130,"protein":11,"carbs":9,"fat":5,"tags":["AI Generated","Dairy"],"brand":""}]}`, nil).Once()

	resp, err := svc.ExtractFoodsFromImage(ctx, "u-new", pngBytes, "image/png")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Foods, 1)
	assert.Equal(t, "Greek Yogurt", resp.Foods[0].Name)
	assert.Equal(t, 130.0, resp.Foods[0].Calories)
	assert.Equal(t, model.Tags{service.AIGeneratedTag, "Dairy"}, resp.Foods[0].Tags)

	catalog, err := f.foods.ListFoods(ctx, "u-new")
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, resp.Foods[0].ID, catalog[0].ID)
}

func TestExtractFoodsSoftFailures(t *testing.T) {
	cases := map[string]string{
		"empty text":    "",
		"not json":      "I see a sandwich!",
		"missing items": `{"foods":[]}`,
		"items wrong":   `{"items":"none"}`,
		"no items":      `{"items":[]}`,
		"all unusable":  `{"items":[{"name":"  ","calories":1}]}`,
	}
	for name, output := range cases {
		t.Run(name, func(t *testing.T) {
			svc, f := newExtraction(t)
			f.client.On("Complete", mock.Anything, mock.Anything).Return(output, nil).Once()

			resp, err := svc.ExtractFoodsFromImage(context.Background(), "u1", pngBytes, "image/png")
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, service.ErrExtractionEmpty)
			assert.False(t, errors.Is(err, service.ErrModelCall))

			foods, err := f.foods.ListFoods(context.Background(), "u1")
			require.NoError(t, err)
			assert.Empty(t, foods)
		})
	}
}

func TestExtractFoodsModelFailure(t *testing.T) {
	svc, f := newExtraction(t)
	f.client.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("connection reset")).Once()

	_, err := svc.ExtractFoodsFromImage(context.Background(), "u1", pngBytes, "image/png")
	assert.ErrorIs(t, err, service.ErrModelCall)
	assert.False(t, errors.Is(err, service.ErrExtractionEmpty))

	var logged bool
	for _, entry := range f.hook.AllEntries() {
		if entry.Data["op"] == "extractFoodsFromImage" && entry.Data["user_id"] == "u1" {
			logged = true
			assert.Equal(t, len(pngBytes), entry.Data["image_bytes"])
		}
	}
	assert.True(t, logged)
}

func TestExtractFoodsRejectsBadInput(t *testing.T) {
	svc, f := newExtraction(t)
	ctx := context.Background()

	_, err := svc.ExtractFoodsFromImage(ctx, "", pngBytes, "image/png")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	_, err = svc.ExtractFoodsFromImage(ctx, "u1", nil, "image/png")
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = svc.ExtractFoodsFromImage(ctx, "u1", []byte("%PDF-1.4 not an image"), "application/pdf")
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = svc.ExtractFoodsFromImage(ctx, "u1", []byte("plain text, honestly"), "")
	assert.ErrorIs(t, err, service.ErrValidation)

	f.client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestExtractFoodsSniffsGenericMIMEType(t *testing.T) {
	svc, f := newExtraction(t)
	f.client.On("Complete", mock.Anything, mock.MatchedBy(func(req service.ModelRequest) bool {
		return strings.HasPrefix(req.ImageURL, "data:image/png;base64,")
	})).Return(`{"items":[{"name":"Pear","calories":60,"protein":0,"carbs":15,"fat":0,"tags":[],"brand":""}]}`, nil).Once()

	resp, err := svc.ExtractFoodsFromImage(context.Background(), "u1", pngBytes, "application/octet-stream")
	require.NoError(t, err)
	require.Len(t, resp.Foods, 1)
	f.client.AssertExpectations(t)
}

func TestExtractFoodsScreener(t *testing.T) {
	screener := &testhelpers.MockScreener{}
	svc, f := newExtraction(t, service.WithScreener(screener))
	ctx := context.Background()

	screener.On("LooksLikeFood", mock.Anything, pngBytes).Return(false, nil).Once()
	_, err := svc.ExtractFoodsFromImage(ctx, "u1", pngBytes, "image/png")
	assert.ErrorIs(t, err, service.ErrExtractionEmpty)
	f.client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)

	screener.On("LooksLikeFood", mock.Anything, pngBytes).Return(false, errors.New("throttled")).Once()
	f.client.On("Complete", mock.Anything, mock.Anything).
		Return(`{"items":[{"name":"Kiwi","calories":40,"protein":1,"carbs":10,"fat":0,"tags":[],"brand":""}]}`, nil).Once()
	resp, err := svc.ExtractFoodsFromImage(ctx, "u1", pngBytes, "image/png")
	require.NoError(t, err)
	assert.Len(t, resp.Foods, 1)

	screener.AssertExpectations(t)
	f.client.AssertExpectations(t)
}

func TestExtractFoodsArchivesPhoto(t *testing.T) {
	archive := &testhelpers.MockPhotoArchive{}
	svc, f := newExtraction(t, service.WithPhotoArchive(archive))
	ctx := context.Background()
	output := `{"items":[{"name":"Plum","calories":30,"protein":0,"carbs":8,"fat":0,"tags":[],"brand":""}]}`

	f.client.On("Complete", mock.Anything, mock.Anything).Return(output, nil).Twice()
	archive.On("Store", mock.Anything, "u1", pngBytes, "image/png").Return("https://bucket.s3.amazonaws.com/food-photos/u1/x.png", nil).Once()
	archive.On("Store", mock.Anything, "u1", pngBytes, "image/png").Return("", errors.New("access denied")).Once()

	resp, err := svc.ExtractFoodsFromImage(ctx, "u1", pngBytes, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/food-photos/u1/x.png", resp.PhotoURL)

	resp, err = svc.ExtractFoodsFromImage(ctx, "u1", pngBytes, "image/png")
	require.NoError(t, err)
	assert.Empty(t, resp.PhotoURL)
	assert.Len(t, resp.Foods, 1)

	archive.AssertExpectations(t)
}
