package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/macrolog/backend/internal/model"
	"github.com/pageza/macrolog/backend/internal/service"
	"github.com/pageza/macrolog/backend/internal/testhelpers"
	"github.com/pageza/macrolog/backend/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recommendFixture struct {
	*diaryFixture
	client *testhelpers.MockModelClient
	hook   *test.Hook
	svc    *service.RecommendationService
	egg    *model.Food
	oats   *model.Food
	banana *model.Food
}

func newRecommendFixture(t *testing.T) *recommendFixture {
	d := newDiaryFixture(t)
	logger, hook := test.NewNullLogger()
	client := &testhelpers.MockModelClient{}
	f := &recommendFixture{
		diaryFixture: d,
		client:       client,
		hook:         hook,
		svc:          service.NewRecommendationService(client, d.diary, d.foods, logger, "gpt-4.1-mini", 5*time.Second),
	}

	f.egg = d.food(t, "u1", "Egg", model.Macros{Calories: 70, Protein: 6, Fat: 5})
	f.oats = d.food(t, "u1", "Oats", model.Macros{Calories: 150, Protein: 5, Carbs: 27, Fat: 3})
	f.banana = d.food(t, "u1", "Banana", model.Macros{Calories: 105, Protein: 1, Carbs: 27})

	ctx := context.Background()
	_, err := d.diary.CreateDay(ctx, "u1", testDate)
	require.NoError(t, err)
	_, err = d.diary.CreateMeal(ctx, "u1", testDate, &types.MealRequest{
		Name:  "Breakfast",
		Foods: []types.EntryRequest{{FoodID: f.egg.ID.String(), Quantity: testhelpers.Float(2)}},
	})
	require.NoError(t, err)
	return f
}

func suggestionJSON(id, name string, calories float64, why string) string {
	return fmt.Sprintf(`{"foodId":%q,"name":%q,"portion":"1 serving","macros":{"calories":%v,"protein":0,"carbs":0,"fat":0},"why":%q}`,
		id, name, calories, why)
}

func TestGetMealRecommendations(t *testing.T) {
	f := newRecommendFixture(t)

	f.client.On("Complete", mock.Anything, mock.MatchedBy(func(req service.ModelRequest) bool {
		return req.Model == "gpt-4.1-mini" &&
			req.SchemaName == "MealRecommendations" &&
			req.ImageURL == "" &&
			strings.Contains(req.User, "Meal: Breakfast") &&
			strings.Contains(req.User, f.oats.ID.String()) &&
			strings.Contains(req.User, `"quantity": 2`)
	})).Return(`{"suggestions":[`+
		suggestionJSON(f.oats.ID.String(), "Oats", 300, "Adds carbs")+`,`+
		suggestionJSON(uuid.NewString(), "Invented Cake", 500, "Made up")+`,`+
		suggestionJSON("not-an-id", "Garbage", 1, "")+`,`+
		suggestionJSON(f.banana.ID.String(), "", 52.5, strings.Repeat("é", 250))+
		`]}`, nil).Once()

	resp, err := f.svc.GetMealRecommendations(context.Background(), "u1", testDate, "breakfast")
	require.NoError(t, err)
	assert.Equal(t, model.Breakfast, resp.MealName)
	require.Len(t, resp.Suggestions, 2)

	oats := resp.Suggestions[0]
	assert.Equal(t, f.oats.ID, oats.FoodID)
	assert.Equal(t, "1 serving", oats.Portion)
	assert.Equal(t, 2.0, oats.SuggestedQuantity)

	banana := resp.Suggestions[1]
	assert.Equal(t, "Banana", banana.Name)
	assert.Equal(t, 0.5, banana.SuggestedQuantity)
	assert.Len(t, []rune(banana.Why), 200)

	require.NotNil(t, f.hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, f.hook.LastEntry().Level)
	assert.Equal(t, 2, f.hook.LastEntry().Data["suggestions"])

	f.client.AssertExpectations(t)
}

func TestGetMealRecommendationsCapsAtFive(t *testing.T) {
	f := newRecommendFixture(t)

	var parts []string
	for i := 0; i < 7; i++ {
		parts = append(parts, suggestionJSON(f.oats.ID.String(), "Oats", 150, "again"))
	}
	f.client.On("Complete", mock.Anything, mock.Anything).Return(`{"suggestions":[`+strings.Join(parts, ",")+`]}`, nil).Once()

	resp, err := f.svc.GetMealRecommendations(context.Background(), "u1", testDate, "Breakfast")
	require.NoError(t, err)
	assert.Len(t, resp.Suggestions, 5)
	for _, entry := range f.hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, entry.Level, entry.Message)
	}
}

func TestGetMealRecommendationsHardFailures(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"not json":         "Try eating more vegetables.",
		"wrong shape":      `{"foods":[]}`,
		"only invented id": `{"suggestions":[` + suggestionJSON(uuid.NewString(), "Ghost", 100, "") + `]}`,
	}
	for name, output := range cases {
		t.Run(name, func(t *testing.T) {
			f := newRecommendFixture(t)
			f.client.On("Complete", mock.Anything, mock.Anything).Return(output, nil).Once()

			resp, err := f.svc.GetMealRecommendations(context.Background(), "u1", testDate, "Breakfast")
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, service.ErrModelCall)
			assert.False(t, errors.Is(err, service.ErrExtractionEmpty))
		})
	}

	t.Run("transport", func(t *testing.T) {
		f := newRecommendFixture(t)
		f.client.On("Complete", mock.Anything, mock.Anything).Return("", context.DeadlineExceeded).Once()

		_, err := f.svc.GetMealRecommendations(context.Background(), "u1", testDate, "Breakfast")
		assert.ErrorIs(t, err, service.ErrModelCall)
	})
}

func TestGetMealRecommendationsPreconditions(t *testing.T) {
	f := newRecommendFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetMealRecommendations(ctx, "", testDate, "Breakfast")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	_, err = f.svc.GetMealRecommendations(ctx, "u1", testDate, "Dinner")
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = f.svc.GetMealRecommendations(ctx, "u1", "2030-01-01", "Breakfast")
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = f.svc.GetMealRecommendations(ctx, "u1", testDate, "Teatime")
	assert.ErrorIs(t, err, service.ErrValidation)

	// a user with a meal but no catalog
	_, err = f.diary.CreateDay(ctx, "u2", testDate)
	require.NoError(t, err)
	_, err = f.diary.CreateMeal(ctx, "u2", testDate, &types.MealRequest{Name: "Lunch"})
	require.NoError(t, err)
	_, err = f.svc.GetMealRecommendations(ctx, "u2", testDate, "Lunch")
	assert.ErrorIs(t, err, service.ErrValidation)

	f.client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}
