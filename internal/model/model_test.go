package model

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMealName(t *testing.T) {
	tests := []struct {
		in      string
		want    MealName
		wantErr bool
	}{
		{"Breakfast", Breakfast, false},
		{"lunch", Lunch, false},
		{" DINNER ", Dinner, false},
		{"snack", Snack, false},
		{"Brunch", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMealName(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMealNameConcurrent(t *testing.T) {
	inputs := map[string]MealName{"breakfast": Breakfast, "LUNCH": Lunch, " dinner ": Dinner, "snack": Snack}

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				for in, want := range inputs {
					got, err := ParseMealName(in)
					if err != nil || got != want {
						errs <- in
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for in := range errs {
		t.Errorf("ParseMealName(%q) returned a wrong result under concurrency", in)
	}
}

func TestCleanTags(t *testing.T) {
	got := CleanTags([]string{" Dairy ", "", "Protein", "Dairy", "  ", "AI Generated"})
	assert.Equal(t, Tags{"Dairy", "Protein", "AI Generated"}, got)
	assert.True(t, got.Contains("Protein"))
	assert.False(t, got.Contains("protein"))

	assert.Equal(t, Tags{}, CleanTags(nil))
}

func TestTagsValueScan(t *testing.T) {
	v, err := Tags{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, v)

	v, err = Tags(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var tags Tags
	require.NoError(t, tags.Scan([]byte(`["x","y"]`)))
	assert.Equal(t, Tags{"x", "y"}, tags)

	require.NoError(t, tags.Scan(nil))
	assert.Empty(t, tags)

	assert.Error(t, tags.Scan(42))
}

func TestTotals(t *testing.T) {
	oats := Food{ID: uuid.New(), Name: "Oats", Macros: Macros{Calories: 150, Protein: 5, Carbs: 27, Fat: 3}}
	milk := Food{ID: uuid.New(), Name: "Milk", Macros: Macros{Calories: 100, Protein: 8, Carbs: 12, Fat: 2.5}}
	catalog := NewCatalog([]Food{oats, milk})

	entries := []FoodEntry{
		{FoodID: oats.ID, Quantity: 2},
		{FoodID: milk.ID, Quantity: 0.5},
		{FoodID: uuid.New(), Quantity: 3},
	}

	got := Totals(entries, catalog)
	assert.InDelta(t, 350, got.Calories, 1e-9)
	assert.InDelta(t, 14, got.Protein, 1e-9)
	assert.InDelta(t, 60, got.Carbs, 1e-9)
	assert.InDelta(t, 7.25, got.Fat, 1e-9)

	assert.Equal(t, Macros{}, Totals(nil, catalog))
}

func TestTotalsIgnoresEntryOrder(t *testing.T) {
	foods := []Food{
		{ID: uuid.New(), Macros: Macros{Calories: 95, Protein: 0.5, Carbs: 25, Fat: 0.3}},
		{ID: uuid.New(), Macros: Macros{Calories: 72, Protein: 6.3, Carbs: 0.4, Fat: 4.8}},
		{ID: uuid.New(), Macros: Macros{Calories: 190, Protein: 7, Carbs: 7, Fat: 16}},
	}
	catalog := NewCatalog(foods)

	entries := []FoodEntry{
		{FoodID: foods[0].ID, Quantity: 1.5},
		{FoodID: foods[1].ID, Quantity: 2},
		{FoodID: uuid.New(), Quantity: 4},
		{FoodID: foods[2].ID, Quantity: 0.33},
	}
	reversed := make([]FoodEntry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}

	a, b := Totals(entries, catalog), Totals(reversed, catalog)
	assert.InDelta(t, a.Calories, b.Calories, 1e-9)
	assert.InDelta(t, a.Protein, b.Protein, 1e-9)
	assert.InDelta(t, a.Carbs, b.Carbs, 1e-9)
	assert.InDelta(t, a.Fat, b.Fat, 1e-9)
}

func TestTotalsSingleEntryScalesEveryMacro(t *testing.T) {
	yogurt := Food{ID: uuid.New(), Macros: Macros{Calories: 130, Protein: 11, Carbs: 9, Fat: 5}}
	catalog := NewCatalog([]Food{yogurt})

	for _, q := range []float64{0.25, 0.5, 1, 1.75, 3} {
		got := Totals([]FoodEntry{{FoodID: yogurt.ID, Quantity: q}}, catalog)
		assert.InDelta(t, q*130, got.Calories, 1e-9, "q=%v", q)
		assert.InDelta(t, q*11, got.Protein, 1e-9, "q=%v", q)
		assert.InDelta(t, q*9, got.Carbs, 1e-9, "q=%v", q)
		assert.InDelta(t, q*5, got.Fat, 1e-9, "q=%v", q)
	}
}

func TestTotalsPrefersResolvedFood(t *testing.T) {
	egg := Food{ID: uuid.New(), Macros: Macros{Calories: 70, Protein: 6, Fat: 5}}
	entries := []FoodEntry{{FoodID: egg.ID, Quantity: 3, Food: &egg}}

	got := Totals(entries, nil)
	assert.InDelta(t, 210, got.Calories, 1e-9)
	assert.InDelta(t, 18, got.Protein, 1e-9)
}

func TestDayTotals(t *testing.T) {
	rice := Food{ID: uuid.New(), Macros: Macros{Calories: 200, Carbs: 45}}
	catalog := NewCatalog([]Food{rice})

	meals := []Meal{
		{Name: Lunch, Entries: []FoodEntry{{FoodID: rice.ID, Quantity: 1}}},
		{Name: Dinner, Entries: []FoodEntry{{FoodID: rice.ID, Quantity: 1.5}}},
		{Name: Snack},
	}

	got := DayTotals(meals, catalog)
	assert.InDelta(t, 500, got.Calories, 1e-9)
	assert.InDelta(t, 112.5, got.Carbs, 1e-9)
}
