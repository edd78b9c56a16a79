package model

import "github.com/google/uuid"

// Catalog resolves food ids to foods when computing totals.
type Catalog map[uuid.UUID]Food

// NewCatalog indexes foods by id.
func NewCatalog(foods []Food) Catalog {
	c := make(Catalog, len(foods))
	for _, f := range foods {
		c[f.ID] = f
	}
	return c
}

// EntryMacros is the contribution of a single entry. Unresolved foods contribute zero.
func EntryMacros(e FoodEntry, catalog Catalog) Macros {
	if e.Food != nil {
		return e.Food.Macros.Scale(e.Quantity)
	}
	f, ok := catalog[e.FoodID]
	if !ok {
		return Macros{}
	}
	return f.Macros.Scale(e.Quantity)
}

// Totals sums quantity-scaled macros over entries.
func Totals(entries []FoodEntry, catalog Catalog) Macros {
	var sum Macros
	for _, e := range entries {
		sum = sum.Add(EntryMacros(e, catalog))
	}
	return sum
}

// DayTotals sums the totals of every meal of a day.
func DayTotals(meals []Meal, catalog Catalog) Macros {
	var sum Macros
	for _, m := range meals {
		sum = sum.Add(Totals(m.Entries, catalog))
	}
	return sum
}
