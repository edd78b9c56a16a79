package service

import (
	"math"

	"github.com/pageza/macrolog/backend/internal/model"
)

// MinSuggestedQuantity is the smallest multiplier a suggestion resolves to.
const MinSuggestedQuantity = 0.25

// SuggestedQuantity back-solves the entry multiplier that turns perUnit into
// suggested. It averages suggested/perUnit over every macro that is nonzero on
// both sides, rounds to two decimals and clamps to MinSuggestedQuantity. With no
// usable macro it returns 1.
func SuggestedQuantity(suggested, perUnit model.Macros) float64 {
	pairs := [][2]float64{
		{suggested.Calories, perUnit.Calories},
		{suggested.Protein, perUnit.Protein},
		{suggested.Carbs, perUnit.Carbs},
		{suggested.Fat, perUnit.Fat},
	}

	var sum float64
	var n int
	for _, p := range pairs {
		if p[0] == 0 || p[1] == 0 {
			continue
		}
		ratio := p[0] / p[1]
		if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 0 {
			continue
		}
		sum += ratio
		n++
	}
	if n == 0 {
		return 1
	}

	q := math.Round(sum/float64(n)*100) / 100
	if q == 0 {
		q = 1
	}
	return math.Max(MinSuggestedQuantity, q)
}
