// Package pricing fetches comparable market prices for an identified
// product from the scraper service and derives a competitive listing price
// from them.
package pricing

import (
	"math"
	"sort"
)

// Pricing policy constants. The listing undercuts the market median
// slightly when enough comparables exist, falls back to a discounted mean
// otherwise, and never dips below the floor.
const (
	medianDiscount = 0.95
	meanDiscount   = 0.92
	priceFloor     = 5.0
	defaultPrice   = 50.0
)

// Comp is one comparable listing found on a marketplace.
type Comp struct {
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Condition string  `json:"condition"`
	Platform  string  `json:"platform"`
	URL       string  `json:"url,omitempty"`
}

// Summary aggregates the comparables.
type Summary struct {
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// PriceData is the scraper result for one product.
type PriceData struct {
	Comps   []Comp  `json:"comps"`
	Summary Summary `json:"summary"`
}

// OptimalPrice derives a listing price from the comparables. Comps matching
// the given condition are preferred; with none matching, all comps count.
// Two or more prices price at median times 0.95, fewer at mean times 0.92,
// floored at 5.00 and rounded to cents. No comparables at all returns the
// 50.00 default.
func OptimalPrice(data *PriceData, condition string) float64 {
	if data == nil || len(data.Comps) == 0 {
		return defaultPrice
	}

	comps := make([]Comp, 0, len(data.Comps))
	for _, comp := range data.Comps {
		if comp.Condition == condition {
			comps = append(comps, comp)
		}
	}
	if len(comps) == 0 {
		comps = data.Comps
	}

	prices := make([]float64, len(comps))
	for i, comp := range comps {
		prices[i] = comp.Price
	}

	var optimal float64
	if len(prices) >= 2 {
		optimal = median(prices) * medianDiscount
	} else {
		optimal = mean(prices) * meanDiscount
	}

	return math.Round(math.Max(priceFloor, optimal)*100) / 100
}

// Summarize computes the aggregate view of a comparable set.
func Summarize(comps []Comp) Summary {
	if len(comps) == 0 {
		return Summary{}
	}

	prices := make([]float64, len(comps))
	min, max := comps[0].Price, comps[0].Price
	for i, comp := range comps {
		prices[i] = comp.Price
		if comp.Price < min {
			min = comp.Price
		}
		if comp.Price > max {
			max = comp.Price
		}
	}

	return Summary{
		Avg:    math.Round(mean(prices)*100) / 100,
		Median: median(prices),
		Min:    min,
		Max:    max,
		Count:  len(comps),
	}
}

func mean(prices []float64) float64 {
	var sum float64
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}

func median(prices []float64) float64 {
	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
