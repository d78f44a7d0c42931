package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOptimalPriceMedianWithTwoOrMoreComps(t *testing.T) {
	data := &PriceData{Comps: []Comp{
		{Price: 100, Condition: "used"},
		{Price: 200, Condition: "used"},
		{Price: 300, Condition: "used"},
	}}

	// median 200 * 0.95
	if got := OptimalPrice(data, "used"); got != 190.00 {
		t.Errorf("OptimalPrice() = %.2f, want 190.00", got)
	}
}

func TestOptimalPriceMeanWithSingleComp(t *testing.T) {
	data := &PriceData{Comps: []Comp{
		{Price: 100, Condition: "used"},
	}}

	// single price: 100 * 0.92
	if got := OptimalPrice(data, "used"); got != 92.00 {
		t.Errorf("OptimalPrice() = %.2f, want 92.00", got)
	}
}

func TestOptimalPriceConditionFilterFallsBack(t *testing.T) {
	data := &PriceData{Comps: []Comp{
		{Price: 100, Condition: "new"},
		{Price: 200, Condition: "new"},
	}}

	// Nothing matches "used"; all comps count instead. median 150 * 0.95
	if got := OptimalPrice(data, "used"); got != 142.50 {
		t.Errorf("OptimalPrice() = %.2f, want 142.50", got)
	}
}

func TestOptimalPriceFloor(t *testing.T) {
	data := &PriceData{Comps: []Comp{
		{Price: 1, Condition: "used"},
		{Price: 2, Condition: "used"},
	}}

	if got := OptimalPrice(data, "used"); got != 5.00 {
		t.Errorf("OptimalPrice() = %.2f, want the 5.00 floor", got)
	}
}

func TestOptimalPriceDefault(t *testing.T) {
	if got := OptimalPrice(nil, "used"); got != 50.00 {
		t.Errorf("OptimalPrice(nil) = %.2f, want 50.00", got)
	}
	if got := OptimalPrice(&PriceData{}, "used"); got != 50.00 {
		t.Errorf("OptimalPrice(empty) = %.2f, want 50.00", got)
	}
}

func TestSummarize(t *testing.T) {
	comps := []Comp{
		{Price: 10},
		{Price: 30},
		{Price: 20},
		{Price: 40},
	}

	s := Summarize(comps)
	if s.Count != 4 {
		t.Errorf("Count = %d, want 4", s.Count)
	}
	if s.Avg != 25.00 {
		t.Errorf("Avg = %.2f, want 25.00", s.Avg)
	}
	if s.Median != 25.00 {
		t.Errorf("Median = %.2f, want 25.00", s.Median)
	}
	if s.Min != 10 || s.Max != 40 {
		t.Errorf("Min/Max = %.2f/%.2f, want 10/40", s.Min, s.Max)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if s := Summarize(nil); s.Count != 0 || s.Avg != 0 {
		t.Errorf("Summarize(nil) = %+v, want zero value", s)
	}
}

func TestGetPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/scraper/prices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req priceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.ProductName != "Sony WH-1000XM4" {
			t.Errorf("product_name = %q", req.ProductName)
		}
		if req.ConditionFilter != "all" {
			t.Errorf("condition_filter = %q, want all default", req.ConditionFilter)
		}

		json.NewEncoder(w).Encode(priceResponse{
			OK: true,
			Data: &PriceData{
				Comps:   []Comp{{Title: "Sony XM4", Price: 150, Condition: "used", Platform: "ebay"}},
				Summary: Summary{Avg: 150, Median: 150, Min: 150, Max: 150, Count: 1},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	data, err := c.GetPrices(context.Background(), "Sony WH-1000XM4", []string{"facebook", "ebay"}, "")
	if err != nil {
		t.Fatalf("GetPrices() error: %v", err)
	}
	if len(data.Comps) != 1 || data.Comps[0].Price != 150 {
		t.Errorf("unexpected comps: %+v", data.Comps)
	}
}

func TestGetPricesComputesMissingSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(priceResponse{
			OK: true,
			Data: &PriceData{
				Comps: []Comp{
					{Title: "a", Price: 100, Condition: "used", Platform: "ebay"},
					{Title: "b", Price: 200, Condition: "used", Platform: "facebook"},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	data, err := c.GetPrices(context.Background(), "Sony WH-1000XM4", nil, "")
	if err != nil {
		t.Fatalf("GetPrices() error: %v", err)
	}
	if data.Summary.Count != 2 {
		t.Errorf("Summary.Count = %d, want 2", data.Summary.Count)
	}
	if data.Summary.Median != 150 || data.Summary.Avg != 150 {
		t.Errorf("Summary = %+v, want median/avg 150", data.Summary)
	}
	if data.Summary.Min != 100 || data.Summary.Max != 200 {
		t.Errorf("Summary min/max = %v/%v, want 100/200", data.Summary.Min, data.Summary.Max)
	}
}

func TestGetPricesNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(priceResponse{OK: false, Message: "no results"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.GetPrices(context.Background(), "Unknown Thing", nil, "all"); err == nil {
		t.Fatal("expected error for ok=false response")
	}
}
