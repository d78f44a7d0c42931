package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the price scraper service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a scraper client for the given base URL (e.g.
// http://localhost:5000).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			// Scraping drives a real browser on the other end; give it room.
			Timeout: 2 * time.Minute,
		},
	}
}

// priceRequest is the scraper request body.
type priceRequest struct {
	ProductName     string   `json:"product_name"`
	Platforms       []string `json:"platforms"`
	ConditionFilter string   `json:"condition_filter"`
}

// priceResponse is the scraper response envelope.
type priceResponse struct {
	OK      bool       `json:"ok"`
	Message string     `json:"message,omitempty"`
	Data    *PriceData `json:"data,omitempty"`
}

// GetPrices fetches comparable listings for the product across the given
// platforms. An empty conditionFilter means all conditions.
func (c *Client) GetPrices(ctx context.Context, productName string, platforms []string, conditionFilter string) (*PriceData, error) {
	if conditionFilter == "" {
		conditionFilter = "all"
	}

	body, err := json.Marshal(priceRequest{
		ProductName:     productName,
		Platforms:       platforms,
		ConditionFilter: conditionFilter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal price request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/scraper/prices", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraper request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read scraper response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scraper returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope priceResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse scraper response: %v", err)
	}
	if !envelope.OK || envelope.Data == nil {
		return nil, fmt.Errorf("scraper found no prices for %q: %s", productName, envelope.Message)
	}

	// Some scraper versions return comps without the aggregate block;
	// compute it from the comps so pricing always has a summary.
	data := envelope.Data
	if data.Summary.Count == 0 && len(data.Comps) > 0 {
		data.Summary = Summarize(data.Comps)
	}
	return data, nil
}
