package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/declutter-ai/declutter/pkg/pricing"
)

// Client posts listings through the marketplace automation service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a listing client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			// The other end drives a browser through a login flow.
			Timeout: 5 * time.Minute,
		},
	}
}

// listingRequest is the automation service request body.
type listingRequest struct {
	Product     productPayload     `json:"product"`
	PricingData *pricing.PriceData `json:"pricing_data,omitempty"`
	Platforms   []string           `json:"platforms"`
	Images      []string           `json:"images,omitempty"`
}

type productPayload struct {
	Name      string  `json:"name"`
	Condition string  `json:"condition"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
}

// PlatformResult is the outcome of posting to one marketplace.
type PlatformResult struct {
	OK     bool   `json:"ok"`
	PostID string `json:"post_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Posted reports whether any platform accepted the listing.
func Posted(results map[string]PlatformResult) bool {
	for _, r := range results {
		if r.OK {
			return true
		}
	}
	return false
}

// platformEndpoints maps platform names to their automation endpoints.
var platformEndpoints = map[string]string{
	"facebook": "/api/listing/facebook",
	"ebay":     "/api/listing/ebay",
}

// Create posts the draft to each requested platform. Per-platform failures
// are recorded in the result map rather than aborting the rest; the error
// return is reserved for requests that could not be built at all.
func (c *Client) Create(ctx context.Context, draft Draft, data *pricing.PriceData, platforms []string, imagesB64 []string) (map[string]PlatformResult, error) {
	payload := listingRequest{
		Product: productPayload{
			Name:      draft.Title,
			Condition: draft.Condition,
			Category:  draft.Category,
			Price:     draft.Price,
		},
		PricingData: data,
		Platforms:   normalizePlatforms(platforms),
		Images:      imagesB64,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal listing request: %v", err)
	}

	results := make(map[string]PlatformResult, len(payload.Platforms))
	for _, platform := range payload.Platforms {
		endpoint, ok := platformEndpoints[platform]
		if !ok {
			results[platform] = PlatformResult{Error: fmt.Sprintf("unknown platform %q", platform)}
			continue
		}
		results[platform] = c.post(ctx, endpoint, body)
	}
	return results, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) PlatformResult {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return PlatformResult{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PlatformResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return PlatformResult{Error: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return PlatformResult{Error: fmt.Sprintf("API returned %d: %s", resp.StatusCode, string(respBody))}
	}

	var envelope struct {
		OK   bool `json:"ok"`
		Data struct {
			Success bool   `json:"success"`
			PostID  string `json:"post_id"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return PlatformResult{Error: fmt.Sprintf("unparseable response: %v", err)}
	}
	if !envelope.OK {
		return PlatformResult{Error: envelope.Message}
	}
	return PlatformResult{OK: true, PostID: envelope.Data.PostID}
}

// normalizePlatforms lowercases platform names and folds the long-form
// "facebook marketplace" onto "facebook".
func normalizePlatforms(platforms []string) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "facebook marketplace" {
			p = "facebook"
		}
		out = append(out, p)
	}
	return out
}
