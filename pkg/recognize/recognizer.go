// Package recognize identifies the concrete product in a cropped item
// image so it can be priced and listed under a searchable name.
package recognize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/declutter-ai/declutter/pkg/client"
)

// DefaultPrompt asks the model to name the product in the crop.
const DefaultPrompt = `You are a second-hand marketplace expert identifying a product from a photo.

Return JSON only:
{
  "product_name": "string, full searchable product name including brand and model",
  "brand": "string or empty if unknown",
  "model": "string or empty if unknown",
  "condition": "one of: new, like new, good, fair, poor"
}

HARD RULES
- product_name must be specific enough to search a marketplace with (e.g. "Apple MacBook Air M1 2020", not "laptop").
- If the item cannot be identified as a sellable product, return:
  {"product_name":"","brand":"","model":"","condition":"good"}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Product holds what the model could tell about one cropped item.
type Product struct {
	ProductName string `json:"product_name"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Condition   string `json:"condition"`
}

// Identified reports whether the model put a usable name on the item.
func (p *Product) Identified() bool {
	return p != nil && strings.TrimSpace(p.ProductName) != ""
}

// Recognizer names products from cropped item images.
type Recognizer struct {
	client client.VisionClient
	model  string
}

// NewRecognizer creates a recognizer using the given vision client and
// model name.
func NewRecognizer(vc client.VisionClient, model string) *Recognizer {
	return &Recognizer{client: vc, model: model}
}

// Identify asks the model to name the product in the crop. An
// unidentifiable item returns a Product with an empty name, not an error;
// only transport failures error.
func (r *Recognizer) Identify(ctx context.Context, imgB64 string) (*Product, error) {
	reply, err := r.client.Query(ctx, r.model, DefaultPrompt, imgB64)
	if err != nil {
		return nil, fmt.Errorf("product recognition failed: %w", err)
	}
	return parseProduct(reply), nil
}

// parseProduct decodes the model reply, degrading to an unidentified
// product when the reply is not usable JSON.
func parseProduct(raw string) *Product {
	raw = client.SanitizeModelJSON(raw)

	var p Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return &Product{Condition: "good"}
	}
	if p.Condition == "" {
		p.Condition = "good"
	}
	return &p
}
