// Package resale decides which detected object classes are worth reselling
// by showing the capture and the detected label list to a vision model.
package resale

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/declutter-ai/declutter/pkg/client"
	"github.com/declutter-ai/declutter/pkg/detect"
)

// PromptTemplate asks the model to confirm which detected labels are worth
// reselling. The %s placeholder receives a JSON array of the labels.
const PromptTemplate = `You are an expert in decluttering and second-hand resale.
Here is a list of generic objects detected in the image: %s.
Examine the image visually and confirm which of these items are worth the effort of reselling.
Be permissive and include all functional electronics (e.g., laptop, keyboard), quality bags, and any items that appear to be branded or in excellent condition.

Return a JSON array of the object names from the provided list that correspond to resellable items.
Example format: ["laptop", "handbag", "book"]
JSON only. No markdown, no code fences, no extra text or explanation.`

// Classifier filters detected labels down to the resellable ones.
type Classifier struct {
	client      client.VisionClient
	model       string
	passthrough bool
}

// NewClassifier creates a classifier using the given vision client and
// model name.
func NewClassifier(vc client.VisionClient, model string) *Classifier {
	return &Classifier{client: vc, model: model}
}

// NewPassthrough creates a classifier that keeps every label without
// consulting a model, deferring resellability to the recognition stage.
func NewPassthrough() *Classifier {
	return &Classifier{passthrough: true}
}

// FilterResellable returns the subset of labels judged resellable in the
// image. Matching against the model's reply is case-insensitive and the
// returned labels are always the caller's originals. A reply that cannot
// be parsed means nothing was confirmed resellable; it is not an error.
func (c *Classifier) FilterResellable(ctx context.Context, imgB64 string, labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	if c.passthrough {
		out := make([]string, len(labels))
		copy(out, labels)
		return out, nil
	}

	labelList, err := json.Marshal(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to encode label list: %w", err)
	}

	prompt := fmt.Sprintf(PromptTemplate, string(labelList))
	reply, err := c.client.Query(ctx, c.model, prompt, imgB64)
	if err != nil {
		return nil, fmt.Errorf("resale classification failed: %w", err)
	}

	return matchLabels(labels, parseLabelList(reply)), nil
}

// parseLabelList extracts a string array from the model reply, tolerating
// fences and surrounding prose. Unparseable replies yield nil.
func parseLabelList(raw string) []string {
	raw = client.SanitizeModelJSON(raw)

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil
	}
	return names
}

// matchLabels returns the input labels the model confirmed, compared
// case-insensitively, preserving input order and casing.
func matchLabels(labels, confirmed []string) []string {
	confirmedSet := make(map[string]struct{}, len(confirmed))
	for _, name := range confirmed {
		confirmedSet[detect.NormalizeLabel(name)] = struct{}{}
	}

	var out []string
	for _, label := range labels {
		if _, ok := confirmedSet[strings.ToLower(label)]; ok {
			out = append(out, label)
		}
	}
	return out
}
