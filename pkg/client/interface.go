package client

import "context"

// VisionClient sends one prompt plus one base64-encoded image to a vision
// model and returns the raw text reply. Structured parsing of the reply
// belongs to the caller, since each caller expects a different JSON shape.
type VisionClient interface {
	Query(ctx context.Context, model, prompt, imgB64 string) (string, error)
}
