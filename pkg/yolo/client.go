// Package yolo is a client for an external object-detection inference
// service. The detector is a black box behind HTTP: any service that
// accepts an image upload and returns boxes, labels and confidences can
// stand in.
package yolo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/declutter-ai/declutter/pkg/detect"
)

// DefaultConfidence is the minimum score requested from the detector,
// matching the usual YOLO floor for usable detections.
const DefaultConfidence = 0.25

// FallbackLabel names the whole-image pseudo-detection emitted when the
// detector finds nothing. Downstream recognition decides what the "item"
// actually is.
const FallbackLabel = "item"

// cocoRemap papers over vocabulary gaps in COCO-trained detectors.
var cocoRemap = map[string]string{
	"clock": "watch",
}

// Client calls the inference service.
type Client struct {
	inferenceURL string
	confidence   float64
	httpClient   *http.Client
	post         []detect.Postprocessor
}

// NewClient creates a detector client. confidence <= 0 selects
// DefaultConfidence. The confidence floor is requested from the service
// and enforced again client-side, since not every detector honors the
// request field.
func NewClient(inferenceURL string, confidence float64) *Client {
	if confidence <= 0 {
		confidence = DefaultConfidence
	}
	return &Client{
		inferenceURL: inferenceURL,
		confidence:   confidence,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		post: []detect.Postprocessor{
			detect.NewScoreFilter(confidence),
			detect.NewLabelRemap(cocoRemap),
		},
	}
}

// wireDetection is one detector result on the wire.
type wireDetection struct {
	Class      string     `json:"class_name"`
	Confidence float64    `json:"confidence"`
	Box        detect.Box `json:"box"`
}

// wireResponse is the inference service response body.
type wireResponse struct {
	Detections  []wireDetection `json:"detections"`
	ImageWidth  int             `json:"image_width"`
	ImageHeight int             `json:"image_height"`
}

// Detect uploads the image and returns its detections with canonical
// lowercase labels and the COCO vocabulary remap applied. If the detector
// reports nothing and image dimensions are known, a single whole-image
// FallbackLabel detection is returned instead so a lone unrecognized object
// still reaches the recognition stage.
func (c *Client) Detect(ctx context.Context, imageData []byte, filename string) ([]detect.Detection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(imageData)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.WriteField("confidence", strconv.FormatFloat(c.confidence, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("write confidence field: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", c.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	detections := make([]detect.Detection, 0, len(result.Detections))
	for _, d := range result.Detections {
		detections = append(detections, detect.Detection{
			Box:        d.Box,
			Label:      detect.NormalizeLabel(d.Class),
			Confidence: d.Confidence,
		})
	}
	for _, pp := range c.post {
		detections = pp(detections)
	}

	if len(detections) == 0 && result.ImageWidth > 0 && result.ImageHeight > 0 {
		detections = append(detections, detect.Detection{
			Box:        detect.Box{XMin: 0, YMin: 0, XMax: result.ImageWidth, YMax: result.ImageHeight},
			Label:      FallbackLabel,
			Confidence: 1.0,
		})
	}

	return detections, nil
}

// CheckHealth verifies the inference service is reachable.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.inferenceURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
