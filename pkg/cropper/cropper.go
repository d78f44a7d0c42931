// Package cropper produces the persisted crop artifact for each kept item:
// the detection box grown by a border margin, cut from the source capture
// and saved as PNG.
package cropper

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/declutter-ai/declutter/internal/utils"
	"github.com/declutter-ai/declutter/pkg/detect"
)

// DefaultBorderRatio grows each crop by 30% of the object size on every
// side. The margin keeps enough scene context for a usable product photo.
const DefaultBorderRatio = 0.3

// Cropper cuts and persists item crops.
type Cropper struct {
	borderRatio float64
	outputDir   string
}

// New creates a cropper writing into outputDir. borderRatio <= 0 selects
// DefaultBorderRatio.
func New(outputDir string, borderRatio float64) *Cropper {
	if borderRatio <= 0 {
		borderRatio = DefaultBorderRatio
	}
	return &Cropper{borderRatio: borderRatio, outputDir: outputDir}
}

// OutputDir returns the directory crops are written into.
func (c *Cropper) OutputDir() string {
	return c.outputDir
}

// Crop returns the region of img covered by box grown by the border ratio,
// clamped to the image bounds.
func (c *Cropper) Crop(img image.Image, box detect.Box) (image.Image, error) {
	bounds := img.Bounds()
	expanded := box.Expand(c.borderRatio, bounds.Dx(), bounds.Dy())

	rect := expanded.Rect().Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("empty crop rectangle for box %+v", box)
	}
	return imaging.Crop(img, rect), nil
}

// CropAndSave cuts the item's crop out of img and writes it as
// <timestamp>_<index>_<label>.png under the output directory, returning
// the written path. PNG avoids recompression artifacts on images that get
// re-encoded for recognition later.
func (c *Cropper) CropAndSave(img image.Image, item detect.KeptItem, timestamp int64, index int) (string, error) {
	cropped, err := c.Crop(img, item.Box)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create crop directory: %w", err)
	}

	filename := fmt.Sprintf("%d_%d_%s.png", timestamp, index, sanitizeLabel(item.Label))
	path := filepath.Join(c.outputDir, filename)

	if err := imaging.Save(cropped, path); err != nil {
		return "", fmt.Errorf("failed to save crop %s: %w", filename, err)
	}
	return path, nil
}

// sanitizeLabel makes a class label safe for use in a filename. Spaces
// become underscores on top of the usual filename sanitation.
func sanitizeLabel(label string) string {
	return utils.SanitizeFilename(strings.ReplaceAll(label, " ", "_"))
}
