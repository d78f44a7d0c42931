package cropper

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/declutter-ai/declutter/pkg/detect"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func TestCropExpandsByBorder(t *testing.T) {
	c := New(t.TempDir(), 0.3)
	img := createTestImage(640, 480)

	cropped, err := c.Crop(img, detect.Box{XMin: 100, YMin: 100, XMax: 200, YMax: 200})
	if err != nil {
		t.Fatalf("Crop() error: %v", err)
	}

	// 100px object with a 30px border on each side.
	if cropped.Bounds().Dx() != 160 || cropped.Bounds().Dy() != 160 {
		t.Errorf("crop size = %dx%d, want 160x160",
			cropped.Bounds().Dx(), cropped.Bounds().Dy())
	}
}

func TestCropClampsAtImageEdge(t *testing.T) {
	c := New(t.TempDir(), 0.5)
	img := createTestImage(100, 100)

	cropped, err := c.Crop(img, detect.Box{XMin: 0, YMin: 0, XMax: 90, YMax: 90})
	if err != nil {
		t.Fatalf("Crop() error: %v", err)
	}
	if cropped.Bounds().Dx() > 100 || cropped.Bounds().Dy() > 100 {
		t.Errorf("crop exceeds image: %v", cropped.Bounds())
	}
}

func TestCropDegenerateBox(t *testing.T) {
	c := New(t.TempDir(), 0.3)
	img := createTestImage(100, 100)

	if _, err := c.Crop(img, detect.Box{XMin: 50, YMin: 50, XMax: 50, YMax: 50}); err == nil {
		t.Error("expected error for zero-area box")
	}
}

func TestCropAndSave(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, 0.3)
	img := createTestImage(640, 480)

	item := detect.KeptItem{
		ImageID:    "frame_001.jpg",
		Label:      "cell phone",
		Box:        detect.Box{XMin: 100, YMin: 100, XMax: 300, YMax: 250},
		Confidence: 0.9,
	}

	path, err := c.CropAndSave(img, item, 1700000000, 1)
	if err != nil {
		t.Fatalf("CropAndSave() error: %v", err)
	}

	want := filepath.Join(dir, "1700000000_1_cell_phone.png")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("crop file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("crop file is empty")
	}
}

func TestCropAndSaveCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "crops")
	c := New(dir, 0)
	img := createTestImage(200, 200)

	item := detect.KeptItem{
		Label: "book",
		Box:   detect.Box{XMin: 10, YMin: 10, XMax: 100, YMax: 100},
	}

	if _, err := c.CropAndSave(img, item, 1, 1); err != nil {
		t.Fatalf("CropAndSave() error: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("output dir not created: %v", err)
	}
}

func TestSanitizeLabel(t *testing.T) {
	tests := []struct{ in, want string }{
		{"cell phone", "cell_phone"},
		{"hi-fi/stereo", "hi-fi_stereo"},
		{"book", "book"},
		{`tv: 40"`, "tv__40_"},
	}
	for _, tt := range tests {
		if got := sanitizeLabel(tt.in); got != tt.want {
			t.Errorf("sanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
