package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/declutter-ai/declutter/pkg/cropper"
	"github.com/declutter-ai/declutter/pkg/detect"
	"github.com/declutter-ai/declutter/pkg/listing"
	"github.com/declutter-ai/declutter/pkg/pricing"
	"github.com/declutter-ai/declutter/pkg/recognize"
)

type fakeDetector struct {
	byFile map[string][]detect.Detection
	err    error
}

func (f *fakeDetector) Detect(_ context.Context, _ []byte, filename string) ([]detect.Detection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byFile[filename], nil
}

type fakeResale struct {
	drop map[string]bool
}

func (f *fakeResale) FilterResellable(_ context.Context, _ string, labels []string) ([]string, error) {
	var keep []string
	for _, l := range labels {
		if !f.drop[l] {
			keep = append(keep, l)
		}
	}
	return keep, nil
}

type fakeRecognizer struct {
	products map[string]*recognize.Product
	calls    int
}

func (f *fakeRecognizer) Identify(_ context.Context, _ string) (*recognize.Product, error) {
	f.calls++
	// Crop contents are opaque here; hand out products in call order via a
	// single shared product unless the test overrides per call.
	for _, p := range f.products {
		return p, nil
	}
	return &recognize.Product{Condition: "good"}, nil
}

type fakePricer struct {
	data *pricing.PriceData
	err  error
}

func (f *fakePricer) GetPrices(_ context.Context, _ string, _ []string, _ string) (*pricing.PriceData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type fakeLister struct {
	results map[string]listing.PlatformResult
	calls   int
}

func (f *fakeLister) Create(_ context.Context, _ listing.Draft, _ *pricing.PriceData, _ []string, _ []string) (map[string]listing.PlatformResult, error) {
	f.calls++
	return f.results, nil
}

func writeTestImage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 180, B: 160, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestPipeline(det Detector, resale ResaleFilter, rec Recognizer, pricer Pricer, lister Lister, cropDir string, opts Options) *Pipeline {
	return New(det, resale, rec, pricer, lister, nil, cropper.New(cropDir, 0.3), opts)
}

func TestProcessBatchDeduplicatesAcrossImages(t *testing.T) {
	dir := t.TempDir()
	img1 := writeTestImage(t, dir, "frame_1.png", 400, 400)
	img2 := writeTestImage(t, dir, "frame_2.png", 400, 400)

	det := &fakeDetector{byFile: map[string][]detect.Detection{
		"frame_1.png": {
			{Box: detect.Box{XMin: 10, YMin: 10, XMax: 110, YMax: 110}, Label: "laptop", Confidence: 0.9},
			{Box: detect.Box{XMin: 200, YMin: 200, XMax: 260, YMax: 260}, Label: "mug", Confidence: 0.7},
		},
		"frame_2.png": {
			// Same class again; the first capture already claimed it.
			{Box: detect.Box{XMin: 50, YMin: 50, XMax: 350, YMax: 350}, Label: "laptop", Confidence: 0.95},
		},
	}}
	rec := &fakeRecognizer{products: map[string]*recognize.Product{
		"any": {ProductName: "Apple MacBook Air M1 2020", Condition: "good"},
	}}
	pricer := &fakePricer{data: &pricing.PriceData{
		Comps: []pricing.Comp{
			{Title: "a", Price: 100, Condition: "good"},
			{Title: "b", Price: 200, Condition: "good"},
		},
		Summary: pricing.Summary{Avg: 150, Median: 150, Count: 2},
	}}
	lister := &fakeLister{results: map[string]listing.PlatformResult{
		"facebook": {OK: true, PostID: "fb1"},
	}}

	p := newTestPipeline(det, nil, rec, pricer, lister, filepath.Join(dir, "crops"), Options{
		Platforms: []string{"facebook"},
		Condition: "used",
	})

	result, err := p.ProcessBatch(context.Background(), []string{img1, img2})
	if err != nil {
		t.Fatalf("ProcessBatch() error: %v", err)
	}

	if result.ImagesProcessed != 2 {
		t.Errorf("ImagesProcessed = %d, want 2", result.ImagesProcessed)
	}
	if len(result.Items) != 2 {
		t.Fatalf("got %d items, want 2 (laptop + mug, second laptop deduplicated)", len(result.Items))
	}
	for _, item := range result.Items {
		if item.ImageID != img1 {
			t.Errorf("item %q kept from %s, want first capture", item.Label, item.ImageID)
		}
		if item.SkipReason != "" {
			t.Errorf("item %q skipped: %s", item.Label, item.SkipReason)
		}
		if item.CropPath == "" {
			t.Errorf("item %q has no crop", item.Label)
		} else if _, err := os.Stat(item.CropPath); err != nil {
			t.Errorf("crop file missing for %q: %v", item.Label, err)
		}
		if r, ok := item.Listings["facebook"]; !ok || !r.OK {
			t.Errorf("item %q facebook listing = %+v", item.Label, r)
		}
	}

	// Median 150 * 0.95 per item, two items.
	wantTotal := 2 * 142.5
	if result.TotalValue != wantTotal {
		t.Errorf("TotalValue = %.2f, want %.2f", result.TotalValue, wantTotal)
	}
}

func TestProcessBatchResaleFilterDropsLabels(t *testing.T) {
	dir := t.TempDir()
	img1 := writeTestImage(t, dir, "frame_1.png", 300, 300)

	det := &fakeDetector{byFile: map[string][]detect.Detection{
		"frame_1.png": {
			{Box: detect.Box{XMin: 10, YMin: 10, XMax: 110, YMax: 110}, Label: "laptop", Confidence: 0.9},
			{Box: detect.Box{XMin: 150, YMin: 150, XMax: 200, YMax: 200}, Label: "person", Confidence: 0.99},
		},
	}}
	resale := &fakeResale{drop: map[string]bool{"person": true}}
	rec := &fakeRecognizer{products: map[string]*recognize.Product{
		"any": {ProductName: "Dell XPS 13", Condition: "good"},
	}}
	pricer := &fakePricer{data: &pricing.PriceData{}}

	p := newTestPipeline(det, resale, rec, pricer, nil, filepath.Join(dir, "crops"), Options{})

	result, err := p.ProcessBatch(context.Background(), []string{img1})
	if err != nil {
		t.Fatalf("ProcessBatch() error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("got %d items, want 1 (person filtered out)", len(result.Items))
	}
	if result.Items[0].Label != "laptop" {
		t.Errorf("kept label = %q, want laptop", result.Items[0].Label)
	}
}

func TestProcessBatchSkipsUnidentifiedItems(t *testing.T) {
	dir := t.TempDir()
	img1 := writeTestImage(t, dir, "frame_1.png", 300, 300)

	det := &fakeDetector{byFile: map[string][]detect.Detection{
		"frame_1.png": {
			{Box: detect.Box{XMin: 10, YMin: 10, XMax: 110, YMax: 110}, Label: "vase", Confidence: 0.6},
		},
	}}
	rec := &fakeRecognizer{products: map[string]*recognize.Product{
		"any": {Condition: "good"}, // no product name
	}}
	pricer := &fakePricer{err: errors.New("should not be called")}
	lister := &fakeLister{}

	p := newTestPipeline(det, nil, rec, pricer, lister, filepath.Join(dir, "crops"), Options{
		Platforms: []string{"facebook"},
	})

	result, err := p.ProcessBatch(context.Background(), []string{img1})
	if err != nil {
		t.Fatalf("ProcessBatch() error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(result.Items))
	}
	item := result.Items[0]
	if item.SkipReason == "" {
		t.Error("unidentified item was not skipped")
	}
	if item.CropPath == "" {
		t.Error("crop should still be saved for skipped items")
	}
	if lister.calls != 0 {
		t.Errorf("lister called %d times for a skipped item", lister.calls)
	}
	if result.TotalValue != 0 {
		t.Errorf("TotalValue = %.2f, want 0", result.TotalValue)
	}
}

func TestProcessBatchMaxItems(t *testing.T) {
	dir := t.TempDir()
	img1 := writeTestImage(t, dir, "frame_1.png", 300, 300)

	det := &fakeDetector{byFile: map[string][]detect.Detection{
		"frame_1.png": {
			{Box: detect.Box{XMin: 0, YMin: 0, XMax: 50, YMax: 50}, Label: "book", Confidence: 0.8},
			{Box: detect.Box{XMin: 60, YMin: 60, XMax: 110, YMax: 110}, Label: "cup", Confidence: 0.8},
			{Box: detect.Box{XMin: 120, YMin: 120, XMax: 170, YMax: 170}, Label: "vase", Confidence: 0.8},
		},
	}}
	rec := &fakeRecognizer{products: map[string]*recognize.Product{
		"any": {ProductName: "Generic Thing", Condition: "good"},
	}}
	pricer := &fakePricer{data: &pricing.PriceData{}}

	p := newTestPipeline(det, nil, rec, pricer, nil, filepath.Join(dir, "crops"), Options{MaxItems: 2})

	result, err := p.ProcessBatch(context.Background(), []string{img1})
	if err != nil {
		t.Fatalf("ProcessBatch() error: %v", err)
	}
	if len(result.Items) != 2 {
		t.Errorf("got %d items, want 2 (capped)", len(result.Items))
	}
	if result.ObjectsDetected != 3 {
		t.Errorf("ObjectsDetected = %d, want 3", result.ObjectsDetected)
	}
}

func TestProcessBatchDetectorFailureContinues(t *testing.T) {
	dir := t.TempDir()
	img1 := writeTestImage(t, dir, "frame_1.png", 300, 300)

	det := &fakeDetector{err: errors.New("inference service down")}
	rec := &fakeRecognizer{}
	pricer := &fakePricer{data: &pricing.PriceData{}}

	p := newTestPipeline(det, nil, rec, pricer, nil, filepath.Join(dir, "crops"), Options{})

	result, err := p.ProcessBatch(context.Background(), []string{img1, filepath.Join(dir, "missing.png")})
	if err != nil {
		t.Fatalf("ProcessBatch() error: %v", err)
	}
	if result.ImagesProcessed != 0 {
		t.Errorf("ImagesProcessed = %d, want 0", result.ImagesProcessed)
	}
	if len(result.Warnings) != 2 {
		t.Errorf("got %d warnings, want 2: %v", len(result.Warnings), result.Warnings)
	}
	if len(result.Items) != 0 {
		t.Errorf("got %d items, want 0", len(result.Items))
	}
}

func TestProcessBatchURLCapture(t *testing.T) {
	dir := t.TempDir()

	img := image.NewRGBA(image.Rect(0, 0, 300, 300))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	det := &fakeDetector{byFile: map[string][]detect.Detection{
		"frame_remote.png": {
			{Box: detect.Box{XMin: 10, YMin: 10, XMax: 110, YMax: 110}, Label: "keyboard", Confidence: 0.8},
		},
	}}
	rec := &fakeRecognizer{products: map[string]*recognize.Product{
		"any": {ProductName: "Logitech MX Keys", Condition: "good"},
	}}
	pricer := &fakePricer{data: &pricing.PriceData{}}

	p := newTestPipeline(det, nil, rec, pricer, nil, filepath.Join(dir, "crops"), Options{})

	result, err := p.ProcessBatch(context.Background(), []string{server.URL + "/frame_remote.png"})
	if err != nil {
		t.Fatalf("ProcessBatch() error: %v", err)
	}
	if result.ImagesProcessed != 1 {
		t.Fatalf("ImagesProcessed = %d, want 1; warnings: %v", result.ImagesProcessed, result.Warnings)
	}
	if len(result.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(result.Items))
	}
	item := result.Items[0]
	if item.SkipReason != "" {
		t.Errorf("item skipped: %s", item.SkipReason)
	}
	if _, err := os.Stat(item.CropPath); err != nil {
		t.Errorf("crop file missing: %v", err)
	}
}

func TestProcessBatchNoComparablesDefaultPrice(t *testing.T) {
	dir := t.TempDir()
	img1 := writeTestImage(t, dir, "frame_1.png", 300, 300)

	det := &fakeDetector{byFile: map[string][]detect.Detection{
		"frame_1.png": {
			{Box: detect.Box{XMin: 10, YMin: 10, XMax: 110, YMax: 110}, Label: "lamp", Confidence: 0.7},
		},
	}}
	rec := &fakeRecognizer{products: map[string]*recognize.Product{
		"any": {ProductName: "IKEA Desk Lamp", Condition: "good"},
	}}
	pricer := &fakePricer{data: &pricing.PriceData{}}

	p := newTestPipeline(det, nil, rec, pricer, nil, filepath.Join(dir, "crops"), Options{})

	result, err := p.ProcessBatch(context.Background(), []string{img1})
	if err != nil {
		t.Fatalf("ProcessBatch() error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(result.Items))
	}
	if result.Items[0].Price != 50.0 {
		t.Errorf("Price = %.2f, want the 50.00 default for no comparables", result.Items[0].Price)
	}
}
