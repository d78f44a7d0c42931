// Package pipeline runs the full capture-to-listing flow: detect objects
// in a batch of photos, keep the strongest instance per class, drop
// duplicates across photos, then crop, identify, price and list each
// surviving item.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/declutter-ai/declutter/pkg/cropper"
	"github.com/declutter-ai/declutter/pkg/detect"
	"github.com/declutter-ai/declutter/pkg/listing"
	"github.com/declutter-ai/declutter/pkg/pricing"
	"github.com/declutter-ai/declutter/pkg/processing"
	"github.com/declutter-ai/declutter/pkg/recognize"
)

// Detector finds labeled objects in an image.
type Detector interface {
	Detect(ctx context.Context, imageData []byte, filename string) ([]detect.Detection, error)
}

// ResaleFilter decides which of the detected labels are worth selling.
type ResaleFilter interface {
	FilterResellable(ctx context.Context, imgB64 string, labels []string) ([]string, error)
}

// Recognizer names the product in a cropped item image.
type Recognizer interface {
	Identify(ctx context.Context, imgB64 string) (*recognize.Product, error)
}

// Pricer fetches comparable market prices for a product.
type Pricer interface {
	GetPrices(ctx context.Context, productName string, platforms []string, conditionFilter string) (*pricing.PriceData, error)
}

// Lister posts a drafted listing to the marketplaces.
type Lister interface {
	Create(ctx context.Context, draft listing.Draft, data *pricing.PriceData, platforms []string, imagesB64 []string) (map[string]listing.PlatformResult, error)
}

// Recorder persists pipeline rows. A nil Recorder disables persistence.
type Recorder interface {
	SavePhoto(ctx context.Context, filename, url string, size int64) (string, error)
	MarkPhotoProcessed(ctx context.Context, photoID string) error
	SaveCroppedObject(ctx context.Context, photoID, label string, confidence float64, box detect.Box, cropURL string) (string, error)
	SetEstimatedValue(ctx context.Context, croppedID string, value float64) error
	SaveListing(ctx context.Context, photoID, croppedID, title, description string, price float64, platforms []string, posted bool) (string, error)
}

// Options tunes a batch run.
type Options struct {
	// MaxItems caps how many deduplicated items get processed. Zero means
	// no cap.
	MaxItems int
	// Platforms to post listings to. Empty leaves every item as a draft.
	Platforms []string
	// Condition filters the comparable search and prices against matching
	// comps first.
	Condition string
	// SendFormat, SendMaxDim and SendQuality control how images are
	// encoded for the vision model.
	SendFormat  string
	SendMaxDim  int
	SendQuality int
	// Debug saves an annotated copy of each capture next to the crops.
	Debug bool
}

// Pipeline wires the stages together.
type Pipeline struct {
	detector  Detector
	resale    ResaleFilter
	recognize Recognizer
	pricer    Pricer
	lister    Lister
	recorder  Recorder
	processor *processing.Processor
	cropper   *cropper.Cropper
	opts      Options

	// Progress, when set, is called once per completed stage unit: first
	// per capture during detection, then per kept item.
	Progress func(done, total int, label string)
}

// New builds a pipeline. recorder may be nil.
func New(detector Detector, resale ResaleFilter, rec Recognizer, pricer Pricer, lister Lister, recorder Recorder, crop *cropper.Cropper, opts Options) *Pipeline {
	if opts.SendFormat == "" {
		opts.SendFormat = "jpg"
	}
	if opts.SendMaxDim == 0 {
		opts.SendMaxDim = 1536
	}
	if opts.SendQuality == 0 {
		opts.SendQuality = 85
	}
	return &Pipeline{
		detector:  detector,
		resale:    resale,
		recognize: rec,
		pricer:    pricer,
		lister:    lister,
		recorder:  recorder,
		processor: processing.NewProcessor(),
		cropper:   crop,
		opts:      opts,
	}
}

// ItemResult is the outcome for one kept item.
type ItemResult struct {
	Label      string                            `json:"label"`
	ImageID    string                            `json:"image_id"`
	Confidence float64                           `json:"confidence"`
	CropPath   string                            `json:"crop_path,omitempty"`
	Product    *recognize.Product                `json:"product,omitempty"`
	Comps      int                               `json:"comps"`
	AvgPrice   float64                           `json:"avg_price,omitempty"`
	Price      float64                           `json:"price,omitempty"`
	Listings   map[string]listing.PlatformResult `json:"listings,omitempty"`
	SkipReason string                            `json:"skip_reason,omitempty"`
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Timestamp       time.Time    `json:"timestamp"`
	ImagesProcessed int          `json:"images_processed"`
	ObjectsDetected int          `json:"objects_detected"`
	Items           []ItemResult `json:"items"`
	TotalValue      float64      `json:"total_value"`
	Warnings        []string     `json:"warnings,omitempty"`
}

// imageState carries what later stages need from one capture.
type imageState struct {
	path    string
	img     image.Image
	photoID string
	all     []detect.Detection
	kept    map[string]detect.Box
}

// ProcessBatch runs the full flow over the capture sources, file paths or
// http(s) URLs, in the given order. Order matters: when the same class
// shows up in several captures, the earliest capture keeps it.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string) (*BatchResult, error) {
	result := &BatchResult{Timestamp: time.Now()}
	states := make(map[string]*imageState, len(paths))
	var batch []detect.ImageDetections

	for i, path := range paths {
		st, objects, err := p.detectImage(ctx, path)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			continue
		}
		states[path] = st
		result.ImagesProcessed++
		result.ObjectsDetected += len(objects)
		batch = append(batch, detect.ImageDetections{ImageID: path, Objects: objects})

		if p.Progress != nil {
			p.Progress(i+1, len(paths), filepath.Base(path))
		}
	}

	items := detect.Deduplicate(batch, nil)
	if p.opts.MaxItems > 0 && len(items) > p.opts.MaxItems {
		items = items[:p.opts.MaxItems]
	}

	timestamp := result.Timestamp.Unix()
	for i, item := range items {
		res := p.processItem(ctx, states[item.ImageID], item, timestamp, i)
		result.Items = append(result.Items, res)
		result.TotalValue += res.Price

		if p.Progress != nil {
			p.Progress(i+1, len(items), item.Label)
		}
	}

	if p.opts.Debug {
		p.saveAnnotated(states, result)
	}

	for _, st := range states {
		if p.recorder != nil && st.photoID != "" {
			if err := p.recorder.MarkPhotoProcessed(ctx, st.photoID); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("mark processed %s: %v", filepath.Base(st.path), err))
			}
		}
	}

	return result, nil
}

// detectImage loads one capture, runs detection and the resale filter,
// and returns the consolidated set of resellable objects.
func (p *Pipeline) detectImage(ctx context.Context, path string) (*imageState, detect.Consolidated, error) {
	data, err := p.processor.LoadBytes(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read capture: %w", err)
	}
	img, err := p.processor.DecodeImageFromBytes(data)
	if err != nil {
		return nil, nil, err
	}

	st := &imageState{path: path, img: img, kept: map[string]detect.Box{}}
	if p.recorder != nil {
		id, err := p.recorder.SavePhoto(ctx, filepath.Base(path), "", int64(len(data)))
		if err == nil {
			st.photoID = id
		}
	}

	detections, err := p.detector.Detect(ctx, data, filepath.Base(path))
	if err != nil {
		return nil, nil, fmt.Errorf("detection failed: %w", err)
	}
	st.all = detections

	objects := detect.Consolidate(detections)
	if p.resale != nil && len(objects) > 0 {
		imgB64, err := p.processor.PrepareImageForModel(img, p.opts.SendFormat, p.opts.SendMaxDim, p.opts.SendQuality)
		if err != nil {
			return nil, nil, err
		}
		keep, err := p.resale.FilterResellable(ctx, imgB64, objects.Labels())
		if err != nil {
			return nil, nil, fmt.Errorf("resale filter failed: %w", err)
		}
		filtered := detect.Consolidated{}
		for _, label := range keep {
			if inst, ok := objects[label]; ok {
				filtered[label] = inst
			}
		}
		objects = filtered
	}

	for label, inst := range objects {
		st.kept[label] = inst.Box
	}
	return st, objects, nil
}

// processItem crops, identifies, prices and lists a single kept item.
// Failures after the crop skip the item with a reason instead of aborting
// the batch.
func (p *Pipeline) processItem(ctx context.Context, st *imageState, item detect.KeptItem, timestamp int64, index int) ItemResult {
	res := ItemResult{
		Label:      item.Label,
		ImageID:    item.ImageID,
		Confidence: item.Confidence,
	}

	cropPath, err := p.cropper.CropAndSave(st.img, item, timestamp, index)
	if err != nil {
		res.SkipReason = fmt.Sprintf("crop failed: %v", err)
		return res
	}
	res.CropPath = cropPath

	var croppedID string
	if p.recorder != nil && st.photoID != "" {
		croppedID, _ = p.recorder.SaveCroppedObject(ctx, st.photoID, item.Label, item.Confidence, item.Box, cropPath)
	}

	cropImg, err := p.cropper.Crop(st.img, item.Box)
	if err != nil {
		res.SkipReason = fmt.Sprintf("crop failed: %v", err)
		return res
	}
	cropB64, err := p.processor.PrepareImageForModel(cropImg, p.opts.SendFormat, p.opts.SendMaxDim, p.opts.SendQuality)
	if err != nil {
		res.SkipReason = fmt.Sprintf("encode failed: %v", err)
		return res
	}

	product, err := p.recognize.Identify(ctx, cropB64)
	if err != nil {
		res.SkipReason = fmt.Sprintf("recognition failed: %v", err)
		return res
	}
	res.Product = product
	if !product.Identified() {
		res.SkipReason = "could not identify a sellable product"
		return res
	}

	data, err := p.pricer.GetPrices(ctx, product.ProductName, p.opts.Platforms, p.opts.Condition)
	if err != nil {
		res.SkipReason = fmt.Sprintf("price lookup failed: %v", err)
		return res
	}
	res.Comps = len(data.Comps)
	res.AvgPrice = data.Summary.Avg
	res.Price = pricing.OptimalPrice(data, product.Condition)

	if p.recorder != nil && croppedID != "" {
		// Persistence failures never block the item.
		_ = p.recorder.SetEstimatedValue(ctx, croppedID, res.Price)
	}

	draft := listing.BuildDraft(product, res.Price)
	if p.lister != nil && len(p.opts.Platforms) > 0 {
		results, err := p.lister.Create(ctx, draft, data, p.opts.Platforms, []string{cropB64})
		if err != nil {
			res.SkipReason = fmt.Sprintf("listing failed: %v", err)
			return res
		}
		res.Listings = results
	}

	if p.recorder != nil && croppedID != "" {
		posted := listing.Posted(res.Listings)
		var reached []string
		for platform, r := range res.Listings {
			if r.OK {
				reached = append(reached, platform)
			}
		}
		_, _ = p.recorder.SaveListing(ctx, st.photoID, croppedID, draft.Title, draft.Description, draft.Price, reached, posted)
	}

	return res
}

// saveAnnotated writes a boxed copy of each capture next to the crops.
func (p *Pipeline) saveAnnotated(states map[string]*imageState, result *BatchResult) {
	for _, st := range states {
		annotated := p.processor.DrawDetections(st.img, st.all, st.kept)
		base := filepath.Base(st.path)
		name := "annotated_" + strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
		out := filepath.Join(p.cropper.OutputDir(), name)
		if err := p.processor.SaveImage(annotated, out, "png", 0, false); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("annotate %s: %v", filepath.Base(st.path), err))
		}
	}
}
