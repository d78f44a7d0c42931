// Package declutter turns photos of a cluttered room into marketplace
// listings.
//
// A batch of captures goes through five stages: an object detection
// service finds labeled boxes, each image keeps only the largest instance
// per class, a vision model filters the classes down to resellable ones,
// classes already seen in an earlier capture are dropped, and each
// surviving item is cropped, identified, priced against live comparables
// and drafted as a listing.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		"github.com/declutter-ai/declutter"
//		"github.com/declutter-ai/declutter/internal/config"
//	)
//
//	func main() {
//		app, err := declutter.New(context.Background(), config.Default())
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer app.Close(context.Background())
//
//		result, err := app.ProcessDir(context.Background(), "./captures")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("%d items, estimated $%.2f\n", len(result.Items), result.TotalValue)
//	}
//
// The package consists of these main components:
//
// 1. Detect (pkg/detect): Per-image consolidation and cross-image deduplication
// 2. YOLO (pkg/yolo): Client for the object detection inference service
// 3. Resale (pkg/resale): Vision-model filter for resellable classes
// 4. Recognize (pkg/recognize): Product identification from crops
// 5. Pricing (pkg/pricing): Comparable lookup and price derivation
// 6. Listing (pkg/listing): Draft building and marketplace posting
// 7. Pipeline (pkg/pipeline): The orchestrated batch flow
package declutter

import (
	"context"
	"fmt"

	"github.com/declutter-ai/declutter/internal/config"
	"github.com/declutter-ai/declutter/internal/store"
	"github.com/declutter-ai/declutter/internal/utils"
	"github.com/declutter-ai/declutter/pkg/client"
	"github.com/declutter-ai/declutter/pkg/cropper"
	"github.com/declutter-ai/declutter/pkg/listing"
	"github.com/declutter-ai/declutter/pkg/llamacpp"
	"github.com/declutter-ai/declutter/pkg/ollama"
	"github.com/declutter-ai/declutter/pkg/pipeline"
	"github.com/declutter-ai/declutter/pkg/pricing"
	"github.com/declutter-ai/declutter/pkg/recognize"
	"github.com/declutter-ai/declutter/pkg/resale"
	"github.com/declutter-ai/declutter/pkg/yolo"
)

// Version of the declutter library
const Version = "1.0.0"

// App wires the configured services into a runnable pipeline.
type App struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	store    *store.Store
}

// New builds the application from configuration. A database URL is
// optional; without one results are not persisted.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	vc, err := newVisionClient(cfg)
	if err != nil {
		return nil, err
	}

	detector := yolo.NewClient(cfg.Detector.URL, cfg.Detector.Confidence)

	filter := resale.NewClassifier(vc, cfg.Vision.Model)
	if cfg.Vision.SkipResaleFilter {
		filter = resale.NewPassthrough()
	}

	var recorder pipeline.Recorder
	var st *store.Store
	if cfg.Database.URL != "" {
		st, err = store.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		recorder = st
	}

	if err := utils.EnsureDir(cfg.Pipeline.CropDir); err != nil {
		return nil, fmt.Errorf("failed to create crop directory: %w", err)
	}

	p := pipeline.New(
		detector,
		filter,
		recognize.NewRecognizer(vc, cfg.Vision.Model),
		pricing.NewClient(cfg.Services.ScraperURL),
		listing.NewClient(cfg.Services.ListingURL),
		recorder,
		cropper.New(cfg.Pipeline.CropDir, cfg.Pipeline.CropBorderRatio),
		pipeline.Options{
			MaxItems:    cfg.Pipeline.MaxItems,
			Platforms:   cfg.Pipeline.Platforms,
			Condition:   cfg.Pipeline.Condition,
			SendFormat:  cfg.Vision.SendFormat,
			SendMaxDim:  cfg.Vision.SendMaxDim,
			SendQuality: cfg.Vision.SendQuality,
			Debug:       cfg.Pipeline.Debug,
		},
	)

	return &App{cfg: cfg, pipeline: p, store: st}, nil
}

// newVisionClient selects the configured vision backend.
func newVisionClient(cfg *config.Config) (client.VisionClient, error) {
	switch cfg.Vision.Backend {
	case "llamacpp":
		return llamacpp.NewClient(cfg.Vision.URL)
	default:
		return ollama.NewClient(cfg.Vision.URL)
	}
}

// Pipeline exposes the underlying pipeline, e.g. to attach a progress
// callback.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// ProcessDir runs the pipeline over every image in dir, in filename order.
func (a *App) ProcessDir(ctx context.Context, dir string) (*pipeline.BatchResult, error) {
	paths, err := utils.ListCaptures(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	return a.pipeline.ProcessBatch(ctx, paths)
}

// ProcessFiles runs the pipeline over the given capture sources, file
// paths or http(s) URLs, in order.
func (a *App) ProcessFiles(ctx context.Context, paths []string) (*pipeline.BatchResult, error) {
	return a.pipeline.ProcessBatch(ctx, paths)
}

// Close releases held resources.
func (a *App) Close(ctx context.Context) {
	if a.store != nil {
		a.store.Close(ctx)
	}
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
