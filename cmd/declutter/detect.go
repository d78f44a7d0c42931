package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/declutter-ai/declutter/internal/utils"
	"github.com/declutter-ai/declutter/pkg/detect"
	"github.com/declutter-ai/declutter/pkg/yolo"
)

var detectDir string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run detection and deduplication only, print the kept items as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetect(cmd.Context())
	},
}

func init() {
	detectCmd.Flags().StringVarP(&detectDir, "input", "i", "", "directory of capture images")
	detectCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(detectCmd)
}

// detectOutput is the JSON shape printed per batch.
type detectOutput struct {
	Images int               `json:"images"`
	Items  []detect.KeptItem `json:"items"`
}

func runDetect(ctx context.Context) error {
	paths, err := utils.ListCaptures(detectDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images found in %s", detectDir)
	}

	client := yolo.NewClient(cfg.Detector.URL, cfg.Detector.Confidence)
	if err := client.CheckHealth(ctx); err != nil {
		return fmt.Errorf("detector not reachable: %w", err)
	}

	var batch []detect.ImageDetections
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		detections, err := client.Detect(ctx, data, filepath.Base(path))
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		batch = append(batch, detect.ImageDetections{
			ImageID: path,
			Objects: detect.Consolidate(detections),
		})
	}

	items := detect.Deduplicate(batch, nil)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(detectOutput{Images: len(paths), Items: items})
}
