package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/declutter-ai/declutter"
	"github.com/declutter-ai/declutter/internal/report"
	"github.com/declutter-ai/declutter/internal/utils"
	"github.com/declutter-ai/declutter/pkg/processing"
)

var (
	captureDir string
	reportPath string
	noListing  bool
	maxItems   int
)

var processCmd = &cobra.Command{
	Use:   "process [captures...]",
	Short: "Detect, identify, price and list resellable objects in a batch of captures",
	Long: `Process runs the full pipeline over a batch of captures: a directory of
images (--input) or individual image files and http(s) URLs given as
arguments. Batch order decides which capture keeps a class seen more than
once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context(), args)
	},
}

func init() {
	processCmd.Flags().StringVarP(&captureDir, "input", "i", "", "directory of capture images")
	processCmd.Flags().StringVarP(&reportPath, "report", "r", "", "report output path (default from config)")
	processCmd.Flags().BoolVar(&noListing, "no-listing", false, "price items but do not post listings")
	processCmd.Flags().IntVar(&maxItems, "max-items", 0, "cap on items to process (default from config)")

	rootCmd.AddCommand(processCmd)
}

func runProcess(ctx context.Context, args []string) error {
	if noListing {
		cfg.Pipeline.Platforms = nil
	}
	if maxItems > 0 {
		cfg.Pipeline.MaxItems = maxItems
	}

	paths, err := collectCaptures(args)
	if err != nil {
		return err
	}
	log.Printf("Processing %d captures (%s)", len(paths), utils.FormatFileSize(localSize(paths)))

	app, err := declutter.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Analyzing captures"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	app.Pipeline().Progress = func(done, total int, label string) {
		if total != bar.GetMax() {
			// Stage switch: detection finished, item processing started.
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Processing items"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
			)
		}
		bar.Set(done)
	}

	result, err := app.ProcessFiles(ctx, paths)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr)

	path := reportPath
	if path == "" {
		path = cfg.Pipeline.ReportPath
	}
	if err := report.Write(result, path); err != nil {
		return err
	}

	for _, w := range result.Warnings {
		log.Printf("warning: %s", w)
	}
	fmt.Printf("Kept %d items from %d captures, estimated value $%.2f\n",
		len(result.Items), result.ImagesProcessed, result.TotalValue)
	fmt.Printf("Report written to %s\n", path)
	return nil
}

// collectCaptures resolves the batch: a capture directory, or explicit
// files and URLs in argument order.
func collectCaptures(args []string) ([]string, error) {
	if captureDir != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("use either --input or capture arguments, not both")
		}
		paths, err := utils.ListCaptures(captureDir)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no images found in %s", captureDir)
		}
		return paths, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("no captures given: pass --input or image files/URLs")
	}
	for _, arg := range args {
		if !processing.IsURL(arg) && !utils.FileExists(arg) {
			return nil, fmt.Errorf("capture not found: %s", arg)
		}
	}
	return args, nil
}

// localSize sums the sizes of the local captures; URL sources count zero.
func localSize(paths []string) int64 {
	var total int64
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			total += info.Size()
		}
	}
	return total
}
