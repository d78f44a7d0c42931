// Package report renders a batch result as a plain-text analysis report.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/declutter-ai/declutter/pkg/pipeline"
)

// Render formats the batch result as the analysis report text.
func Render(result *pipeline.BatchResult) string {
	var b strings.Builder

	b.WriteString("DECLUTTER - RESELLABLE OBJECT ANALYSIS REPORT\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", result.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Images processed: %d\n", result.ImagesProcessed)
	fmt.Fprintf(&b, "Objects detected: %d\n", result.ObjectsDetected)
	fmt.Fprintf(&b, "Items kept: %d\n", len(result.Items))
	fmt.Fprintf(&b, "Total estimated value: $%.2f\n", result.TotalValue)
	b.WriteString("\n")

	for i, item := range result.Items {
		fmt.Fprintf(&b, "OBJECT %d: %s\n", i+1, item.Label)
		b.WriteString(strings.Repeat("-", 30) + "\n")
		fmt.Fprintf(&b, "  Source image: %s\n", filepath.Base(item.ImageID))
		fmt.Fprintf(&b, "  Detection confidence: %.2f\n", item.Confidence)

		if item.SkipReason != "" {
			fmt.Fprintf(&b, "  Status: SKIPPED - %s\n\n", item.SkipReason)
			continue
		}

		if item.Product.Identified() {
			fmt.Fprintf(&b, "  Identified as: %s\n", item.Product.ProductName)
		}
		fmt.Fprintf(&b, "  Market research: %d comparables\n", item.Comps)
		if item.AvgPrice > 0 {
			fmt.Fprintf(&b, "  Average market price: $%.2f\n", item.AvgPrice)
		}
		if item.Price > 0 {
			fmt.Fprintf(&b, "  Estimated value: $%.2f\n", item.Price)
		}

		for _, platform := range sortedPlatforms(item) {
			status := "Failed"
			if item.Listings[platform].OK {
				status = "Success"
			}
			fmt.Fprintf(&b, "  %s listing: %s\n", platformTitle(platform), status)
		}
		b.WriteString("\n")
	}

	if len(result.Warnings) > 0 {
		b.WriteString("WARNINGS\n")
		b.WriteString(strings.Repeat("-", 30) + "\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}

	return b.String()
}

// Write renders the result and writes it to path.
func Write(result *pipeline.BatchResult, path string) error {
	if err := os.WriteFile(path, []byte(Render(result)), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func sortedPlatforms(item pipeline.ItemResult) []string {
	var platforms []string
	// Stable order for the two supported marketplaces, extras after.
	for _, p := range []string{"facebook", "ebay"} {
		if _, ok := item.Listings[p]; ok {
			platforms = append(platforms, p)
		}
	}
	var extras []string
	for p := range item.Listings {
		if p != "facebook" && p != "ebay" {
			extras = append(extras, p)
		}
	}
	sort.Strings(extras)
	return append(platforms, extras...)
}

func platformTitle(platform string) string {
	switch platform {
	case "facebook":
		return "Facebook"
	case "ebay":
		return "eBay"
	default:
		return platform
	}
}
