// Package detect holds the core detection model: raw detector output,
// per-image consolidation to one instance per class label, and cross-image
// deduplication of class labels over an ordered batch of captures.
//
// Raw detectors routinely report several overlapping boxes for the same
// physical object, and the same object shows up in consecutive captures of
// the same scene. Consolidation keeps the largest box per label within one
// image; Deduplicate then keeps only the first image that saw each label.
package detect

import "sort"

// Detection is one raw output unit from the object detector for a single
// image. Labels are expected to be canonical lowercase; NormalizeLabel is
// applied at ingestion by the detector client.
type Detection struct {
	Box        Box     `json:"box"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Instance is the surviving detection for one class label after
// consolidation.
type Instance struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// Consolidated maps each class label seen in one image to the single
// instance kept for it.
type Consolidated map[string]Instance

// Labels returns the class labels of the consolidated set in sorted order.
func (c Consolidated) Labels() []string {
	labels := make([]string, 0, len(c))
	for label := range c {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Consolidate reduces one image's detections to at most one instance per
// class label, keeping the detection with the largest box area. Exact area
// ties keep the first-encountered detection, so one pass over the same
// input always yields the same result. Empty input yields an empty map.
//
// Confidence is not consulted here; the caller applies its score threshold
// before consolidation.
func Consolidate(detections []Detection) Consolidated {
	out := make(Consolidated, len(detections))
	best := make(map[string]int, len(detections))

	for _, d := range detections {
		area := d.Box.Area()
		if prev, ok := best[d.Label]; !ok || area > prev {
			best[d.Label] = area
			out[d.Label] = Instance{Box: d.Box, Confidence: d.Confidence}
		}
	}
	return out
}
