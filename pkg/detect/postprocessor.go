package detect

import "strings"

// Postprocessor filters or rewrites a slice of detections before
// consolidation.
type Postprocessor func([]Detection) []Detection

// NewScoreFilter returns a Postprocessor that drops detections below the
// given confidence.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Confidence >= conf {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewAreaFilter returns a Postprocessor that drops detections whose box
// area is below the given number of pixels.
func NewAreaFilter(area int) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Box.Area() >= area {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewLabelRemap returns a Postprocessor that rewrites class labels through
// the given mapping. Labels without an entry pass through unchanged. Used
// to paper over detector vocabulary gaps, e.g. COCO has "clock" but not
// "watch".
func NewLabelRemap(mapping map[string]string) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, len(in))
		for i, d := range in {
			if to, ok := mapping[d.Label]; ok {
				d.Label = to
			}
			out[i] = d
		}
		return out
	}
}

// NormalizeLabel converts a detector class label to its canonical form:
// lowercase with surrounding whitespace removed. All labels entering the
// pipeline go through this once, so downstream comparisons are plain
// equality.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
