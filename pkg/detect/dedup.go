package detect

// ImageDetections pairs an image identifier with its consolidated
// detections. The identifier is typically the capture filename.
type ImageDetections struct {
	ImageID string       `json:"image_id"`
	Objects Consolidated `json:"objects"`
}

// KeptItem is a final, globally-unique-by-label detection selected for
// downstream recognition, pricing and listing.
type KeptItem struct {
	ImageID    string  `json:"image_id"`
	Label      string  `json:"label"`
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// ClaimSet accumulates the class labels already kept by an earlier image in
// a batch. It only grows, and is scoped to a single batch: create a fresh
// one per Deduplicate call sequence and discard it afterwards.
//
// ClaimSet is not safe for concurrent use; the image order it encodes is
// the whole point, so callers must feed it sequentially.
type ClaimSet struct {
	labels map[string]struct{}
}

// NewClaimSet returns an empty claim set.
func NewClaimSet() *ClaimSet {
	return &ClaimSet{labels: make(map[string]struct{})}
}

// Claim records the label and reports whether it was newly claimed.
func (s *ClaimSet) Claim(label string) bool {
	if _, ok := s.labels[label]; ok {
		return false
	}
	s.labels[label] = struct{}{}
	return true
}

// Has reports whether the label has been claimed.
func (s *ClaimSet) Has(label string) bool {
	_, ok := s.labels[label]
	return ok
}

// Len returns the number of claimed labels.
func (s *ClaimSet) Len() int {
	return len(s.labels)
}

// Deduplicate walks the images in the given order and emits one KeptItem
// for every class label not yet present in claims, claiming it as it goes.
// Later sightings of a claimed label are suppressed, so the earliest capture
// of each object type wins. Within one image, labels are emitted in sorted
// order to keep output deterministic.
//
// claims is owned by the caller so the batch boundary stays explicit; pass
// nil to have a fresh set created for this call. The full eligible set is
// returned; any maximum-items policy is applied by the caller.
func Deduplicate(images []ImageDetections, claims *ClaimSet) []KeptItem {
	if claims == nil {
		claims = NewClaimSet()
	}

	var kept []KeptItem
	for _, img := range images {
		for _, label := range img.Objects.Labels() {
			if !claims.Claim(label) {
				continue
			}
			inst := img.Objects[label]
			kept = append(kept, KeptItem{
				ImageID:    img.ImageID,
				Label:      label,
				Box:        inst.Box,
				Confidence: inst.Confidence,
			})
		}
	}
	return kept
}
