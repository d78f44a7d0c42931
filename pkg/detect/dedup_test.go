package detect

import (
	"reflect"
	"testing"
)

func TestDeduplicateFirstSeenWins(t *testing.T) {
	box1 := Box{0, 0, 100, 100}
	box2 := Box{10, 10, 90, 90}
	box3 := Box{5, 5, 40, 40}

	images := []ImageDetections{
		{ImageID: "frame_001.jpg", Objects: Consolidated{
			"book": {Box: box1, Confidence: 0.8},
		}},
		{ImageID: "frame_002.jpg", Objects: Consolidated{
			"book": {Box: box2, Confidence: 0.95},
			"mug":  {Box: box3, Confidence: 0.7},
		}},
	}

	kept := Deduplicate(images, nil)
	want := []KeptItem{
		{ImageID: "frame_001.jpg", Label: "book", Box: box1, Confidence: 0.8},
		{ImageID: "frame_002.jpg", Label: "mug", Box: box3, Confidence: 0.7},
	}
	if !reflect.DeepEqual(kept, want) {
		t.Errorf("Deduplicate() = %v, want %v", kept, want)
	}
}

func TestDeduplicateGlobalUniqueness(t *testing.T) {
	images := []ImageDetections{
		{ImageID: "a", Objects: Consolidated{"chair": {Box: Box{0, 0, 10, 10}}}},
		{ImageID: "b", Objects: Consolidated{"chair": {Box: Box{0, 0, 20, 20}}}},
		{ImageID: "c", Objects: Consolidated{"chair": {Box: Box{0, 0, 30, 30}}}},
	}

	kept := Deduplicate(images, nil)
	if len(kept) != 1 {
		t.Fatalf("expected exactly 1 kept chair, got %d", len(kept))
	}
	if kept[0].ImageID != "a" {
		t.Errorf("kept chair from %q, want the first image", kept[0].ImageID)
	}

	seen := map[string]bool{}
	for _, item := range kept {
		if seen[item.Label] {
			t.Errorf("label %q kept twice", item.Label)
		}
		seen[item.Label] = true
	}
}

func TestDeduplicateOrderPreservation(t *testing.T) {
	images := []ImageDetections{
		{ImageID: "1", Objects: Consolidated{
			"mug":  {Box: Box{0, 0, 10, 10}},
			"book": {Box: Box{0, 0, 20, 20}},
		}},
		{ImageID: "2", Objects: Consolidated{
			"chair": {Box: Box{0, 0, 30, 30}},
		}},
	}

	kept := Deduplicate(images, nil)
	if len(kept) != 3 {
		t.Fatalf("expected 3 kept items, got %d", len(kept))
	}

	// All of image 1 before all of image 2, labels sorted within an image.
	wantOrder := []string{"book", "mug", "chair"}
	for i, label := range wantOrder {
		if kept[i].Label != label {
			t.Errorf("kept[%d] = %q, want %q", i, kept[i].Label, label)
		}
	}
	if kept[0].ImageID != "1" || kept[1].ImageID != "1" || kept[2].ImageID != "2" {
		t.Errorf("image order not preserved: %v", kept)
	}
}

func TestDeduplicateEmptyBatch(t *testing.T) {
	claims := NewClaimSet()
	kept := Deduplicate(nil, claims)
	if len(kept) != 0 {
		t.Errorf("empty batch produced %d items", len(kept))
	}
	if claims.Len() != 0 {
		t.Errorf("empty batch mutated claims: %d labels", claims.Len())
	}
}

func TestDeduplicateEmptyImage(t *testing.T) {
	images := []ImageDetections{
		{ImageID: "a", Objects: Consolidated{}},
		{ImageID: "b", Objects: Consolidated{"book": {Box: Box{0, 0, 10, 10}}}},
	}

	kept := Deduplicate(images, nil)
	if len(kept) != 1 || kept[0].ImageID != "b" {
		t.Errorf("empty image affected the result: %v", kept)
	}
}

func TestDeduplicateMonotonicClaimGrowth(t *testing.T) {
	images := []ImageDetections{
		{ImageID: "a", Objects: Consolidated{"book": {}, "mug": {}}},
		{ImageID: "b", Objects: Consolidated{"book": {}}},
		{ImageID: "c", Objects: Consolidated{"chair": {}}},
	}

	claims := NewClaimSet()
	prev := 0
	for _, img := range images {
		Deduplicate([]ImageDetections{img}, claims)
		if claims.Len() < prev {
			t.Fatalf("claim set shrank: %d -> %d", prev, claims.Len())
		}
		prev = claims.Len()
	}
	if claims.Len() != 3 {
		t.Errorf("final claim count = %d, want 3", claims.Len())
	}
}

func TestDeduplicateCallerOwnedClaims(t *testing.T) {
	// A pre-claimed label is suppressed even on its first sighting in the
	// batch.
	claims := NewClaimSet()
	claims.Claim("laptop")

	images := []ImageDetections{
		{ImageID: "a", Objects: Consolidated{
			"laptop": {Box: Box{0, 0, 10, 10}},
			"mug":    {Box: Box{0, 0, 20, 20}},
		}},
	}

	kept := Deduplicate(images, claims)
	if len(kept) != 1 || kept[0].Label != "mug" {
		t.Errorf("pre-claimed label not suppressed: %v", kept)
	}
}

func TestClaimSet(t *testing.T) {
	s := NewClaimSet()

	if s.Has("book") {
		t.Error("fresh set claims to have book")
	}
	if !s.Claim("book") {
		t.Error("first Claim returned false")
	}
	if s.Claim("book") {
		t.Error("second Claim of the same label returned true")
	}
	if !s.Has("book") {
		t.Error("Has(book) false after Claim")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}
