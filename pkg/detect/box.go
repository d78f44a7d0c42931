package detect

import "image"

// Box is an axis-aligned bounding box in pixel coordinates of the source
// image, with XMin < XMax and YMin < YMax for well-formed detections.
type Box struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// Area returns the box area in pixels. Degenerate boxes produce zero or
// negative areas, which are valid comparison values and simply lose
// largest-area selection.
func (b Box) Area() int {
	return (b.XMax - b.XMin) * (b.YMax - b.YMin)
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax, b.YMax)
}

// Expand grows the box by borderRatio of its own width and height on each
// side, clamped to the image bounds. A ratio of 0.3 adds a 30% margin around
// the object, which keeps enough context for product photos.
func (b Box) Expand(borderRatio float64, imgWidth, imgHeight int) Box {
	borderX := int(float64(b.XMax-b.XMin) * borderRatio)
	borderY := int(float64(b.YMax-b.YMin) * borderRatio)

	out := Box{
		XMin: b.XMin - borderX,
		YMin: b.YMin - borderY,
		XMax: b.XMax + borderX,
		YMax: b.YMax + borderY,
	}
	if out.XMin < 0 {
		out.XMin = 0
	}
	if out.YMin < 0 {
		out.YMin = 0
	}
	if out.XMax > imgWidth {
		out.XMax = imgWidth
	}
	if out.YMax > imgHeight {
		out.YMax = imgHeight
	}
	return out
}
