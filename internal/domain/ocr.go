package domain

// Point is a vertex of an OCR bounding polygon in image pixel coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Block is one text region reported by the OCR collaborator.
// PageWidth is the width of the page the block was detected on; all layout
// geometry is relative to it.
type Block struct {
	Text      string  `json:"text"`
	Polygon   []Point `json:"bounding_polygon"`
	PageWidth int     `json:"page_width"`
}
