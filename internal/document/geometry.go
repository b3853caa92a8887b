package document

// Point is a viewport coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an on-screen bounding box in viewport coordinates.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Bottom() float64 { return r.Top + r.Height }
func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) MidY() float64   { return r.Top + r.Height/2 }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right() && p.Y >= r.Top && p.Y <= r.Bottom()
}

// DragInfo addresses one draggable node for the duration of a gesture.
// ParentPosition is RootPosition for depth 1.
type DragInfo struct {
	Position       int    `json:"position"`
	Depth          int    `json:"depth"`
	ParentPosition int    `json:"parentPosition"`
	Index          int    `json:"index"`
	NodeID         string `json:"nodeId,omitempty"`
}

// SameAddress reports whether both descriptors point at the same node.
func (d DragInfo) SameAddress(other DragInfo) bool {
	return d.Depth == other.Depth && d.Position == other.Position
}
