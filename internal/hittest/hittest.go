// Package hittest resolves pointer coordinates to drag targets.
package hittest

import (
	"chronicle/reorder/internal/document"
	"chronicle/reorder/internal/layout"
)

// Model is the read side of the document the tester resolves against.
type Model interface {
	Locate(pos int) (document.Block, *document.Item, bool)
}

// Config sizes the drag handle and its pickup zone, in pixels.
type Config struct {
	// HandleWidth and HandleGap place the handle left of the node.
	HandleWidth float64
	HandleGap   float64
	// ZoneWidth is how far left of the editor edge the pickup zone reaches.
	ZoneWidth float64
	// ProbeInset is the x offset inside the editor used to resolve nodes.
	// It must exceed the list indent so items are hit rather than their list.
	ProbeInset float64
}

// DefaultConfig matches layout.DefaultMetrics.
func DefaultConfig() Config {
	return Config{HandleWidth: 20, HandleGap: 8, ZoneWidth: 48, ProbeInset: 40}
}

// Hit is a resolved candidate.
type Hit struct {
	Info  document.DragInfo
	Rect  document.Rect
	After bool
}

// IndicatorTop is the edge the drop indicator is drawn on.
func (h Hit) IndicatorTop() float64 {
	if h.After {
		return h.Rect.Bottom()
	}
	return h.Rect.Top
}

// Tester resolves pointer positions. Sizes and rectangles are read fresh
// from the model and layout on every call.
type Tester struct {
	model  Model
	layout layout.Layout
	cfg    Config
}

func New(model Model, l layout.Layout, cfg Config) *Tester {
	return &Tester{model: model, layout: l, cfg: cfg}
}

// SetLayout swaps in a newer frame.
func (t *Tester) SetLayout(l layout.Layout) { t.layout = l }

// Config returns the tester's configuration.
func (t *Tester) Config() Config { return t.cfg }

// HandleLeft positions the drag handle for a hit.
func (t *Tester) HandleLeft(h Hit) float64 {
	return h.Rect.Left - t.cfg.HandleWidth - t.cfg.HandleGap
}

// Pickup resolves the node whose handle should be shown for a pointer in the
// left-hand handle zone.
func (t *Tester) Pickup(p document.Point) (Hit, bool) {
	if t.layout == nil {
		return Hit{}, false
	}
	bounds := t.layout.Bounds()
	if p.X < bounds.Left-t.cfg.ZoneWidth || p.X > bounds.Left+t.cfg.ProbeInset {
		return Hit{}, false
	}
	return t.resolve(p, false)
}

// Target resolves an in-flight drop target for the given source. A block
// source never resolves inside a list: item hits are lifted to their list.
func (t *Tester) Target(p document.Point, source document.DragInfo) (Hit, bool) {
	if t.layout == nil {
		return Hit{}, false
	}
	return t.resolve(p, source.Depth == 1)
}

func (t *Tester) resolve(p document.Point, lift bool) (Hit, bool) {
	bounds := t.layout.Bounds()
	if p.Y < bounds.Top || p.Y > bounds.Bottom() {
		return Hit{}, false
	}

	probe := document.Point{X: bounds.Left + t.cfg.ProbeInset, Y: p.Y}
	pos, ok := t.layout.PositionAt(probe)
	if !ok {
		return Hit{}, false
	}
	block, item, ok := t.model.Locate(pos)
	if !ok {
		return Hit{}, false
	}
	if lift {
		item = nil
	}

	info := document.Info(block, item)
	rect, ok := t.layout.BoundingBoxOf(info.Position)
	if !ok {
		return Hit{}, false
	}
	return Hit{Info: info, Rect: rect, After: p.Y >= rect.MidY()}, true
}
