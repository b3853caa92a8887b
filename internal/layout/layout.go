// Package layout maps between viewport coordinates and document positions.
package layout

import (
	"sort"

	"chronicle/reorder/internal/document"
)

// Layout is the host's view of what is currently rendered.
type Layout interface {
	// Bounds is the editor's rectangle.
	Bounds() document.Rect
	// BoundingBoxOf returns the rectangle of the node starting at pos. Nodes
	// that are not rendered have no rectangle.
	BoundingBoxOf(pos int) (document.Rect, bool)
	// PositionAt resolves a point to the start position of the deepest node
	// under it.
	PositionAt(p document.Point) (int, bool)
}

// Box is a measured node rectangle.
type Box struct {
	Position int           `json:"position"`
	Depth    int           `json:"depth"`
	Rect     document.Rect `json:"rect"`
}

// Snapshot is a frozen frame of measured rectangles.
type Snapshot struct {
	Editor document.Rect `json:"bounds"`
	Boxes  []Box         `json:"boxes"`
}

func (s *Snapshot) Bounds() document.Rect { return s.Editor }

func (s *Snapshot) BoundingBoxOf(pos int) (document.Rect, bool) {
	for _, box := range s.Boxes {
		if box.Position == pos {
			return box.Rect, true
		}
	}
	return document.Rect{}, false
}

func (s *Snapshot) PositionAt(p document.Point) (int, bool) {
	var hits []Box
	for _, box := range s.Boxes {
		if box.Rect.Contains(p) {
			hits = append(hits, box)
		}
	}
	if len(hits) == 0 {
		return 0, false
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Depth != hits[j].Depth {
			return hits[i].Depth > hits[j].Depth
		}
		return hits[i].Position < hits[j].Position
	})
	return hits[0].Position, true
}

// Metrics drives the computed stacked layout.
type Metrics struct {
	Left         float64
	Top          float64
	Width        float64
	Gap          float64
	ItemIndent   float64
	ItemHeight   float64
	ListPadding  float64
	BlockHeight  float64
	HeightByType map[string]float64
}

// DefaultMetrics approximates a typical editor column.
func DefaultMetrics() Metrics {
	return Metrics{
		Left:        40,
		Top:         0,
		Width:       720,
		Gap:         8,
		ItemIndent:  24,
		ItemHeight:  28,
		ListPadding: 4,
		BlockHeight: 32,
		HeightByType: map[string]float64{
			"heading":        48,
			"codeBlock":      96,
			"image":          240,
			"horizontalRule": 16,
		},
	}
}

// Stack lays out the document's blocks top to bottom, separated by Gap, with
// list items indented inside their container.
func Stack(doc *document.Document, m Metrics) *Snapshot {
	snap := &Snapshot{}
	y := m.Top
	for _, block := range doc.Blocks() {
		if block.Kind == document.KindContainer {
			items, err := doc.ItemsOf(block)
			if err == nil {
				start := y
				iy := y + m.ListPadding
				for _, item := range items {
					snap.Boxes = append(snap.Boxes, Box{
						Position: item.Position,
						Depth:    2,
						Rect:     document.Rect{Top: iy, Left: m.Left + m.ItemIndent, Width: m.Width - m.ItemIndent, Height: m.ItemHeight},
					})
					iy += m.ItemHeight
				}
				height := iy - start + m.ListPadding
				snap.Boxes = append(snap.Boxes, Box{
					Position: block.Position,
					Depth:    1,
					Rect:     document.Rect{Top: start, Left: m.Left, Width: m.Width, Height: height},
				})
				y = start + height + m.Gap
				continue
			}
		}
		height := m.BlockHeight
		if h, ok := m.HeightByType[block.Type]; ok {
			height = h
		}
		snap.Boxes = append(snap.Boxes, Box{
			Position: block.Position,
			Depth:    1,
			Rect:     document.Rect{Top: y, Left: m.Left, Width: m.Width, Height: height},
		})
		y += height + m.Gap
	}
	bottom := y - m.Gap
	if bottom < m.Top {
		bottom = m.Top
	}
	snap.Editor = document.Rect{Top: m.Top, Left: m.Left, Width: m.Width, Height: bottom - m.Top}
	return snap
}
