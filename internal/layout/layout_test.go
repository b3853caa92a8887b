package layout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/reorder/internal/document"
)

const doc = `{
	"type": "doc",
	"content": [
		{"type": "paragraph", "content": [{"type": "text", "text": "P1"}]},
		{"type": "bulletList", "content": [
			{"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "I1"}]}]},
			{"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "I2"}]}]}
		]},
		{"type": "heading", "content": [{"type": "text", "text": "H"}]}
	]
}`

func parse(t *testing.T) *document.Document {
	t.Helper()
	d, err := document.Parse([]byte(doc))
	require.NoError(t, err)
	return d
}

func TestStackGeometry(t *testing.T) {
	m := DefaultMetrics()
	snap := Stack(parse(t), m)

	p1, ok := snap.BoundingBoxOf(0)
	require.True(t, ok)
	assert.Equal(t, document.Rect{Top: 0, Left: 40, Width: 720, Height: 32}, p1)

	list, ok := snap.BoundingBoxOf(4)
	require.True(t, ok)
	assert.Equal(t, 40.0, list.Top)
	assert.Equal(t, 4+28*2+4.0, list.Height)

	item, ok := snap.BoundingBoxOf(5)
	require.True(t, ok)
	assert.Equal(t, document.Rect{Top: 44, Left: 64, Width: 696, Height: 28}, item)

	heading, ok := snap.BoundingBoxOf(18)
	require.True(t, ok)
	assert.Equal(t, 112.0, heading.Top)
	assert.Equal(t, 48.0, heading.Height)

	assert.Equal(t, 160.0, snap.Bounds().Bottom())

	_, ok = snap.BoundingBoxOf(999)
	assert.False(t, ok)
}

func TestSnapshotPositionAtPrefersDeepest(t *testing.T) {
	snap := Stack(parse(t), DefaultMetrics())

	pos, ok := snap.PositionAt(document.Point{X: 100, Y: 50})
	require.True(t, ok)
	assert.Equal(t, 5, pos, "item wins over its container")

	pos, ok = snap.PositionAt(document.Point{X: 50, Y: 50})
	require.True(t, ok)
	assert.Equal(t, 4, pos, "inside the list indent only the container matches")

	_, ok = snap.PositionAt(document.Point{X: 100, Y: 36})
	assert.False(t, ok, "gap between blocks")

	_, ok = snap.PositionAt(document.Point{X: 100, Y: 500})
	assert.False(t, ok)
}

func TestEmptyDocumentBounds(t *testing.T) {
	d, err := document.Parse([]byte(`{"type":"doc","content":[]}`))
	require.NoError(t, err)
	snap := Stack(d, DefaultMetrics())
	assert.Empty(t, snap.Boxes)
	assert.Equal(t, 0.0, snap.Bounds().Height)
}

func TestBrowserMeasure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if !Available() {
		t.Skip("chromium not installed")
	}

	snap, err := NewBrowser().Measure(context.Background(), parse(t))
	require.NoError(t, err)
	require.Len(t, snap.Boxes, 4)

	p1, ok := snap.BoundingBoxOf(0)
	require.True(t, ok)
	list, ok := snap.BoundingBoxOf(4)
	require.True(t, ok)
	assert.Greater(t, list.Top, p1.Top)

	item, ok := snap.BoundingBoxOf(5)
	require.True(t, ok)
	assert.Greater(t, item.Left, list.Left)
}
