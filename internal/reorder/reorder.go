// Package reorder applies a committed move to a document. It is the only code
// path that changes the ordering of blocks or list items.
package reorder

import (
	"chronicle/reorder/internal/document"
)

// Tree is the live document the applier resolves against and mutates.
type Tree interface {
	Blocks() []document.Block
	BlockAt(pos int) (document.Block, bool)
	ItemsOf(block document.Block) ([]document.Item, error)
	ReplaceChildren(parent int, order []int) error
}

// Move is a validated drop: place Source before or after Target.
type Move struct {
	Source      document.DragInfo `json:"source"`
	Target      document.DragInfo `json:"target"`
	InsertAfter bool              `json:"insertAfter"`
}

// Result describes the applied move.
type Result struct {
	Changed bool `json:"changed"`
	Depth   int  `json:"depth"`
	Parent  int  `json:"parent"`
	From    int  `json:"from"`
	To      int  `json:"to"`
	Count   int  `json:"count"`
}

// Destination is the index the source lands on after it has been removed.
func Destination(from, target int, after bool) int {
	to := target
	if from < target {
		to--
	}
	if after {
		to++
	}
	return to
}

// Applier validates and applies moves. The zero value is ready to use.
type Applier struct{}

// Apply moves the source next to the target. Indices are resolved from the
// live tree, never from the descriptors' cached indices.
func (Applier) Apply(tree Tree, mv Move) (Result, error) {
	src, tgt := mv.Source, mv.Target
	if src.Depth != tgt.Depth {
		return Result{}, structuralError(ErrDepthMismatch, "source depth %d, target depth %d", src.Depth, tgt.Depth)
	}

	switch src.Depth {
	case 1:
		return applyBlocks(tree, mv)
	case 2:
		if src.ParentPosition != tgt.ParentPosition {
			return Result{}, structuralError(ErrParentMismatch, "source parent %d, target parent %d", src.ParentPosition, tgt.ParentPosition)
		}
		return applyItems(tree, mv)
	default:
		return Result{}, structuralError(ErrUnsupportedDepth, "depth %d", src.Depth)
	}
}

func applyBlocks(tree Tree, mv Move) (Result, error) {
	blocks := tree.Blocks()
	keys := make([]nodeKey, len(blocks))
	for i, b := range blocks {
		keys[i] = nodeKey{position: b.Position, nodeID: b.NodeID}
	}
	return reorderSiblings(tree, document.RootPosition, 1, keys, mv)
}

func applyItems(tree Tree, mv Move) (Result, error) {
	parent := mv.Source.ParentPosition
	container, ok := tree.BlockAt(parent)
	if !ok || container.Position != parent {
		return Result{}, structuralError(ErrStaleSource, "no block at parent position %d", parent)
	}
	if container.Kind != document.KindContainer {
		return Result{}, structuralError(ErrNotContainer, "%s at %d", container.Type, parent)
	}
	items, err := tree.ItemsOf(container)
	if err != nil {
		return Result{}, structuralError(ErrNotContainer, "%v", err)
	}
	if len(items) < 2 {
		return Result{}, structuralError(ErrSingleItemList, "container at %d has %d item(s)", parent, len(items))
	}
	keys := make([]nodeKey, len(items))
	for i, item := range items {
		keys[i] = nodeKey{position: item.Position, nodeID: item.NodeID}
	}
	return reorderSiblings(tree, parent, 2, keys, mv)
}

type nodeKey struct {
	position int
	nodeID   string
}

// indexOf finds a sibling by node id when one is known, otherwise by
// position. The first match wins.
func indexOf(keys []nodeKey, info document.DragInfo) int {
	if info.NodeID != "" {
		for i, k := range keys {
			if k.nodeID == info.NodeID {
				return i
			}
		}
		return -1
	}
	for i, k := range keys {
		if k.position == info.Position {
			return i
		}
	}
	return -1
}

func reorderSiblings(tree Tree, parent, depth int, keys []nodeKey, mv Move) (Result, error) {
	from := indexOf(keys, mv.Source)
	if from < 0 {
		return Result{}, structuralError(ErrStaleSource, "source at %d no longer resolves", mv.Source.Position)
	}
	target := indexOf(keys, mv.Target)
	if target < 0 {
		return Result{}, structuralError(ErrStaleTarget, "target at %d no longer resolves", mv.Target.Position)
	}

	result := Result{Depth: depth, Parent: parent, From: from, To: from, Count: len(keys)}
	if from == target {
		return result, nil
	}
	to := Destination(from, target, mv.InsertAfter)
	if to == from {
		return result, nil
	}

	order := make([]int, 0, len(keys))
	for i := range keys {
		if i != from {
			order = append(order, i)
		}
	}
	order = append(order, 0)
	copy(order[to+1:], order[to:])
	order[to] = from

	if err := tree.ReplaceChildren(parent, order); err != nil {
		return Result{}, structuralError(ErrMutationFailed, "%v", err)
	}
	result.Changed = true
	result.To = to
	return result, nil
}
