// Package document is a structural view over a ProseMirror document tree.
//
// Top-level nodes are Blocks; children of list containers are Items. Every
// node has a position in ProseMirror's address space, recomputed from the live
// tree on each query.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf16"
)

// RootPosition addresses the document itself as a parent.
const RootPosition = -1

// Kind distinguishes leaf blocks from list containers.
type Kind int

const (
	KindLeaf Kind = iota
	KindContainer
)

func (k Kind) String() string {
	if k == KindContainer {
		return "container"
	}
	return "leaf"
}

var (
	ErrNotDocument        = errors.New("root node is not a doc")
	ErrNotContainer       = errors.New("block is not a list container")
	ErrMalformedList      = errors.New("list container holds a non-item child")
	ErrUnknownParent      = errors.New("no container at parent position")
	ErrInvalidPermutation = errors.New("order is not a permutation of the current children")
)

var containerTypes = map[string]struct{}{
	"bulletList":  {},
	"orderedList": {},
	"taskList":    {},
}

var itemTypes = map[string]struct{}{
	"listItem": {},
	"taskItem": {},
}

// atomTypes occupy a single position and never hold content.
var atomTypes = map[string]struct{}{
	"image":          {},
	"horizontalRule": {},
	"hardBreak":      {},
	"mention":        {},
	"embed":          {},
}

// Node is a ProseMirror JSON node.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is a text mark (formatting).
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Size is the span of address space the node occupies.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	if n.Type == "text" {
		return len(utf16.Encode([]rune(n.Text)))
	}
	if _, ok := atomTypes[n.Type]; ok {
		return 1
	}
	return contentSize(n.Content) + 2
}

// NodeID returns the stable nodeId attribute, if any.
func (n *Node) NodeID() string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	id, _ := n.Attrs["nodeId"].(string)
	return id
}

// IsContainer reports whether the node is a list container.
func (n *Node) IsContainer() bool {
	_, ok := containerTypes[n.Type]
	return ok
}

// IsItem reports whether the node is a list item.
func (n *Node) IsItem() bool {
	_, ok := itemTypes[n.Type]
	return ok
}

func contentSize(nodes []*Node) int {
	total := 0
	for _, child := range nodes {
		total += child.Size()
	}
	return total
}

// Block is a top-level node.
type Block struct {
	Position int
	Size     int
	Index    int
	Kind     Kind
	Type     string
	NodeID   string
	Node     *Node
}

// End is the address immediately after the block.
func (b Block) End() int { return b.Position + b.Size }

// Item is a node one level inside a container block.
type Item struct {
	Position       int
	Size           int
	Index          int
	ParentPosition int
	Type           string
	NodeID         string
	Node           *Node
}

// End is the address immediately after the item.
func (i Item) End() int { return i.Position + i.Size }

// Document is a long-lived, mutable document tree.
type Document struct {
	root *Node
}

// New wraps an existing root node.
func New(root *Node) (*Document, error) {
	if root == nil || root.Type != "doc" {
		return nil, ErrNotDocument
	}
	return &Document{root: root}, nil
}

// Parse decodes ProseMirror JSON.
func Parse(raw []byte) (*Document, error) {
	var root Node
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return New(&root)
}

// MarshalJSON encodes the live tree.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.root)
}

// Root exposes the underlying tree.
func (d *Document) Root() *Node { return d.root }

// ContentSize is the size of the top-level content.
func (d *Document) ContentSize() int { return contentSize(d.root.Content) }

// Blocks enumerates the top-level blocks in document order.
func (d *Document) Blocks() []Block {
	blocks := make([]Block, 0, len(d.root.Content))
	pos := 0
	for idx, node := range d.root.Content {
		kind := KindLeaf
		if node.IsContainer() {
			kind = KindContainer
		}
		size := node.Size()
		blocks = append(blocks, Block{
			Position: pos,
			Size:     size,
			Index:    idx,
			Kind:     kind,
			Type:     node.Type,
			NodeID:   node.NodeID(),
			Node:     node,
		})
		pos += size
	}
	return blocks
}

// BlockAt resolves the top-level block whose span contains pos.
func (d *Document) BlockAt(pos int) (Block, bool) {
	if pos < 0 || pos >= d.ContentSize() {
		return Block{}, false
	}
	for _, block := range d.Blocks() {
		if pos >= block.Position && pos < block.End() {
			return block, true
		}
	}
	return Block{}, false
}

// ItemsOf enumerates the items of a container block.
func (d *Document) ItemsOf(block Block) ([]Item, error) {
	if block.Node == nil || !block.Node.IsContainer() {
		return nil, ErrNotContainer
	}
	items := make([]Item, 0, len(block.Node.Content))
	pos := block.Position + 1
	for idx, child := range block.Node.Content {
		if !child.IsItem() {
			return nil, fmt.Errorf("%w: %s at index %d", ErrMalformedList, child.Type, idx)
		}
		size := child.Size()
		items = append(items, Item{
			Position:       pos,
			Size:           size,
			Index:          idx,
			ParentPosition: block.Position,
			Type:           child.Type,
			NodeID:         child.NodeID(),
			Node:           child,
		})
		pos += size
	}
	return items, nil
}

// Locate resolves pos to its block and, when pos lies inside a list item of
// that block, the enclosing item. Deeper positions walk up to the depth-2 item.
func (d *Document) Locate(pos int) (Block, *Item, bool) {
	block, ok := d.BlockAt(pos)
	if !ok {
		return Block{}, nil, false
	}
	if block.Kind != KindContainer || pos == block.Position {
		return block, nil, true
	}
	items, err := d.ItemsOf(block)
	if err != nil {
		return block, nil, true
	}
	for i := range items {
		if pos >= items[i].Position && pos < items[i].End() {
			item := items[i]
			return block, &item, true
		}
	}
	return block, nil, true
}

// Info describes a located node as a DragInfo.
func Info(block Block, item *Item) DragInfo {
	if item != nil {
		return DragInfo{
			Position:       item.Position,
			Depth:          2,
			ParentPosition: item.ParentPosition,
			Index:          item.Index,
			NodeID:         item.NodeID,
		}
	}
	return DragInfo{
		Position:       block.Position,
		Depth:          1,
		ParentPosition: RootPosition,
		Index:          block.Index,
		NodeID:         block.NodeID,
	}
}

// ReplaceChildren reorders the children of parent in one step. order[i] is
// the current index of the child that ends up at index i.
func (d *Document) ReplaceChildren(parent int, order []int) error {
	var owner *Node
	if parent == RootPosition {
		owner = d.root
	} else {
		block, ok := d.BlockAt(parent)
		if !ok || block.Position != parent || block.Kind != KindContainer {
			return fmt.Errorf("%w: %d", ErrUnknownParent, parent)
		}
		owner = block.Node
	}

	children := owner.Content
	if len(order) != len(children) {
		return fmt.Errorf("%w: got %d indices for %d children", ErrInvalidPermutation, len(order), len(children))
	}
	seen := make([]bool, len(children))
	next := make([]*Node, len(children))
	for i, from := range order {
		if from < 0 || from >= len(children) || seen[from] {
			return fmt.Errorf("%w: index %d", ErrInvalidPermutation, from)
		}
		seen[from] = true
		next[i] = children[from]
	}
	owner.Content = next
	return nil
}
