package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chronicle/reorder/internal/app"
	"chronicle/reorder/internal/document"
)

const listDoc = `{"type":"doc","content":[
	{"type":"paragraph","attrs":{"nodeId":"a"},"content":[{"type":"text","text":"A"}]},
	{"type":"bulletList","attrs":{"nodeId":"list"},"content":[
		{"type":"listItem","attrs":{"nodeId":"one"},"content":[{"type":"paragraph","content":[{"type":"text","text":"One"}]}]},
		{"type":"listItem","attrs":{"nodeId":"two"},"content":[{"type":"paragraph","content":[{"type":"text","text":"Two"}]}]}
	]},
	{"type":"paragraph","attrs":{"nodeId":"b"},"content":[{"type":"text","text":"B"}]}
]}`

func sampleOutline() app.Outline {
	return app.Outline{Blocks: []app.OutlineBlock{
		{Position: 0, Index: 0, NodeID: "a"},
		{Position: 3, Index: 1, NodeID: "list", Items: []app.OutlineItem{
			{Position: 4, Index: 0, NodeID: "one"},
			{Position: 11, Index: 1, NodeID: "two"},
		}},
		{Position: 19, Index: 2, NodeID: "b"},
	}}
}

func TestMoveFromOutlineBlocks(t *testing.T) {
	mv, err := moveFromOutline(sampleOutline(), -1, 0, 2, true)
	if err != nil {
		t.Fatalf("moveFromOutline() error = %v", err)
	}
	if mv.Source.NodeID != "a" || mv.Target.NodeID != "b" || !mv.InsertAfter {
		t.Fatalf("unexpected move %+v", mv)
	}
	if mv.Source.Depth != 1 || mv.Source.ParentPosition != document.RootPosition {
		t.Fatalf("unexpected block address %+v", mv.Source)
	}
}

func TestMoveFromOutlineItems(t *testing.T) {
	mv, err := moveFromOutline(sampleOutline(), 1, 1, 0, false)
	if err != nil {
		t.Fatalf("moveFromOutline() error = %v", err)
	}
	if mv.Source.Depth != 2 || mv.Source.ParentPosition != 3 || mv.Source.Position != 11 {
		t.Fatalf("unexpected item address %+v", mv.Source)
	}
	if mv.Target.NodeID != "one" {
		t.Fatalf("unexpected target %+v", mv.Target)
	}
}

func TestMoveFromOutlineRejectsBadIndices(t *testing.T) {
	cases := []struct {
		name           string
		list, from, to int
	}{
		{"block source", -1, 5, 0},
		{"block target", -1, 0, -2},
		{"list", 9, 0, 1},
		{"item", 1, 0, 4},
	}
	for _, tc := range cases {
		if _, err := moveFromOutline(sampleOutline(), tc.list, tc.from, tc.to, false); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestPutMoveOutline(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(docPath, []byte(listDoc), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	repos := filepath.Join(dir, "repos")

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(append(args, "--repos", repos))
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return out.String()
	}

	run("put", "doc-1", docPath, "--title", "Doc")
	if out := run("move", "doc-1", "0", "2", "--after"); !strings.Contains(out, "Move block 0 to 2") {
		t.Fatalf("unexpected move output %q", out)
	}
	out := run("outline", "doc-1")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 || !strings.HasSuffix(strings.TrimSpace(lines[1]), "list") {
		t.Fatalf("expected list first after move, got:\n%s", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[len(lines)-1]), "a") {
		t.Fatalf("expected a last after move, got:\n%s", out)
	}
}
