package gitrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const listDoc = `{
	"type":"doc",
	"content":[
		{"type":"heading","attrs":{"level":1,"nodeId":"n-title"},"content":[{"type":"text","text":"Doc"}]},
		{"type":"bulletList","attrs":{"nodeId":"n-list"},"content":[
			{"type":"listItem","attrs":{"nodeId":"n-one"},"content":[{"type":"paragraph","content":[{"type":"text","text":"One"}]}]},
			{"type":"listItem","attrs":{"nodeId":"n-two"},"content":[{"type":"paragraph","content":[{"type":"text","text":"Two"}]}]}
		]},
		{"type":"codeBlock","content":[{"type":"text","text":"const x = 1;"}]}
	]
}`

func TestDocumentRepoLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	initial := Content{Title: "Doc", Doc: json.RawMessage(listDoc)}
	created, err := svc.EnsureDocumentRepo("doc-1", initial, "Avery")
	if err != nil {
		t.Fatalf("EnsureDocumentRepo() error = %v", err)
	}
	if !created {
		t.Fatal("expected repo to be created")
	}
	if _, err := os.Stat(filepath.Join(tempDir, "doc-1")); err != nil {
		t.Fatalf("repo directory missing: %v", err)
	}

	created, err = svc.EnsureDocumentRepo("doc-1", Content{Title: "Other"}, "Avery")
	if err != nil {
		t.Fatalf("EnsureDocumentRepo() second call error = %v", err)
	}
	if created {
		t.Fatal("expected existing repo to be kept")
	}

	updated := initial
	updated.Title = "Doc (renamed)"
	commit, err := svc.CommitContent("doc-1", updated, "Avery", "Rename")
	if err != nil {
		t.Fatalf("CommitContent() error = %v", err)
	}
	if commit.Hash == "" {
		t.Fatal("expected commit hash")
	}

	history, err := svc.History("doc-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Hash != commit.Hash {
		t.Fatalf("expected newest commit first, got %+v", history[0])
	}

	limited, err := svc.History("doc-1", 1)
	if err != nil {
		t.Fatalf("History(limit) error = %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(limited))
	}

	baseline, err := svc.GetContentByHash("doc-1", history[1].Hash)
	if err != nil {
		t.Fatalf("GetContentByHash() error = %v", err)
	}
	if baseline.Title != "Doc" {
		t.Fatalf("unexpected baseline content: %+v", baseline)
	}
}

func TestFullDocRoundTripPreservesStructure(t *testing.T) {
	svc := New(t.TempDir())

	initial := Content{Title: "Doc", Doc: json.RawMessage(listDoc)}
	if _, err := svc.EnsureDocumentRepo("doc-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsureDocumentRepo() error = %v", err)
	}

	got, head, err := svc.GetHeadContent("doc-1")
	if err != nil {
		t.Fatalf("GetHeadContent() error = %v", err)
	}
	if head.Author != "Avery" {
		t.Fatalf("unexpected author %q", head.Author)
	}

	wantNorm := normalizeDoc(initial.Doc)
	gotNorm := normalizeDoc(got.Doc)
	if string(wantNorm) != string(gotNorm) {
		t.Fatalf("doc JSON mismatch after round-trip\nwant=%s\ngot=%s", string(wantNorm), string(gotNorm))
	}
	if HasChanges(initial, got) {
		t.Fatal("expected round-tripped content to compare equal")
	}
}

func TestHasChanges(t *testing.T) {
	base := Content{Title: "Doc", Doc: json.RawMessage(`{"type":"doc","content":[{"type":"paragraph"}]}`)}

	reformatted := base
	reformatted.Doc = json.RawMessage("{\n  \"type\": \"doc\",\n  \"content\": [ {\"type\": \"paragraph\"} ]\n}")
	if HasChanges(base, reformatted) {
		t.Fatal("whitespace-only difference reported as a change")
	}

	renamed := base
	renamed.Title = "Other"
	if !HasChanges(base, renamed) {
		t.Fatal("title change not detected")
	}

	reordered := base
	reordered.Doc = json.RawMessage(`{"type":"doc","content":[{"type":"paragraph"},{"type":"heading"}]}`)
	if !HasChanges(base, reordered) {
		t.Fatal("doc change not detected")
	}
}

func TestMissingDocument(t *testing.T) {
	svc := New(t.TempDir())

	if _, _, err := svc.GetHeadContent("nope"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("GetHeadContent() error = %v, want ErrDocumentNotFound", err)
	}
	if _, err := svc.History("nope", 0); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("History() error = %v, want ErrDocumentNotFound", err)
	}
	if _, err := svc.CommitContent("nope", Content{}, "Avery", "x"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("CommitContent() error = %v, want ErrDocumentNotFound", err)
	}
}

func TestConcurrentCommitContent(t *testing.T) {
	svc := New(t.TempDir())

	initial := Content{Title: "Doc"}
	if _, err := svc.EnsureDocumentRepo("doc-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsureDocumentRepo() error = %v", err)
	}

	const writers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			next := initial
			next.Title = fmt.Sprintf("title-%02d", idx)
			if _, err := svc.CommitContent("doc-1", next, "Avery", fmt.Sprintf("Commit %02d", idx)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("CommitContent() concurrent error = %v", err)
		}
	}

	history, err := svc.History("doc-1", 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != writers+1 {
		t.Fatalf("expected %d commits in history, got %d", writers+1, len(history))
	}

	head, _, err := svc.GetHeadContent("doc-1")
	if err != nil {
		t.Fatalf("GetHeadContent() error = %v", err)
	}
	if !strings.HasPrefix(head.Title, "title-") {
		t.Fatalf("unexpected head content after concurrent commits: %+v", head)
	}
}
