package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chronicle/reorder/internal/config"
	"chronicle/reorder/internal/gitrepo"
	"chronicle/reorder/internal/hittest"
	"chronicle/reorder/internal/ledger"
)

func newTestHTTPServer(t *testing.T) *HTTPServer {
	t.Helper()
	cfg := config.Config{
		Layout:     config.LayoutStacked,
		HitTest:    hittest.DefaultConfig(),
		GestureTTL: time.Minute,
	}
	svc := New(cfg, gitrepo.New(t.TempDir()), ledger.NewMemoryLedger(), nil)
	return NewHTTPServer(svc, "*")
}

func doRequest(t *testing.T, server *HTTPServer, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(actorHeader, "Avery")
	res := httptest.NewRecorder()
	server.Handler().ServeHTTP(res, req)

	payload := map[string]any{}
	if res.Body.Len() > 0 {
		if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response %q: %v", res.Body.String(), err)
		}
	}
	return res, payload
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestHTTPServer(t)

	res, payload := doRequest(t, server, http.MethodGet, "/api/health", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if payload["ok"] != true {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if res.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestReadyEndpoint(t *testing.T) {
	server := newTestHTTPServer(t)

	res, payload := doRequest(t, server, http.MethodGet, "/api/ready", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	checks, _ := payload["checks"].(map[string]any)
	if _, ok := checks["ledger"]; !ok {
		t.Fatalf("expected ledger check, got %+v", payload)
	}
	if _, ok := checks["database"]; ok {
		t.Fatalf("database check reported without a database: %+v", payload)
	}
}

func TestReadyEndpointReportsDatabaseFailure(t *testing.T) {
	server := newTestHTTPServer(t)
	server.service.WithMoveLog(&fakeMoveLog{pingFn: func(context.Context) error {
		return errors.New("connection refused")
	}})

	res, payload := doRequest(t, server, http.MethodGet, "/api/ready", nil)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	if payload["status"] != "not_ready" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDocumentMoveFlow(t *testing.T) {
	server := newTestHTTPServer(t)

	res, payload := doRequest(t, server, http.MethodPut, "/api/documents/doc-1", map[string]any{
		"title": "Doc",
		"doc":   json.RawMessage(sampleDoc),
	})
	if res.Code != http.StatusOK {
		t.Fatalf("PUT expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if blocks, _ := payload["blocks"].([]any); len(blocks) != 4 {
		t.Fatalf("expected 4 outline blocks, got %+v", payload["blocks"])
	}

	res, payload = doRequest(t, server, http.MethodPost, "/api/documents/doc-1/moves", MoveRequest{
		GestureID: "g-1",
		Move:      blockMove(),
	})
	if res.Code != http.StatusOK {
		t.Fatalf("POST moves expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if payload["changed"] != true {
		t.Fatalf("expected changed move, got %+v", payload)
	}

	res, payload = doRequest(t, server, http.MethodGet, "/api/documents/doc-1/outline", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("GET outline expected 200, got %d", res.Code)
	}
	blocks, _ := payload["blocks"].([]any)
	second, _ := blocks[1].(map[string]any)
	if second["nodeId"] != "L" {
		t.Fatalf("expected list second after move, got %+v", second)
	}

	res, payload = doRequest(t, server, http.MethodGet, "/api/documents/doc-1/moves?limit=10", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("GET moves expected 200, got %d", res.Code)
	}
	if commits, _ := payload["commits"].([]any); len(commits) != 2 {
		t.Fatalf("expected 2 commits, got %+v", payload["commits"])
	}
	if payload["auditEnabled"] != false {
		t.Fatalf("expected audit disabled, got %+v", payload)
	}
}

func TestGestureEndpoint(t *testing.T) {
	server := newTestHTTPServer(t)
	if res, _ := doRequest(t, server, http.MethodPut, "/api/documents/doc-1", map[string]any{
		"title": "Doc",
		"doc":   json.RawMessage(sampleDoc),
	}); res.Code != http.StatusOK {
		t.Fatalf("PUT expected 200, got %d", res.Code)
	}

	res, payload := doRequest(t, server, http.MethodPost, "/api/documents/doc-1/gestures", GestureRequest{
		GestureID: "g-1",
		Events:    replayEvents(),
	})
	if res.Code != http.StatusOK {
		t.Fatalf("POST gestures expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if payload["changed"] != true {
		t.Fatalf("expected committed gesture, got %+v", payload)
	}
}

func TestDocumentErrors(t *testing.T) {
	server := newTestHTTPServer(t)
	if res, _ := doRequest(t, server, http.MethodPut, "/api/documents/doc-1", map[string]any{
		"title": "Doc",
		"doc":   json.RawMessage(sampleDoc),
	}); res.Code != http.StatusOK {
		t.Fatalf("PUT expected 200, got %d", res.Code)
	}

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name:   "cross depth move",
			method: http.MethodPost,
			path:   "/api/documents/doc-1/moves",
			body: map[string]any{
				"source": map[string]any{"position": 9, "depth": 2, "parentPosition": 8, "index": 0},
				"target": map[string]any{"position": 0, "depth": 1, "parentPosition": -1, "index": 0},
			},
			status: http.StatusConflict,
			code:   "DEPTH_MISMATCH",
		},
		{name: "missing document", method: http.MethodGet, path: "/api/documents/missing/outline", status: http.StatusNotFound, code: "DOCUMENT_NOT_FOUND"},
		{name: "invalid id", method: http.MethodGet, path: "/api/documents/bad.id/outline", status: http.StatusBadRequest, code: "INVALID_DOCUMENT_ID"},
		{name: "invalid limit", method: http.MethodGet, path: "/api/documents/doc-1/moves?limit=0", status: http.StatusBadRequest, code: "INVALID_LIMIT"},
		{name: "unknown route", method: http.MethodGet, path: "/api/nowhere", status: http.StatusNotFound, code: "NOT_FOUND"},
		{
			name:   "invalid document",
			method: http.MethodPut,
			path:   "/api/documents/doc-2",
			body:   map[string]any{"title": "x", "doc": map[string]any{"type": "paragraph"}},
			status: http.StatusUnprocessableEntity,
			code:   "INVALID_DOCUMENT",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, payload := doRequest(t, server, tc.method, tc.path, tc.body)
			if res.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, res.Code, res.Body.String())
			}
			if payload["code"] != tc.code {
				t.Fatalf("expected code %s, got %+v", tc.code, payload)
			}
		})
	}
}
