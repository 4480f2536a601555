package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wardenjs/warden/sandbox"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(sandbox.Options{}, nil, "")
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %+v", body)
	}
}

func TestRunAgainstUnknownSessionReturnsNotFound(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/instances/does-not-exist/run", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDeleteUnknownSessionReturnsNotFound(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/instances/does-not-exist", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestReportAgainstUnknownSessionReturnsNotFound(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/instances/does-not-exist/report", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSetHookAgainstUnknownSessionReturnsNotFound(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"path":"fetch","value":1,"isWritable":true}`)
	req := httptest.NewRequest(http.MethodPost, "/instances/does-not-exist/hooks", body)
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSetHookRejectsEmptyPath(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	createReq := httptest.NewRequest(http.MethodPost, "/instances", nil)
	srv.Router().ServeHTTP(w, createReq)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, want 201", w.Code)
	}
	var created map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}

	w2 := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"value":1}`)
	req := httptest.NewRequest(http.MethodPost, "/instances/"+created["id"]+"/hooks", body)
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w2, req)

	if w2.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w2.Code)
	}
}

func TestStatelessRunRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`not json`)
	req := httptest.NewRequest(http.MethodPost, "/runs", body)
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestMetricsEndpointServesPrometheusText(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Fatal("expected a non-empty metrics body")
	}
}
