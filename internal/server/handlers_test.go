package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calebrow/fleetsift/internal/ingest"
	"github.com/calebrow/fleetsift/internal/inventory"
	"github.com/calebrow/fleetsift/internal/testutil"
	"github.com/calebrow/fleetsift/pkg/models"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := testutil.Logger()
	repo, err := inventory.NewSQLiteRepository(context.Background(), testutil.NewStore(t))
	if err != nil {
		t.Fatalf("create repo: %v", err)
	}

	return New("127.0.0.1:0", Deps{
		Parser: ingest.NewParser(logger),
		Repo:   repo,
	}, logger)
}

// multipartBody builds a multipart upload with one part per file.
func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleIngestStoresRecords(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, map[string][]byte{
		"export.json": []byte(`[
			{"ComputerName":"PC-001","Model":"OptiPlex 7070","InternalIP":"10.52.1.100"},
			{"ComputerName":"PC-002","Model":"Latitude 5420"}
		]`),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", w.Code, w.Body.String())
	}

	var resp ingestResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Ingested != 2 || resp.Sources != 1 {
		t.Errorf("response = %+v, want 2 records from 1 source", resp)
	}

	// The records must be queryable afterwards.
	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/devices?category=Desktop", nil)
	listW := httptest.NewRecorder()
	srv.Handler().ServeHTTP(listW, listReq)

	var result inventory.ListResult
	if err := json.NewDecoder(listW.Body).Decode(&result); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if result.Total != 1 || result.Items[0].ComputerName != "PC-001" {
		t.Errorf("list = %+v, want one Desktop named PC-001", result)
	}
}

func TestHandleIngestMalformedFile(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, map[string][]byte{
		"broken.json": []byte(`{"ComputerName":`),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var p Problem
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if p.Type != ProblemTypeBadRequest {
		t.Errorf("problem type = %q, want %q", p.Type, ProblemTypeBadRequest)
	}
	if !bytes.Contains([]byte(p.Detail), []byte("broken.json")) {
		t.Errorf("problem detail %q does not name the offending file", p.Detail)
	}

	// Nothing may have been stored.
	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	listW := httptest.NewRecorder()
	srv.Handler().ServeHTTP(listW, listReq)

	var result inventory.ListResult
	if err := json.NewDecoder(listW.Body).Decode(&result); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("stored %d records after failed batch, want 0", result.Total)
	}
}

func TestHandleIngestNoFiles(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleGetDeviceNotFound(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/nope", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	var p Problem
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if p.Type != ProblemTypeNotFound {
		t.Errorf("problem type = %q, want %q", p.Type, ProblemTypeNotFound)
	}
}

func TestHandleDeleteDevice(t *testing.T) {
	srv := newTestServer(t)

	rec := testutil.NewRecord()
	if err := srv.repo.Create(context.Background(), &rec); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/devices/"+rec.ID, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	if _, err := srv.repo.Get(context.Background(), rec.ID); err != inventory.ErrNotFound {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestEventHubBroadcast(t *testing.T) {
	hub := NewEventHub(testutil.Logger())

	ch, unsubscribe := hub.subscribe()
	defer unsubscribe()

	hub.Broadcast(1, 3, "a.json")

	select {
	case e := <-ch:
		want := models.ParseProgress{Current: 1, Total: 3, FileName: "a.json"}
		if e != want {
			t.Errorf("event = %+v, want %+v", e, want)
		}
	default:
		t.Fatal("no event delivered to subscriber")
	}
}

func TestEventHubCloseDetachesSubscribers(t *testing.T) {
	hub := NewEventHub(testutil.Logger())

	ch, _ := hub.subscribe()
	hub.Close()

	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed")
	}

	// Broadcasting after close must not panic.
	hub.Broadcast(1, 1, "late.json")
}
