package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/chishiki/internal/config"
	"github.com/hyperjump/chishiki/internal/embedding"
	"github.com/hyperjump/chishiki/internal/knowledge"
	"github.com/hyperjump/chishiki/internal/models"
	"github.com/hyperjump/chishiki/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DataDir = filepath.Join(dir, "data")
	cfg.Upload.Dir = filepath.Join(dir, "uploads")

	st, err := store.Open(cfg.Storage.DataDir, cfg.Storage.Collection, embedding.NewHashEmbedder(64), zap.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	service, err := knowledge.NewService(st, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	srv := NewServer(service, st, cfg, zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func uploadFile(t *testing.T, ts *httptest.Server, name string, content []byte) *models.UploadResponse {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.Close()

	resp, err := http.Post(ts.URL+"/api/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /api/upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status %d", resp.StatusCode)
	}
	var out models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &out
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["status"] != "healthy" || out["timestamp"] == "" {
		t.Errorf("got %v", out)
	}
}

func TestHandleUpload(t *testing.T) {
	ts := newTestServer(t)
	out := uploadFile(t, ts, "note.txt", []byte("uploaded over http"))
	if !out.Success {
		t.Error("success flag not set")
	}
	if out.File == nil || out.File.ChunkCount != 1 {
		t.Fatalf("file info: %+v", out.File)
	}
	if !strings.Contains(out.Message, "1 text chunk") {
		t.Errorf("message: %q", out.Message)
	}
}

func TestHandleUpload_missingFile(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/upload", "multipart/form-data; boundary=x", strings.NewReader("--x--"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d, want 400", resp.StatusCode)
	}
}

func TestHandleUpload_badExtension(t *testing.T) {
	ts := newTestServer(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "bad.exe")
	_, _ = part.Write([]byte("x"))
	_ = mw.Close()

	resp, err := http.Post(ts.URL+"/api/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d, want 400", resp.StatusCode)
	}
}

func TestHandleListFiles(t *testing.T) {
	ts := newTestServer(t)
	uploadFile(t, ts, "a.txt", []byte("file a"))
	uploadFile(t, ts, "b.txt", []byte("file b"))

	resp, err := http.Get(ts.URL + "/api/files")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var out models.FileListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Total != 2 || len(out.Files) != 2 {
		t.Errorf("got total=%d files=%d", out.Total, len(out.Files))
	}
}

func TestHandleListFiles_emptyIsArray(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/files")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["files"]) != "[]" {
		t.Errorf("files = %s, want []", raw["files"])
	}
}

func TestHandleDeleteFile(t *testing.T) {
	ts := newTestServer(t)
	up := uploadFile(t, ts, "victim.txt", []byte("short lived"))

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/files/"+up.File.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	// A repeat delete is a 404.
	req2, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/files/"+up.File.ID, nil)
	resp2, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("repeat delete status %d, want 404", resp2.StatusCode)
	}
}

func TestHandleRenameFile(t *testing.T) {
	ts := newTestServer(t)
	up := uploadFile(t, ts, "old.txt", []byte("rename me"))

	target := ts.URL + "/api/files/" + up.File.ID + "/rename?new_name=" + url.QueryEscape("new.txt")
	req, _ := http.NewRequest(http.MethodPut, target, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.File == nil || out.File.OriginalName != "new.txt" {
		t.Errorf("file: %+v", out.File)
	}
}

func TestHandleRenameFile_errors(t *testing.T) {
	ts := newTestServer(t)
	up := uploadFile(t, ts, "a.txt", []byte("content"))

	tests := []struct {
		name       string
		id         string
		newName    string
		wantStatus int
	}{
		{"unknown id", "ghost", "x.txt", http.StatusNotFound},
		{"empty name", up.File.ID, "", http.StatusBadRequest},
		{"name too long", up.File.ID, strings.Repeat("x", 101), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := ts.URL + "/api/files/" + tt.id + "/rename?new_name=" + url.QueryEscape(tt.newName)
			req, _ := http.NewRequest(http.MethodPut, target, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("PUT: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestHandleSearch(t *testing.T) {
	ts := newTestServer(t)
	uploadFile(t, ts, "doc.txt", []byte("findable text"))

	resp, err := http.Get(ts.URL + "/api/search?query=" + url.QueryEscape("findable text"))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Results) == 0 {
		t.Fatal("no results")
	}
	if out.Query != "findable text" {
		t.Errorf("query echoed as %q", out.Query)
	}
}

func TestHandleSearch_emptyQuery(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/search?query=")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d, want 400", resp.StatusCode)
	}
}

func TestHandleContext(t *testing.T) {
	ts := newTestServer(t)
	uploadFile(t, ts, "src.txt", []byte("background material"))

	resp, err := http.Get(ts.URL + "/api/context?query=" + url.QueryEscape("background material"))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out models.ContextResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Context == "" {
		t.Error("empty context")
	}
	if len(out.Sources) != 1 || out.Sources[0] != "src.txt" {
		t.Errorf("sources: %v", out.Sources)
	}
}

func TestHandleContext_neverFails(t *testing.T) {
	ts := newTestServer(t)
	// Empty query and empty store both degrade to an empty 200 response.
	resp, err := http.Get(ts.URL + "/api/context?query=")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["sources"]) != "[]" {
		t.Errorf("sources = %s, want []", raw["sources"])
	}
}

func TestHandleStatus(t *testing.T) {
	ts := newTestServer(t)
	uploadFile(t, ts, "s.txt", []byte("status fodder"))

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out struct {
		Files  int `json:"files"`
		Chunks int `json:"chunks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Files != 1 || out.Chunks < 1 {
		t.Errorf("got files=%d chunks=%d", out.Files, out.Chunks)
	}
}
