package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/james-see/battito/pkg/export"
	"github.com/james-see/battito/pkg/pattern"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	cfg := DefaultConfig()
	cfg.MaxSubdivision = 64
	cfg.MaxBodyBytes = 4096
	return NewRouter(cfg)
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter()
	for _, path := range []string{"/health", "/api/v1/health"} {
		w := doJSON(t, r, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), "healthy") {
			t.Errorf("GET %s body = %s", path, w.Body.String())
		}
	}
}

func TestListFormats(t *testing.T) {
	w := doJSON(t, newTestRouter(), http.MethodGet, "/api/v1/formats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Formats []string `json:"formats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body.Formats) != len(pattern.Formats()) {
		t.Errorf("formats = %v", body.Formats)
	}
}

func TestCORSPreflight(t *testing.T) {
	w := doJSON(t, newTestRouter(), http.MethodOptions, "/api/v1/compile", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantLength uint32
		wantMax    string
		wantGrid   string
	}{
		{"basic", `{"pattern":"x60:50 . x","subdivision":3}`, http.StatusOK, 3, "1 60 128, 3 0 255", "o.x"},
		{"default subdivision", `{"pattern":"x"}`, http.StatusOK, 16, "1 0 255", "x..............."},
		{"zero subdivision", `{"pattern":"x","subdivision":0}`, http.StatusOK, 0, "", ""},
		{"default value", `{"pattern":"x .","subdivision":2,"default_value":36}`, http.StatusOK, 2, "1 36 255", "x."},
		{"too large", `{"pattern":"x","subdivision":65}`, http.StatusBadRequest, 0, "", ""},
		{"malformed json", `{"pattern":`, http.StatusBadRequest, 0, "", ""},
	}

	r := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/compile", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp CompileResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if resp.Length != tt.wantLength || uint32(len(resp.Events)) != tt.wantLength {
				t.Errorf("length = %d/%d, want %d", resp.Length, len(resp.Events), tt.wantLength)
			}
			if resp.Max != tt.wantMax {
				t.Errorf("max = %q, want %q", resp.Max, tt.wantMax)
			}
			if resp.Grid != tt.wantGrid {
				t.Errorf("grid = %q, want %q", resp.Grid, tt.wantGrid)
			}
		})
	}
}

func TestCompileReportsTruncation(t *testing.T) {
	w := doJSON(t, newTestRouter(), http.MethodPost, "/api/v1/compile", `{"pattern":"x x x","subdivision":2}`)
	var resp CompileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Truncated || resp.Padded != 0 {
		t.Errorf("truncated = %v, padded = %d", resp.Truncated, resp.Padded)
	}
}

func TestCompileBodyTooLarge(t *testing.T) {
	body := `{"pattern":"` + strings.Repeat("x ", 4096) + `"}`
	w := doJSON(t, newTestRouter(), http.MethodPost, "/api/v1/compile", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExportMIDI(t *testing.T) {
	w := doJSON(t, newTestRouter(), http.MethodPost, "/api/v1/export/midi",
		`{"pattern":"x60 . x62","subdivision":4,"tempo":90,"bars":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/midi" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("MThd")) {
		t.Error("body is not a MIDI file")
	}

	p, err := export.ParseMIDI(w.Body.Bytes(), 4)
	if err != nil {
		t.Fatalf("ParseMIDI() error = %v", err)
	}
	if p.Events[0].Value != 60 || p.Events[2].Value != 62 {
		t.Errorf("exported pattern = %+v", p.Events)
	}
}

func TestExportMIDIErrors(t *testing.T) {
	r := newTestRouter()
	bodies := []string{
		`{"pattern":"x","subdivision":0}`,
		`{"pattern":"x","channel":16}`,
		`not json`,
	}
	for _, body := range bodies {
		w := doJSON(t, r, http.MethodPost, "/api/v1/export/midi", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("export %s status = %d, want 400", body, w.Code)
		}
	}
}

func uploadMIDI(t *testing.T, r http.Handler, path string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "pattern.mid")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestImportMIDI(t *testing.T) {
	data, err := export.NewMIDIExporter().GenerateMIDI(pattern.Transform("x60 . x64 .", 4))
	if err != nil {
		t.Fatalf("GenerateMIDI() error = %v", err)
	}

	w := uploadMIDI(t, newTestRouter(), "/api/v1/import/midi?subdivision=4", data)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp CompileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Notation != "x60 . x64 ." {
		t.Errorf("notation = %q", resp.Notation)
	}
}

func TestImportMIDIErrors(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/midi", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("no file status = %d, want 400", w.Code)
	}

	if w := uploadMIDI(t, r, "/api/v1/import/midi", []byte("garbage")); w.Code != http.StatusBadRequest {
		t.Errorf("garbage status = %d, want 400", w.Code)
	}
	if w := uploadMIDI(t, r, "/api/v1/import/midi?subdivision=abc", []byte("garbage")); w.Code != http.StatusBadRequest {
		t.Errorf("bad subdivision status = %d, want 400", w.Code)
	}
}

func TestRunWithoutLogger(t *testing.T) {
	err := Run(Config{Port: -1})
	if err == nil {
		t.Fatal("Run() on an invalid port should fail")
	}
}
