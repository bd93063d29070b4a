package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

// TestParseDegraded verifies degraded mode reports only filesystem-provable
// fields and flags the result partial.
func TestParseDegraded(t *testing.T) {
	p := New("http://127.0.0.1:1", time.Second, ModeDegraded)
	path := writeTempFile(t, "ghost.png", []byte("pixels"))

	meta, partial, err := p.Parse(context.Background(), path, []byte("pixels"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !partial {
		t.Error("Degraded metadata should be flagged partial")
	}

	if meta["size"] != int64(6) {
		t.Errorf("Expected size 6, got %v", meta["size"])
	}
	if meta["format"] != "png" {
		t.Errorf("Expected format png, got %v", meta["format"])
	}
	if _, ok := meta["mod_time"]; !ok {
		t.Error("Expected mod_time field")
	}

	// Nothing beyond filesystem-level fields may appear
	for key := range meta {
		switch key {
		case "size", "mod_time", "format":
		default:
			t.Errorf("Degraded mode produced non-filesystem field %q", key)
		}
	}
}

// TestParseDegradedMissingFile verifies a vanished file is an error, not a
// fabricated result.
func TestParseDegradedMissingFile(t *testing.T) {
	p := New("http://127.0.0.1:1", time.Second, ModeDegraded)

	if _, _, err := p.Parse(context.Background(), filepath.Join(t.TempDir(), "gone.png"), nil); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

// TestParseRich verifies rich mode merges mapped service fields over the
// filesystem base and normalizes numeric strings.
func TestParseRich(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/version":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/meta" && r.Method == http.MethodPut:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"Content-Type":    "image/jpeg",
				"tiff:ImageWidth": "800",
				"X-Parsed-By":     "should be dropped",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := Select(context.Background(), srv.URL, time.Second)
	if p.Mode() != ModeRich {
		t.Fatalf("Probe should select rich mode, got %s", p.Mode())
	}

	path := writeTempFile(t, "ghost.jpg", []byte("jpegdata"))
	meta, partial, err := p.Parse(context.Background(), path, []byte("jpegdata"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if partial {
		t.Error("Rich metadata should not be flagged partial")
	}

	if meta["content_type"] != "image/jpeg" {
		t.Errorf("Expected content_type image/jpeg, got %v", meta["content_type"])
	}
	if meta["width"] != 800 {
		t.Errorf("Expected numeric width 800, got %v (%T)", meta["width"], meta["width"])
	}
	if _, ok := meta["X-Parsed-By"]; ok {
		t.Error("Unmapped service fields should be dropped")
	}
	if meta["format"] != "jpg" {
		t.Errorf("Expected format jpg from extension, got %v", meta["format"])
	}
}

// TestSelectUnreachable verifies a failed probe selects degraded mode.
func TestSelectUnreachable(t *testing.T) {
	p := Select(context.Background(), "http://127.0.0.1:1", 100*time.Millisecond)
	if p.Mode() != ModeDegraded {
		t.Errorf("Unreachable service should select degraded mode, got %s", p.Mode())
	}
}

// TestParseRichServiceError verifies a mid-run service error surfaces as an
// error rather than silently degrading.
func TestParseRichServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(srv.URL, time.Second, ModeRich)
	path := writeTempFile(t, "ghost.jpg", []byte("jpegdata"))

	if _, _, err := p.Parse(context.Background(), path, []byte("jpegdata")); err == nil {
		t.Fatal("Expected error from failing service")
	}
}
