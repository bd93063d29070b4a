package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

// TestCollectImagesSortedAndFiltered verifies directory walks yield a
// deterministic, image-only item sequence.
func TestCollectImagesSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.png", "a.jpg", "notes.txt", "b.JPEG"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "d.gif"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write nested file: %v", err)
	}

	items, err := CollectImages(dir)
	if err != nil {
		t.Fatalf("CollectImages failed: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("Expected 4 image items, got %d: %+v", len(items), items)
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].Path >= items[i].Path {
			t.Errorf("Items not sorted: %s before %s", items[i-1].Path, items[i].Path)
		}
	}
	for _, item := range items {
		if item.Kind != KindImage {
			t.Errorf("Expected image kind, got %s", item.Kind)
		}
		if item.Path == "" {
			t.Error("Image item must carry its path")
		}
	}
}

// TestCollectImagesMissingDir verifies a bad directory is an error, not an
// empty run.
func TestCollectImagesMissingDir(t *testing.T) {
	if _, err := CollectImages(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("Expected error for missing directory")
	}
}

// TestTextItems verifies duplicate descriptions stay separate items; the
// outcome log tells them apart by sequence position.
func TestTextItems(t *testing.T) {
	items := TextItems([]string{"same text", "same text"})
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Kind != KindText || items[0].Text != "same text" {
		t.Errorf("Unexpected item: %+v", items[0])
	}
	if items[1].Text != "same text" {
		t.Errorf("Unexpected item: %+v", items[1])
	}
}
