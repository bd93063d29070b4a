package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Item kinds accepted by the orchestrator.
const (
	KindImage = "image"
	KindText  = "text"
)

// imageExtensions are the file types collected from input directories.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tiff": true,
}

// Item is one unit of work in a batch job: an image file path or a
// free-text description. Items carry no identity of their own; records and
// outcomes are keyed by content hash, and the outcome log distinguishes
// duplicates by sequence position.
type Item struct {
	Kind string
	Path string
	Text string
}

// CollectImages walks dir and returns image items in sorted path order, so
// a resumed job sees the identical sequence.
func CollectImages(dir string) ([]Item, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	items := make([]Item, 0, len(paths))
	for _, p := range paths {
		items = append(items, Item{Kind: KindImage, Path: p})
	}
	return items, nil
}

// TextItems wraps description strings as text items, one per line, in input
// order.
func TextItems(texts []string) []Item {
	items := make([]Item, 0, len(texts))
	for _, t := range texts {
		items = append(items, Item{Kind: KindText, Text: t})
	}
	return items
}
