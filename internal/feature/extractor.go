package feature

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DescriptorLength is the fixed descriptor length F: a 4x4x4 quantized RGB
// histogram. Every descriptor stored in one index run has this length.
const DescriptorLength = 64

var (
	// ErrUnsupportedFormat means no registered decoder recognizes the data.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrUnreadable means the data is recognized but cannot be decoded.
	ErrUnreadable = errors.New("unreadable image data")
)

// Extraction is the result of processing one image: content identity,
// the fixed-length visual descriptor, and basic visual metadata.
type Extraction struct {
	ID         string // md5 hex of the file bytes
	Descriptor []float32
	Width      int
	Height     int
	Format     string
	AvgColor   [3]float64 // mean R,G,B in 0-255
}

// Extract computes the descriptor and visual metadata from raw image bytes.
// It is a pure function of its input: no partial results, no side effects.
func Extract(data []byte) (*Extraction, error) {
	if len(data) == 0 {
		return nil, ErrUnreadable
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	sum := md5.Sum(data)

	bounds := img.Bounds()
	descriptor := make([]float32, DescriptorLength)
	var sumR, sumG, sumB float64

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels; >>14 quantizes to 4 levels.
			descriptor[(r>>14)<<4|(g>>14)<<2|(b>>14)]++
			sumR += float64(r >> 8)
			sumG += float64(g >> 8)
			sumB += float64(b >> 8)
		}
	}

	pixels := float64(bounds.Dx() * bounds.Dy())
	if pixels > 0 {
		for i := range descriptor {
			descriptor[i] /= float32(pixels)
		}
	}

	ext := &Extraction{
		ID:         hex.EncodeToString(sum[:]),
		Descriptor: descriptor,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     format,
	}
	if pixels > 0 {
		ext.AvgColor = [3]float64{sumR / pixels, sumG / pixels, sumB / pixels}
	}
	return ext, nil
}

// ExtractFile reads and processes a single image file.
func ExtractFile(path string) (*Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return Extract(data)
}

// HashText returns the stable content identity used for text items.
func HashText(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
