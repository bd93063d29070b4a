package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/calvey/hauntex/internal/domain"
	"github.com/go-resty/resty/v2"
)

// Mode is the parser's operating mode, decided once at startup and applied
// uniformly for the whole run.
type Mode string

const (
	// ModeRich merges fields from the document metadata service.
	ModeRich Mode = "rich"

	// ModeDegraded uses filesystem-level metadata only.
	ModeDegraded Mode = "degraded"
)

// tikaFields maps metadata-service keys to record field names. Only listed
// keys are carried into records; everything else the service reports is
// dropped rather than stored under opaque names.
var tikaFields = map[string]string{
	"Content-Type":          "content_type",
	"tiff:ImageWidth":       "width",
	"tiff:ImageLength":      "height",
	"exif:DateTimeOriginal": "capture_time",
	"dcterms:created":       "created",
	"dc:creator":            "creator",
}

// Parser extracts document metadata from files. In rich mode it consults a
// Tika-style metadata service; in degraded mode it reports only what the
// filesystem can prove: size, modification time, declared format.
type Parser struct {
	client  *resty.Client
	baseURL string
	mode    Mode
}

// New creates a parser in the given mode. Use Select to decide the mode
// from a startup probe.
func New(baseURL string, timeout time.Duration, mode Mode) *Parser {
	client := resty.New()
	client.SetTimeout(timeout)

	return &Parser{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		mode:    mode,
	}
}

// Select probes the metadata service once and returns a parser in rich or
// degraded mode accordingly. No per-file retry happens after this decision.
func Select(ctx context.Context, baseURL string, timeout time.Duration) *Parser {
	p := New(baseURL, timeout, ModeDegraded)
	if p.Probe(ctx) {
		p.mode = ModeRich
	}
	return p
}

// Mode reports the operating mode decided at startup.
func (p *Parser) Mode() Mode {
	return p.mode
}

// Probe checks whether the metadata service answers its version endpoint.
func (p *Parser) Probe(ctx context.Context) bool {
	resp, err := p.client.R().SetContext(ctx).Get(p.baseURL + "/version")
	return err == nil && resp.StatusCode() < 300
}

// Parse returns best-effort metadata for the file plus a partial flag that
// is true in degraded mode. Absent fields are omitted, never filled with
// placeholders.
func (p *Parser) Parse(ctx context.Context, path string, data []byte) (domain.MetadataMap, bool, error) {
	meta := domain.MetadataMap{}

	info, err := os.Stat(path)
	if err != nil {
		return nil, false, fmt.Errorf("stat %s: %w", path, err)
	}
	meta["size"] = info.Size()
	meta["mod_time"] = info.ModTime().UTC().Format(time.RFC3339)
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext != "" {
		meta["format"] = ext
	}

	if p.mode == ModeDegraded {
		return meta, true, nil
	}

	var fields map[string]interface{}
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetBody(data).
		SetResult(&fields).
		Put(p.baseURL + "/meta")
	if err != nil {
		return nil, false, fmt.Errorf("metadata service request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, false, fmt.Errorf("metadata service error: status %d", resp.StatusCode())
	}

	for key, name := range tikaFields {
		if v, ok := fields[key]; ok {
			meta[name] = normalize(v)
		}
	}

	return meta, false, nil
}

// normalize converts numeric strings the service reports into numbers so
// downstream consumers see consistent scalar types.
func normalize(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return v
}
