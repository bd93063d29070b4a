package emitter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/calvey/hauntex/internal/domain"
	"github.com/go-resty/resty/v2"
)

// indexMapping is the explicit mapping created for the search index, so
// coordinates and confidences are typed floats rather than dynamic guesses.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id": {"type": "keyword"},
      "descriptor": {"type": "float"},
      "metadata": {"type": "object"},
      "place_mentions": {
        "properties": {
          "surface": {"type": "text"},
          "lat": {"type": "float"},
          "lon": {"type": "float"},
          "confidence": {"type": "float"},
          "method": {"type": "keyword"}
        }
      },
      "status": {"type": "keyword"}
    }
  }
}`

// Backend is an Elasticsearch-compatible search backend client.
type Backend struct {
	client  *resty.Client
	baseURL string
	index   string
}

// NewBackend creates a client for the search backend at baseURL.
func NewBackend(baseURL, index string, timeout time.Duration) *Backend {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &Backend{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		index:   index,
	}
}

// Probe checks backend reachability. Performed once at startup to choose
// backend vs fallback-store emission for the whole run.
func (b *Backend) Probe(ctx context.Context) bool {
	resp, err := b.client.R().SetContext(ctx).Get(b.baseURL)
	return err == nil && resp.StatusCode() < 300
}

// EnsureIndex creates the index with its mapping if it does not exist.
func (b *Backend) EnsureIndex(ctx context.Context) error {
	url := fmt.Sprintf("%s/%s", b.baseURL, b.index)

	resp, err := b.client.R().SetContext(ctx).Head(url)
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	if resp.StatusCode() == 200 {
		return nil
	}

	resp, err = b.client.R().
		SetContext(ctx).
		SetBody(indexMapping).
		Put(url)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("failed to create index: status %d", resp.StatusCode())
	}
	return nil
}

// Index writes one record, keyed by its ID so replays overwrite in place.
func (b *Backend) Index(ctx context.Context, rec *domain.SearchRecord) error {
	url := fmt.Sprintf("%s/%s/_doc/%s", b.baseURL, b.index, rec.ID)

	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(rec).
		Put(url)
	if err != nil {
		return fmt.Errorf("failed to index record %s: %w", rec.ID, err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("failed to index record %s: status %d", rec.ID, resp.StatusCode())
	}
	return nil
}
