package geo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/calvey/hauntex/internal/domain"
	"github.com/go-resty/resty/v2"
)

// ModelParser calls an external NLP place-resolution backend. It is
// selected only when the backend's health probe succeeds at startup.
type ModelParser struct {
	client  *resty.Client
	baseURL string
}

// NewModelParser creates a parser bound to the backend at baseURL.
func NewModelParser(baseURL string, timeout time.Duration) *ModelParser {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &ModelParser{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Mode reports the resolution strategy tag for this parser.
func (p *ModelParser) Mode() domain.ResolutionMethod {
	return domain.ResolutionModel
}

// Probe checks backend reachability. Called once at startup; the result
// decides model-resolved vs fallback-heuristic mode for the whole run.
func (p *ModelParser) Probe(ctx context.Context) bool {
	resp, err := p.client.R().SetContext(ctx).Get(p.baseURL + "/health")
	return err == nil && resp.StatusCode() < 300
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Mentions []struct {
		Surface    string   `json:"surface"`
		Start      int      `json:"start"`
		End        int      `json:"end"`
		Name       string   `json:"name"`
		Lat        *float64 `json:"lat"`
		Lon        *float64 `json:"lon"`
		Confidence float64  `json:"confidence"`
	} `json:"mentions"`
}

// Extract sends text to the backend's analyze endpoint. Spans the model
// detected but could not resolve are kept with method "unresolved".
func (p *ModelParser) Extract(ctx context.Context, text string) ([]domain.PlaceMention, error) {
	mentions := []domain.PlaceMention{}
	if strings.TrimSpace(text) == "" {
		return mentions, nil
	}

	var result analyzeResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(analyzeRequest{Text: text}).
		SetResult(&result).
		Post(p.baseURL + "/analyze")
	if err != nil {
		return nil, fmt.Errorf("geoparser backend request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("geoparser backend error: status %d", resp.StatusCode())
	}

	for _, m := range result.Mentions {
		mention := domain.PlaceMention{
			Surface: m.Surface,
			Start:   m.Start,
			End:     m.End,
			Method:  domain.ResolutionUnresolved,
		}
		if m.Lat != nil && m.Lon != nil {
			mention.Name = m.Name
			mention.Lat = m.Lat
			mention.Lon = m.Lon
			mention.Confidence = clamp01(m.Confidence)
			mention.Method = domain.ResolutionModel
		}
		mentions = append(mentions, mention)
	}

	return mentions, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
