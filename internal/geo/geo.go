package geo

import (
	"context"

	"github.com/calvey/hauntex/internal/domain"
)

// Parser extracts place-name mentions from free text. Empty or malformed
// text yields an empty slice, never an error; errors are reserved for
// backend transport faults (model mode only).
type Parser interface {
	// Extract returns one PlaceMention per detected span, resolved or not.
	Extract(ctx context.Context, text string) ([]domain.PlaceMention, error)

	// Mode reports which resolution strategy this parser implements.
	Mode() domain.ResolutionMethod
}
