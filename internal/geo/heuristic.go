package geo

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/calvey/hauntex/internal/domain"
)

// heuristicConfidence is the fixed confidence assigned by the rule-based
// resolver, deliberately below typical model confidences.
const heuristicConfidence = 0.5

var (
	// "City, ST" pairs: capitalized words (allowing "St." style parts)
	// followed by a USPS abbreviation.
	cityStateRe = regexp.MustCompile(`\b([A-Z][a-z]+\.?(?:\s[A-Z][a-z]+\.?)*),\s*([A-Z]{2})\b`)

	// "in City" phrases.
	inCityRe = regexp.MustCompile(`\bin\s+([A-Z][a-z]+(?:\s[A-Z][a-z]+)*)`)
)

// stateNameRes holds one case-insensitive matcher per gazetteer state.
// Longest names scan first so "West Virginia" claims its whole span before
// the bare "Virginia" matcher runs; equal lengths order by name so the scan
// stays deterministic.
var stateNameRes = func() []*regexp.Regexp {
	names := make([]string, 0, len(stateCoords))
	for name := range stateCoords {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	res := make([]*regexp.Regexp, 0, len(names))
	for _, name := range names {
		res = append(res, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(name)+`\b`))
	}
	return res
}()

// HeuristicParser is the deterministic rule-based fallback used when no NLP
// backend is available. It scans for "City, ST" pairs, bare state names,
// and "in City" phrases, resolving coordinates from the static gazetteer.
type HeuristicParser struct{}

// NewHeuristicParser creates the fallback parser.
func NewHeuristicParser() *HeuristicParser {
	return &HeuristicParser{}
}

// Mode reports the resolution strategy tag for this parser.
func (p *HeuristicParser) Mode() domain.ResolutionMethod {
	return domain.ResolutionHeuristic
}

// Extract scans text for place mentions. Every detected span is returned;
// spans with no gazetteer entry carry method "unresolved" and no
// coordinates. Empty text yields an empty slice.
func (p *HeuristicParser) Extract(_ context.Context, text string) ([]domain.PlaceMention, error) {
	mentions := []domain.PlaceMention{}
	if strings.TrimSpace(text) == "" {
		return mentions, nil
	}

	// Higher-priority patterns claim their spans first; later patterns
	// skip anything overlapping an accepted span.
	for _, loc := range cityStateRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		surface := text[start:end]
		city := text[loc[2]:loc[3]]
		abbrev := text[loc[4]:loc[5]]

		m := unresolvedMention(surface, start, end)
		if _, ok := expandAbbrev(abbrev); ok {
			if c, found := lookupCity(city, abbrev); found {
				m = resolvedMention(surface, start, end, c)
			}
		}
		mentions = append(mentions, m)
	}

	for _, re := range stateNameRes {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if overlaps(mentions, loc[0], loc[1]) {
				continue
			}
			surface := text[loc[0]:loc[1]]
			c, _ := lookupState(surface)
			mentions = append(mentions, resolvedMention(surface, loc[0], loc[1], c))
		}
	}

	for _, loc := range inCityRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if overlaps(mentions, start, end) {
			continue
		}
		mentions = append(mentions, unresolvedMention(text[start:end], start, end))
	}

	sort.Slice(mentions, func(i, j int) bool {
		if mentions[i].Start != mentions[j].Start {
			return mentions[i].Start < mentions[j].Start
		}
		return mentions[i].End < mentions[j].End
	})

	return mentions, nil
}

func resolvedMention(surface string, start, end int, c Coord) domain.PlaceMention {
	lat, lon := c.Lat, c.Lon
	return domain.PlaceMention{
		Surface:    surface,
		Start:      start,
		End:        end,
		Name:       c.Name,
		Lat:        &lat,
		Lon:        &lon,
		Confidence: heuristicConfidence,
		Method:     domain.ResolutionHeuristic,
	}
}

func unresolvedMention(surface string, start, end int) domain.PlaceMention {
	return domain.PlaceMention{
		Surface: surface,
		Start:   start,
		End:     end,
		Method:  domain.ResolutionUnresolved,
	}
}

func overlaps(mentions []domain.PlaceMention, start, end int) bool {
	for _, m := range mentions {
		if start < m.End && end > m.Start {
			return true
		}
	}
	return false
}
