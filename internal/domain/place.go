package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// ResolutionMethod identifies which strategy produced a place resolution.
// A run uses exactly one of model-resolved or fallback-heuristic, decided
// once at startup; unresolved marks detected spans without coordinates.
type ResolutionMethod string

const (
	ResolutionModel      ResolutionMethod = "model-resolved"
	ResolutionHeuristic  ResolutionMethod = "fallback-heuristic"
	ResolutionUnresolved ResolutionMethod = "unresolved"
)

// PlaceMention is a detected place-name reference in text. Surface and
// offsets are always recorded; coordinates and confidence are present only
// when the span was resolved.
type PlaceMention struct {
	Surface    string           `json:"surface"`
	Start      int              `json:"start"`
	End        int              `json:"end"`
	Name       string           `json:"name,omitempty"`
	Lat        *float64         `json:"lat,omitempty"`
	Lon        *float64         `json:"lon,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
	Method     ResolutionMethod `json:"method"`
}

// Resolved reports whether the mention carries coordinates.
func (m *PlaceMention) Resolved() bool {
	return m.Method != ResolutionUnresolved && m.Lat != nil && m.Lon != nil
}

// Validate checks the resolution invariant: a resolved mention must carry
// both coordinates and a confidence in [0,1].
func (m *PlaceMention) Validate() error {
	if m.Method == ResolutionUnresolved {
		if m.Lat != nil || m.Lon != nil {
			return errors.New("unresolved mention must not carry coordinates")
		}
		return nil
	}
	if m.Lat == nil || m.Lon == nil {
		return errors.New("resolved mention missing coordinates")
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return errors.New("confidence out of range [0,1]")
	}
	return nil
}

// PlaceMentionList stores place mentions as JSON in the database.
type PlaceMentionList []PlaceMention

// Value implements the driver.Valuer interface for database serialization.
func (l PlaceMentionList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (l *PlaceMentionList) Scan(value interface{}) error {
	if value == nil {
		*l = PlaceMentionList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan PlaceMentionList")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, l)
}
