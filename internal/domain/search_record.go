package domain

// SearchStatus is the status field of the search backend record schema.
// partial marks records whose metadata was extracted in degraded mode.
type SearchStatus string

const (
	SearchStatusProcessed SearchStatus = "processed"
	SearchStatusFailed    SearchStatus = "failed"
	SearchStatusPartial   SearchStatus = "partial"
)

// SearchPlace is the flattened place-mention shape the search backend accepts.
type SearchPlace struct {
	Surface    string   `json:"surface"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Method     string   `json:"method"`
}

// SearchRecord is the record schema consumed by the search backend and by
// the local fallback store. The two are replay-compatible: a record written
// to the fallback store can be sent to the backend unchanged.
type SearchRecord struct {
	ID            string                 `json:"id"`
	Descriptor    []float32              `json:"descriptor,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	PlaceMentions []SearchPlace          `json:"place_mentions"`
	Status        SearchStatus           `json:"status"`
}

// SearchRecordFromImage maps a committed image record into the backend schema.
func SearchRecordFromImage(rec *ImageRecord) *SearchRecord {
	sr := &SearchRecord{
		ID:            rec.ID,
		Metadata:      rec.Metadata,
		PlaceMentions: []SearchPlace{},
	}
	switch {
	case rec.Status == RecordStatusFailed:
		sr.Status = SearchStatusFailed
	case rec.MetadataPartial:
		sr.Status = SearchStatusPartial
	default:
		sr.Status = SearchStatusProcessed
	}
	if rec.Status == RecordStatusProcessed {
		sr.Descriptor = rec.Descriptor
	}
	return sr
}

// SearchRecordFromText maps a committed text record into the backend schema.
func SearchRecordFromText(rec *TextRecord) *SearchRecord {
	sr := &SearchRecord{
		ID:            rec.ID,
		PlaceMentions: make([]SearchPlace, 0, len(rec.Mentions)),
	}
	for _, m := range rec.Mentions {
		sr.PlaceMentions = append(sr.PlaceMentions, SearchPlace{
			Surface:    m.Surface,
			Lat:        m.Lat,
			Lon:        m.Lon,
			Confidence: m.Confidence,
			Method:     string(m.Method),
		})
	}
	if rec.Status == RecordStatusFailed {
		sr.Status = SearchStatusFailed
	} else {
		sr.Status = SearchStatusProcessed
	}
	return sr
}
