package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// RecordStatus represents the processing status of an evidence record.
// Values include RecordStatusPending, RecordStatusProcessed, and RecordStatusFailed.
type RecordStatus string

const (
	RecordStatusPending   RecordStatus = "pending"
	RecordStatusProcessed RecordStatus = "processed"
	RecordStatusFailed    RecordStatus = "failed"
)

// Failure reasons recorded on items that cannot be processed.
const (
	FailReasonUnreadable        = "unreadable"
	FailReasonUnsupportedFormat = "unsupported-format"
	FailReasonBackendTimeout    = "backend-timeout"
	FailReasonEmptyText         = "empty-text"
)

// Float32Slice stores a numeric descriptor as JSON in the database.
type Float32Slice []float32

// Value implements the driver.Valuer interface for database serialization.
func (s Float32Slice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (s *Float32Slice) Scan(value interface{}) error {
	if value == nil {
		*s = Float32Slice{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Float32Slice")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, s)
}

// MetadataMap stores extracted document metadata as JSON in the database.
// Absent fields are omitted from the map, never set to placeholder values.
type MetadataMap map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
func (m MetadataMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (m *MetadataMap) Scan(value interface{}) error {
	if value == nil {
		*m = MetadataMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan MetadataMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// ImageRecord represents one ingested image: content identity, visual
// descriptor, extracted metadata, and processing status. The descriptor and
// metadata are populated only on successful processing and never mutated
// afterwards except by explicit reprocessing.
type ImageRecord struct {
	ID              string       `gorm:"type:text;primaryKey" json:"id"`
	JobID           string       `gorm:"type:text;index:idx_image_records_job" json:"job_id"`
	Path            string       `gorm:"type:text;not null" json:"path"`
	Descriptor      Float32Slice `gorm:"type:text" json:"descriptor,omitempty"`
	Metadata        MetadataMap  `gorm:"type:text" json:"metadata"`
	MetadataPartial bool         `json:"metadata_partial"`
	Status          RecordStatus `gorm:"type:text;index:idx_image_records_status;default:pending" json:"status"`
	FailReason      string       `gorm:"type:text" json:"fail_reason,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// TableName returns the database table name for ImageRecord.
func (ImageRecord) TableName() string {
	return "image_records"
}

// TextRecord represents one ingested free-text description and the place
// mentions extracted from it.
type TextRecord struct {
	ID         string           `gorm:"type:text;primaryKey" json:"id"`
	JobID      string           `gorm:"type:text;index:idx_text_records_job" json:"job_id"`
	Text       string           `gorm:"type:text" json:"text"`
	Mentions   PlaceMentionList `gorm:"type:text" json:"place_mentions"`
	Status     RecordStatus     `gorm:"type:text;index:idx_text_records_status;default:pending" json:"status"`
	FailReason string           `gorm:"type:text" json:"fail_reason,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// TableName returns the database table name for TextRecord.
func (TextRecord) TableName() string {
	return "text_records"
}
