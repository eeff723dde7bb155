// Package statestore keeps a history of finished recording sessions.
package statestore

import (
	"context"
	"errors"
	"time"
)

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 20

// Common errors.
var (
	// ErrNotFound is returned when no record exists for the ID.
	ErrNotFound = errors.New("session record not found")

	// ErrInvalidID is returned for an empty ID.
	ErrInvalidID = errors.New("invalid session id")

	// ErrInvalidRecord is returned when saving a nil record.
	ErrInvalidRecord = errors.New("invalid session record")
)

// Record is the persisted summary of one terminal session.
type Record struct {
	ID      string `json:"id"`
	Variant string `json:"variant"`
	Status  string `json:"status"`

	StartedAt  time.Time `json:"started_at"`
	StoppedAt  time.Time `json:"stopped_at,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`

	Bytes    int    `json:"bytes"`
	Chunks   int    `json:"chunks"`
	MIMEType string `json:"mime_type,omitempty"`

	FailureKind   string `json:"failure_kind,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	StatusCode    int    `json:"status_code,omitempty"`

	ResponseText    string `json:"response_text,omitempty"`
	Transcription   string `json:"transcription,omitempty"`
	IsMeeting       bool   `json:"is_meeting,omitempty"`
	FollowUp        string `json:"follow_up,omitempty"`
	ServerSessionID int64  `json:"server_session_id,omitempty"`
	MeetingID       *int64 `json:"meeting_id,omitempty"`
}

// Store persists session records.
type Store interface {
	// Save inserts or replaces a record.
	Save(ctx context.Context, rec *Record) error

	// Load returns the record with the given ID or ErrNotFound.
	Load(ctx context.Context, id string) (*Record, error)

	// List returns up to limit records, newest StartedAt first.
	List(ctx context.Context, limit int) ([]*Record, error)

	// Delete removes a record or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

func copyRecord(rec *Record) *Record {
	out := *rec
	if rec.MeetingID != nil {
		id := *rec.MeetingID
		out.MeetingID = &id
	}
	return &out
}
