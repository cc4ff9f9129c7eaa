// internal/view/state.go
package view

import (
	"time"
	"unicode/utf8"

	"meditrack-dashboard/internal/data"
)

// Severity classifies a log entry.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityFatal Severity = "fatal"
)

// LogEntry is one line of the activity feed.
type LogEntry struct {
	CapturedAt string   `json:"captured_at"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
}

// ConnectionState tracks the feed transport as seen by the view.
type ConnectionState string

const (
	ConnConnecting   ConnectionState = "connecting"
	ConnConnected    ConnectionState = "connected"
	ConnDisconnected ConnectionState = "disconnected"
	ConnClosed       ConnectionState = "closed"
)

// ViewState is a read-only copy of the controller state handed to renderers.
type ViewState struct {
	SessionID       string          `json:"session_id"`
	History         []data.Reading  `json:"history"` // oldest first
	Status          data.Status     `json:"status"`
	Cause           string          `json:"cause,omitempty"`
	ProofReference  string          `json:"proof_reference,omitempty"`
	Risk            float64         `json:"risk"`
	Log             []LogEntry      `json:"log"` // newest first
	HistoryCapacity int             `json:"history_capacity"`
	LogCapacity     int             `json:"log_capacity"`
	Connection      ConnectionState `json:"connection"`
	ConnectionError string          `json:"connection_error,omitempty"`
	Received        uint64          `json:"received"`
	Dropped         uint64          `json:"dropped"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DisplayStatus is what the banner shows. A view that is not connected never
// shows the last known status as if it were live.
func (s ViewState) DisplayStatus() string {
	if s.Connection == ConnConnected {
		return string(s.Status)
	}
	return string(s.Connection)
}

// Latest returns the newest reading in history.
func (s ViewState) Latest() (data.Reading, bool) {
	if len(s.History) == 0 {
		return data.Reading{}, false
	}
	return s.History[len(s.History)-1], true
}

const shortProofLen = 10

// ShortProof abbreviates the proof reference for narrow displays. The cut is
// made on a rune boundary.
func (s ViewState) ShortProof() string {
	if utf8.RuneCountInString(s.ProofReference) <= shortProofLen {
		return s.ProofReference
	}
	n := 0
	for i := range s.ProofReference {
		if n == shortProofLen {
			return s.ProofReference[:i] + "..."
		}
		n++
	}
	return s.ProofReference
}
