// internal/data/models.go
package data

import "time"

// Status is the externally supplied classification of a reading.
type Status string

const (
	StatusNormal Status = "normal"
	StatusFatal  Status = "fatal"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusNormal || s == StatusFatal
}

// Reading is one vitals sample. Values are copied, never mutated.
type Reading struct {
	Timestamp   float64 `json:"timestamp"` // seconds since epoch
	HeartRate   float64 `json:"hr"`
	SpO2        float64 `json:"spo2"`
	Temperature float64 `json:"temp"`
}

// Time converts the fractional epoch timestamp.
func (r Reading) Time() time.Time {
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// StatusEvent is one decoded inbound message.
// Cause and ProofReference are empty when the message did not carry them.
type StatusEvent struct {
	Status         Status  `json:"status"`
	Reading        Reading `json:"data"`
	Cause          string  `json:"cause,omitempty"`
	ProofReference string  `json:"hash,omitempty"`
}
