// internal/data/parser.go
package data

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every decode failure.
var ErrMalformed = errors.New("malformed message")

// wireMessage mirrors the feed payload. Pointers distinguish absent from zero.
type wireMessage struct {
	Status *string      `json:"status"`
	Data   *wireReading `json:"data"`
	Hash   *string      `json:"hash"`
	Cause  *string      `json:"cause"`
}

type wireReading struct {
	Timestamp *float64 `json:"timestamp"`
	HR        *float64 `json:"hr"`
	SpO2      *float64 `json:"spo2"`
	Temp      *float64 `json:"temp"`
	Cause     *string  `json:"cause"` // the upstream backend nests the cause here
}

// Parse decodes one raw feed payload into a StatusEvent.
func Parse(raw []byte) (StatusEvent, error) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return StatusEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if msg.Status == nil {
		return StatusEvent{}, fmt.Errorf("%w: missing status", ErrMalformed)
	}
	status := Status(*msg.Status)
	if !status.Valid() {
		return StatusEvent{}, fmt.Errorf("%w: unknown status %q", ErrMalformed, *msg.Status)
	}

	if msg.Data == nil {
		return StatusEvent{}, fmt.Errorf("%w: missing data", ErrMalformed)
	}
	d := msg.Data
	switch {
	case d.Timestamp == nil:
		return StatusEvent{}, fmt.Errorf("%w: missing data.timestamp", ErrMalformed)
	case d.HR == nil:
		return StatusEvent{}, fmt.Errorf("%w: missing data.hr", ErrMalformed)
	case d.SpO2 == nil:
		return StatusEvent{}, fmt.Errorf("%w: missing data.spo2", ErrMalformed)
	case d.Temp == nil:
		return StatusEvent{}, fmt.Errorf("%w: missing data.temp", ErrMalformed)
	}

	ev := StatusEvent{
		Status: status,
		Reading: Reading{
			Timestamp:   *d.Timestamp,
			HeartRate:   *d.HR,
			SpO2:        *d.SpO2,
			Temperature: *d.Temp,
		},
		ProofReference: stringOrEmpty(msg.Hash),
		Cause:          stringOrEmpty(msg.Cause),
	}
	if ev.Cause == "" {
		ev.Cause = stringOrEmpty(d.Cause)
	}
	return ev, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
