// internal/data/parser_test.go
package data

import (
	"errors"
	"testing"
	"time"
)

func TestParse_Full(t *testing.T) {
	raw := []byte(`{"status":"fatal","data":{"timestamp":1700000000.5,"hr":130,"spo2":91.2,"temp":40.1},"hash":"0xabc","cause":"Heart rate spike detected"}`)

	ev, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	if ev.Status != StatusFatal {
		t.Fatalf("status=%q", ev.Status)
	}
	want := Reading{Timestamp: 1700000000.5, HeartRate: 130, SpO2: 91.2, Temperature: 40.1}
	if ev.Reading != want {
		t.Fatalf("reading=%+v want %+v", ev.Reading, want)
	}
	if ev.ProofReference != "0xabc" {
		t.Fatalf("hash=%q", ev.ProofReference)
	}
	if ev.Cause != "Heart rate spike detected" {
		t.Fatalf("cause=%q", ev.Cause)
	}
}

func TestParse_OptionalFieldsAbsent(t *testing.T) {
	cases := map[string]string{
		"missing": `{"status":"normal","data":{"timestamp":1,"hr":70,"spo2":98,"temp":36.6}}`,
		"null":    `{"status":"normal","data":{"timestamp":1,"hr":70,"spo2":98,"temp":36.6},"hash":null,"cause":null}`,
		"empty":   `{"status":"normal","data":{"timestamp":1,"hr":70,"spo2":98,"temp":36.6},"hash":"","cause":""}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ev, err := Parse([]byte(raw))
			if err != nil {
				t.Fatalf("Parse err=%v", err)
			}
			if ev.Cause != "" || ev.ProofReference != "" {
				t.Fatalf("expected absent optionals, got cause=%q hash=%q", ev.Cause, ev.ProofReference)
			}
		})
	}
}

func TestParse_NestedCause(t *testing.T) {
	raw := []byte(`{"status":"fatal","data":{"timestamp":1,"hr":70,"spo2":84,"temp":36.6,"cause":"Severe oxygen drop detected"}}`)
	ev, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	if ev.Cause != "Severe oxygen drop detected" {
		t.Fatalf("cause=%q", ev.Cause)
	}

	// top-level cause wins
	raw = []byte(`{"status":"fatal","cause":"top","data":{"timestamp":1,"hr":70,"spo2":84,"temp":36.6,"cause":"nested"}}`)
	ev, err = Parse(raw)
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	if ev.Cause != "top" {
		t.Fatalf("cause=%q", ev.Cause)
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"status":`,
		"array":          `[1,2,3]`,
		"missing status": `{"data":{"timestamp":1,"hr":70,"spo2":98,"temp":36.6}}`,
		"unknown status": `{"status":"warning","data":{"timestamp":1,"hr":70,"spo2":98,"temp":36.6}}`,
		"missing data":   `{"status":"normal"}`,
		"null data":      `{"status":"normal","data":null}`,
		"missing hr":     `{"status":"normal","data":{"timestamp":1,"spo2":98,"temp":36.6}}`,
		"missing spo2":   `{"status":"normal","data":{"timestamp":1,"hr":70,"temp":36.6}}`,
		"missing temp":   `{"status":"normal","data":{"timestamp":1,"hr":70,"spo2":98}}`,
		"missing ts":     `{"status":"normal","data":{"hr":70,"spo2":98,"temp":36.6}}`,
		"string hr":      `{"status":"normal","data":{"timestamp":1,"hr":"70","spo2":98,"temp":36.6}}`,
		"numeric status": `{"status":1,"data":{"timestamp":1,"hr":70,"spo2":98,"temp":36.6}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestReading_Time(t *testing.T) {
	r := Reading{Timestamp: 1700000000.25}
	got := r.Time()
	if got.Unix() != 1700000000 {
		t.Fatalf("unix=%d", got.Unix())
	}
	if d := time.Duration(got.Nanosecond()); d < 249*time.Millisecond || d > 251*time.Millisecond {
		t.Fatalf("nanos=%s", d)
	}
}
