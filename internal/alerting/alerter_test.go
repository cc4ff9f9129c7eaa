// internal/alerting/alerter_test.go
package alerting

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"meditrack-dashboard/internal/config"
	"meditrack-dashboard/internal/view"
)

type fakePlayer struct {
	mu    sync.Mutex
	plays int
	err   error
}

func (p *fakePlayer) Play(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	return p.err
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

type fakeHub struct {
	mu     sync.Mutex
	alerts []view.AlertEvent
}

func (h *fakeHub) BroadcastAlert(a view.AlertEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alerts = append(h.alerts, a)
}

func fatal(hr float64) []byte {
	return []byte(`{"status":"fatal","data":{"timestamp":1,"hr":` + ftoa(hr) + `,"spo2":95,"temp":37}}`)
}

func normal() []byte {
	return []byte(`{"status":"normal","data":{"timestamp":1,"hr":70,"spo2":98,"temp":36.6}}`)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func TestAlerter_PlaysOncePerEdge(t *testing.T) {
	c := view.New(view.Options{AlertPolicy: view.AlertOnEdge}, nil)
	alerts, _ := c.Alerts()

	player := &fakePlayer{}
	hub := &fakeHub{}
	a := NewAlerter(hub, nil, player)

	done := make(chan struct{})
	go func() {
		a.Run(context.Background(), alerts)
		close(done)
	}()

	for _, raw := range [][]byte{fatal(130), fatal(131), fatal(132), normal(), fatal(133)} {
		if err := c.OnMessage(raw); err != nil {
			t.Fatalf("OnMessage err=%v", err)
		}
	}
	c.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("alerter did not stop after controller close")
	}

	if got := player.count(); got != 2 {
		t.Fatalf("plays=%d want 2", got)
	}
	if len(hub.alerts) != 2 {
		t.Fatalf("broadcasts=%d want 2", len(hub.alerts))
	}
	if hub.alerts[0].Reading.HeartRate != 130 || hub.alerts[1].Reading.HeartRate != 133 {
		t.Fatalf("alerts=%+v", hub.alerts)
	}
}

func TestAlerter_FailingPlayerDoesNotStopOthers(t *testing.T) {
	broken := &fakePlayer{err: errors.New("no audio device")}
	working := &fakePlayer{}
	hub := &fakeHub{}
	a := NewAlerter(hub, nil, broken, working)

	a.ProcessAlert(context.Background(), view.AlertEvent{Cause: "x"})

	if broken.count() != 1 || working.count() != 1 {
		t.Fatalf("plays=%d/%d", broken.count(), working.count())
	}
	if len(hub.alerts) != 1 {
		t.Fatalf("broadcasts=%d", len(hub.alerts))
	}
}

func TestAlerter_NilHub(t *testing.T) {
	player := &fakePlayer{}
	NewAlerter(nil, nil, player).ProcessAlert(context.Background(), view.AlertEvent{})
	if player.count() != 1 {
		t.Fatalf("plays=%d", player.count())
	}
}

func TestAlerter_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewAlerter(nil, nil).Run(ctx, make(chan view.AlertEvent))
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run ignored context cancellation")
	}
}

func TestBellPlayer(t *testing.T) {
	var buf bytes.Buffer
	if err := NewBellPlayer(&buf).Play(context.Background()); err != nil {
		t.Fatalf("Play err=%v", err)
	}
	if buf.String() != "\a" {
		t.Fatalf("wrote %q", buf.String())
	}
}

func TestNewCommandPlayer(t *testing.T) {
	if _, err := NewCommandPlayer("   "); err == nil {
		t.Fatal("expected error for empty command")
	}
	p, err := NewCommandPlayer("aplay -q /tmp/alert.wav")
	if err != nil {
		t.Fatalf("NewCommandPlayer err=%v", err)
	}
	if p.name != "aplay" || len(p.args) != 2 {
		t.Fatalf("player=%+v", p)
	}
}

func TestCommandPlayer_MissingBinary(t *testing.T) {
	p, err := NewCommandPlayer("definitely-not-a-real-player-binary")
	if err != nil {
		t.Fatalf("NewCommandPlayer err=%v", err)
	}
	if err := p.Play(context.Background()); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestPlayersFrom(t *testing.T) {
	var buf bytes.Buffer
	players, err := PlayersFrom(config.AlertConfig{Bell: true, Command: "aplay x.wav"}, &buf)
	if err != nil {
		t.Fatalf("PlayersFrom err=%v", err)
	}
	if len(players) != 2 {
		t.Fatalf("players=%d", len(players))
	}

	players, err = PlayersFrom(config.AlertConfig{Bell: true}, nil)
	if err != nil || len(players) != 0 {
		t.Fatalf("players=%d err=%v", len(players), err)
	}
}
