// internal/alerting/alerter.go
package alerting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"meditrack-dashboard/internal/config"
	"meditrack-dashboard/internal/logging"
	"meditrack-dashboard/internal/view"
)

// Player produces the audible alert.
type Player interface {
	Play(ctx context.Context) error
}

// Broadcaster forwards alerts to remote viewers. *websocket.Hub implements it.
type Broadcaster interface {
	BroadcastAlert(alert view.AlertEvent)
}

// BellPlayer rings the terminal bell.
type BellPlayer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewBellPlayer(out io.Writer) *BellPlayer {
	return &BellPlayer{out: out}
}

func (p *BellPlayer) Play(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.out.Write([]byte{'\a'})
	return err
}

// CommandPlayer runs an external command, e.g. "aplay /usr/share/sounds/alert.wav".
type CommandPlayer struct {
	name string
	args []string
}

func NewCommandPlayer(command string) (*CommandPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("alerting: empty player command")
	}
	return &CommandPlayer{name: fields[0], args: fields[1:]}, nil
}

func (p *CommandPlayer) Play(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, p.name, p.args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", p.name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// PlayersFrom builds the players enabled in the alert config.
func PlayersFrom(cfg config.AlertConfig, terminal io.Writer) ([]Player, error) {
	var players []Player
	if cfg.Bell && terminal != nil {
		players = append(players, NewBellPlayer(terminal))
	}
	if cfg.Command != "" {
		p, err := NewCommandPlayer(cfg.Command)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

type Alerter struct {
	players []Player
	hub     Broadcaster
	logger  logging.Logger
}

func NewAlerter(hub Broadcaster, logger logging.Logger, players ...Player) *Alerter {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Alerter{players: players, hub: hub, logger: logger}
}

// Run consumes alert events until the channel closes or ctx is done.
func (a *Alerter) Run(ctx context.Context, alerts <-chan view.AlertEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case alert, ok := <-alerts:
			if !ok {
				return
			}
			a.ProcessAlert(ctx, alert)
		}
	}
}

// ProcessAlert plays the alert on every player and forwards it to viewers.
// A failing player does not stop the others.
func (a *Alerter) ProcessAlert(ctx context.Context, alert view.AlertEvent) {
	a.logger.Warn("FATAL: session %s cause=%q hr=%v spo2=%v temp=%v risk=%.0f",
		alert.SessionID, alert.Cause, alert.Reading.HeartRate, alert.Reading.SpO2, alert.Reading.Temperature, alert.Risk)

	for _, p := range a.players {
		if err := p.Play(ctx); err != nil {
			a.logger.Error("alert playback: %v", err)
		}
	}
	if a.hub != nil {
		a.hub.BroadcastAlert(alert)
	}
}
