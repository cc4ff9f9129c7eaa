// internal/tui/run.go
package tui

import (
	"context"
	"errors"
	"fmt"

	ui "github.com/gizak/termui/v3"

	"meditrack-dashboard/internal/view"
)

// StateSource is the read side of the view controller.
type StateSource interface {
	Snapshot() view.ViewState
	Subscribe() (<-chan struct{}, func())
}

// ErrQuit is returned by Run when the user asked to leave.
var ErrQuit = errors.New("tui: quit requested")

// Run takes over the terminal and redraws on every state change. It returns
// ErrQuit on q or Ctrl-C, and nil when ctx is done or the source closes.
func Run(ctx context.Context, src StateSource, labelLayout string) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("tui: init terminal: %w", err)
	}
	defer ui.Close()

	d := NewDashboard(labelLayout)
	d.Resize(ui.TerminalDimensions())

	changes, cancel := src.Subscribe()
	defer cancel()

	draw := func() {
		d.Update(src.Snapshot())
		ui.Render(d.Drawables()...)
	}
	draw()

	events := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			draw()
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return ErrQuit
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				ui.Clear()
				d.Resize(payload.Width, payload.Height)
				draw()
			}
		}
	}
}
