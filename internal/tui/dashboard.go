// internal/tui/dashboard.go
package tui

import (
	"fmt"
	"strconv"
	"strings"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"meditrack-dashboard/internal/anomaly"
	"meditrack-dashboard/internal/data"
	"meditrack-dashboard/internal/view"
)

// Dashboard holds the terminal widgets. Update is pure widget state and does
// not require an initialised terminal.
type Dashboard struct {
	banner *widgets.Paragraph
	vitals *widgets.Paragraph
	risk   *widgets.Gauge
	plot   *widgets.Plot
	empty  *widgets.Paragraph
	log    *widgets.List
	footer *widgets.Paragraph

	labelLayout string
	plotVisible bool
}

var seriesColors = []ui.Color{ui.ColorMagenta, ui.ColorCyan, ui.ColorYellow}

func NewDashboard(labelLayout string) *Dashboard {
	d := &Dashboard{
		banner:      widgets.NewParagraph(),
		vitals:      widgets.NewParagraph(),
		risk:        widgets.NewGauge(),
		plot:        widgets.NewPlot(),
		empty:       widgets.NewParagraph(),
		log:         widgets.NewList(),
		footer:      widgets.NewParagraph(),
		labelLayout: labelLayout,
	}
	d.banner.Title = "MediTrack"
	d.vitals.Title = "Latest"
	d.risk.Title = "Risk Indicator"
	d.plot.Title = "Live Vital Trends (HR magenta, SpO2 cyan, Temp yellow)"
	d.plot.LineColors = seriesColors
	d.plot.AxesColor = ui.ColorWhite
	d.plot.Marker = widgets.MarkerBraille
	d.empty.Title = d.plot.Title
	d.empty.Text = "waiting for readings..."
	d.log.Title = "System Activity"
	d.log.WrapText = false
	d.footer.Border = false
	return d
}

// Update copies a snapshot into the widgets.
func (d *Dashboard) Update(s view.ViewState) {
	display := s.DisplayStatus()
	banner := "STATUS: " + strings.ToUpper(display)
	if s.Cause != "" {
		banner += "\n" + s.Cause
	}
	if s.ConnectionError != "" && s.Connection != view.ConnConnected {
		banner += "\nfeed: " + s.ConnectionError
	}
	d.banner.Text = banner
	d.banner.BorderStyle = ui.NewStyle(statusColor(display))
	d.banner.TextStyle = ui.NewStyle(statusColor(display), ui.ColorClear, ui.ModifierBold)

	if r, ok := s.Latest(); ok {
		d.vitals.Text = fmt.Sprintf("Heart Rate   %s bpm\nSpO2         %s%%\nTemperature  %s°C",
			num(r.HeartRate), num(r.SpO2), num(r.Temperature))
	} else {
		d.vitals.Text = "no readings yet"
	}

	d.risk.Percent = int(s.Risk + 0.5)
	d.risk.Label = fmt.Sprintf("%.0f (%s)", s.Risk, anomaly.Band(s.Risk))
	d.risk.BarColor = riskColor(anomaly.Band(s.Risk))

	cs := view.Chart(s, d.labelLayout)
	d.plotVisible = len(cs.Labels) >= 2
	if d.plotVisible {
		d.plot.Data = [][]float64{cs.HeartRate, cs.SpO2, cs.Temperature}
		d.plot.DataLabels = cs.Labels
	}

	rows := make([]string, len(s.Log))
	for i, e := range s.Log {
		rows[i] = logRow(e)
	}
	d.log.Rows = rows

	footer := fmt.Sprintf("session %s | received %d | dropped %d", shortID(s.SessionID), s.Received, s.Dropped)
	if p := s.ShortProof(); p != "" {
		footer += " | TX: " + p
	}
	d.footer.Text = footer + " | q to quit"
}

// Resize lays the widgets out for a terminal of w x h cells.
func (d *Dashboard) Resize(w, h int) {
	left := w / 3
	if left < 30 && w > 60 {
		left = 30
	}
	logTop := h * 3 / 5

	d.banner.SetRect(0, 0, left, 5)
	d.vitals.SetRect(0, 5, left, 10)
	d.risk.SetRect(0, 10, left, 13)
	d.plot.SetRect(left, 0, w, logTop)
	d.empty.SetRect(left, 0, w, logTop)
	d.log.SetRect(left, logTop, w, h-1)
	d.footer.SetRect(0, h-1, w, h)
}

// Drawables lists what should be rendered for the current state.
func (d *Dashboard) Drawables() []ui.Drawable {
	chart := ui.Drawable(d.empty)
	if d.plotVisible {
		chart = d.plot
	}
	return []ui.Drawable{d.banner, d.vitals, d.risk, chart, d.log, d.footer}
}

func statusColor(display string) ui.Color {
	switch display {
	case string(data.StatusFatal):
		return ui.ColorRed
	case string(data.StatusNormal):
		return ui.ColorGreen
	default:
		return ui.ColorYellow
	}
}

func riskColor(level anomaly.Level) ui.Color {
	switch level {
	case anomaly.LevelHigh:
		return ui.ColorRed
	case anomaly.LevelElevated:
		return ui.ColorYellow
	default:
		return ui.ColorGreen
	}
}

func logRow(e view.LogEntry) string {
	// termui parses [text](style); keep message brackets literal
	msg := strings.NewReplacer("[", "(", "]", ")").Replace(e.Message)
	if e.Severity == view.SeverityFatal {
		return fmt.Sprintf("[%s %s](fg:red)", e.CapturedAt, msg)
	}
	return fmt.Sprintf("[%s](fg:white) %s", e.CapturedAt, msg)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
