// internal/view/controller.go
package view

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"meditrack-dashboard/internal/anomaly"
	"meditrack-dashboard/internal/config"
	"meditrack-dashboard/internal/data"
	"meditrack-dashboard/internal/logging"
	"meditrack-dashboard/internal/storage"
)

// ErrClosed is returned for operations on a torn-down controller.
var ErrClosed = errors.New("view controller closed")

// AlertPolicy decides which fatal messages raise an alert event.
type AlertPolicy string

const (
	// AlertOnEdge raises one alert per normal->fatal transition.
	AlertOnEdge AlertPolicy = "edge"
	// AlertOnEvery raises an alert for every fatal message.
	AlertOnEvery AlertPolicy = "every"
)

const (
	DefaultHistorySize   = 21
	DefaultLogSize       = 16
	DefaultLogTimeLayout = "15:04:05"

	alertBuffer = 8
)

type Options struct {
	HistorySize   int
	LogSize       int
	AlertPolicy   AlertPolicy
	LogTimeLayout string
	Now           func() time.Time
}

// OptionsFrom maps the view section of the config.
func OptionsFrom(cfg config.ViewConfig) Options {
	return Options{
		HistorySize:   cfg.HistorySize,
		LogSize:       cfg.LogSize,
		AlertPolicy:   AlertPolicy(cfg.AlertPolicy),
		LogTimeLayout: cfg.LogTimeLayout,
	}
}

func (o Options) withDefaults() Options {
	if o.HistorySize <= 0 {
		o.HistorySize = DefaultHistorySize
	}
	if o.LogSize <= 0 {
		o.LogSize = DefaultLogSize
	}
	if o.AlertPolicy != AlertOnEvery {
		o.AlertPolicy = AlertOnEdge
	}
	if o.LogTimeLayout == "" {
		o.LogTimeLayout = DefaultLogTimeLayout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// AlertEvent is emitted when the view becomes fatal.
type AlertEvent struct {
	SessionID string       `json:"session_id"`
	Reading   data.Reading `json:"reading"`
	Cause     string       `json:"cause,omitempty"`
	Risk      float64      `json:"risk"`
	At        time.Time    `json:"at"`
}

// Controller folds inbound feed messages into a bounded ViewState.
// Messages are applied one at a time under the write lock; renderers read
// through Snapshot and learn about changes through Subscribe.
type Controller struct {
	opts   Options
	logger logging.Logger

	mu        sync.RWMutex
	sessionID string
	history   *storage.Window[data.Reading]
	logs      *storage.Feed[LogEntry]
	status    data.Status
	cause     string
	proof     string
	risk      float64
	conn      ConnectionState
	connErr   string
	received  uint64
	dropped   uint64
	updatedAt time.Time
	closed    bool
	done      chan struct{}

	nextID int
	subs   map[int]chan struct{}
	alerts map[int]chan AlertEvent
}

func New(opts Options, logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Nop{}
	}
	opts = opts.withDefaults()
	return &Controller{
		opts:      opts,
		logger:    logger,
		sessionID: uuid.NewString(),
		history:   storage.NewWindow[data.Reading](opts.HistorySize),
		logs:      storage.NewFeed[LogEntry](opts.LogSize),
		status:    data.StatusNormal,
		conn:      ConnConnecting,
		updatedAt: opts.Now(),
		done:      make(chan struct{}),
		subs:      make(map[int]chan struct{}),
		alerts:    make(map[int]chan AlertEvent),
	}
}

// SessionID identifies this controller instance in logs and alerts.
func (c *Controller) SessionID() string { return c.sessionID }

// OnMessage decodes and applies one raw payload. Malformed payloads are
// skipped: only the dropped counter changes. After Close every payload,
// well-formed or not, returns ErrClosed.
func (c *Controller) OnMessage(raw []byte) error {
	if c.Closed() {
		return ErrClosed
	}
	ev, err := data.Parse(raw)
	if err != nil {
		c.drop(err)
		return err
	}
	return c.safeApply(ev)
}

// Apply folds one decoded event into the state.
func (c *Controller) Apply(ev data.StatusEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	prev := c.status
	r := ev.Reading

	c.history.Add(r)
	c.status = ev.Status
	c.cause = ev.Cause
	if ev.ProofReference != "" {
		c.proof = ev.ProofReference
	}
	c.risk = anomaly.RiskScore(r)
	c.received++
	now := c.opts.Now()
	c.updatedAt = now

	entry := LogEntry{
		CapturedAt: now.Format(c.opts.LogTimeLayout),
		Message:    logMessage(ev),
		Severity:   SeverityInfo,
	}
	if ev.Status == data.StatusFatal {
		entry.Severity = SeverityFatal
	}
	c.logs.Prepend(entry)

	if c.shouldAlert(prev, ev.Status) {
		c.publishAlert(AlertEvent{
			SessionID: c.sessionID,
			Reading:   r,
			Cause:     ev.Cause,
			Risk:      c.risk,
			At:        now,
		})
	}
	c.notify()
	return nil
}

func (c *Controller) shouldAlert(prev, next data.Status) bool {
	if next != data.StatusFatal {
		return false
	}
	return c.opts.AlertPolicy == AlertOnEvery || prev != data.StatusFatal
}

func logMessage(ev data.StatusEvent) string {
	prefix := "Normal Update"
	if ev.Status == data.StatusFatal {
		prefix = "FATAL EVENT"
	}
	r := ev.Reading
	return fmt.Sprintf("%s — HR:%s | SpO₂:%s | Temp:%s",
		prefix, formatNumber(r.HeartRate), formatNumber(r.SpO2), formatNumber(r.Temperature))
}

// formatNumber prints the shortest representation: 72, 98.5, 36.6.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *Controller) safeApply(ev data.StatusEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic applying message: %v", rec)
			c.drop(err)
		}
	}()
	return c.Apply(ev)
}

func (c *Controller) drop(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.dropped++
	c.logger.Warn("session %s: dropping message: %v", c.sessionID, cause)
	c.notify()
}

// SetConnection records a transport state change. err may be nil.
func (c *Controller) SetConnection(state ConnectionState, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.conn = state
	c.connErr = ""
	if err != nil {
		c.connErr = err.Error()
	}
	c.notify()
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() ViewState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ViewState{
		SessionID:       c.sessionID,
		History:         c.history.GetAll(),
		Status:          c.status,
		Cause:           c.cause,
		ProofReference:  c.proof,
		Risk:            c.risk,
		Log:             c.logs.GetAll(),
		HistoryCapacity: c.history.Capacity(),
		LogCapacity:     c.logs.Capacity(),
		Connection:      c.conn,
		ConnectionError: c.connErr,
		Received:        c.received,
		Dropped:         c.dropped,
		UpdatedAt:       c.updatedAt,
	}
}

// Subscribe returns a channel that receives a token after every state change.
// Notifications coalesce: a slow reader sees one pending token, then pulls
// the latest Snapshot. The channel is closed by cancel or by Close.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	return ch, func() { c.unsubscribe(id) }
}

// Alerts returns a channel of alert events. Events that find the buffer full
// are dropped with a warning.
func (c *Controller) Alerts() (<-chan AlertEvent, func()) {
	ch := make(chan AlertEvent, alertBuffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextID
	c.nextID++
	c.alerts[id] = ch
	return ch, func() { c.unsubscribe(id) }
}

func (c *Controller) unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.subs[id]; ok {
		delete(c.subs, id)
		close(ch)
	}
	if ch, ok := c.alerts[id]; ok {
		delete(c.alerts, id)
		close(ch)
	}
}

// notify must be called with mu held.
func (c *Controller) notify() {
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// publishAlert must be called with mu held.
func (c *Controller) publishAlert(ev AlertEvent) {
	for id, ch := range c.alerts {
		select {
		case ch <- ev:
		default:
			c.logger.Warn("session %s: alert subscriber %d is full, alert dropped", c.sessionID, id)
		}
	}
}

// Close tears the view down. Later messages and state changes are no-ops and
// every subscriber channel is closed. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	c.conn = ConnClosed
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	for id, ch := range c.alerts {
		delete(c.alerts, id)
		close(ch)
	}
	c.logger.Info("session %s: view closed after %d messages (%d dropped)", c.sessionID, c.received, c.dropped)
}

// Done is closed by Close. Transports select on it to release their
// connection even when the feed is idle.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
