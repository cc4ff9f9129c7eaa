// internal/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"meditrack-dashboard/internal/logging"
	"meditrack-dashboard/internal/view"
)

// Envelope is the frame sent to viewers.
type Envelope struct {
	Type    string      `json:"type"` // "state" or "alert"
	Payload interface{} `json:"payload"`
}

// StatePayload carries a snapshot together with its chart series.
type StatePayload struct {
	State   view.ViewState   `json:"state"`
	Display string           `json:"display_status"`
	Chart   view.ChartSeries `json:"chart"`
}

// StateSource is what the hub relays. *view.Controller implements it.
type StateSource interface {
	Snapshot() view.ViewState
	Subscribe() (<-chan struct{}, func())
}

// Hub maintains the set of attached viewers and broadcasts frames to them.
type Hub struct {
	clients     map[*Client]bool
	broadcast   chan []byte
	register    chan registration
	unregister  chan *Client
	stopCh      chan struct{}
	stopOnce    sync.Once
	mu          sync.RWMutex
	labelLayout string
	logger      logging.Logger
}

func NewHub(labelLayout string, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Hub{
		broadcast:   make(chan []byte, 16),
		register:    make(chan registration),
		unregister:  make(chan *Client),
		stopCh:      make(chan struct{}),
		clients:     make(map[*Client]bool),
		labelLayout: labelLayout,
		logger:      logger,
	}
}

// Run serves registrations and broadcasts until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stopCh:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case reg := <-h.register:
			client := reg.client
			if reg.initial != nil {
				// Send is fresh and buffered; nothing else has written to it yet
				client.Send <- reg.initial
			}
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("viewer registered: %s", client.Conn.RemoteAddr())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info("viewer unregistered: %s", client.Conn.RemoteAddr())
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.logger.Warn("viewer %s send buffer full, removing", client.Conn.RemoteAddr())
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop ends Run and closes every viewer. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// ClientCount reports the number of attached viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type registration struct {
	client  *Client
	initial []byte
}

// RegisterClient attaches a viewer. initial, when non-nil, is queued ahead of
// any broadcast. It returns false once the hub is stopped.
func (h *Hub) RegisterClient(client *Client, initial []byte) bool {
	select {
	case h.register <- registration{client: client, initial: initial}:
		return true
	case <-h.stopCh:
		return false
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopCh:
	}
}

// EncodeState builds the "state" frame for a snapshot.
func (h *Hub) EncodeState(s view.ViewState) ([]byte, error) {
	return json.Marshal(Envelope{Type: "state", Payload: StatePayload{
		State:   s,
		Display: s.DisplayStatus(),
		Chart:   view.Chart(s, h.labelLayout),
	}})
}

// BroadcastState sends a snapshot to all viewers.
func (h *Hub) BroadcastState(s view.ViewState) {
	messageBytes, err := h.EncodeState(s)
	if err != nil {
		h.logger.Error("marshal state for broadcast: %v", err)
		return
	}
	h.send(messageBytes)
}

// BroadcastAlert sends an alert event to all viewers.
func (h *Hub) BroadcastAlert(alert view.AlertEvent) {
	messageBytes, err := json.Marshal(Envelope{Type: "alert", Payload: alert})
	if err != nil {
		h.logger.Error("marshal alert for broadcast: %v", err)
		return
	}
	h.send(messageBytes)
}

func (h *Hub) send(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.stopCh:
	}
}

// Relay broadcasts the current snapshot, then a fresh one after every change
// in src, until ctx is done or src stops notifying.
func (h *Hub) Relay(ctx context.Context, src StateSource) {
	changes, cancel := src.Subscribe()
	defer cancel()
	h.BroadcastState(src.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			h.BroadcastState(src.Snapshot())
		}
	}
}
