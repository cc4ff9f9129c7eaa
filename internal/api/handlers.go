package api

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	gwebsocket "github.com/gorilla/websocket" // Alias to avoid name conflict

	"meditrack-dashboard/internal/anomaly"
	"meditrack-dashboard/internal/data"
	"meditrack-dashboard/internal/logging"
	"meditrack-dashboard/internal/view"
	"meditrack-dashboard/internal/websocket"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"num":   func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
}

// StateSource is the read side of the view controller.
type StateSource interface {
	Snapshot() view.ViewState
}

type APIHandler struct {
	source      StateSource
	hub         *websocket.Hub
	tmpl        *template.Template
	upgrader    gwebsocket.Upgrader
	labelLayout string
	logger      logging.Logger
}

func NewAPIHandler(source StateSource, hub *websocket.Hub, labelLayout string, allowedOrigins []string, logger logging.Logger) (*APIHandler, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &APIHandler{
		source: source,
		hub:    hub,
		tmpl:   tmpl,
		upgrader: gwebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		labelLayout: labelLayout,
		logger:      logger,
	}, nil
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

type pageData struct {
	State     view.ViewState
	Display   string
	Latest    data.Reading
	HasLatest bool
	RiskLevel anomaly.Level
	Proof     string
	Chart     view.ChartSeries
}

// ServeWebUI renders the status page from the current snapshot.
func (h *APIHandler) ServeWebUI(w http.ResponseWriter, r *http.Request) {
	s := h.source.Snapshot()
	latest, ok := s.Latest()
	page := pageData{
		State:     s,
		Display:   s.DisplayStatus(),
		Latest:    latest,
		HasLatest: ok,
		RiskLevel: anomaly.Band(s.Risk),
		Proof:     s.ShortProof(),
		Chart:     view.Chart(s, h.labelLayout),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html", page); err != nil {
		h.logger.Error("execute template: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

type stateResponse struct {
	view.ViewState
	Display   string        `json:"display_status"`
	RiskLevel anomaly.Level `json:"risk_level"`
}

func (h *APIHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	s := h.source.Snapshot()
	writeJSON(w, http.StatusOK, stateResponse{
		ViewState: s,
		Display:   s.DisplayStatus(),
		RiskLevel: anomaly.Band(s.Risk),
	})
}

func (h *APIHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, view.Chart(h.source.Snapshot(), h.labelLayout))
}

// HandleHealth reports 503 while the feed is not connected.
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s := h.source.Snapshot()
	code := http.StatusOK
	if s.Connection != view.ConnConnected {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"connection": s.Connection,
		"received":   s.Received,
		"dropped":    s.Dropped,
		"updated_at": s.UpdatedAt,
		"history":    fmt.Sprintf("%d/%d", len(s.History), s.HistoryCapacity),
		"log":        fmt.Sprintf("%d/%d", len(s.Log), s.LogCapacity),
	})
}

// HandleWebSocket upgrades viewer connections and registers them with the hub.
// The current state is queued first so a new viewer does not wait for the
// next change.
func (h *APIHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("viewer upgrade: %v", err)
		return
	}

	initial, err := h.hub.EncodeState(h.source.Snapshot())
	if err != nil {
		h.logger.Error("marshal initial state: %v", err)
		initial = nil
	}

	client := websocket.NewClient(h.hub, conn)
	if !h.hub.RegisterClient(client, initial) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
	h.logger.Info("viewer connected: %s", conn.RemoteAddr())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
