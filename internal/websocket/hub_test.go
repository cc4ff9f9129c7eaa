// internal/websocket/hub_test.go
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"meditrack-dashboard/internal/view"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub("04:05", nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn)
		if !hub.RegisterClient(client, nil) {
			conn.Close()
			return
		}
		go client.WritePump()
		client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialViewer(t *testing.T, hub *Hub, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial viewer: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("viewer never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

type rawEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) rawEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env rawEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	return env
}

func TestHub_RelaysStateChanges(t *testing.T) {
	hub, url := startHub(t)
	viewer := dialViewer(t, hub, url)

	c := view.New(view.Options{}, nil)
	defer c.Close()
	c.SetConnection(view.ConnConnected, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Relay(ctx, c)

	if err := c.OnMessage([]byte(`{"status":"fatal","data":{"timestamp":1700000000,"hr":130,"spo2":95,"temp":40},"cause":"Heart rate spike detected"}`)); err != nil {
		t.Fatalf("OnMessage err=%v", err)
	}

	var payload StatePayload
	for {
		env := readEnvelope(t, viewer)
		if env.Type != "state" {
			t.Fatalf("type=%q", env.Type)
		}
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.State.Received == 1 {
			break
		}
	}

	if payload.Display != "fatal" || payload.State.Cause != "Heart rate spike detected" {
		t.Fatalf("payload=%+v", payload)
	}
	if len(payload.Chart.HeartRate) != 1 || payload.Chart.HeartRate[0] != 130 {
		t.Fatalf("chart=%+v", payload.Chart)
	}
	if payload.State.Risk != 75 {
		t.Fatalf("risk=%v", payload.State.Risk)
	}
}

func TestHub_BroadcastAlert(t *testing.T) {
	hub, url := startHub(t)
	viewer := dialViewer(t, hub, url)

	hub.BroadcastAlert(view.AlertEvent{SessionID: "s1", Cause: "High fever detected", Risk: 70})

	env := readEnvelope(t, viewer)
	if env.Type != "alert" {
		t.Fatalf("type=%q", env.Type)
	}
	var alert view.AlertEvent
	if err := json.Unmarshal(env.Payload, &alert); err != nil {
		t.Fatalf("decode alert: %v", err)
	}
	if alert.Cause != "High fever detected" || alert.SessionID != "s1" {
		t.Fatalf("alert=%+v", alert)
	}
}

func TestHub_StopClosesViewers(t *testing.T) {
	hub, url := startHub(t)
	viewer := dialViewer(t, hub, url)

	hub.Stop()
	viewer.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := viewer.ReadMessage(); err == nil {
		t.Fatal("expected viewer connection to close")
	}

	// broadcasting after stop must not block
	done := make(chan struct{})
	go func() {
		hub.BroadcastState(view.ViewState{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastState blocked after Stop")
	}
}

func TestHub_RelayEndsWhenSourceCloses(t *testing.T) {
	hub := NewHub("04:05", nil)
	go hub.Run()
	defer hub.Stop()

	c := view.New(view.Options{}, nil)
	done := make(chan struct{})
	go func() {
		hub.Relay(context.Background(), c)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	c.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Relay did not return after source closed")
	}
}
