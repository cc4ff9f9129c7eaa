// internal/websocket/feed.go
package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"meditrack-dashboard/internal/config"
	"meditrack-dashboard/internal/logging"
	"meditrack-dashboard/internal/view"
)

// Sink receives everything the feed produces. *view.Controller implements it.
// Done is closed when the sink is torn down; the feed then drops its
// connection and Run returns.
type Sink interface {
	OnMessage(raw []byte) error
	SetConnection(state view.ConnectionState, err error)
	Done() <-chan struct{}
}

type FeedOptions struct {
	URL              string
	HandshakeTimeout time.Duration
	PongWait         time.Duration
	ReadLimit        int64
	Reconnect        bool
	MinDelay         time.Duration
	MaxDelay         time.Duration
}

// FeedOptionsFrom maps the feed section of the config.
func FeedOptionsFrom(cfg config.FeedConfig) FeedOptions {
	return FeedOptions{
		URL:              cfg.URL,
		HandshakeTimeout: cfg.HandshakeTimeout,
		PongWait:         cfg.PongWait,
		ReadLimit:        cfg.ReadLimit,
		Reconnect:        cfg.Reconnect.Enabled,
		MinDelay:         cfg.Reconnect.MinDelay,
		MaxDelay:         cfg.Reconnect.MaxDelay,
	}
}

// FeedClient reads the vitals stream and hands each payload to a Sink.
type FeedClient struct {
	opts   FeedOptions
	sink   Sink
	logger logging.Logger
	dialer *websocket.Dialer

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

func NewFeedClient(opts FeedOptions, sink Sink, logger logging.Logger) (*FeedClient, error) {
	if opts.URL == "" {
		return nil, errors.New("feed: url required")
	}
	if sink == nil {
		return nil, errors.New("feed: sink required")
	}
	if opts.PongWait <= 0 {
		opts.PongWait = pongWait
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 4096
	}
	if opts.MinDelay <= 0 {
		opts.MinDelay = time.Second
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &FeedClient{
		opts:   opts,
		sink:   sink,
		logger: logger,
		dialer: &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout},
	}, nil
}

// Run connects and reads until ctx is cancelled, Close is called, the sink
// is torn down, or (with reconnect disabled) the connection ends. The
// connection is released on every return path.
func (f *FeedClient) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.mu.Unlock()
	defer cancel()

	delay := f.opts.MinDelay
	for {
		if f.sinkClosed() {
			return nil
		}
		f.sink.SetConnection(view.ConnConnecting, nil)
		conn, err := f.dial(ctx)
		if err == nil {
			delay = f.opts.MinDelay
			f.sink.SetConnection(view.ConnConnected, nil)
			f.logger.Info("feed connected: %s", f.opts.URL)
			err = f.readLoop(ctx, conn)
		}

		if ctx.Err() != nil || errors.Is(err, view.ErrClosed) {
			return nil
		}
		f.logger.Error("feed %s: %v", f.opts.URL, err)
		f.sink.SetConnection(view.ConnDisconnected, err)
		if !f.opts.Reconnect {
			return err
		}

		f.logger.Info("feed reconnecting in %s", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-f.sink.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > f.opts.MaxDelay {
			delay = f.opts.MaxDelay
		}
	}
}

// Close stops Run and releases the connection. Safe to call more than once.
func (f *FeedClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *FeedClient) sinkClosed() bool {
	select {
	case <-f.sink.Done():
		return true
	default:
		return false
	}
}

func (f *FeedClient) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := f.dialer.DialContext(ctx, f.opts.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (http %d)", f.opts.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", f.opts.URL, err)
	}
	return conn, nil
}

func (f *FeedClient) readLoop(ctx context.Context, conn *websocket.Conn) error {
	pong := f.opts.PongWait
	ping := (pong * 9) / 10

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	defer func() {
		close(done)
		wg.Wait()
		conn.Close()
	}()

	// Unblocks ReadMessage on cancellation and keeps the peer's pongs coming.
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(ping)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				closeConn(conn)
				return
			case <-f.sink.Done():
				closeConn(conn)
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					f.logger.Warn("feed ping: %v", err)
				}
			}
		}
	}()

	conn.SetReadLimit(f.opts.ReadLimit)
	conn.SetReadDeadline(time.Now().Add(pong))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pong)) })

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if f.sinkClosed() {
				return view.ErrClosed
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("feed closed by peer: %w", err)
			}
			return fmt.Errorf("feed read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(pong))

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.sink.OnMessage(message); errors.Is(err, view.ErrClosed) {
			return err
		}
	}
}

// closeConn sends a normal close frame and releases the socket, which
// unblocks a pending ReadMessage.
func closeConn(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
}
