// cmd/dashboard/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"meditrack-dashboard/internal/alerting"
	"meditrack-dashboard/internal/api"
	"meditrack-dashboard/internal/config"
	"meditrack-dashboard/internal/logging"
	"meditrack-dashboard/internal/tui"
	"meditrack-dashboard/internal/view"
	"meditrack-dashboard/internal/websocket"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", ".", "Directory containing config.yaml")
	noTUI := flag.Bool("no-tui", false, "Disable the terminal dashboard")
	logPath := flag.String("log", "", "Log file (default stderr, or meditrack-dashboard.log while the terminal dashboard runs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if *noTUI {
		cfg.TUI.Enabled = false
	}

	logOut, closeLog, err := openLog(*logPath, cfg.TUI.Enabled)
	if err != nil {
		log.Fatalf("Error opening log: %v", err)
	}
	defer closeLog()
	logger := logging.NewStdLogger(log.New(logOut, "", log.LstdFlags))

	if err := run(cfg, logger); err != nil {
		logger.Error("dashboard stopped: %v", err)
		closeLog()
		os.Exit(1)
	}
}

func openLog(path string, tuiEnabled bool) (io.Writer, func(), error) {
	if path == "" && !tuiEnabled {
		return os.Stderr, func() {}, nil
	}
	if path == "" {
		path = "meditrack-dashboard.log"
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize Components ---
	controller := view.New(view.OptionsFrom(cfg.View), logger)
	defer controller.Close()
	logger.Info("session %s started", controller.SessionID())

	feed, err := websocket.NewFeedClient(websocket.FeedOptionsFrom(cfg.Feed), controller, logger)
	if err != nil {
		return err
	}
	defer feed.Close()

	hub := websocket.NewHub(cfg.View.LabelLayout, logger)
	defer hub.Stop()

	players, err := alerting.PlayersFrom(cfg.Alert, os.Stdout)
	if err != nil {
		return err
	}
	alerter := alerting.NewAlerter(hub, logger, players...)
	alerts, cancelAlerts := controller.Alerts()
	defer cancelAlerts()

	g, gctx := errgroup.WithContext(ctx)

	go hub.Run()
	g.Go(func() error {
		hub.Relay(gctx, controller)
		return nil
	})
	g.Go(func() error {
		alerter.Run(gctx, alerts)
		return nil
	})
	g.Go(func() error {
		// the view keeps showing "disconnected" until the user quits
		if err := feed.Run(gctx); err != nil {
			logger.Error("feed gave up: %v", err)
		}
		return nil
	})

	// --- Web UI & viewer websocket ---
	if cfg.Server.Enabled {
		apiHandler, err := api.NewAPIHandler(controller, hub, cfg.View.LabelLayout, cfg.Server.AllowedOrigins, logger)
		if err != nil {
			return err
		}
		server := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: api.SetupUIRouter(apiHandler, cfg.Server.AllowedOrigins),
		}
		g.Go(func() error {
			logger.Info("Starting Web UI & WebSocket Server on %s", cfg.Server.Addr)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	// --- Terminal dashboard ---
	if cfg.TUI.Enabled {
		g.Go(func() error {
			return tui.Run(gctx, controller, cfg.View.LabelLayout)
		})
	}

	err = g.Wait()
	logger.Info("Shutting down...")
	if errors.Is(err, tui.ErrQuit) {
		return nil
	}
	return err
}
