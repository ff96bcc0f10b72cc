// Package web serves the live prediction dashboard: a small REST API over the
// running session plus websocket streams of cycles and predictions.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-roulette/internal/log"
	"github.com/teslashibe/go-roulette/pkg/hub"
	"github.com/teslashibe/go-roulette/pkg/session"
)

// Config controls the dashboard listener.
type Config struct {
	Enabled   bool   `mapstructure:"enabled" json:"enabled"`
	Addr      string `mapstructure:"addr" json:"addr"`             // host:port
	StaticDir string `mapstructure:"static_dir" json:"static_dir"` // optional front-end files
}

// DefaultConfig listens on all interfaces, port 8080.
func DefaultConfig() Config {
	return Config{Enabled: true, Addr: ":8080"}
}

// Provider is the session control surface the dashboard reads.
type Provider interface {
	Status() session.Status
	CurrentStats() (session.Stats, error)
}

// Server is the dashboard. It is also a session.Sink: every published cycle
// is streamed to websocket clients.
type Server struct {
	app    *fiber.App
	config Config
	logger *slog.Logger

	providerMu sync.RWMutex
	provider   Provider

	cycleHub      *hub.Hub
	predictionHub *hub.Hub
	hubCtx        context.Context
	hubCancel     context.CancelFunc

	lifeMu   sync.Mutex
	listener net.Listener
	started  bool
	closed   bool
}

// ErrServerClosed is returned by Start after Shutdown.
var ErrServerClosed = errors.New("web: server closed")

// NewServer builds the fiber app and its routes.
func NewServer(cfg Config, provider Provider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = log.Component("web")
	}
	s := &Server{
		config:        cfg,
		logger:        logger,
		provider:      provider,
		cycleHub:      hub.New("cycles", logger),
		predictionHub: hub.New("predictions", logger),
	}
	s.hubCtx, s.hubCancel = context.WithCancel(context.Background())

	app := fiber.New(fiber.Config{
		AppName:               "Roulette Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)
	api.Get("/stats", s.handleStats)
	api.Get("/predictions", s.handlePredictions)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/cycles", websocket.New(s.serveHub(s.cycleHub)))
	app.Get("/ws/predictions", websocket.New(s.serveHub(s.predictionHub)))

	s.app = app
	return s
}

// SetProvider swaps the session the dashboard reports on.
func (s *Server) SetProvider(p Provider) {
	s.providerMu.Lock()
	defer s.providerMu.Unlock()
	s.provider = p
}

func (s *Server) currentProvider() Provider {
	s.providerMu.RLock()
	defer s.providerMu.RUnlock()
	return s.provider
}

// Publish streams c to websocket clients.
func (s *Server) Publish(c session.Cycle) {
	if err := s.cycleHub.BroadcastJSON("cycle", c); err != nil {
		s.logger.Error("encode cycle", "error", err)
		return
	}
	if c.Prediction != nil {
		s.predictionHub.BroadcastJSON("prediction", c.Prediction)
	}
}

// Start runs the hubs and blocks serving HTTP until Shutdown. It returns
// ErrServerClosed when Shutdown came first.
func (s *Server) Start() error {
	s.lifeMu.Lock()
	if s.closed {
		s.lifeMu.Unlock()
		return ErrServerClosed
	}
	if s.started {
		s.lifeMu.Unlock()
		return errors.New("web: server already started")
	}
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		s.lifeMu.Unlock()
		return err
	}
	s.started = true
	s.listener = ln
	go s.cycleHub.Run(s.hubCtx)
	go s.predictionHub.Run(s.hubCtx)
	s.lifeMu.Unlock()

	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	if err := s.app.Listener(ln); err != nil && !s.isClosed() {
		return err
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, ErrServerClosed) {
			s.logger.Error("dashboard stopped", "error", err)
		}
	}()
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) isClosed() bool {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	return s.closed
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Shutdown stops the listener and the hubs. It is safe before Start and
// when called more than once.
func (s *Server) Shutdown() error {
	s.lifeMu.Lock()
	if s.closed {
		s.lifeMu.Unlock()
		return nil
	}
	s.closed = true
	s.hubCancel()
	ln, started := s.listener, s.started
	s.lifeMu.Unlock()

	if !started {
		return nil
	}
	err := s.app.Shutdown()
	// Serve may not have picked the listener up yet
	if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && err == nil {
		err = cerr
	}
	return err
}

// HubsRunning reports whether either websocket hub loop is active.
func (s *Server) HubsRunning() bool {
	return s.cycleHub.IsRunning() || s.predictionHub.IsRunning()
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		client, ok := hub.NewClient(h, conn)
		if !ok {
			conn.Close()
			return
		}
		client.Run()
	}
}
