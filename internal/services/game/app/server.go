// Package app wires the game runtime and HTTP lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pairspace/pairspace/internal/platform/auth"
	"github.com/pairspace/pairspace/internal/platform/config"
	connsqlite "github.com/pairspace/pairspace/internal/services/connections/storage/sqlite"
	gamehttp "github.com/pairspace/pairspace/internal/services/game/api/http"
	"github.com/pairspace/pairspace/internal/services/game/feed"
	gamesqlite "github.com/pairspace/pairspace/internal/services/game/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

type serverEnv struct {
	EventDBPath   string `env:"PAIRSPACE_GAME_DB_PATH"`
	PartnerDBPath string `env:"PAIRSPACE_CONNECTIONS_DB_PATH"`
	Verbose       bool   `env:"PAIRSPACE_GAME_VERBOSE"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.EventDBPath) == "" {
		cfg.EventDBPath = filepath.Join("data", "game.db")
	}
	if strings.TrimSpace(cfg.PartnerDBPath) == "" {
		cfg.PartnerDBPath = filepath.Join("data", "connections.db")
	}
	return cfg
}

// Server hosts the game HTTP API and storage lifecycle.
type Server struct {
	listener     net.Listener
	httpServer   *http.Server
	eventStore   *gamesqlite.Store
	partnerStore *connsqlite.Store
}

// New creates a configured game server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured game server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env := loadServerEnv()
	eventStore, err := openStore(env.EventDBPath, gamesqlite.Open)
	if err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("open game sqlite store: %w", err)
	}
	partnerStore, err := openStore(env.PartnerDBPath, connsqlite.Open)
	if err != nil {
		_ = listener.Close()
		_ = eventStore.Close()
		return nil, fmt.Errorf("open connections sqlite store: %w", err)
	}

	authConfig, err := auth.LoadConfigFromEnv(time.Now)
	if err != nil {
		_ = listener.Close()
		_ = eventStore.Close()
		_ = partnerStore.Close()
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	verifier, err := auth.NewVerifier(authConfig)
	if err != nil {
		_ = listener.Close()
		_ = eventStore.Close()
		_ = partnerStore.Close()
		return nil, fmt.Errorf("build token verifier: %w", err)
	}

	router := gamehttp.NewRouter(gamehttp.Handlers{
		Events:   eventStore,
		Partners: partnerStore,
		Hub:      feed.NewHub(),
		Auth:     verifier,
		Verbose:  env.Verbose,
	})

	return &Server{
		listener:     listener,
		httpServer:   &http.Server{Handler: router},
		eventStore:   eventStore,
		partnerStore: partnerStore,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a game server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// RunWithAddr creates and serves a game server on the provided address.
func RunWithAddr(ctx context.Context, addr string) error {
	server, err := NewWithAddr(addr)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP server until context cancellation, then drains
// in-flight requests before releasing resources.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("game server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

// Close releases game server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.eventStore != nil {
		if err := s.eventStore.Close(); err != nil {
			log.Printf("close game store: %v", err)
		}
	}
	if s.partnerStore != nil {
		if err := s.partnerStore.Close(); err != nil {
			log.Printf("close connections store: %v", err)
		}
	}
}

func openStore[T any](path string, open func(string) (T, error)) (T, error) {
	var zero T
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return zero, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := open(path)
	if err != nil {
		return zero, err
	}
	return store, nil
}
