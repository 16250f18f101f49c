package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/framelink/internal/observability"
)

var ErrInvalidServiceConfig = errors.New("relay: invalid service config")

// Bridge relay runtime settings.
type ServiceConfig struct {
	ListenAddr     string
	AllowedOrigins []string
	// FrameRate is the sustained relayed-frames-per-second budget of one
	// connection; FrameBurst is its bucket depth.
	FrameRate   float64
	FrameBurst  int
	IdleTimeout time.Duration
}

// Bridge relay defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:     ":8420",
		AllowedOrigins: []string{"*"},
		FrameRate:      200,
		FrameBurst:     400,
		IdleTimeout:    5 * time.Minute,
	}
}

func (c ServiceConfig) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("%w: listen addr required", ErrInvalidServiceConfig)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("%w: frame rate must be positive", ErrInvalidServiceConfig)
	}
	if c.FrameBurst < 1 {
		return fmt.Errorf("%w: frame burst must be at least 1", ErrInvalidServiceConfig)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("%w: idle timeout must be positive", ErrInvalidServiceConfig)
	}
	return nil
}

// Service is the relay runtime: pair hub plus HTTP surface.
type Service struct {
	cfg     ServiceConfig
	log     zerolog.Logger
	hub     *hub
	started time.Time
}

// Relay service constructor using default configuration.
func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

// Relay service constructor using explicit configuration. Zero-valued
// fields fall back to defaults.
func NewServiceWithConfig(cfg ServiceConfig) *Service {
	def := DefaultServiceConfig()
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = def.AllowedOrigins
	}
	if cfg.FrameRate == 0 {
		cfg.FrameRate = def.FrameRate
	}
	if cfg.FrameBurst == 0 {
		cfg.FrameBurst = def.FrameBurst
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	logger := log.Logger.With().Str("component", "relay").Logger()
	return &Service{
		cfg:     cfg,
		log:     logger,
		hub:     newHub(cfg, logger),
		started: time.Now(),
	}
}

// Router builds the relay HTTP surface.
func (s *Service) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestTelemetry("bridgectl", s.log))

	corsCfg := cors.Config{
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if originListAllowsAll(s.cfg.AllowedOrigins) {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": "bridgectl",
			"version": "0.1.0",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/link/:pair", s.hub.handleLink)
	return r
}

// Relay runtime entrypoint that blocks until signal shutdown.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve blocks until ctx cancels or the listener fails. Cancellation
// shuts the HTTP server down gracefully.
func (s *Service) Serve(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	srv := &http.Server{Addr: s.cfg.ListenAddr, Handler: s.Router()}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	s.log.Info().Msgf("relay.Serve listening addr=%q rate=%v burst=%d", s.cfg.ListenAddr, s.cfg.FrameRate, s.cfg.FrameBurst)

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func originListAllowsAll(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
