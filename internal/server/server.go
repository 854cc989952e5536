// Package server exposes the local control API: the recording toggle, a
// one-shot transcription endpoint, transcript history, and health.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicetap/internal/app"
	"github.com/kbukum/voicetap/internal/logger"
	"github.com/kbukum/voicetap/internal/provider"
	"github.com/kbukum/voicetap/internal/store"
	"github.com/kbukum/voicetap/internal/transcription"
)

// Config configures the control API server.
type Config struct {
	// Addr is the listen address. Loopback by default; the API is unauthenticated.
	Addr string `yaml:"addr" mapstructure:"addr"`

	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// MaxUploadBytes caps multipart audio uploads.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8717"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		// Transcription of an upload happens within the handler.
		c.WriteTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 64 << 20
	}
}

// Options carries the server's collaborators.
type Options struct {
	Config    Config
	App       *app.App
	Store     *store.Store
	Providers *provider.Manager[transcription.Provider]
}

// Server is the HTTP control API.
type Server struct {
	cfg       Config
	app       *app.App
	store     *store.Store
	providers *provider.Manager[transcription.Provider]
	log       *logger.Logger
	engine    *gin.Engine
	http      *http.Server
}

// New builds the server and its routes.
func New(opts Options) *Server {
	cfg := opts.Config
	cfg.ApplyDefaults()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(RequestID(), RequestLogger(), Recovery())

	s := &Server{
		cfg:       cfg,
		app:       opts.App,
		store:     opts.Store,
		providers: opts.Providers,
		log:       logger.Get("server"),
		engine:    engine,
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)

	v1 := s.engine.Group("/v1")
	v1.POST("/transcriptions", s.handleTranscribe)
	v1.POST("/recorder/toggle", s.handleToggle)
	v1.POST("/recorder/cancel", s.handleCancel)
	v1.GET("/recorder", s.handleRecorderStatus)
	v1.GET("/transcripts", s.handleTranscripts)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("control api listening", logger.Fields("addr", s.cfg.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
