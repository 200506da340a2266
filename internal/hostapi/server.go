package hostapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"payloadkeeper/internal/capture"
	"payloadkeeper/internal/layout"
	"payloadkeeper/internal/logging"
	"payloadkeeper/internal/metrics"
	"payloadkeeper/internal/payload"
)

const maxEventBytes = 32 << 20

// Recorder is the part of capture the bridge drives. It must be safe for
// concurrent use; wrap a *capture.Recorder with capture.Synchronize.
type Recorder interface {
	HandleGeneration(ctx context.Context, ev capture.Event) capture.Outcome
	Current() payload.Payload
}

// Server exposes the recorder over HTTP.
type Server struct {
	bind     string
	logger   *slog.Logger
	recorder Recorder
	store    *layout.Store

	engine   *gin.Engine
	listener net.Listener
	server   *http.Server
}

// New builds the bridge. Nothing listens until Start.
func New(bind string, recorder Recorder, store *layout.Store, m *metrics.Metrics, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		bind:     strings.TrimSpace(bind),
		logger:   logging.NewComponentLogger(logger, "hostapi"),
		recorder: recorder,
		store:    store,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	api := engine.Group("/api")
	{
		api.POST("/generation", s.handleGeneration)
		api.GET("/payload", s.handleCurrent)
		api.GET("/payload/latest", s.handleLatest)
		api.GET("/payloads", s.handleList)
		api.GET("/status", s.handleStatus)
	}
	engine.GET("/metrics", gin.WrapH(m.Handler()))
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.engine = engine
	s.server = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed engine, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Start listens on the bind address and serves until ctx is done or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleGeneration(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	ev, err := capture.DecodeEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	out := s.recorder.HandleGeneration(c.Request.Context(), ev)
	c.JSON(http.StatusOK, FromOutcome(out))
}

func (s *Server) handleCurrent(c *gin.Context) {
	current := s.recorder.Current()
	if current == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: payload.NoPayloadMessage})
		return
	}
	c.JSON(http.StatusOK, current)
}

func (s *Server) handleLatest(c *gin.Context) {
	latest, err := s.store.Latest()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if latest == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: payload.NoPayloadMessage})
		return
	}
	c.JSON(http.StatusOK, latest)
}

func (s *Server) handleList(c *gin.Context) {
	scope, err := layout.ParseScope(c.Query("scope"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	files, err := s.store.List(c.Request.Context(), scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, FileListResponse{Scope: string(scope), Files: FromFiles(files)})
}

func (s *Server) handleStatus(c *gin.Context) {
	summary, err := s.store.Summarize(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, FromSummary(s.store.Root(), summary))
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Debug("http request",
			logging.String("method", c.Request.Method),
			logging.String("route", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(started)))
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxEventBytes)
	body, err := c.GetRawData()
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return body, nil
}
