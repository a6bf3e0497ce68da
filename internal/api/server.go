// Package api exposes the webhook endpoint, the fallback metadata endpoint
// and the operator routes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"zoiner/internal/domain"
	"zoiner/internal/metadata"
	"zoiner/internal/storage"
	"zoiner/internal/worker"
)

const banner = "Zoiner bot is running"

// WebhookCounter counts inbound webhook deliveries by event type.
type WebhookCounter interface {
	WebhookReceived(eventType string)
}

type Server struct {
	echo       *echo.Echo
	dispatcher worker.Dispatcher
	repo       storage.LaunchRepository
	counter    WebhookCounter
	metrics    http.Handler
	sse        *SSEBroker
	log        *zap.Logger
}

type Option func(*Server)

func WithLaunches(repo storage.LaunchRepository) Option {
	return func(s *Server) { s.repo = repo }
}

func WithMetrics(counter WebhookCounter, handler http.Handler) Option {
	return func(s *Server) {
		s.counter = counter
		s.metrics = handler
	}
}

func NewServer(d worker.Dispatcher, log *zap.Logger, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger(log))

	s := &Server{
		echo:       e,
		dispatcher: d,
		sse:        NewSSEBroker(),
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()

	return s
}

func (s *Server) routes() {
	s.echo.GET("/", s.index)
	s.echo.GET("/health", s.health)
	s.echo.GET("/metadata", s.metadata)
	s.echo.GET("/webhook", s.verifyWebhook)
	s.echo.POST("/webhook", s.webhook)
	s.echo.GET("/api/launches", s.getLaunches)
	s.echo.GET("/api/launches/:hash", s.getLaunch)
	s.echo.GET("/api/stats", s.stats)
	s.echo.GET("/api/events", s.events)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics))
	}
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Broadcast(msg string) {
	s.sse.Broadcast(msg)
}

func (s *Server) index(c echo.Context) error {
	return c.String(http.StatusOK, banner)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) metadata(c echo.Context) error {
	return c.JSON(http.StatusOK, metadata.FromQuery(c.QueryParams()))
}

func (s *Server) verifyWebhook(c echo.Context) error {
	challenge := c.QueryParam("challenge")
	if challenge == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing challenge"})
	}
	return c.JSON(http.StatusOK, map[string]string{"challenge": challenge})
}

// webhook acknowledges every delivery. The pipeline runs after the response
// is decided and never influences it.
func (s *Server) webhook(c echo.Context) error {
	ack := map[string]string{"status": "ok"}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		s.log.Warn("read webhook body", zap.Error(err))
		return c.JSON(http.StatusOK, ack)
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Warn("malformed webhook", zap.Error(err))
		return c.JSON(http.StatusOK, ack)
	}

	if s.counter != nil {
		s.counter.WebhookReceived(event.Type)
	}

	if event.Type != domain.EventCastCreated || event.Data.Hash == "" {
		s.log.Debug("webhook ignored", zap.String("type", event.Type))
		return c.JSON(http.StatusOK, ack)
	}

	s.log.Info("cast received", zap.String("hash", event.Data.Hash))
	s.dispatcher.Dispatch(event)

	return c.JSON(http.StatusOK, ack)
}

func (s *Server) getLaunches(c echo.Context) error {
	if s.repo == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "launch log disabled"})
	}

	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	launches, err := s.repo.FindAll(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if launches == nil {
		launches = []storage.Launch{}
	}
	return c.JSON(http.StatusOK, launches)
}

func (s *Server) getLaunch(c echo.Context) error {
	if s.repo == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "launch log disabled"})
	}

	l, err := s.repo.FindByCast(c.Request().Context(), c.Param("hash"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if l == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}
	return c.JSON(http.StatusOK, l)
}

func (s *Server) stats(c echo.Context) error {
	if s.repo == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "launch log disabled"})
	}

	total, deployed, failed, err := s.repo.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]int{
		"total":    total,
		"deployed": deployed,
		"failed":   failed,
	})
}

func (s *Server) events(c echo.Context) error {
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")

	ch := s.sse.Subscribe()
	defer s.sse.Unsubscribe(ch)

	fmt.Fprintf(c.Response(), ": ping\n\n")
	c.Response().Flush()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case msg := <-ch:
			fmt.Fprintf(c.Response(), "event: outcome\n")
			for _, line := range strings.Split(msg, "\n") {
				fmt.Fprintf(c.Response(), "data: %s\n", line)
			}
			fmt.Fprintf(c.Response(), "\n")
			c.Response().Flush()
		}
	}
}

func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			)
			return nil
		},
	})
}
