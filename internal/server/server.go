// Package server exposes the workday widget and calendar downloads over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/threadsokc/workday-calendar/internal/calendar"
	"github.com/threadsokc/workday-calendar/internal/config"
	"github.com/threadsokc/workday-calendar/internal/event"
	"github.com/threadsokc/workday-calendar/internal/logger"
	"github.com/threadsokc/workday-calendar/internal/nonce"
	"github.com/threadsokc/workday-calendar/internal/responder"
	"github.com/threadsokc/workday-calendar/internal/workday"
)

// Routes served by the router.
const (
	PathWidget   = "/"
	PathCalendar = "/calendar"
	PathWorkday  = "/calendar/workday.ics"
	PathHealth   = "/health"
	PathMetrics  = "/metrics"
)

// Metric names.
const (
	MetricGenerated = "calendar.generated"
	MetricRejected  = "calendar.rejected."
	MetricRequest   = "http.request"
	MetricUptime    = "server.uptime_seconds"
)

const shutdownTimeout = 15 * time.Second

// Options wires a Server. Config and Issuer are required.
type Options struct {
	Config  *config.Config
	Issuer  *nonce.Issuer
	Encoder *calendar.Encoder
	Logger  *logger.Logger
	Metrics *logger.Metrics
	// Now stamps generated documents. Defaults to time.Now.
	Now func() time.Time
}

// Server serves the widget page and calendar attachments.
type Server struct {
	cfg     *config.Config
	issuer  *nonce.Issuer
	encoder *calendar.Encoder
	builder *workday.Builder
	log     *logger.Logger
	metrics *logger.Metrics
	now     func() time.Time
	started time.Time
	router  *gin.Engine
}

// New builds a server and its router.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server: config is nil")
	}
	if opts.Issuer == nil {
		return nil, errors.New("server: nonce issuer is nil")
	}

	cfg := opts.Config
	if opts.Encoder == nil {
		opts.Encoder = calendar.NewEncoder(calendar.Options{
			Vendor:    cfg.Calendar.Vendor,
			Product:   cfg.Calendar.Product,
			UIDDomain: cfg.Calendar.UIDDomain,
		})
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = logger.DefaultMetrics()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		cfg:     cfg,
		issuer:  opts.Issuer,
		encoder: opts.Encoder,
		builder: builderFor(cfg),
		log:     opts.Logger.With(logger.Fields{"component": "server"}),
		metrics: opts.Metrics,
		now:     opts.Now,
		started: time.Now(),
	}
	s.router = s.routes()
	return s, nil
}

func builderFor(cfg *config.Config) *workday.Builder {
	b := workday.NewBuilder(cfg.Timezone)
	w := cfg.Widget
	if w.Summary != "" {
		b.Summary = w.Summary
	}
	if w.Address != "" {
		b.Address = w.Address
	}
	if w.URI != "" {
		b.URI = w.URI
	}
	b.Description = w.Description
	if w.Start != "" {
		b.StartClock = w.Start
	}
	if w.End != "" {
		b.EndClock = w.End
	}
	return b
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET(PathWidget, s.getWidget)
	r.POST(PathCalendar, s.postCalendar)
	r.GET(PathWorkday, s.getWorkday)
	r.GET(PathHealth, s.getHealth)
	r.GET(PathMetrics, s.getMetrics)
	return r
}

// Handler returns the HTTP handler for the server's routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout.Std(),
		WriteTimeout: s.cfg.WriteTimeout.Std(),
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("listening", logger.Fields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		s.metrics.RecordTiming(MetricRequest, elapsed)
		s.log.Info("request", logger.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": elapsed.String(),
		})
	}
}

func (s *Server) getWidget(c *gin.Context) {
	settings := workday.Settings{
		Title:     s.cfg.Widget.Title,
		Date:      s.cfg.Widget.Date,
		ExtraInfo: s.cfg.Widget.ExtraInfo,
	}
	token := s.issuer.Create(s.cfg.Nonce.Action)

	view, err := s.builder.View(settings, PathCalendar, s.cfg.Nonce.Field, token)
	if err != nil {
		// A bad widget date is a deployment problem, not a client one
		s.log.Error("building widget", nil, err)
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	var buf bytes.Buffer
	if err := workday.Render(&buf, view); err != nil {
		s.log.Error("rendering widget", nil, err)
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) postCalendar(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		s.reject(c, &event.ValidationError{Field: "form", Err: event.ErrInvalid, Detail: err.Error()})
		return
	}
	form := c.Request.PostForm

	if err := s.issuer.Verify(form.Get(s.cfg.Nonce.Field), s.cfg.Nonce.Action); err != nil {
		s.reject(c, err)
		return
	}

	rec, err := event.FieldsFromValues(form).Record(s.cfg.Timezone)
	if err != nil {
		s.reject(c, err)
		return
	}
	s.send(c, rec)
}

func (s *Server) getWorkday(c *gin.Context) {
	rec, err := s.builder.Record(s.cfg.Widget.Date)
	if err != nil {
		// Report as internal: the request carried no input
		s.reject(c, fmt.Errorf("workday record: %v", err))
		return
	}
	s.send(c, rec)
}

func (s *Server) send(c *gin.Context, rec event.Record) {
	body, err := s.encoder.Encode(rec, s.now())
	if err != nil {
		s.reject(c, err)
		return
	}
	if err := responder.Write(c.Writer, body, rec.FileName()); err != nil {
		if c.Writer.Written() {
			s.log.Error("writing calendar", logger.Fields{"file_name": rec.FileName()}, err)
			return
		}
		s.reject(c, err)
		return
	}

	s.metrics.IncrCounter(MetricGenerated)
	s.log.Debug("calendar generated", logger.Fields{
		"file_name": rec.FileName(),
		"length":    rec.Duration().String(),
	})
}

// reject writes the failure response and counts it by kind.
func (s *Server) reject(c *gin.Context, err error) {
	status := responder.StatusFor(err)
	kind := "internal"
	fields := logger.Fields{"status": status}
	var ve *event.ValidationError
	switch {
	case status == http.StatusForbidden:
		kind = "unauthorized"
	case errors.As(err, &ve):
		kind = "invalid"
		fields["field"] = ve.Field
	}

	s.metrics.IncrCounter(MetricRejected + kind)
	if status == http.StatusInternalServerError {
		s.log.Error("calendar failed", fields, err)
	} else {
		fields["reason"] = err.Error()
		s.log.Warn("calendar rejected", fields)
	}

	responder.Error(c.Writer, err)
	c.Abort()
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getMetrics(c *gin.Context) {
	s.metrics.SetGauge(MetricUptime, time.Since(s.started).Seconds())
	c.JSON(http.StatusOK, s.metrics.GetSnapshot())
}
