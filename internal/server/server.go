// Package server exposes clustering views over HTTP, so a browser map can
// post its region changes and draw the resulting clusters.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cluster "github.com/MadAppGang/animcluster"
	"github.com/MadAppGang/animcluster/internal/timeutil"
	"github.com/MadAppGang/animcluster/internal/tween"
)

// Config of a Server. Zero values are usable: default options, unlimited
// views, no metrics, slog.Default and the real clock. A non-nil Options is
// used as is, all-zero included.
type Config struct {
	Options  *cluster.Options
	MaxViews int
	Metrics  *cluster.Metrics
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	Clock    timeutil.Clock
}

// Server keeps one Loop per view
type Server struct {
	cfg    Config
	logger *slog.Logger
	clock  timeutil.Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	views map[uuid.UUID]*session
}

type session struct {
	loop    *cluster.Loop
	surface *tween.Surface
	cancel  context.CancelFunc
	created time.Time
}

// New creates a server, views live until deleted or until Close
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	opts := cluster.DefaultOptions()
	if cfg.Options != nil {
		opts = *cfg.Options
	}
	cfg.Options = &opts
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		clock:  cfg.Clock,
		ctx:    ctx,
		cancel: cancel,
		views:  make(map[uuid.UUID]*session),
	}
}

// Handler returns the gin engine with all routes
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	// Enable CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "views": s.Len()})
	})
	if s.cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	views := r.Group("/views")
	views.POST("", s.createView)
	views.GET("/:id", s.withSession(s.getView))
	views.DELETE("/:id", s.deleteView)
	views.PUT("/:id/region", s.withSession(s.postRegion))
	views.POST("/:id/region/sync", s.withSession(s.syncRegion))
	views.POST("/:id/press", s.withSession(s.press))
	views.GET("/:id/fit", s.withSession(s.fit))
	return r
}

// Len is the number of live views
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Close stops every view loop and waits for them
func (s *Server) Close() {
	s.cancel()
	s.mu.Lock()
	views := s.views
	s.views = make(map[uuid.UUID]*session)
	s.mu.Unlock()

	for _, sess := range views {
		<-sess.loop.Done()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.clock.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", float64(s.clock.Since(start))/float64(time.Millisecond),
		)
	}
}

func (s *Server) withSession(h func(*gin.Context, uuid.UUID, *session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid view id"})
			return
		}
		s.mu.Lock()
		sess, ok := s.views[id]
		s.mu.Unlock()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "View not found"})
			return
		}
		h(c, id, sess)
	}
}

// do runs fn on the view loop and maps a stopped loop to 404
func (s *Server) do(c *gin.Context, sess *session, fn func(*cluster.View)) bool {
	if err := sess.loop.Do(fn); err != nil {
		if errors.Is(err, cluster.ErrLoopStopped) {
			c.JSON(http.StatusNotFound, gin.H{"error": "View not found"})
			return false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return false
	}
	return true
}
