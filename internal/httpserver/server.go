package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/catalog"
	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// Server provides an HTTP API over the journal daemon.
type Server struct {
	addr      string
	svc       model.JournalService
	logger    *zap.Logger
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, svc model.JournalService, logger *zap.Logger) *Server {
	if addr == "" {
		addr = "127.0.0.1:3000"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		svc:    svc,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/enemies", s.handleEnemies)
	r.GET("/api/enemies/:slug", s.handleEnemy)
	r.GET("/api/notifications", s.handleDeliveries)
	r.POST("/api/notifications/send", s.handleSend)
	r.POST("/api/notifications/start", s.handleStart)
	r.GET("/open", s.handleOpen)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.routes(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()
	s.logger.Info("http api listening", zap.String("addr", listener.Addr().String()))

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).String(),
		"scheduler": s.svc.Status(),
	})
}

func (s *Server) handleEnemies(c *gin.Context) {
	enemies, err := s.svc.ListEnemies(c.Request.Context())
	if err != nil {
		s.logger.Warn("list enemies failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load enemies"})
		return
	}
	if enemies == nil {
		enemies = []model.Enemy{}
	}
	c.JSON(http.StatusOK, enemies)
}

func (s *Server) handleEnemy(c *gin.Context) {
	e, err := s.svc.GetEnemy(c.Request.Context(), c.Param("slug"))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "enemy not found"})
		return
	case err != nil:
		s.logger.Warn("get enemy failed", zap.String("slug", c.Param("slug")), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load enemy"})
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) handleDeliveries(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	recs, err := s.svc.RecentDeliveries(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read deliveries"})
		return
	}
	if recs == nil {
		recs = []model.DeliveryRecord{}
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) handleSend(c *gin.Context) {
	e, ok := s.svc.SendNotification(c.Request.Context())
	if !ok {
		c.JSON(http.StatusOK, gin.H{"delivered": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": true, "slug": e.Slug})
}

func (s *Server) handleStart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"started": s.svc.StartPeriodicNotifications()})
}

// handleOpen routes a notification deep link to an attached view, spawning
// one when none is attached.
func (s *Server) handleOpen(c *gin.Context) {
	slug := c.Query("enemy")
	target := "/"
	if slug != "" {
		target = model.DeepLink(slug)
	}
	if err := s.svc.OpenLink(target); err != nil {
		s.logger.Warn("open link failed", zap.String("url", target), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"url": target})
}
