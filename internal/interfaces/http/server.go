// Package http exposes the ingestion pipeline and the invoice store over a
// JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spendlyhq/invoice-ingest/internal/batch"
	"github.com/spendlyhq/invoice-ingest/internal/interfaces/ws"
	"github.com/spendlyhq/invoice-ingest/internal/repository"
	"github.com/spendlyhq/invoice-ingest/internal/storage"
)

// Config holds HTTP server configuration
type Config struct {
	Host          string
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxUploadSize int64
}

// Server is the HTTP front of the service
type Server struct {
	config     Config
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// NewServer creates the HTTP server and wires all routes
func NewServer(
	config Config,
	coordinator *batch.Coordinator,
	repo *repository.InvoiceRepository,
	files storage.FileStore,
	wsHandler *ws.Handler,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	server := &Server{
		config: config,
		router: router,
		logger: logger,
	}

	router.Use(gin.Recovery())
	router.Use(server.loggingMiddleware())
	router.Use(corsMiddleware())

	handlers := NewHandlers(coordinator, repo, files, config.MaxUploadSize, logger)

	router.GET("/health", handlers.HealthCheck)
	router.GET("/ws", wsHandler.Serve)

	api := router.Group("/api")
	{
		api.POST("/uploads", handlers.UploadBatch)
		api.GET("/uploads/:runId", handlers.GetRun)
		api.POST("/uploads/:runId/pause", handlers.PauseRun)
		api.POST("/uploads/:runId/resume", handlers.ResumeRun)
		api.POST("/uploads/:runId/cancel", handlers.CancelRun)

		api.GET("/invoices", handlers.ListInvoices)
		api.GET("/invoices/:id", handlers.GetInvoice)
		api.DELETE("/invoices/:id", handlers.DeleteInvoice)

		api.GET("/analytics/summary", handlers.AnalyticsSummary)
		api.GET("/export/invoices", handlers.ExportInvoices)
	}

	return server
}

// loggingMiddleware logs one line per request
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// corsMiddleware allows the browser dashboard to call the API from any origin
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Start runs the server until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
