// Package api exposes templates, generation and work items over JSON HTTP.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/caretaker/internal/generate"
	"github.com/zulandar/caretaker/internal/logging"
	"github.com/zulandar/caretaker/internal/usertask"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB          *gorm.DB
	Port        int
	DefaultTime string
	Log         *logrus.Entry
	Out         io.Writer
}

// Server bundles the collaborators every handler needs.
type Server struct {
	db        *gorm.DB
	generator *generate.Generator
	machine   *usertask.Machine
	log       *logrus.Entry
}

// NewServer wires a Server from opts.
func NewServer(opts StartOpts) *Server {
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	defaultTime := opts.DefaultTime
	if defaultTime == "" {
		defaultTime = "08:00"
	}
	return &Server{
		db:        opts.DB,
		generator: generate.New(opts.DB, defaultTime, log),
		machine:   usertask.New(opts.DB, log),
		log:       log,
	}
}

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	registerRoutes(router, s)
	return router
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("api: db is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           NewServer(opts).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}
