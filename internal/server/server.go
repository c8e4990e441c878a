// Package server is the reference HTTP backend for plans, stops and map documents.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"tripmate/internal/logging"
)

// Server serves the plan, stop and map endpoints over a SQL store.
type Server struct {
	db     *sqlx.DB
	log    *logging.Logger
	token  string
	tmpl   *template.Template
	engine *gin.Engine
}

// Config holds optional server settings.
type Config struct {
	// Token, when set, is required as a bearer token on every API request.
	Token string
}

// New builds a server and its routes.
func New(db *sqlx.DB, log *logging.Logger, cfg Config) (*Server, error) {
	tmpl, err := template.New("map.html").Funcs(templateFuncs).ParseFS(templatesFS, "templates/map.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse map template: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{db: db, log: log, token: cfg.Token, tmpl: tmpl, engine: gin.New()}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/", s.requireToken())
	{
		api.GET("/plan", s.listPlans)
		api.POST("/plan", s.createPlan)
		api.GET("/plan/:id", s.getPlan)
		api.PUT("/plan/:id", s.updatePlan)
		api.DELETE("/plan/:id", s.deletePlan)
		api.PUT("/plan/:id/dates", s.updatePlanDates)
		api.PUT("/plan/:id/stop-dates", s.updateStopDates)

		api.GET("/detail-plan", s.listStops)
		api.POST("/detail-plan", s.createStop)
		api.PUT("/detail-plan/:id", s.updateStop)
		api.DELETE("/detail-plan/:id", s.deleteStop)

		api.GET("/map/:planId", s.mapDocument)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Printf("server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Printf("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Printf("%s %s %d %s id=%s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Microsecond), c.GetHeader("X-Request-Id"))
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.token != "" && c.GetHeader("Authorization") != "Bearer "+s.token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
