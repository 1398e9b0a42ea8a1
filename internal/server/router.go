package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Config holds HTTP server settings.
type Config struct {
	Addr              string        `yaml:"addr"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxConcurrentRuns int64         `yaml:"maxConcurrentRuns"`
}

// NewRouter wires the routes. /health stays reachable without credentials.
func NewRouter(cfg Config, runner Runner) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(TraceContext())
	router.Use(RequestLogger())

	router.GET("/health", Health)

	rc := NewRunController(runner, cfg.MaxConcurrentRuns)
	api := router.Group("/api/v1", BasicAuth(cfg.Username, cfg.Password))
	api.POST("/run", rc.Run)
	api.GET("/profiles", rc.Profiles)
	return router
}

// NewHTTPServer builds the http.Server around the router.
func NewHTTPServer(cfg Config, runner Runner) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewRouter(cfg, runner),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
