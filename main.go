package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"safaisetu/config"
	"safaisetu/database"
	"safaisetu/handlers"
	"safaisetu/metrics"
	"safaisetu/middleware"
	"safaisetu/rabbitmq"
	"safaisetu/websocket"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const listenPath = "/api/v3/reports/listen"

func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetHandler(json.New(os.Stderr))
	} else {
		log.SetHandler(text.New(os.Stderr))
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

func main() {
	// Load configuration
	cfg := config.Load()
	setupLogging(cfg)
	metrics.Register()

	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := db.EnsureTables(ctx); err != nil {
		log.Fatalf("Failed to ensure tables: %v", err)
	}

	// Events are best effort, run without a broker if it is unreachable.
	var publisher handlers.EventPublisher
	pub, err := rabbitmq.NewPublisher(cfg.AMQPURL(), cfg.RabbitExchange, cfg.RabbitStatusRoutingKey)
	if err != nil {
		log.Warnf("RabbitMQ unavailable, lifecycle events will not be published: %v", err)
	} else {
		publisher = pub
		defer pub.Close()
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	h := handlers.NewHandlers(db, db, cfg, publisher, hub)
	router := setupRouter(cfg, h, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	stop()

	log.Info("Server exited")
}

func setupRouter(cfg *config.Config, h *handlers.Handlers, hub *websocket.Hub) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{listenPath})))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())

	// Request log
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	})

	limiter := middleware.NewRateLimiter(cfg.SubmitRatePerMinute, cfg.SubmitBurst)
	h.RegisterRoutes(router,
		middleware.AdminClaim([]byte(cfg.AdminJWTSecret), cfg.AdminJWTIssuer),
		limiter.Middleware())

	router.GET(listenPath, func(c *gin.Context) {
		websocket.ServeWs(hub, c.Writer, c.Request)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
