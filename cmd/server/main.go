package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pawwatch/api/internal/board"
	"github.com/pawwatch/api/internal/clock"
	"github.com/pawwatch/api/internal/config"
	"github.com/pawwatch/api/internal/geo"
	"github.com/pawwatch/api/internal/handler"
	"github.com/pawwatch/api/internal/intake"
	"github.com/pawwatch/api/internal/logger"
	"github.com/pawwatch/api/internal/middleware"
	"github.com/pawwatch/api/internal/ratelimit"
	"github.com/pawwatch/api/internal/store"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := config.Load()
	l := logger.NewLogger("pawwatch-api", cfg.LogLevel)
	log := l.Entry()

	// Seed reports
	seed, err := store.LoadSeed(cfg.SeedFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load seed reports")
	}
	reports := store.New()
	reports.Seed(seed)
	log.WithField("reports", reports.Len()).Info("report store seeded")

	// Initialize Redis rate limiter
	var submitLimit gin.HandlerFunc
	redisCounter, err := ratelimit.NewRedisCounter(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("failed to connect to Redis, submissions are not rate limited")
		// Continue without rate limiting (fail-open)
	} else {
		defer redisCounter.Close()
		limiter := ratelimit.NewLimiter(redisCounter, map[string]ratelimit.Rule{
			ratelimit.ActionSubmit: {Limit: cfg.SubmitRateLimit, Window: cfg.SubmitRateWindow},
		})
		submitLimit = middleware.RateLimit(limiter, ratelimit.ActionSubmit, log)
	}

	clk := clock.Real()
	in := intake.New(reports, clk, geo.NewJitterer(cfg.JitterSeed), intake.Config{
		Delay:  cfg.SubmitDelay,
		Center: geo.Point{Lat: cfg.FallbackLat, Lng: cfg.FallbackLng},
	}, log)
	b := board.New(reports, in, clk, log)

	// Idle session sweeper
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper := board.NewSweeper(b, board.SweeperConfig{
		Interval:    cfg.SweepInterval,
		IdleTimeout: cfg.SessionIdleTimeout,
	}, log)
	go sweeper.Start(ctx)

	// Setup router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(l))
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORS(cfg.FrontendURL))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		redisStatus := "disabled"
		if redisCounter != nil {
			redisStatus = "ok"
			if err := redisCounter.Ping(c.Request.Context()); err != nil {
				redisStatus = "unavailable"
			}
		}
		c.JSON(200, gin.H{
			"status":   "ok",
			"reports":  reports.Len(),
			"sessions": b.Len(),
			"redis":    redisStatus,
		})
	})

	// Sweeper status
	r.GET("/sweeper/status", func(c *gin.Context) {
		c.JSON(200, sweeper.GetStatus())
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(r, handler.Handlers{
		Sessions:    handler.NewSessionHandler(b, log),
		Reports:     handler.NewReportHandler(reports),
		Export:      handler.NewExportHandler(reports),
		Events:      handler.NewEventsHandler(b, handler.HeartbeatInterval, log),
		SubmitLimit: submitLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	sweeper.Stop()
	cancel()
	b.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	// Accepted submissions always commit
	if err := in.Wait(shutdownCtx); err != nil {
		log.WithError(err).Warn("pending submissions did not finish before shutdown")
	}

	log.Info("server exited")
}
