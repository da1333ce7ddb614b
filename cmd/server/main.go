// Demo server showing how to put the ratefence limiter in front of a
// handler. It serves the current time on "/" behind the rate limit;
// when a client exceeds its budget it receives 429 with retry advice,
// and clients whose address yields no identity receive 503.
//
// Without a config file the documented defaults apply: 100 requests
// per hour per client, listening on :9980.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ratefence/ratefence/api"
	"github.com/ratefence/ratefence/metrics"
	"github.com/ratefence/ratefence/pkg/ratefence"
	"github.com/ratefence/ratefence/stats"
)

func main() {
	listen := flag.String("listen", "", "Listen address (overrides the config file)")
	configFile := flag.String("config", "", "Path to YAML configuration file")
	redisAddr := flag.String("redis", "", "Redis address for fleet-wide stats (optional)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	config := ratefence.NewConfig()
	if *configFile != "" {
		loaded, err := ratefence.LoadConfigFromFile(*configFile)
		if err != nil {
			logger.Error("failed to load config", "path", *configFile, "error", err)
			os.Exit(1)
		}
		config = loaded
	}
	if *listen != "" {
		config.Listen = *listen
	}

	memStats := stats.NewMemory()
	var recorder stats.Recorder = memStats
	if *redisAddr != "" {
		redisStats := stats.NewRedis(stats.RedisConfig{Addr: *redisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisStats.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", "addr", *redisAddr, "error", err)
			os.Exit(1)
		}
		defer redisStats.Close()
		logger.Info("shipping stats to redis", "addr", *redisAddr)
		recorder = stats.Multi(memStats, redisStats)
	}

	limiter, err := ratefence.NewLimiter(
		ratefence.WithConfig(config),
		ratefence.WithStats(recorder),
		ratefence.WithMetrics(metrics.New()),
	)
	if err != nil {
		logger.Error("failed to create limiter", "error", err)
		os.Exit(1)
	}

	logger.Info("limiter ready",
		"requests", config.Limit.Requests,
		"period_seconds", config.Limit.Period,
		"extractor", config.Extractor,
		"tracked_clients", len(config.TrackedClients))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *configFile != "" {
		go watchTrackedClients(ctx, *configFile, limiter, logger)
	}

	checkHandler := api.NewHandler(limiter)

	mux := http.NewServeMux()
	mux.Handle("/", limiter.Middleware(http.HandlerFunc(timeHandler)))
	mux.HandleFunc("/check", checkHandler.CheckAdmission)
	mux.Handle("/stats", api.NewStatsHandler(memStats))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:    config.Listen,
		Handler: logRequests(logger, mux),
	}

	go func() {
		logger.Info("server started", "addr", config.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

// timeHandler returns an HTML document with the current date and time.
func timeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	now := time.Now().Format("2006-01-02 15:04:05")

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, "<html><head><title>ratefence demo server</title></head>"+
		"<body><p style=\"text-align: center; font-size: 48px;\">%s</p></body></html>", now)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "ratefence",
	})
}

// logRequests tags every request with an id and logs it.
func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)
		logger.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
