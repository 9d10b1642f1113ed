// Command rategate runs a small HTTP gateway that rate limits every request
// against a shared Redis quota, with per-path routes, Prometheus metrics, and
// live config updates over Redis Pub/Sub.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rategate/rategate/config"
	"github.com/rategate/rategate/confsync"
	"github.com/rategate/rategate/httplimit"
	"github.com/rategate/rategate/limiter"
)

func main() {
	configPath := flag.String("config", "", "path to rategate.yaml (optional)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	defaultConfig := cfg.RateLimiter.DefaultConfig()
	resolver, err := limiter.NewResolver(cfg.RateLimiter.RouteTable(), &defaultConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid rate limit configuration")
	}

	evaluator := limiter.NewRedisEvaluator(client, limiter.WithEvalTimeout(cfg.Redis.EvalTimeout))
	recorder := limiter.NewPrometheusRecorder(prometheus.DefaultRegisterer)
	rl := limiter.New(resolver, evaluator,
		limiter.WithHeaders(cfg.RateLimiter.HeaderConfig()),
		limiter.WithRecorder(recorder),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Apply per-route config changes published by whoever owns configuration.
	listener := confsync.NewListener(client, resolver,
		confsync.WithListenChannel(cfg.RateLimiter.UpdateChannel))
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("config update listener exited")
		}
	}()

	mw := httplimit.New(rl, "", httplimit.IPKeyResolver{},
		httplimit.WithRouteFunc(func(r *http.Request) string { return r.URL.Path }))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})))

	server := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.Server.Addr).Str("redis", cfg.Redis.Addr).Msg("rategate listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}
