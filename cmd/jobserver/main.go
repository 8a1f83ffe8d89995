package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"apexgrab/internal/infra"
	"apexgrab/internal/infra/geoip"
	"apexgrab/internal/jobserver"
)

const janitorInterval = time.Minute

func main() {
	infra.LoadDotEnv()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, nil)

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := jobserver.NewRegistry(cfg.JobDuration, cfg.JobTTL, nil)
	go registry.RunJanitor(ctx, janitorInterval, func(n int) {
		logger.Info().Int("evicted", n).Msg("expired jobs removed")
	})

	router := jobserver.NewRouter(jobserver.NewApp(registry), jobserver.RouterOptions{
		Logger:          logger,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CountryLookup:   resolver.Lookup(),
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Dur("job_duration", cfg.JobDuration).
			Msg("job server listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
