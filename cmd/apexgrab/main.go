package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"apexgrab/internal/cli"
	"apexgrab/internal/consent"
	"apexgrab/internal/infra"
	"apexgrab/internal/storage"
)

func main() {
	infra.LoadDotEnv()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "apexgrab:", err)
		os.Exit(2)
	}
	// stderr carries the progress bar; keep routine logs out of it.
	logger := infra.NewLogger(cfg.AppEnv, os.Stderr)
	if cfg.AppEnv != "development" {
		logger = logger.Level(zerolog.WarnLevel)
	}

	state, err := storage.NewFileStore(cfg.StateDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.StateDir).Msg("state directory unavailable")
	}
	gate, err := consent.Load(consent.NewStore(state, cfg.SessionKey))
	if err != nil {
		logger.Warn().Err(err).Msg("consent record unreadable, asking again")
	}

	if err := cli.Execute(cli.Deps{Config: cfg, Logger: &logger, Consent: gate}, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "apexgrab:", err)
		os.Exit(1)
	}
}
