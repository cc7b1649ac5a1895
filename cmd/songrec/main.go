// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

// Package main is the songrec command.
//
// songrec recommends tracks from a candidate list by comparing their audio
// features with a user's taste, using feature similarity, k-means cluster
// membership, or a blend of both.
//
// # Subcommands
//
//	songrec [serve]                                   run the HTTP API under the supervisor tree
//	songrec recommend -user alice -candidates a,b,c   one-shot recommendations printed as JSON
//	songrec fit-models -tracks tracks.txt             fit and store the cluster model
//	songrec clear-cache                               empty the persistent catalog cache
//	songrec users list | create -username -email      manage user profiles
//
// # Configuration
//
// Configuration is layered (highest priority wins):
//   - Environment variables, also read from a .env file when present
//   - Config file (config.yaml, or the path in CONFIG_PATH)
//   - Built-in defaults
//
// Catalog access needs SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. serve stops accepting
// connections and waits up to server.shutdown_timeout for in-flight
// requests before exiting.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tomtom215/songrec/internal/config"
	"github.com/tomtom215/songrec/internal/logging"
)

// errUsage is returned for unknown subcommands and bad flags.
var errUsage = errors.New("usage: songrec [serve|recommend|fit-models|clear-cache|users] [flags]")

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn().Err(err).Msg("Failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, os.Args[1:])
	stop()

	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("songrec failed")
	}
}

// run dispatches to the subcommand named by args[0]; serve is the default.
func run(ctx context.Context, cfg *config.Config, args []string) error {
	name := "serve"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}

	switch name {
	case "serve":
		return runServe(ctx, cfg, args)
	case "recommend":
		return runRecommend(ctx, cfg, args, os.Stdout)
	case "fit-models":
		return runFitModels(ctx, cfg, args, os.Stdout)
	case "clear-cache":
		return runClearCache(ctx, cfg, args, os.Stdout)
	case "users":
		return runUsers(ctx, cfg, args, os.Stdout)
	case "-h", "--help", "help":
		fmt.Fprintln(os.Stdout, errUsage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}
