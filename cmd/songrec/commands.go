// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tomtom215/songrec/internal/api"
	"github.com/tomtom215/songrec/internal/catalog"
	"github.com/tomtom215/songrec/internal/config"
	"github.com/tomtom215/songrec/internal/logging"
	"github.com/tomtom215/songrec/internal/recommend"
	"github.com/tomtom215/songrec/internal/recommend/algorithms"
	"github.com/tomtom215/songrec/internal/recommend/storage"
	"github.com/tomtom215/songrec/internal/userstore"
	"github.com/tomtom215/songrec/internal/validation"
)

var errQuotaExhausted = errors.New("recommendation quota exhausted")

// runRecommend generates one set of recommendations and prints it as JSON.
// The quota is decremented through the same completion event path as serve.
func runRecommend(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
	username := fs.String("user", "", "username (required)")
	candidateList := fs.String("candidates", "", "comma separated track ids or URIs (required)")
	n := fs.Int("n", defaultCount(cfg), "number of recommendations")
	algorithmName := fs.String("algorithm", "", "similarity, clustering or hybrid (default from config)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if !validation.IsUsername(*username) {
		return fmt.Errorf("%w: -user must be 3-30 letters, digits or underscores", errUsage)
	}
	candidates, err := parseCandidates(*candidateList)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	algorithm, err := recommend.ParseAlgorithm(*algorithmName)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	a.loadClusterModel(ctx)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if _, err := a.startConsumer(consumerCtx); err != nil {
		return fmt.Errorf("start quota consumer: %w", err)
	}

	if err := a.users.RecordLogin(ctx, *username); err != nil {
		return err
	}
	user, err := a.users.GetUser(ctx, *username)
	if err != nil {
		return err
	}
	if user.Count <= 0 {
		return fmt.Errorf("%w for %s", errQuotaExhausted, user.Username)
	}

	reqCtx := logging.ContextWithNewRequestID(ctx)
	result, err := a.engine.GenerateRecommendations(reqCtx, user, candidates, *n, algorithm)
	if err != nil {
		return err
	}

	remaining := user.Count - 1
	if refreshed, err := a.users.GetUser(ctx, *username); err == nil {
		remaining = refreshed.Count
	}
	return writeJSON(out, api.NewRecommendResponse(result, remaining))
}

// fitSummary is printed by fit-models.
type fitSummary struct {
	Version        int     `json:"version"`
	Clusters       int     `json:"clusters"`
	Samples        int     `json:"samples"`
	Skipped        int     `json:"skipped"`
	TrainingTimeMs float64 `json:"training_time_ms"`
	Dir            string  `json:"dir"`
}

// runFitModels fetches features for a track list and/or a playlist, fits the
// cluster model and stores it. A running server picks the new version up on
// its next reload.
func runFitModels(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("fit-models", flag.ContinueOnError)
	tracksPath := fs.String("tracks", "", "file with one track id or URI per line")
	playlist := fs.String("playlist", "", "playlist id or URI whose tracks are added to the training set")
	k := fs.Int("k", cfg.Recommend.Cluster.K, "number of clusters")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if *tracksPath == "" && *playlist == "" {
		return fmt.Errorf("%w: -tracks or -playlist is required", errUsage)
	}
	if *playlist != "" {
		if _, err := catalog.NormalizePlaylistID(*playlist); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
	}

	var uris []string
	if *tracksPath != "" {
		f, err := os.Open(*tracksPath)
		if err != nil {
			return fmt.Errorf("open track list: %w", err)
		}
		uris, err = readTrackList(f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}

	logger := logging.WithComponent("fit-models")
	cat, err := openCatalog(ctx, &cfg.Catalog, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing catalog cache")
		}
	}()

	if *playlist != "" {
		fromPlaylist, err := playlistURIs(ctx, cat, *playlist)
		if err != nil {
			return err
		}
		uris = mergeURIs(uris, fromPlaylist)
		logger.Info().Str("playlist", *playlist).Int("tracks", len(fromPlaylist)).Msg("Added playlist tracks")
	}
	if len(uris) == 0 {
		return errors.New("no tracks to fit")
	}

	store, err := storage.NewStore(cfg.Models.Dir)
	if err != nil {
		return fmt.Errorf("open model store: %w", err)
	}

	summary, err := fitAndSave(ctx, cat, store, uris, *k, cfg.Models.KeepVersions)
	if err != nil {
		return err
	}
	logger.Info().
		Int("version", summary.Version).
		Int("samples", summary.Samples).
		Int("skipped", summary.Skipped).
		Msg("Cluster model saved")
	return writeJSON(out, summary)
}

// fitAndSave fits a model over the features of uris and stores it, pruning
// versions beyond keep.
func fitAndSave(ctx context.Context, cat catalog.Catalog, store *storage.Store, uris []string, k, keep int) (*fitSummary, error) {
	logger := logging.WithComponent("fit-models")

	vectors, skipped := featureVectors(cat.FetchAudioFeaturesBatch(ctx, uris), logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	model, err := algorithms.FitClusterModel(ctx, vectors, k, logger)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	version, err := algorithms.SaveClusterModel(ctx, store, model, len(vectors), elapsed)
	if err != nil {
		return nil, err
	}
	if keep > 0 {
		for _, name := range []string{storage.ModelKMeans, storage.ModelScaler} {
			if err := store.Prune(ctx, name, keep); err != nil {
				logger.Warn().Err(err).Str("model", name).Msg("Failed to prune old model versions")
			}
		}
	}

	return &fitSummary{
		Version:        version,
		Clusters:       model.K(),
		Samples:        len(vectors),
		Skipped:        skipped,
		TrainingTimeMs: float64(elapsed.Microseconds()) / 1000,
		Dir:            store.Dir(),
	}, nil
}

// runClearCache empties the persistent catalog cache. The engine's
// in-memory cache belongs to a running server; clear it through the API.
func runClearCache(_ context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("clear-cache", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if !cfg.Catalog.CacheEnabled || cfg.Catalog.CachePath == "" {
		_, err := fmt.Fprintln(out, "catalog cache is not persistent, nothing to clear")
		return err
	}

	db, err := catalog.OpenCache(cfg.Catalog.CachePath)
	if err != nil {
		return err
	}
	cache := catalog.NewCachedCatalog(nil, db, cfg.Catalog.CacheTTL, logging.Logger())
	defer func() { _ = cache.Close() }()

	if err := cache.Clear(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "cleared catalog cache at %s\n", cfg.Catalog.CachePath)
	return err
}

// runUsers lists or creates user profiles.
func runUsers(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: users list | users create -username NAME [-email ADDR]", errUsage)
	}

	store, err := userstore.Open(ctx, &cfg.Database, logging.WithComponent("cli"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	switch args[0] {
	case "list":
		users, err := store.ListUsers(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, users)

	case "create":
		fs := flag.NewFlagSet("users create", flag.ContinueOnError)
		username := fs.String("username", "", "username (required)")
		email := fs.String("email", "", "email address")
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		user, err := store.CreateUser(ctx, *username, *email)
		if err != nil {
			return err
		}
		return writeJSON(out, user)

	default:
		return fmt.Errorf("%w: unknown users command %q", errUsage, args[0])
	}
}

func defaultCount(cfg *config.Config) int {
	if n := cfg.Recommend.Limits.DefaultRecommendations; n > 0 {
		return n
	}
	return api.DefaultRecommendationCount
}
