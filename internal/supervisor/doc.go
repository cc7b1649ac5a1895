// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

/*
Package supervisor runs the long-lived songrec services under suture v4.

The tree has three layers so that a failing service restarts without taking
down unrelated ones:

	RootSupervisor ("songrec")
	├── DataSupervisor ("data-layer")
	│   └── ModelReloadService
	├── MessagingSupervisor ("messaging-layer")
	│   └── QuotaConsumerService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events (restarts, backoff, timeouts) are logged through sutureslog
using the slog bridge from the logging package.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewModelReloadService(loader, scorer, reloadCfg, logger))
	tree.AddMessagingService(services.NewQuotaConsumerService(consumer, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Restart Policy

A service that returns from Serve before its context is canceled is
restarted. Once FailureThreshold failures accumulate (decaying at
FailureDecay per second) the supervisor waits FailureBackoff before the next
restart. ShutdownTimeout bounds how long Serve waits for services to stop.

See the services subpackage for the individual wrappers.
*/
package supervisor
