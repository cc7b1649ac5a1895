// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

/*
Package services provides suture.Service wrappers for songrec components.

Each wrapper implements suture.Service and fmt.Stringer:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts http.ErrServerClosed to a clean exit

Model Reload (ModelReloadService):
  - Installs the newest persisted cluster model into the cluster scorer
  - Polls the model store on an interval and swaps only on a new version
  - Keeps serving the current model when a load fails

Quota Consumer (QuotaConsumerService):
  - Runs the events.QuotaConsumer that decrements user quotas after each
    generated recommendation
  - Returns an error when the subscription closes so the supervisor
    resubscribes
*/
package services
