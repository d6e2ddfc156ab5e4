// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package logging provides the gateway's zerolog-based logging.

A single global logger is configured once from the log section of the
configuration:

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	logging.Info().Str("zone", zone).Msg("Connected to catalog")
	logging.Ctx(ctx).Error().Err(err).Msg("Background task failed")

Ctx attaches the request ID placed on the context by the HTTP middleware, so
log lines written from background tasks can be matched to the request that
scheduled them.

SlogHandler bridges slog to zerolog for the supervisor's event hook. The
audit helpers record login and identity-resolution events with masked
tokens.
*/
package logging
