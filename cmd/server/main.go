// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/irods-gateway/internal/api"
	"github.com/tomtom215/irods-gateway/internal/auth"
	"github.com/tomtom215/irods-gateway/internal/authz"
	"github.com/tomtom215/irods-gateway/internal/catalog"
	"github.com/tomtom215/irods-gateway/internal/config"
	"github.com/tomtom215/irods-gateway/internal/endpoints"
	"github.com/tomtom215/irods-gateway/internal/irods"
	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/stash"
	"github.com/tomtom215/irods-gateway/internal/supervisor"
	"github.com/tomtom215/irods-gateway/internal/supervisor/services"
)

// Set with -ldflags "-X main.build=...".
var (
	version = "0.2.0"
	build   = "dev"
)

//nolint:gocyclo // sequential setup steps
func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("irods-http-api %s (%s)\n", version, build)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("build", build).
		Str("zone", cfg.IRODSClient.Zone).
		Bool("compatibility", cfg.IRODSClient.EnableCompatibility).
		Msg("Starting iRODS HTTP API")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// === BACKEND ===

	client := cfg.IRODSClient
	cat, err := catalog.Open(ctx, catalog.Config{
		Path:           client.Catalog.Path,
		Zone:           client.Zone,
		Host:           client.Host,
		ConnectionInfo: fmt.Sprintf("%s:%d", client.Host, client.Port),
		AdminUsername:  client.ProxyAdminAccount.Username,
		AdminPassword:  client.ProxyAdminAccount.Password,
		Authz: authz.Config{
			ModelPath:  client.Catalog.PolicyModel,
			PolicyPath: client.Catalog.PolicyPath,
		},
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open catalog")
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog")
		}
	}()

	connector := irods.NewConnector(cat, irods.ConnectorConfig{
		Host:           client.Host,
		Port:           client.Port,
		Zone:           client.Zone,
		ProxyUsername:  client.ProxyAdminAccount.Username,
		ProxyPassword:  client.ProxyAdminAccount.Password,
		DialsPerSecond: client.ConnectionPool.DialRatePerSecond,
	})

	var (
		acquirer *irods.Acquirer
		pool     *irods.Pool
	)
	if client.EnableCompatibility {
		acquirer = irods.NewCompatibilityAcquirer(connector)
		logging.Info().Msg("Compatibility mode: one backend connection per request")
	} else {
		pool, err = irods.NewPool(connector.ConnectAsProxy, irods.PoolConfig{
			Size:         client.ConnectionPool.Size,
			RefreshAfter: client.ConnectionPool.RefreshAfter(),
			MaxUses:      client.ConnectionPool.MaxRetrievalsBeforeRefresh,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create connection pool")
		}
		acquirer = irods.NewPooledAcquirer(connector, pool)
	}

	// === IDENTITY ===

	authCfg := cfg.HTTPServer.Authentication
	identities := stash.New[auth.ClientIdentity]()

	var archive *auth.TokenArchive
	if authCfg.TokenArchive.Enabled() {
		archive, err = auth.OpenTokenArchive(authCfg.TokenArchive.Path)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open token archive")
		}
		defer func() {
			if err := archive.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing token archive")
			}
		}()
		restored, err := archive.Restore(ctx, identities, time.Now())
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to restore archived tokens")
		} else {
			logging.Info().Int("tokens", restored).Msg("Restored archived tokens")
		}
	}

	resolver, jwks, err := auth.NewResolverFromConfig(ctx, authCfg.OpenIDConnect, client.Zone, identities)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to configure OpenID Connect")
	}

	login := auth.NewLogin(acquirer, identities, auth.LoginConfig{
		Zone:         client.Zone,
		Lifetime:     authCfg.Basic.TokenLifetime(),
		KeepPassword: client.EnableCompatibility,
		Archive:      archive,
	})

	// === API ===

	requests := cfg.HTTPServer.Requests
	executor := api.NewExecutor(requests.Threads, requests.QueueSize)

	handlers := endpoints.New(endpoints.Config{
		Zone:            client.Zone,
		Version:         version,
		Build:           build,
		MaxRowsPerQuery: client.MaxNumberOfRowsPerCatalogQuery,
		MaxBodyBytes:    requests.MaxSizeOfRequestBodyInBytes,
	}, endpoints.Deps{
		Identities: resolver,
		Login:      login,
		Backend:    acquirer,
		Executor:   executor,
		Columns:    catalog.ColumnNames,
	})

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.HTTPServer.CORS.AllowedOrigins
	mwConfig.RateLimitDisabled = !cfg.HTTPServer.RateLimit.Enabled
	mwConfig.RateLimitRequests = cfg.HTTPServer.RateLimit.RequestsPerMinute
	mwConfig.MaxBodyBytes = requests.MaxSizeOfRequestBodyInBytes

	router := api.NewRouter(api.RouterConfig{
		BaseURL:    cfg.HTTPServer.BaseURL,
		Timeout:    requests.Timeout(),
		Middleware: api.NewChiMiddleware(mwConfig),
	}, handlers.Endpoints()...)

	server := &http.Server{
		Addr:              cfg.HTTPServer.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddIdentityService(auth.NewSweeper(identities, archive, authCfg.EvictionInterval()))
	if jwks != nil {
		tree.AddIdentityService(jwks)
	}
	if pool != nil {
		tree.AddBackendService(services.NewConnectionPoolService(pool))
	}
	tree.AddBackendService(executor)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	logging.Info().
		Str("addr", server.Addr).
		Str("base_url", cfg.HTTPServer.BaseURL).
		Int("threads", requests.Threads).
		Msg("Starting supervisor tree")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("iRODS HTTP API stopped")
}
