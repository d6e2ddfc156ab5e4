// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package supervisor provides process supervision for the gateway using suture v4.

Long-running components are organized into a tree so that each layer restarts
independently:

	RootSupervisor ("irods-http-api")
	├── IdentitySupervisor ("identity-layer")
	│   ├── auth.Sweeper (handle store eviction)
	│   └── auth.JWKSCache (if OpenID Connect is configured)
	├── BackendSupervisor ("backend-layer")
	│   ├── services.ConnectionPoolService
	│   └── api.Executor
	└── APISupervisor ("api-layer")
	    └── services.HTTPServerService

Supervisor events (restarts, backoff, stop timeouts) are logged through
sutureslog, bridged to zerolog by logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddBackendService(executor)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return tree.Serve(ctx)
*/
package supervisor
