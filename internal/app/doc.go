// Package app provides application initialization and lifecycle management
// for the user directory service. It wires the configured components together,
// starts the HTTP server, and coordinates graceful shutdown.
//
// # Architecture
//
// All collaborators (store, handlers, error filter) are constructed in main
// and injected through the Dependencies struct. The package owns only the
// ordering of startup and shutdown, not the construction of its parts.
//
// # Initialization Flow
//
// Initialize performs the startup sequence in a fixed order:
//
//	1. Build the router and register middleware
//	2. Mount the resource routes
//	3. Register the error filter as the outermost response layer
//	4. Connect the backing store (awaited, failure aborts startup)
//	5. Create the HTTP server on the configured port
//	6. Begin listening
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.New(deps)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Run blocks until the context is cancelled, an interrupt signal arrives, or
// the server fails. Shutdown is idempotent and safe to call concurrently.
package app
