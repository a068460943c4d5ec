package main

import (
	"context"
	"log/slog"
)

// shutdowner abstracts the HTTP server so tests can verify cleanup behavior
// without constructing real infrastructure dependencies.
type shutdowner interface {
	Shutdown(context.Context) error
}

// newCleanup constructs the shutdown hook: stop accepting requests and drain
// in-flight ones, then close the backend they were querying.
func newCleanup(ctx context.Context, server shutdowner, closeStore func(context.Context) error) func() {
	return func() {
		if server != nil {
			if err := server.Shutdown(ctx); err != nil {
				slog.Error("failed to shut down HTTP server", slog.String("error", err.Error()))
			}
		}

		if closeStore != nil {
			if err := closeStore(ctx); err != nil {
				slog.Error("failed to close store", slog.String("error", err.Error()))
			}
		}
	}
}
