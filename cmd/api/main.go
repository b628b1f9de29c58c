// Package main provides the entry point for the RefHQ server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/refhq/refhq-server/internal/di"
	"github.com/refhq/refhq-server/internal/logger"
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	// The container shuts providers down in reverse dependency order,
	// closing the HTTP server before the database handle.
	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}

	log.Info("goodbye")
}
