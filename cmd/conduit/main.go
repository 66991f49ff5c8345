package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/conduit-cli/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/conduit-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/conduit-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/conduit-cli/internal/connectors/github"
	"github.com/custodia-labs/conduit-cli/internal/connectors/googledrive"
	"github.com/custodia-labs/conduit-cli/internal/connectors/hackernews"
	"github.com/custodia-labs/conduit-cli/internal/connectors/web"
	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/conduit-cli/internal/core/services"
	"github.com/custodia-labs/conduit-cli/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		if ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "conduit: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	authStore, err := file.NewAuthStore("")
	if err != nil {
		return fmt.Errorf("opening auth store: %w", err)
	}

	// Usage metering is best-effort; a broken database disables it.
	var usageStore driven.UsageStore
	if store, err := sqlite.NewUsageStore(""); err != nil {
		logger.Warn("usage metering disabled: %v", err)
	} else {
		usageStore = store
		defer store.Close()
	}

	registry := services.NewRegistry()
	all := []driven.Connector{
		hackernews.New(),
		web.New(),
		github.New(),
		googledrive.New(authStore),
	}
	for _, connector := range all {
		if connector.AuthType() != domain.AuthNone {
			if details, ok, err := authStore.Load(connector.Name()); err == nil && ok {
				if err := connector.SetAuthDetails(details); err != nil {
					logger.Warn("%s: stored credentials rejected: %v", connector.Name(), err)
				}
			}
		}
		if err := connector.Initialize(ctx); err != nil {
			logger.Warn("%s: initialize failed: %v", connector.Name(), err)
		}
		if err := registry.Register(connector); err != nil {
			return err
		}
	}

	cli.SetDeps(cli.Deps{
		Registry:   registry,
		AuthStore:  authStore,
		UsageStore: usageStore,
	})
	return cli.Execute(ctx)
}
