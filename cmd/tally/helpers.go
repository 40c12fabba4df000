package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/storage"
)

// initStorage opens the configured ledger and brings its schema up to date.
func initStorage(ctx context.Context, s config.Settings) (service.Storage, error) {
	dbPath := s.Database.Path
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath
	}

	db, err := storage.NewSQLiteStorage(config.ExpandPath(dbPath))
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// catalogue feeds the confirmation prompt from the live settings and the ledger.
type catalogue struct {
	settings config.Source
	assets   service.Storage
}

func (c catalogue) Categories(trigger model.TriggerType) []string {
	return c.settings.Settings().Categories.For(trigger)
}

func (c catalogue) Assets(ctx context.Context) ([]model.Asset, error) {
	if !c.settings.Settings().AutoTrack.AssetsEnabled {
		return nil, nil
	}
	return c.assets.ListAssets(ctx)
}

// printLine writes one line of command output to stdout.
func printLine(cmd *cobra.Command, line string) {
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
		slog.Warn("Failed to write output", "error", err)
	}
}
