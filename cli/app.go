// ABOUTME: Shared wiring helpers for CLI commands
// ABOUTME: Opens stores and builds the adapter, engine, and machine stack
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/harperreed/officelog/config"
	"github.com/harperreed/officelog/db"
	"github.com/harperreed/officelog/eventstore"
	"github.com/harperreed/officelog/kv"
	"github.com/harperreed/officelog/syncengine"
)

// App bundles the dependency stack the commands run against. No
// ambient singletons: everything is constructed here and passed down.
type App struct {
	Settings *config.Settings
	Database *sql.DB
	Visits   *db.VisitStore
	KV       *kv.Store
	Mapping  *syncengine.EventMap
	Adapter  eventstore.Adapter
	Engine   *syncengine.Engine
}

// NewApp opens the stores and builds the sync stack. With dryRun set,
// or when no OAuth token exists yet, calendar writes go to an
// in-memory fake instead of Google.
func NewApp(ctx context.Context, dryRun bool) (*App, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	dataDir, err := config.DataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}

	database, err := db.OpenDatabase(filepath.Join(dataDir, "officelog.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	kvStore, err := kv.Open(filepath.Join(dataDir, "eventmap"))
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open event mapping store: %w", err)
	}

	adapter, err := buildAdapter(settings, dryRun)
	if err != nil {
		database.Close()
		_ = kvStore.Close()
		return nil, err
	}

	mapping := syncengine.NewEventMap(kvStore)
	engine := syncengine.New(adapter, mapping, syncengine.Options{
		CoalesceWindow: settings.CoalesceWindow,
		MaxWait:        settings.CoalesceMaxWait,
	})

	return &App{
		Settings: settings,
		Database: database,
		Visits:   db.NewVisitStore(database),
		KV:       kvStore,
		Mapping:  mapping,
		Adapter:  adapter,
		Engine:   engine,
	}, nil
}

// Close flushes the engine timer and releases the stores.
func (a *App) Close() {
	a.Engine.Stop()
	_ = a.KV.Close()
	_ = a.Database.Close()
}

func buildAdapter(settings *config.Settings, dryRun bool) (eventstore.Adapter, error) {
	if dryRun {
		fmt.Println("  → Dry run: calendar writes go to an in-memory store")
		return eventstore.NewFakeAdapter(), nil
	}

	token, err := eventstore.LoadToken()
	if err != nil {
		fmt.Println("  → No Google credentials found; calendar sync disabled")
		fmt.Println("    Run 'officelog auth' to connect your calendar")
		return eventstore.NewFakeAdapter(), nil
	}

	adapter, err := eventstore.NewGoogleAdapter(token, settings.CalendarID)
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar adapter: %w", err)
	}
	return adapter, nil
}
