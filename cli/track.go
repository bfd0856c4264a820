// ABOUTME: Presence tracking daemon command
// ABOUTME: Wires the machine, drift reconciler, tick loop, and scheduled sweep
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/harperreed/officelog/config"
	"github.com/harperreed/officelog/eventstore"
	"github.com/harperreed/officelog/logx"
	"github.com/harperreed/officelog/models"
	"github.com/harperreed/officelog/notify"
	"github.com/harperreed/officelog/presence"
	"github.com/harperreed/officelog/reconciler"
)

const tickInterval = time.Minute

// TrackCommand runs the presence tracking daemon
func TrackCommand(args []string) error {
	fs := flag.NewFlagSet("track", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Use an in-memory calendar instead of Google")
	positionFile := fs.String("position-file", "", "Path to the location agent's fix file")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, *dryRun)
	if err != nil {
		return err
	}
	defer app.Close()

	if len(app.Settings.Locations) == 0 {
		return fmt.Errorf("no locations configured; edit your settings file and add at least one")
	}

	machine, err := presence.NewMachine(app.Visits, app.Engine, app.Settings, notify.LogNotifier{})
	if err != nil {
		return err
	}
	defer machine.Close()

	fixPath := *positionFile
	if fixPath == "" {
		dataDir, err := config.DataDir()
		if err != nil {
			return err
		}
		fixPath = filepath.Join(dataDir, "position.json")
	}
	sampler := reconciler.NewFileSampler(fixPath, 2*app.Settings.ReconcileInterval)
	rec := reconciler.New(machine, sampler, app.Settings)

	fmt.Printf("Tracking presence at %d location(s)\n", len(app.Settings.Locations))
	fmt.Printf("  → Reconcile every %s, position fixes from %s\n",
		app.Settings.ReconcileInterval, fixPath)
	fmt.Println("  → SIGUSR1 signals entry, SIGUSR2 signals exit")

	// Boundary-crossing signals arrive as process signals from the
	// location agent. The machine serializes them with everything else.
	boundary := make(chan os.Signal, 4)
	signal.Notify(boundary, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(boundary)

	go func() {
		for sig := range boundary {
			switch sig {
			case syscall.SIGUSR1:
				machine.Enter(ctx, nearestConfigured(app.Settings))
			case syscall.SIGUSR2:
				machine.Exit(ctx)
			}
		}
	}()

	// Periodic sweep against retry-created duplicates.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(app.Settings.SweepSchedule, func() {
		window := eventstore.SweepWindow(time.Now(),
			app.Settings.SweepLookBackDays, app.Settings.SweepLookAheadDays)
		if err := app.Engine.Sweep(ctx, window); err != nil {
			logx.Error("scheduled sweep failed", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", app.Settings.SweepSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Ongoing-visit refresh ticks, coalesced by the engine.
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				machine.Tick(ctx)
			}
		}
	}()

	go rec.Run(ctx)

	<-ctx.Done()
	fmt.Println("\nShutting down, flushing pending calendar updates...")
	app.Engine.Drain(context.Background())
	return nil
}

// nearestConfigured picks the first configured location's coordinate
// for boundary entries that carry no position of their own.
func nearestConfigured(settings *config.Settings) models.Coordinate {
	return settings.Locations[0].Coordinate
}
