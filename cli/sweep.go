// ABOUTME: One-shot duplicate sweep command
// ABOUTME: Collapses backend events sharing a stable ID and repairs the mapping
package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/harperreed/officelog/eventstore"
)

// SweepCommand runs one duplicate sweep against the calendar backend
func SweepCommand(args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	lookBack := fs.Int("look-back", 0, "Days to look back (default from settings)")
	lookAhead := fs.Int("look-ahead", 0, "Days to look ahead (default from settings)")
	_ = fs.Parse(args)

	ctx := context.Background()
	app, err := NewApp(ctx, false)
	if err != nil {
		return err
	}
	defer app.Close()

	back := app.Settings.SweepLookBackDays
	if *lookBack > 0 {
		back = *lookBack
	}
	ahead := app.Settings.SweepLookAheadDays
	if *lookAhead > 0 {
		ahead = *lookAhead
	}

	fmt.Printf("Sweeping calendar for duplicates (−%d/+%d days)...\n", back, ahead)

	window := eventstore.SweepWindow(time.Now(), back, ahead)
	if err := app.Engine.Sweep(ctx, window); err != nil {
		return err
	}

	fmt.Println("✓ Sweep complete")
	return nil
}
