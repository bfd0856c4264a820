// ABOUTME: Status command showing presence, calendar access, and mapping health
// ABOUTME: Surfaces the reconnect-calendar state on permission failure
package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/harperreed/officelog/models"
)

// StatusCommand prints the current presence state and sync health
func StatusCommand(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	_ = fs.Parse(args)

	ctx := context.Background()
	app, err := NewApp(ctx, false)
	if err != nil {
		return err
	}
	defer app.Close()

	active, err := app.Visits.Active()
	if err != nil {
		return err
	}

	if active != nil {
		fmt.Printf("Present since %s (%s so far)\n",
			active.EntryTime.Local().Format("15:04"),
			active.Duration(time.Now()).Round(time.Minute))
	} else {
		fmt.Println("Away")
	}

	today := time.Now().Format(models.DateLayout)
	visits, err := app.Visits.ByDate(today)
	if err != nil {
		return err
	}
	fmt.Printf("  → %d visit(s) recorded today\n", len(visits))

	ids, err := app.Mapping.StableIDs()
	if err != nil {
		return err
	}
	fmt.Printf("  → %d calendar event(s) mapped\n", len(ids))

	if !app.Settings.CalendarEnabled {
		fmt.Println("  → Calendar sync disabled in settings")
		return nil
	}

	if app.Adapter.HasWriteAccess(ctx) {
		fmt.Println("  ✓ Calendar access OK")
	} else {
		fmt.Println("  ✗ No calendar write access; run 'officelog auth' to reconnect")
	}
	return nil
}
