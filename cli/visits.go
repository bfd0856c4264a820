// ABOUTME: Visit history and manual-override commands
// ABOUTME: Lists visits by date range, adds completed visits, deletes by ID
package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/officelog/models"
	"github.com/harperreed/officelog/notify"
	"github.com/harperreed/officelog/presence"
)

// VisitsCommand routes visit subcommands
func VisitsCommand(args []string) error {
	if len(args) == 0 {
		return visitsList(nil)
	}

	switch args[0] {
	case "list":
		return visitsList(args[1:])
	case "add":
		return visitsAdd(args[1:])
	case "delete":
		return visitsDelete(args[1:])
	default:
		return fmt.Errorf("unknown visits subcommand: %s (want list, add, or delete)", args[0])
	}
}

func visitsList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	from := fs.String("from", "", "Start date (YYYY-MM-DD, default 30 days ago)")
	to := fs.String("to", "", "End date (YYYY-MM-DD, default today)")
	_ = fs.Parse(args)

	ctx := context.Background()
	app, err := NewApp(ctx, true)
	if err != nil {
		return err
	}
	defer app.Close()

	now := time.Now()
	if *to == "" {
		*to = now.Format(models.DateLayout)
	}
	if *from == "" {
		*from = now.AddDate(0, 0, -30).Format(models.DateLayout)
	}

	visits, err := app.Visits.ByDateRange(*from, *to)
	if err != nil {
		return err
	}

	if len(visits) == 0 {
		fmt.Printf("No visits between %s and %s\n", *from, *to)
		return nil
	}

	threshold := app.Settings.Policy.ValidityThreshold
	for _, v := range visits {
		marker := " "
		duration := "ongoing"
		if v.ExitTime != nil {
			duration = v.Duration(now).Round(time.Minute).String()
			if !v.IsValid(threshold) {
				marker = "!"
			}
		} else {
			marker = "*"
		}
		fmt.Printf("%s %s  %s → %s  (%s)  %s\n",
			marker, v.Date,
			v.EntryTime.Local().Format("15:04"),
			exitLabel(v),
			duration, v.ID)
	}
	fmt.Printf("\n✓ %d visit(s)\n", len(visits))
	return nil
}

func exitLabel(v models.Visit) string {
	if v.ExitTime == nil {
		return "…"
	}
	return v.ExitTime.Local().Format("15:04")
}

func visitsAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	entry := fs.String("entry", "", "Entry time (RFC3339)")
	exit := fs.String("exit", "", "Exit time (RFC3339)")
	dryRun := fs.Bool("dry-run", false, "Skip the calendar write")
	_ = fs.Parse(args)

	if *entry == "" || *exit == "" {
		return fmt.Errorf("both --entry and --exit are required")
	}

	entryTime, err := time.Parse(time.RFC3339, *entry)
	if err != nil {
		return fmt.Errorf("invalid --entry: %w", err)
	}
	exitTime, err := time.Parse(time.RFC3339, *exit)
	if err != nil {
		return fmt.Errorf("invalid --exit: %w", err)
	}

	ctx := context.Background()
	app, err := NewApp(ctx, *dryRun)
	if err != nil {
		return err
	}
	defer app.Close()

	machine, err := presence.NewMachine(app.Visits, app.Engine, app.Settings, notify.NopNotifier{})
	if err != nil {
		return err
	}
	defer machine.Close()

	at := models.Coordinate{}
	if len(app.Settings.Locations) > 0 {
		at = app.Settings.Locations[0].Coordinate
	}

	visit, err := machine.AddVisit(ctx, entryTime, exitTime, at)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Recorded visit %s on %s\n", visit.ID, visit.Date)
	return nil
}

func visitsDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "Visit ID to delete")
	dryRun := fs.Bool("dry-run", false, "Skip the calendar write")
	_ = fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("--id is required")
	}
	visitID, err := uuid.Parse(*id)
	if err != nil {
		return fmt.Errorf("invalid visit ID: %w", err)
	}

	ctx := context.Background()
	app, err := NewApp(ctx, *dryRun)
	if err != nil {
		return err
	}
	defer app.Close()

	machine, err := presence.NewMachine(app.Visits, app.Engine, app.Settings, notify.NopNotifier{})
	if err != nil {
		return err
	}
	defer machine.Close()

	if err := machine.DeleteVisit(ctx, visitID); err != nil {
		return err
	}

	fmt.Printf("✓ Deleted visit %s\n", visitID)
	return nil
}
