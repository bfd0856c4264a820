// ABOUTME: Entry point for the officelog presence tracker
// ABOUTME: Routes CLI commands and loads environment configuration
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/harperreed/officelog/cli"
	"github.com/harperreed/officelog/logx"
)

const version = "0.1.0"

func main() {
	// Load .env if present (GOOGLE_CLIENT_ID etc.)
	_ = godotenv.Load()

	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("officelog version %s\n", version)
		os.Exit(0)
	}
	if *verbose {
		logx.SetLevel(logx.LevelDebug)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	var err error
	switch command {
	case "auth":
		err = cli.AuthCommand(commandArgs)
	case "track":
		err = cli.TrackCommand(commandArgs)
	case "visits":
		err = cli.VisitsCommand(commandArgs)
	case "sweep":
		err = cli.SweepCommand(commandArgs)
	case "status":
		err = cli.StatusCommand(commandArgs)
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("officelog - office presence tracking with calendar sync")
	fmt.Println()
	fmt.Println("Usage: officelog [flags] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  auth              Connect your Google Calendar")
	fmt.Println("  track             Run the presence tracking daemon")
	fmt.Println("  visits list       List recorded visits")
	fmt.Println("  visits add        Record a visit manually")
	fmt.Println("  visits delete     Delete a visit and its calendar event")
	fmt.Println("  sweep             Collapse duplicate calendar events")
	fmt.Println("  status            Show presence and sync health")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -version          Show version")
	fmt.Println("  -verbose          Enable debug logging")
}
