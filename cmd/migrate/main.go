// Package main implements the database migration utility for the
// bridge service.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/avolkov/wabridge/internal/infrastructure/migrate"
)

const defaultMigrationsPath = "./migrations"

func main() {
	var (
		migrationsPath string
		steps          int
	)

	flag.StringVar(&migrationsPath, "path", defaultMigrationsPath, "Path to migrations directory")
	flag.IntVar(&steps, "steps", 1, "Number of migrations to run for up/down")
	flag.Parse()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	args := flag.Args()
	if len(args) == 0 {
		log.Fatal("Please specify a command: up, down, all, or version")
	}

	runner := migrate.NewRunner(&migrate.Config{
		DatabaseURL:    databaseURL,
		MigrationsPath: migrationsPath,
	})

	switch args[0] {
	case "all":
		if err := runner.Run(); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		printVersion(runner)

	case "up":
		if err := runner.Steps(steps); err != nil {
			log.Fatalf("Failed to run migrations up: %v", err)
		}
		printVersion(runner)

	case "down":
		if err := runner.Steps(-steps); err != nil {
			log.Fatalf("Failed to run migrations down: %v", err)
		}
		printVersion(runner)

	case "version":
		version, dirty, err := runner.Version()
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		if dirty {
			fmt.Printf("Current version: %d (dirty)\n", version)
		} else {
			fmt.Printf("Current version: %d\n", version)
		}

	default:
		log.Fatalf("Unknown command: %s. Use 'up', 'down', 'all', or 'version'", args[0])
	}
}

func printVersion(runner *migrate.Runner) {
	version, dirty, err := runner.Version()
	if err != nil {
		log.Printf("Error getting migration version: %v", err)
		return
	}
	if dirty {
		log.Printf("WARNING: Database is in dirty state at version %d", version)
	} else {
		log.Printf("Migrated; current version %d", version)
	}
}
