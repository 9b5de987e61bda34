package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"PredictionLedger/internal/persistence"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <up|down|status>")
		fmt.Println("  up     - apply all pending migrations")
		fmt.Println("  down   - roll back the last migration")
		fmt.Println("  status - show current version and pending migrations")
		fmt.Println()
		fmt.Println("Environment:")
		fmt.Println("  PRED_POSTGRES_DSN     - Postgres connection string (required)")
		fmt.Println("  PRED_MIGRATIONS_DIR   - path to migrations directory (default: migrations)")
		os.Exit(1)
	}

	dsn := os.Getenv("PRED_POSTGRES_DSN")
	if dsn == "" {
		dsn = "postgres://localhost:5432/predictionledger?sslmode=disable"
	}

	migrationsDir := os.Getenv("PRED_MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("FATAL: open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	migrator := persistence.NewMigrator(db, migrationsDir)

	switch os.Args[1] {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("FATAL: migrate up: %v", err)
		}
		log.Println("INFO: all migrations applied")

	case "down":
		if err := migrator.Down(ctx); err != nil {
			log.Fatalf("FATAL: migrate down: %v", err)
		}
		log.Println("INFO: last migration rolled back")

	case "status":
		current, pending, err := migrator.Status(ctx)
		if err != nil {
			log.Fatalf("FATAL: migrate status: %v", err)
		}
		fmt.Printf("current version: %d\n", current)
		if len(pending) == 0 {
			fmt.Println("pending: none")
		} else {
			for _, f := range pending {
				fmt.Printf("pending: %s\n", f)
			}
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s (use 'up', 'down' or 'status')\n", os.Args[1])
		os.Exit(1)
	}
}
