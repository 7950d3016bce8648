package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"vr-theatre-marketplace/internal/config"
	"vr-theatre-marketplace/internal/database"
	"vr-theatre-marketplace/internal/logging"
)

func main() {
	var (
		statusFlag = flag.Bool("status", false, "Show migration status")
		upFlag     = flag.Bool("up", false, "Run pending migrations")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Init(cfg.Server.Env)
	ctx := context.Background()

	// Connect to database
	db, err := database.NewConnection(ctx, database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	switch {
	case *statusFlag:
		states, err := db.MigrationStatus(ctx)
		if err != nil {
			logger.Error("failed to get migration status", "error", err)
			os.Exit(1)
		}
		for _, s := range states {
			mark := "pending"
			if s.Applied {
				mark = "applied"
			}
			fmt.Printf("%03d_%s\t%s\n", s.Version, s.Name, mark)
		}
	case *upFlag:
		if err := db.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		fmt.Println("All migrations completed successfully!")
	default:
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/migrate -status   # Show migration status")
		fmt.Println("  go run ./cmd/migrate -up       # Run pending migrations")
		os.Exit(1)
	}
}
