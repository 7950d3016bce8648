package main

import (
	"context"
	"fmt"
	"os"

	"vr-theatre-marketplace/internal/config"
	"vr-theatre-marketplace/internal/logging"
	"vr-theatre-marketplace/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Init(cfg.Server.Env)

	factory := services.NewStorageFactory(cfg, logger)

	if err := factory.ValidateR2Configuration(); err != nil {
		logger.Error("R2 configuration validation failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("R2 configuration is valid")

	info := factory.GetStorageInfo()
	fmt.Printf("Storage Information:\n")
	fmt.Printf("  Bucket Name: %s\n", info["bucket_name"])
	fmt.Printf("  Endpoint: %s\n", info["endpoint"])
	fmt.Printf("  Public URL: %s\n", info["public_url"])
	fmt.Printf("  Fallback Path: %s\n", info["fallback_path"])

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		fmt.Println("\nSetting up R2 bucket for ticket QR codes...")
		if err := factory.SetupR2Bucket(context.Background()); err != nil {
			logger.Error("failed to set up R2 bucket", "error", err)
			os.Exit(1)
		}
		fmt.Println("R2 bucket setup completed successfully!")
	} else {
		fmt.Println("\nTo set up the R2 bucket, run: go run ./cmd/setup-r2 setup")
	}
}
