package main

import (
	"context"
	"fmt"
	"os"

	dbfs "github.com/sboruta/tracker/db"
	"github.com/sboruta/tracker/internal/config"
	"github.com/sboruta/tracker/internal/db"
)

func main() {
	ctx := context.Background()
	cfg, err := config.LoadAgent("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "State dir error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Agent database initialized successfully.")
}
