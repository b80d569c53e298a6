package main

import (
	"context"
	"log"
	"time"
	_ "time/tzdata"

	"homestay/internal/config"
	"homestay/internal/database"
	"homestay/internal/server"
)

// One-shot variant of the in-process sweeper, for cron-driven deployments
// that run the API with HOLD_SWEEPER_ENABLED=false.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	app := server.New(cfg, db, nil)
	app.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	counts := app.Sweeper().RunOnce(ctx)
	if err := app.Shutdown(ctx); err != nil {
		log.Printf("event drain: %v", err)
	}

	log.Printf("hold sweep completed: pending_bookings=%d expired_holds=%d",
		counts["pending_bookings"], counts["expired_holds"])
}
