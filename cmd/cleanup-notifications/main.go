package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/yocodex/backend/internal/cache"
	"github.com/yocodex/backend/internal/config"
	"github.com/yocodex/backend/internal/database"
	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/notify"
)

// One-shot retention sweep: removes read notifications older than the
// configured max age. The server runs the same sweep on a ticker; this
// tool exists for cron jobs and manual runs.
func main() {
	maxAgeDays := flag.Int("max-age-days", 0, "override NOTIFICATION_MAX_AGE_DAYS")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel, ""); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	maxAge := cfg.NotificationMaxAge
	if *maxAgeDays > 0 {
		maxAge = time.Duration(*maxAgeDays) * 24 * time.Hour
	}

	log.Println("Connecting to database...")
	if err := database.Initialize(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	service := notify.NewService(database.DB, nil, cache.NewManager(nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := service.CleanupOld(ctx, maxAge)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	log.Printf("Removed %d read notifications older than %s", removed, maxAge)
}
