package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/yocodex/backend/internal/config"
	"github.com/yocodex/backend/internal/database"
	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/seed"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel, ""); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	if cfg.Environment == "production" {
		log.Fatal("Refusing to seed a production database")
	}

	if err := database.Initialize(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	seeder := seed.NewSeeder(database.DB)
	if err := seeder.SeedDev(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Database seeded")
}
