package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"scribeline/internal/config"
	"scribeline/internal/db"
	"scribeline/internal/worker"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	cfg := config.Load()
	db.InitDB(cfg.DatabaseURL)

	sweeper := worker.NewSweeper(cfg.TaskTimeout())

	// One sweep at boot, then every five minutes.
	if _, err := sweeper.SweepOnce(); err != nil {
		log.Printf("initial sweep failed: %v", err)
	}

	c := cron.New()
	if _, err := c.AddFunc("@every 5m", func() {
		if _, err := sweeper.SweepOnce(); err != nil {
			log.Printf("sweep failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("could not schedule sweep: %v", err)
	}

	log.Printf("Sweeper starting (commit: %s)", CommitSHA)
	c.Run()
}
