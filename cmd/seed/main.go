package main

import (
	"flag"
	"os"

	"github.com/oggyb/catmatch/internal/config"
	"github.com/oggyb/catmatch/internal/db"
	"github.com/oggyb/catmatch/internal/logger"
)

func main() {
	reset := flag.Bool("reset", false, "delete all users, cats, swipes, matches and messages before seeding")
	flag.Parse()

	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	n, err := db.SeedSampleData(database, *reset)
	if err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	log.Info("seeding completed", "cats", n, "reset", *reset)
}
