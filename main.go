package main

import (
	"github.com/itoloop/itoserver/config"
	"github.com/itoloop/itoserver/logger"
	"github.com/itoloop/itoserver/monitor"
	"github.com/itoloop/itoserver/persistence"
	"github.com/itoloop/itoserver/server"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	db, err := persistence.NewGormPostgreSQL(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Info("Database connection successful.")

	// Metrics endpoint
	mon := monitor.NewMonitor("itoserver")
	mon.StartServer(cfg.Monitor.Address)

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg, db, mon)

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
