package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/AdamBeresnev/bracket-sim/internal/config"
	"github.com/AdamBeresnev/bracket-sim/internal/db"
	"github.com/AdamBeresnev/bracket-sim/internal/service"
	"github.com/AdamBeresnev/bracket-sim/internal/store"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	database, err := db.InitDB(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB, cfg.MigrationsURL); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Store = sqlite3store.New(database.DB)

	svc := service.NewSimService(database, store.NewFixtureStore(database))
	router := newRouter(sessionManager, svc)

	log.Printf("Server starting on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatal(err)
	}
}
