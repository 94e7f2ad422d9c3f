package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fragmede/v2xdash/internal/api"
	"github.com/fragmede/v2xdash/internal/auth"
	"github.com/fragmede/v2xdash/internal/cache"
	"github.com/fragmede/v2xdash/internal/config"
	"github.com/fragmede/v2xdash/internal/logger"
	"github.com/fragmede/v2xdash/internal/monitor"
	"github.com/fragmede/v2xdash/internal/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := os.MkdirAll(cfg.ConfigDir, 0o700); err != nil {
		log.Fatalf("creating config dir: %v", err)
	}

	lg, logFile, err := logger.OpenFile(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		log.Fatalf("opening log: %v", err)
	}
	defer logFile.Close()

	db, err := cache.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening cache: %v", err)
	}
	defer db.Close()

	store := auth.NewStore(db)
	client := api.NewClient(cfg.APIBaseURL, store, api.WithTimeout(cfg.RequestTimeout))
	gateway := auth.NewGateway(client, lg.With("component", "gateway"))
	session := auth.NewSession(store, gateway, lg.With("component", "session"),
		auth.WithLogoutTimeout(cfg.LogoutTimeout))
	mon := monitor.New(client, db, session, cfg.RefreshInterval, cfg.RequestTimeout, lg.With("component", "monitor"))

	lg.Info("starting", "api", cfg.APIBaseURL)

	app := ui.NewApp(cfg, db, session, mon, lg)
	p := tea.NewProgram(app, tea.WithAltScreen())
	app.SetProgram(p)
	_, runErr := p.Run()

	mon.Stop()
	session.Wait()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}
