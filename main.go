package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkondo/postlens/internal/app"
	"github.com/mkondo/postlens/internal/config"
	"github.com/mkondo/postlens/internal/logging"
)

func main() {
	// A missing .env is fine; config has defaults for everything non-secret.
	_ = godotenv.Load()
	logging.InitFromEnv()

	cfg := loadConfig()

	a, err := app.New(cfg)
	if err != nil {
		logging.Log.Errorf("startup failed: %v", err)
		os.Exit(1)
	}

	if a.Scheduler != nil {
		a.Scheduler.Start()
		defer a.Scheduler.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: a.Router(),
	}

	go func() {
		logging.Log.Infof("listening on %s", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Log.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Log.Infof("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Log.Warnf("shutdown incomplete: %v", err)
	}
}

// loadConfig loads the config file, creating a default one on first run.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
			if err := cfg.Save(); err != nil {
				logging.Log.Warnf("could not save default config: %v", err)
			} else {
				path, _ := config.ConfigPath()
				logging.Log.Infof("created default config at %s", path)
			}
		} else {
			logging.Log.Warnf("could not load config: %v (using defaults)", err)
			cfg = config.Default()
		}
	}

	cfg.ApplyEnv()
	if err := cfg.ResolvePaths(); err != nil {
		logging.Log.Errorf("cannot resolve data paths: %v", err)
		os.Exit(1)
	}
	return cfg
}
