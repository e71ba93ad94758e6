// Package app wires configuration, the analysis pipeline, batch runner, and
// background jobs into one unit the entrypoints can start.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mkondo/postlens/internal/auth"
	"github.com/mkondo/postlens/internal/batch"
	"github.com/mkondo/postlens/internal/config"
	"github.com/mkondo/postlens/internal/fetcher"
	"github.com/mkondo/postlens/internal/logging"
	"github.com/mkondo/postlens/internal/notifier"
	"github.com/mkondo/postlens/internal/pipeline"
	"github.com/mkondo/postlens/internal/report"
	"github.com/mkondo/postlens/internal/schedule"
	"github.com/mkondo/postlens/internal/server"
	"github.com/mkondo/postlens/internal/stats"
	"github.com/mkondo/postlens/internal/store"
	"github.com/mkondo/postlens/internal/vision"
	"github.com/mkondo/postlens/internal/vision/providers"

	"github.com/gin-gonic/gin"
)

// App holds the application state.
type App struct {
	Config      *config.Config
	AuthManager *auth.Manager
	Store       *store.Store
	Pipeline    *pipeline.Pipeline
	Runner      *batch.Runner
	Scheduler   *schedule.Scheduler
}

// New builds the full dependency graph from config.
func New(cfg *config.Config) (*App, error) {
	cookiePath, err := auth.DefaultCookieStorePath()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve cookie store path: %w", err)
	}
	cookieStore := auth.NewCookieStore(cookiePath)

	classifier, err := newClassifier(cfg.Classifier)
	if err != nil {
		return nil, err
	}

	chrome := fetcher.NewChrome(
		cfg.Scraping.Headless,
		time.Duration(cfg.Scraping.LoadTimeoutSeconds)*time.Second,
		time.Duration(cfg.Scraping.SettleWaitSeconds)*time.Second,
		cookieStore,
	)

	recordStore := store.New(cfg.Server.StorePath)
	pipe := pipeline.New(chrome, vision.NewExtractor(classifier), recordStore, cfg.Server.ImageDir)

	runner := batch.New(pipe, batch.Config{
		MinDelay:      time.Duration(cfg.Batch.MinDelaySeconds) * time.Second,
		MaxDelay:      time.Duration(cfg.Batch.MaxDelaySeconds) * time.Second,
		CooldownEvery: cfg.Batch.CooldownEvery,
		Cooldown:      time.Duration(cfg.Batch.CooldownSeconds) * time.Second,
		Penalty:       time.Duration(cfg.Batch.PenaltySeconds) * time.Second,
	}, batchNotify(cfg, recordStore))

	a := &App{
		Config:      cfg,
		AuthManager: auth.NewManager(cookieStore),
		Store:       recordStore,
		Pipeline:    pipe,
		Runner:      runner,
	}

	if cfg.Refresh.Enabled {
		if err := a.setupRefresh(); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// newClassifier selects the scoring backend.
func newClassifier(cfg config.ClassifierConfig) (vision.Classifier, error) {
	switch cfg.Provider {
	case config.ProviderClipd:
		return providers.NewClipdProvider(cfg.Endpoint, cfg.Model), nil
	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic classifier requires an api key")
		}
		return providers.NewAnthropicProvider(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider: %s", cfg.Provider)
	}
}

// batchNotify builds the completion hook: email the run report when email
// delivery is configured.
func batchNotify(cfg *config.Config, s *store.Store) func(*batch.Job) {
	if !cfg.Email.Enabled {
		return nil
	}

	n := notifier.NewFromConfig(cfg.Email)
	return func(job *batch.Job) {
		builder, err := report.New()
		if err != nil {
			logging.Log.Warnf("cannot build batch report: %v", err)
			return
		}

		records, err := s.Load()
		if err != nil {
			logging.Log.Warnf("cannot load records for batch report: %v", err)
			return
		}

		r, err := builder.Build(job.Progress(), stats.Summarize(records, cfg.Stats.WatchKeywords))
		if err != nil {
			logging.Log.Warnf("cannot render batch report: %v", err)
			return
		}
		if err := n.SendReport(r); err != nil {
			logging.Log.Warnf("batch report email failed: %v", err)
			return
		}
		logging.Log.Infof("batch report emailed to %s", cfg.Email.ToAddr)
	}
}

// setupRefresh schedules the periodic retry of incompletely analyzed posts.
func (a *App) setupRefresh() error {
	sched, err := schedule.New(a.Config.Refresh.Timezone)
	if err != nil {
		return err
	}

	err = sched.AddJob("retry-incomplete", a.Config.Refresh.Schedule, func(ctx context.Context) error {
		return a.RetryIncomplete()
	})
	if err != nil {
		return err
	}

	a.Scheduler = sched
	return nil
}

// RetryIncomplete re-queues every stored record whose analysis did not
// complete. A no-op when the store is clean or a batch is already running.
func (a *App) RetryIncomplete() error {
	records, err := a.Store.Load()
	if err != nil {
		return err
	}

	var urls []string
	for _, rec := range records {
		if rec.Status != store.StatusComplete && rec.SourceURL != "" {
			urls = append(urls, rec.SourceURL)
		}
	}
	if len(urls) == 0 {
		logging.Log.Infof("refresh: no incomplete records to retry")
		return nil
	}

	job, err := a.Runner.Start(urls)
	if err != nil {
		return fmt.Errorf("refresh could not start: %w", err)
	}
	logging.Log.Infof("refresh: retrying %d incomplete posts (job %s)", len(urls), job.ID)
	return nil
}

// Router builds the HTTP API for this app.
func (a *App) Router() *gin.Engine {
	h := server.NewHandler(a.Pipeline, a.Runner, a.Store,
		a.Config.Server.ImageDir, a.Config.Stats.WatchKeywords)
	return server.New(h)
}
