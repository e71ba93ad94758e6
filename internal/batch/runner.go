// Package batch runs many post analyses sequentially with randomized pacing
// so a long run reads like a human browsing session rather than a crawler.
package batch

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mkondo/postlens/internal/logging"
	"github.com/mkondo/postlens/internal/pipeline"
)

// ErrBusy is returned by Start while another job is still running. Running
// two batches at once would defeat the pacing.
var ErrBusy = errors.New("a batch job is already running")

// Analyzer is the per-URL work unit.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (pipeline.Outcome, error)
}

// Config controls the pacing of a batch run.
type Config struct {
	// MinDelay and MaxDelay bound the random pause between posts.
	MinDelay time.Duration
	MaxDelay time.Duration
	// CooldownEvery inserts a long Cooldown pause after every Nth post.
	// Zero disables cooldowns.
	CooldownEvery int
	Cooldown      time.Duration
	// Penalty is the extra pause after a failed post.
	Penalty time.Duration
}

// Progress is a snapshot of a job's counters.
type Progress struct {
	ID         string     `json:"id"`
	Total      int        `json:"total"`
	Done       int        `json:"done"`
	Succeeded  int        `json:"succeeded"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Running    bool       `json:"running"`
	Cancelled  bool       `json:"cancelled"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Job tracks one batch run.
type Job struct {
	ID    string
	Total int

	done      atomic.Int64
	succeeded atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Bool

	startedAt time.Time

	mu         sync.Mutex
	finishedAt *time.Time

	// stop is closed on cancel to wake the worker mid-sleep.
	stop     chan struct{}
	stopOnce sync.Once
	finished chan struct{}
}

// Cancel requests the job stop after the in-flight post. Safe to call more
// than once.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
	j.stopOnce.Do(func() { close(j.stop) })
}

// Wait blocks until the job's worker has exited.
func (j *Job) Wait() {
	<-j.finished
}

// Progress returns the job's current counters.
func (j *Job) Progress() Progress {
	j.mu.Lock()
	finishedAt := j.finishedAt
	j.mu.Unlock()

	return Progress{
		ID:         j.ID,
		Total:      j.Total,
		Done:       int(j.done.Load()),
		Succeeded:  int(j.succeeded.Load()),
		Skipped:    int(j.skipped.Load()),
		Failed:     int(j.failed.Load()),
		Running:    finishedAt == nil,
		Cancelled:  j.cancelled.Load(),
		StartedAt:  j.startedAt,
		FinishedAt: finishedAt,
	}
}

func (j *Job) markFinished() {
	now := time.Now()
	j.mu.Lock()
	j.finishedAt = &now
	j.mu.Unlock()
	close(j.finished)
}

// Runner owns batch jobs. At most one job runs at a time; finished jobs stay
// queryable by id until the process exits.
type Runner struct {
	analyzer Analyzer
	cfg      Config
	notify   func(*Job)

	mu      sync.Mutex
	jobs    map[string]*Job
	current *Job
}

// New creates a runner. notify, if non-nil, is called from the worker
// goroutine when a job finishes (completed or cancelled).
func New(analyzer Analyzer, cfg Config, notify func(*Job)) *Runner {
	return &Runner{
		analyzer: analyzer,
		cfg:      cfg,
		notify:   notify,
		jobs:     make(map[string]*Job),
	}
}

// Start launches a job over urls. Returns ErrBusy if a job is running.
func (r *Runner) Start(urls []string) (*Job, error) {
	if len(urls) == 0 {
		return nil, errors.New("no urls to analyze")
	}

	r.mu.Lock()
	if r.current != nil && r.current.Progress().Running {
		r.mu.Unlock()
		return nil, ErrBusy
	}

	job := &Job{
		ID:        uuid.NewString(),
		Total:     len(urls),
		startedAt: time.Now(),
		stop:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
	r.jobs[job.ID] = job
	r.current = job
	r.mu.Unlock()

	go r.run(job, urls)
	return job, nil
}

// Get returns the job with the given id.
func (r *Runner) Get(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	return job, ok
}

func (r *Runner) run(job *Job, urls []string) {
	defer func() {
		job.markFinished()
		p := job.Progress()
		logging.Log.Infof("batch %s finished: %d done, %d succeeded, %d skipped, %d failed",
			job.ID, p.Done, p.Succeeded, p.Skipped, p.Failed)
		if r.notify != nil {
			r.notify(job)
		}
	}()

	logging.Log.Infof("batch %s started with %d posts", job.ID, job.Total)

	for i, url := range urls {
		if job.cancelled.Load() {
			logging.Log.Infof("batch %s cancelled after %d posts", job.ID, i)
			return
		}

		outcome, err := r.analyzer.Analyze(context.Background(), url)
		job.done.Add(1)
		switch outcome {
		case pipeline.OutcomeSuccess:
			job.succeeded.Add(1)
		case pipeline.OutcomeSkipped:
			job.skipped.Add(1)
		default:
			job.failed.Add(1)
			logging.Log.Warnf("batch %s: post %d/%d failed: %v", job.ID, i+1, job.Total, err)
		}

		if i == len(urls)-1 {
			break
		}

		// Skips made no request, so they need no pacing.
		if outcome == pipeline.OutcomeSkipped {
			continue
		}

		wait := r.jitter()
		if outcome == pipeline.OutcomeFailed {
			wait += r.cfg.Penalty
		}
		if r.cfg.CooldownEvery > 0 && (i+1)%r.cfg.CooldownEvery == 0 {
			logging.Log.Infof("batch %s: cooling down for %s after %d posts", job.ID, r.cfg.Cooldown, i+1)
			wait += r.cfg.Cooldown
		}
		if !sleepInterruptible(wait, job.stop) {
			logging.Log.Infof("batch %s cancelled during pause", job.ID)
			return
		}
	}
}

func (r *Runner) jitter() time.Duration {
	if r.cfg.MaxDelay <= r.cfg.MinDelay {
		return r.cfg.MinDelay
	}
	return r.cfg.MinDelay + time.Duration(rand.Int63n(int64(r.cfg.MaxDelay-r.cfg.MinDelay)))
}

// sleepInterruptible sleeps for d, returning false if stop closes first.
func sleepInterruptible(d time.Duration, stop <-chan struct{}) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	}
}
