package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkondo/postlens/internal/pipeline"
)

// scriptedAnalyzer returns a canned outcome per URL and records call order.
type scriptedAnalyzer struct {
	mu       sync.Mutex
	outcomes map[string]pipeline.Outcome
	calls    []string
	block    chan struct{}
}

func (a *scriptedAnalyzer) Analyze(_ context.Context, url string) (pipeline.Outcome, error) {
	a.mu.Lock()
	a.calls = append(a.calls, url)
	a.mu.Unlock()
	if a.block != nil {
		<-a.block
	}
	outcome, ok := a.outcomes[url]
	if !ok {
		outcome = pipeline.OutcomeSuccess
	}
	if outcome == pipeline.OutcomeFailed {
		return outcome, errors.New("scripted failure")
	}
	return outcome, nil
}

func (a *scriptedAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func fastConfig() Config {
	return Config{
		MinDelay: time.Millisecond,
		MaxDelay: 2 * time.Millisecond,
		Penalty:  time.Millisecond,
	}
}

func TestRunProcessesAllDespiteFailures(t *testing.T) {
	a := &scriptedAnalyzer{outcomes: map[string]pipeline.Outcome{
		"u2": pipeline.OutcomeFailed,
		"u3": pipeline.OutcomeSkipped,
	}}
	r := New(a, fastConfig(), nil)

	job, err := r.Start([]string{"u1", "u2", "u3", "u4"})
	require.NoError(t, err)
	job.Wait()

	p := job.Progress()
	assert.Equal(t, 4, p.Done)
	assert.Equal(t, 2, p.Succeeded)
	assert.Equal(t, 1, p.Skipped)
	assert.Equal(t, 1, p.Failed)
	assert.False(t, p.Running)
	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, a.calls)
}

func TestStartRejectsConcurrentJob(t *testing.T) {
	a := &scriptedAnalyzer{block: make(chan struct{})}
	r := New(a, fastConfig(), nil)

	job, err := r.Start([]string{"u1", "u2"})
	require.NoError(t, err)

	_, err = r.Start([]string{"u3"})
	assert.ErrorIs(t, err, ErrBusy)

	close(a.block)
	job.Wait()

	// A finished job no longer blocks new ones.
	job2, err := r.Start([]string{"u3"})
	require.NoError(t, err)
	job2.Wait()
}

func TestCancelStopsBetweenPosts(t *testing.T) {
	a := &scriptedAnalyzer{}
	cfg := fastConfig()
	cfg.MinDelay = 30 * time.Second
	cfg.MaxDelay = 31 * time.Second
	r := New(a, cfg, nil)

	job, err := r.Start([]string{"u1", "u2", "u3"})
	require.NoError(t, err)

	// Wait for the first post, then cancel during the long pause.
	require.Eventually(t, func() bool { return a.callCount() >= 1 },
		2*time.Second, time.Millisecond)
	job.Cancel()
	job.Wait()

	p := job.Progress()
	assert.True(t, p.Cancelled)
	assert.Less(t, p.Done, 3)
	assert.NotNil(t, p.FinishedAt)
}

func TestCooldownPausesAfterEveryNth(t *testing.T) {
	a := &scriptedAnalyzer{}
	cfg := fastConfig()
	cfg.CooldownEvery = 2
	cfg.Cooldown = 150 * time.Millisecond
	r := New(a, cfg, nil)

	start := time.Now()
	job, err := r.Start([]string{"u1", "u2", "u3"})
	require.NoError(t, err)
	job.Wait()

	// One cooldown fires after the second post; the jitter delays alone are
	// single-digit milliseconds.
	assert.GreaterOrEqual(t, time.Since(start), cfg.Cooldown)
	assert.Equal(t, 3, job.Progress().Done)
}

func TestCancelInterruptsCooldown(t *testing.T) {
	a := &scriptedAnalyzer{}
	cfg := fastConfig()
	cfg.CooldownEvery = 1
	cfg.Cooldown = 30 * time.Second
	r := New(a, cfg, nil)

	job, err := r.Start([]string{"u1", "u2"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return a.callCount() >= 1 },
		2*time.Second, time.Millisecond)
	job.Cancel()

	finished := make(chan struct{})
	go func() {
		job.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("cancel did not interrupt the cooldown pause")
	}

	p := job.Progress()
	assert.True(t, p.Cancelled)
	assert.Equal(t, 1, p.Done)
}

func TestNotifyRunsOnCompletion(t *testing.T) {
	notified := make(chan *Job, 1)
	r := New(&scriptedAnalyzer{}, fastConfig(), func(j *Job) { notified <- j })

	job, err := r.Start([]string{"u1"})
	require.NoError(t, err)
	job.Wait()

	select {
	case got := <-notified:
		assert.Equal(t, job.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("notify hook never ran")
	}
}

func TestGet(t *testing.T) {
	r := New(&scriptedAnalyzer{}, fastConfig(), nil)
	job, err := r.Start([]string{"u1"})
	require.NoError(t, err)
	job.Wait()

	got, ok := r.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, job.ID, got.ID)

	_, ok = r.Get("nope")
	assert.False(t, ok)
}

func TestParseURLListCSV(t *testing.T) {
	in := "title,post_url,notes\nfirst,https://x.com/a/status/1,x\nsecond,https://x.com/a/status/2,y\ndup,https://x.com/a/status/1,z\n"
	urls, err := ParseURLList(strings.NewReader(in), "posts.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.com/a/status/1", "https://x.com/a/status/2"}, urls)
}

func TestParseURLListTSV(t *testing.T) {
	in := "url\tlikes\nhttps://x.com/a/status/7\t12\n"
	urls, err := ParseURLList(strings.NewReader(in), "posts.tsv")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.com/a/status/7"}, urls)
}

func TestParseURLListPlainLines(t *testing.T) {
	in := "https://x.com/a/status/1\n\n# comment\nhttps://x.com/a/status/2\n"
	urls, err := ParseURLList(strings.NewReader(in), "posts.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.com/a/status/1", "https://x.com/a/status/2"}, urls)
}

func TestParseURLListEmpty(t *testing.T) {
	_, err := ParseURLList(strings.NewReader("no urls here\n"), "posts.txt")
	assert.Error(t, err)
}
