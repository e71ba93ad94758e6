// Package pipeline orchestrates the per-post fetch, counter extraction,
// image analysis, and store upsert.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkondo/postlens/internal/fetcher"
	"github.com/mkondo/postlens/internal/logging"
	"github.com/mkondo/postlens/internal/metrics"
	"github.com/mkondo/postlens/internal/postid"
	"github.com/mkondo/postlens/internal/store"
	"github.com/mkondo/postlens/internal/vision"
)

// Outcome is the result of one Analyze call.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Pipeline runs the fetch-normalize workflow for one post URL at a time.
type Pipeline struct {
	fetcher   fetcher.Fetcher
	extractor *vision.Extractor
	store     *store.Store
	imageDir  string
}

// New creates a pipeline writing downloaded images into imageDir.
func New(f fetcher.Fetcher, e *vision.Extractor, s *store.Store, imageDir string) *Pipeline {
	return &Pipeline{
		fetcher:   f,
		extractor: e,
		store:     s,
		imageDir:  imageDir,
	}
}

// Analyze fetches, classifies, and persists one post. It is idempotent per
// resolved post id: a record that already completed analysis is skipped
// without any network activity, while an incomplete prior record (for
// example, a run where every image download failed) is retried in full.
func (p *Pipeline) Analyze(ctx context.Context, rawURL string) (Outcome, error) {
	id, ok := postid.Extract(rawURL)
	if !ok {
		return OutcomeFailed, fmt.Errorf("no post id in url %q", rawURL)
	}

	if prev, found := p.store.Get(id); found {
		if prev.Status == store.StatusComplete {
			logging.Log.Infof("post %s already analyzed, skipping", id)
			return OutcomeSkipped, nil
		}
		logging.Log.Infof("post %s has an incomplete prior record, re-analyzing", id)
	}

	logging.Log.Infof("fetching post page: %s", rawURL)
	page, err := p.fetcher.Render(ctx, rawURL)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to render %s: %w", rawURL, err)
	}
	defer page.Close()

	counters := readCounters(page)
	logging.Log.Infof("post %s counters: %d likes, %d reposts, %d bookmarks, %d views",
		id, counters.Likes, counters.Reposts, counters.Bookmarks, counters.Views)

	text, _ := page.Text(fetcher.SelPostText)

	images, allComplete := p.analyzeImages(ctx, page, id)
	logging.Log.Infof("post %s: %d images analyzed", id, len(images))

	// Empty-result gate: a page that yielded neither images nor likes is
	// indistinguishable from a failed render. Persisting it would overwrite
	// a possibly good prior record with a hollow one.
	if len(images) == 0 && counters.Likes == 0 {
		return OutcomeFailed, fmt.Errorf("post %s: no images and no engagement signal extracted", id)
	}

	rec := store.PostRecord{
		ID:        id,
		SourceURL: rawURL,
		Text:      text,
		FetchedAt: time.Now(),
		Counters:  counters,
		Images:    images,
		Status:    store.StatusPartial,
	}
	if created, ok := postid.CreatedAt(id); ok {
		rec.CreatedAt = &created
	}
	rec.RecomputeRates()
	if len(images) > 0 && allComplete {
		rec.Status = store.StatusComplete
	}

	if err := p.store.Upsert(rec); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to persist record %s: %w", id, err)
	}

	logging.Log.Infof("post %s saved: engagement %.2f%%, save rate %.2f%%, status %s",
		id, rec.EngagementRate, rec.SaveRate, rec.Status)
	return OutcomeSuccess, nil
}

// readCounters pulls each engagement count from the canonical control or its
// toggled variant; the first nonzero parse wins.
func readCounters(page fetcher.Page) store.Counters {
	var c store.Counters
	c.Likes = firstCount(page, fetcher.SelLike, fetcher.SelUnlike)
	c.Reposts = firstCount(page, fetcher.SelRepost, fetcher.SelUnrepost)
	c.Bookmarks = firstCount(page, fetcher.SelBookmark, fetcher.SelRemoveBookmark)

	if label, ok := page.Label(fetcher.SelAnalyticsLink); ok {
		c.Views = metrics.ParseCount(label)
	}
	return c
}

func firstCount(page fetcher.Page, selectors ...string) int {
	for _, sel := range selectors {
		if label, ok := page.Label(sel); ok {
			if v := metrics.ParseCount(label); v > 0 {
				return v
			}
		}
	}
	return 0
}

type download struct {
	path string
	url  string
	data []byte
}

// analyzeImages enumerates attached photos, downloads each at its original
// resolution, and runs feature extraction. Downloads stay sequential to keep
// request pacing human-like; extraction fans out since it only touches the
// classifier service. An image whose download or entire analysis fails is
// omitted; the rest of the post is unaffected.
func (p *Pipeline) analyzeImages(ctx context.Context, page fetcher.Page, id string) ([]store.ImageFeature, bool) {
	srcs := page.Attrs(fetcher.SelPhotoImage, "src")

	var downloads []download
	seen := make(map[string]bool)
	for _, src := range srcs {
		highRes, ok := highResURL(src)
		if !ok {
			continue
		}
		if seen[highRes] {
			continue
		}
		seen[highRes] = true

		data, err := p.fetcher.FetchBytes(ctx, highRes)
		if err != nil {
			logging.Log.Warnf("image download failed for %s: %v", highRes, err)
			continue
		}

		if err := os.MkdirAll(p.imageDir, 0755); err != nil {
			logging.Log.Warnf("cannot create image dir %s: %v", p.imageDir, err)
			continue
		}
		path := filepath.Join(p.imageDir, fmt.Sprintf("%s_%d.jpg", id, len(downloads)+1))
		if err := os.WriteFile(path, data, 0644); err != nil {
			logging.Log.Warnf("cannot save image %s: %v", path, err)
			continue
		}

		downloads = append(downloads, download{path: path, url: highRes, data: data})
	}

	feats := make([]*vision.Feature, len(downloads))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range downloads {
		g.Go(func() error {
			feat, err := p.extractor.Extract(gctx, d.data)
			if err != nil {
				logging.Log.Warnf("image analysis failed for %s: %v", d.url, err)
				return nil
			}
			feats[i] = &feat
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines never return errors; failures only drop their image

	var images []store.ImageFeature
	allComplete := true
	for i, d := range downloads {
		f := feats[i]
		if f == nil {
			allComplete = false
			continue
		}
		images = append(images, store.ImageFeature{
			StoragePath:   d.path,
			SourceURL:     d.url,
			Composition:   f.Composition,
			Situation:     f.Situation,
			Confidence:    f.Confidence,
			DominantColor: f.DominantColor,
			Brightness:    f.Brightness,
			SkinRatio:     f.SkinRatio,
		})
		if !f.Complete {
			allComplete = false
		}
	}
	return images, allComplete
}

// highResURL rewrites a thumbnail media URL to its original-resolution form
// by replacing the format/size query parameters.
func highResURL(src string) (string, bool) {
	if !strings.Contains(src, "pbs.twimg.com/media") {
		return "", false
	}
	base, query, _ := strings.Cut(src, "?")
	format := "jpg"
	if strings.Contains(query, "format=png") {
		format = "png"
	}
	return fmt.Sprintf("%s?format=%s&name=orig", base, format), true
}
