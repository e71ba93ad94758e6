package store

import (
	"math"
	"time"

	"github.com/mkondo/postlens/internal/vision"
)

// Status tracks how far analysis got for a record. Skip decisions key off
// this instead of sniffing which fields happen to be populated.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPartial  Status = "partial"
	StatusComplete Status = "complete"
)

// Counters holds the engagement counts read off the post page.
type Counters struct {
	Likes     int `json:"likes"`
	Reposts   int `json:"reposts"`
	Bookmarks int `json:"bookmarks"`
	Views     int `json:"views"`
}

// ImageFeature is the analysis result for one downloaded image, in
// discovery order.
type ImageFeature struct {
	StoragePath   string            `json:"storage_path"`
	SourceURL     string            `json:"source_url"`
	Composition   vision.Category   `json:"composition"`
	Situation     vision.Situation  `json:"situation"`
	Confidence    float64           `json:"confidence"`
	DominantColor string            `json:"dominant_color"`
	Brightness    vision.Brightness `json:"brightness"`
	SkinRatio     float64           `json:"skin_ratio"`
}

// PostRecord is the normalized representation of one analyzed post.
// Exactly one record exists per post id.
type PostRecord struct {
	ID        string         `json:"id"`
	SourceURL string         `json:"source_url"`
	Text      string         `json:"text,omitempty"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
	Counters  Counters       `json:"counters"`
	Images    []ImageFeature `json:"images"`

	// EngagementRate and SaveRate are caches over Counters; RecomputeRates
	// must reproduce them exactly.
	EngagementRate float64 `json:"engagement_rate"`
	SaveRate       float64 `json:"save_rate"`

	Status Status `json:"status"`
}

// RecomputeRates refreshes the derived rate fields from the counters.
func (r *PostRecord) RecomputeRates() {
	r.EngagementRate = 0
	if r.Counters.Views > 0 {
		r.EngagementRate = round2(float64(r.Counters.Likes) / float64(r.Counters.Views) * 100)
	}
	r.SaveRate = 0
	if r.Counters.Likes > 0 {
		r.SaveRate = round2(float64(r.Counters.Bookmarks) / float64(r.Counters.Likes) * 100)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
