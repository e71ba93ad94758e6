// Package stats aggregates stored post records into the dashboard report.
package stats

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/mkondo/postlens/internal/store"
	"github.com/mkondo/postlens/internal/vision"
)

var hashtagPattern = regexp.MustCompile(`#[^\s#]+`)

// Point pairs one record's engagement signals for scatter plots.
type Point struct {
	PostID         string  `json:"post_id"`
	EngagementRate float64 `json:"engagement_rate"`
	SaveRate       float64 `json:"save_rate"`
}

// SkinPoint relates a post's first-image skin ratio to its save rate.
type SkinPoint struct {
	PostID      string          `json:"post_id"`
	SkinRatio   float64         `json:"skin_ratio"`
	SaveRate    float64         `json:"save_rate"`
	Composition vision.Category `json:"composition"`
}

// KeywordStat is the average save rate of posts mentioning a keyword.
type KeywordStat struct {
	Keyword     string  `json:"keyword"`
	Posts       int     `json:"posts"`
	AvgSaveRate float64 `json:"avg_save_rate"`
}

// TopPost is a leaderboard entry.
type TopPost struct {
	ID             string  `json:"id"`
	SourceURL      string  `json:"source_url"`
	SaveRate       float64 `json:"save_rate"`
	EngagementRate float64 `json:"engagement_rate"`
	Likes          int     `json:"likes"`
}

// Report is the full aggregation over all stored records.
type Report struct {
	TotalPosts        int     `json:"total_posts"`
	AvgEngagementRate float64 `json:"avg_engagement_rate"`
	AvgSaveRate       float64 `json:"avg_save_rate"`

	// SaveRateByComposition and SaveRateBySituation group by each record's
	// first image.
	SaveRateByComposition  map[vision.Category]float64   `json:"save_rate_by_composition"`
	SaveRateBySituation    map[vision.Situation]float64  `json:"save_rate_by_situation"`
	EngagementByBrightness map[vision.Brightness]float64 `json:"engagement_by_brightness"`

	// SaveRateByHour indexes by the post's creation hour (UTC); posts whose
	// creation time could not be resolved are excluded.
	SaveRateByHour [24]float64 `json:"save_rate_by_hour"`

	Engagement []Point       `json:"engagement"`
	Skin       []SkinPoint   `json:"skin"`
	Keywords   []KeywordStat `json:"keywords"`
	TopPosts   []TopPost     `json:"top_posts"`
}

// Summarize builds the report. watch lists extra keywords to track alongside
// hashtags found in post text. Empty input yields a zero report.
func Summarize(records []store.PostRecord, watch []string) Report {
	report := Report{
		SaveRateByComposition:  make(map[vision.Category]float64),
		SaveRateBySituation:    make(map[vision.Situation]float64),
		EngagementByBrightness: make(map[vision.Brightness]float64),
	}
	if len(records) == 0 {
		return report
	}

	report.TotalPosts = len(records)

	var engSum, saveSum float64
	compSums := make(map[vision.Category]*accumulator)
	sitSums := make(map[vision.Situation]*accumulator)
	brightSums := make(map[vision.Brightness]*accumulator)
	hourSums := [24]accumulator{}
	keywordSums := make(map[string]*accumulator)

	for _, rec := range records {
		engSum += rec.EngagementRate
		saveSum += rec.SaveRate

		report.Engagement = append(report.Engagement, Point{
			PostID:         rec.ID,
			EngagementRate: rec.EngagementRate,
			SaveRate:       rec.SaveRate,
		})

		if len(rec.Images) > 0 {
			first := rec.Images[0]
			if first.Composition != "" {
				add(compSums, first.Composition, rec.SaveRate)
			}
			if first.Situation != "" {
				add(sitSums, first.Situation, rec.SaveRate)
			}
			if first.Brightness != "" {
				add(brightSums, first.Brightness, rec.EngagementRate)
			}
			report.Skin = append(report.Skin, SkinPoint{
				PostID:      rec.ID,
				SkinRatio:   first.SkinRatio,
				SaveRate:    rec.SaveRate,
				Composition: first.Composition,
			})
		}

		if rec.CreatedAt != nil {
			hourSums[rec.CreatedAt.UTC().Hour()].observe(rec.SaveRate)
		}

		for keyword := range recordKeywords(rec.Text, watch) {
			add(keywordSums, keyword, rec.SaveRate)
		}
	}

	n := float64(len(records))
	report.AvgEngagementRate = round2(engSum / n)
	report.AvgSaveRate = round2(saveSum / n)

	for cat, acc := range compSums {
		report.SaveRateByComposition[cat] = acc.mean()
	}
	for sit, acc := range sitSums {
		report.SaveRateBySituation[sit] = acc.mean()
	}
	for b, acc := range brightSums {
		report.EngagementByBrightness[b] = acc.mean()
	}
	for h := range hourSums {
		if hourSums[h].count > 0 {
			report.SaveRateByHour[h] = hourSums[h].mean()
		}
	}

	// Keywords need at least two posts to say anything about a trend.
	for keyword, acc := range keywordSums {
		if acc.count >= 2 {
			report.Keywords = append(report.Keywords, KeywordStat{
				Keyword:     keyword,
				Posts:       acc.count,
				AvgSaveRate: acc.mean(),
			})
		}
	}
	sort.Slice(report.Keywords, func(i, j int) bool {
		a, b := report.Keywords[i], report.Keywords[j]
		if a.AvgSaveRate != b.AvgSaveRate {
			return a.AvgSaveRate > b.AvgSaveRate
		}
		return a.Keyword < b.Keyword
	})

	report.TopPosts = topBySaveRate(records, 3)
	return report
}

// recordKeywords collects each keyword at most once per record, so a post
// repeating a hashtag is not double counted.
func recordKeywords(text string, watch []string) map[string]bool {
	found := make(map[string]bool)
	for _, tag := range hashtagPattern.FindAllString(text, -1) {
		found[tag] = true
	}
	for _, kw := range watch {
		if kw != "" && strings.Contains(text, kw) {
			found[kw] = true
		}
	}
	return found
}

func topBySaveRate(records []store.PostRecord, limit int) []TopPost {
	sorted := make([]store.PostRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SaveRate != sorted[j].SaveRate {
			return sorted[i].SaveRate > sorted[j].SaveRate
		}
		return sorted[i].ID < sorted[j].ID
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	top := make([]TopPost, 0, len(sorted))
	for _, rec := range sorted {
		top = append(top, TopPost{
			ID:             rec.ID,
			SourceURL:      rec.SourceURL,
			SaveRate:       rec.SaveRate,
			EngagementRate: rec.EngagementRate,
			Likes:          rec.Counters.Likes,
		})
	}
	return top
}

type accumulator struct {
	sum   float64
	count int
}

func (a *accumulator) observe(v float64) {
	a.sum += v
	a.count++
}

func (a *accumulator) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return round2(a.sum / float64(a.count))
}

func add[K comparable](m map[K]*accumulator, key K, v float64) {
	acc, ok := m[key]
	if !ok {
		acc = &accumulator{}
		m[key] = acc
	}
	acc.observe(v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
