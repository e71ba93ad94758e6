package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkondo/postlens/internal/vision"
)

func testRecord(id string, likes, views int) PostRecord {
	created := time.Date(2024, 12, 14, 21, 30, 0, 0, time.UTC)
	rec := PostRecord{
		ID:        id,
		SourceURL: "https://x.com/someone/status/" + id,
		Text:      "studio shoot #cosplay",
		CreatedAt: &created,
		FetchedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Counters:  Counters{Likes: likes, Reposts: 3, Bookmarks: 40, Views: views},
		Images: []ImageFeature{{
			StoragePath:   "/tmp/images/" + id + "_1.jpg",
			SourceURL:     "https://pbs.twimg.com/media/abc?format=jpg&name=orig",
			Composition:   vision.BustUp,
			Situation:     vision.Studio,
			Confidence:    81.3,
			DominantColor: "#a0b0c0",
			Brightness:    vision.BrightnessNormal,
			SkinRatio:     12.34,
		}},
		Status: StatusComplete,
	}
	rec.RecomputeRates()
	return rec
}

func TestLoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "records.json"))
	records, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	records, err := New(path).Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpsertReplacesByID(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "records.json"))

	require.NoError(t, s.Upsert(testRecord("100", 500, 10000)))
	require.NoError(t, s.Upsert(testRecord("200", 100, 2000)))

	// Re-analyzing the same id with different counters must replace, never
	// duplicate.
	updated := testRecord("100", 900, 12000)
	require.NoError(t, s.Upsert(updated))

	records, err := s.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)

	got, ok := s.Get("100")
	require.True(t, ok)
	assert.Equal(t, 900, got.Counters.Likes)
	assert.Equal(t, updated.EngagementRate, got.EngagementRate)
}

func TestRoundTripPreservesRecord(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "records.json"))
	want := testRecord("42", 1234, 56789)
	require.NoError(t, s.Upsert(want))

	records, err := s.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, want, records[0])
}

func TestReset(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "records.json"))
	require.NoError(t, s.Upsert(testRecord("1", 1, 1)))
	require.NoError(t, s.Reset())

	records, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecomputeRates(t *testing.T) {
	rec := PostRecord{Counters: Counters{Likes: 150, Bookmarks: 45, Views: 10000}}
	rec.RecomputeRates()
	assert.Equal(t, 1.5, rec.EngagementRate)
	assert.Equal(t, 30.0, rec.SaveRate)

	// Zero denominators collapse to 0 instead of dividing.
	rec = PostRecord{Counters: Counters{Bookmarks: 10}}
	rec.RecomputeRates()
	assert.Equal(t, 0.0, rec.EngagementRate)
	assert.Equal(t, 0.0, rec.SaveRate)
}
