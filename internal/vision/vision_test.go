package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClassifier returns a fixed score per label, spread evenly over that
// label's prompts. It tells the two ensembles apart by their first prompt.
type fakeClassifier struct {
	byCategory  map[Category]float64
	bySituation map[Situation]float64
	err         error
}

func (f *fakeClassifier) Scores(_ context.Context, _ []byte, prompts []string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}

	sets := compositionSets
	get := func(label string) float64 { return f.byCategory[Category(label)] }
	if len(prompts) > 0 && prompts[0] == situationSets[0].prompts[0] {
		sets = situationSets
		get = func(label string) float64 { return f.bySituation[Situation(label)] }
	}

	scores := make([]float64, 0, len(prompts))
	for _, set := range sets {
		for range set.prompts {
			scores = append(scores, get(set.label))
		}
	}
	if len(scores) != len(prompts) {
		return nil, errors.New("prompt count mismatch")
	}
	return scores, nil
}

func encodePNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	cls := &fakeClassifier{
		byCategory: map[Category]float64{
			FaceCloseup:   0.7,
			BustUp:        0.1,
			FullBody:      0.1,
			ObjectScenery: 0.1,
		},
		bySituation: map[Situation]float64{
			Selfie: 0.8,
		},
	}
	e := NewExtractor(cls)

	feat, err := e.Extract(context.Background(), encodePNG(t, color.RGBA{255, 255, 255, 255}))
	require.NoError(t, err)
	assert.True(t, feat.Complete)
	assert.Equal(t, FaceCloseup, feat.Composition)
	assert.Equal(t, Selfie, feat.Situation)
	assert.InDelta(t, 70.0, feat.Confidence, 0.001)
	assert.Equal(t, BrightnessBright, feat.Brightness)
	assert.Equal(t, "#ffffff", feat.DominantColor)
}

func TestExtractClassifierFailureDegrades(t *testing.T) {
	e := NewExtractor(&fakeClassifier{err: errors.New("model offline")})

	feat, err := e.Extract(context.Background(), encodePNG(t, color.RGBA{0, 0, 0, 255}))
	require.NoError(t, err)
	assert.False(t, feat.Complete)
	assert.Empty(t, string(feat.Composition))
	assert.Empty(t, string(feat.Situation))
	// Colorimetry still ran.
	assert.Equal(t, BrightnessDark, feat.Brightness)
	assert.Equal(t, "#000000", feat.DominantColor)
}

func TestExtractDecodeFailureDegrades(t *testing.T) {
	cls := &fakeClassifier{
		byCategory:  map[Category]float64{ObjectScenery: 0.9},
		bySituation: map[Situation]float64{OutdoorEvent: 0.9},
	}
	e := NewExtractor(cls)

	feat, err := e.Extract(context.Background(), []byte("definitely not an image"))
	require.NoError(t, err)
	assert.False(t, feat.Complete)
	assert.Equal(t, ObjectScenery, feat.Composition)
	assert.Equal(t, OutdoorEvent, feat.Situation)
	assert.Empty(t, feat.DominantColor)
}

func TestExtractTotalFailure(t *testing.T) {
	e := NewExtractor(&fakeClassifier{err: errors.New("model offline")})

	_, err := e.Extract(context.Background(), []byte("garbage"))
	assert.Error(t, err)
}

func TestClassifyPicksHighestCategoryAverage(t *testing.T) {
	cls := &fakeClassifier{byCategory: map[Category]float64{
		FaceCloseup:   0.2,
		BustUp:        0.4,
		FullBody:      0.3,
		ObjectScenery: 0.1,
	}}

	cat, conf, err := classify(context.Background(), cls, nil)
	require.NoError(t, err)
	assert.Equal(t, BustUp, cat)
	assert.InDelta(t, 40.0, conf, 0.001)
}

func TestClassifySituationPicksHighestAverage(t *testing.T) {
	cls := &fakeClassifier{bySituation: map[Situation]float64{
		Studio:       0.1,
		OutdoorEvent: 0.2,
		Selfie:       0.1,
		HomeRoom:     0.6,
	}}

	sit, err := classifySituation(context.Background(), cls, nil)
	require.NoError(t, err)
	assert.Equal(t, HomeRoom, sit)
}
