// Package vision derives visual features from downloaded post images:
// a zero-shot composition category, dominant color, brightness bucket, and a
// skin-pixel ratio heuristic.
package vision

import (
	"bytes"
	"context"
	"errors"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Feature is the analysis result for one image.
type Feature struct {
	Composition   Category
	Situation     Situation
	Confidence    float64
	DominantColor string
	Brightness    Brightness
	SkinRatio     float64

	// Complete is true only when every sub-analysis succeeded.
	Complete bool
}

// Extractor runs all per-image analyses against an injected classifier model.
// The classifier is created once at process start and shared read-only.
type Extractor struct {
	classifier Classifier
}

// NewExtractor creates an extractor backed by the given classifier.
func NewExtractor(c Classifier) *Extractor {
	return &Extractor{classifier: c}
}

// Extract analyzes raw image bytes. The classification and colorimetric
// passes tolerate each other's failures: a broken decode still allows the
// remote classifier to score the image, and a classifier outage still yields
// color statistics. Only when nothing could be produced is an error returned
// and the image dropped.
func (e *Extractor) Extract(ctx context.Context, data []byte) (Feature, error) {
	var feat Feature

	img, _, decodeErr := image.Decode(bytes.NewReader(data))
	if decodeErr == nil {
		thumb := downsample(img, thumbSize, thumbSize)
		feat.Brightness = brightnessBucket(meanLuminance(img))
		feat.DominantColor = dominantColor(thumb)
		feat.SkinRatio = skinRatio(thumb)
	}

	category, confidence, classifyErr := classify(ctx, e.classifier, data)
	if classifyErr == nil {
		var situation Situation
		situation, classifyErr = classifySituation(ctx, e.classifier, data)
		if classifyErr == nil {
			feat.Composition = category
			feat.Situation = situation
			feat.Confidence = confidence
		}
	}

	if decodeErr != nil && classifyErr != nil {
		return Feature{}, errors.Join(decodeErr, classifyErr)
	}

	feat.Complete = decodeErr == nil && classifyErr == nil
	return feat, nil
}
