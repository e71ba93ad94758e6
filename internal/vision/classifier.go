package vision

import (
	"context"
	"fmt"
	"math"
)

// Category is the coarse visual framing of an image.
type Category string

const (
	FaceCloseup   Category = "face_closeup"
	BustUp        Category = "bust_up"
	FullBody      Category = "full_body"
	ObjectScenery Category = "object_scenery"
)

// Categories lists all composition categories in a stable order.
var Categories = []Category{FaceCloseup, BustUp, FullBody, ObjectScenery}

// Situation is the setting an image was shot in, classified independently of
// its composition.
type Situation string

const (
	Studio       Situation = "studio"
	OutdoorEvent Situation = "outdoor_event"
	Selfie       Situation = "selfie"
	HomeRoom     Situation = "home_room"
)

// Situations lists all situation labels in a stable order.
var Situations = []Situation{Studio, OutdoorEvent, Selfie, HomeRoom}

// Classifier is the injected model handle. Implementations return one
// softmax similarity score per prompt, in prompt order, summing to ~1.
type Classifier interface {
	Scores(ctx context.Context, image []byte, prompts []string) ([]float64, error)
}

// promptSet backs one label with a few paraphrased prompts. Averaging the
// scores within a set damps sensitivity to any single prompt's wording.
type promptSet struct {
	label   string
	prompts []string
}

var compositionSets = []promptSet{
	{string(FaceCloseup), []string{
		"a close-up photo of a face",
		"a tightly framed portrait showing only a face",
		"a selfie where the face fills the frame",
	}},
	{string(BustUp), []string{
		"a bust-up portrait of a person",
		"a photo of a person from the chest up",
	}},
	{string(FullBody), []string{
		"a full-body photo of a person",
		"a photo of a person shown from head to toe",
		"a person standing, visible in full",
	}},
	{string(ObjectScenery), []string{
		"a photo of scenery or objects",
		"a landscape photo with no people",
		"a photo of props or merchandise",
	}},
}

var situationSets = []promptSet{
	{string(Studio), []string{
		"a photo taken in a professional photo studio with lighting",
		"a studio portrait against a backdrop",
	}},
	{string(OutdoorEvent), []string{
		"a photo taken at an outdoor cosplay event or street",
		"a photo taken outdoors in a public place",
	}},
	{string(Selfie), []string{
		"a mirror selfie taken with a smartphone",
		"a handheld selfie",
	}},
	{string(HomeRoom), []string{
		"a photo taken in a bedroom or home environment",
		"an indoor photo of a lived-in room",
	}},
}

func flattenPrompts(sets []promptSet) []string {
	var prompts []string
	for _, set := range sets {
		prompts = append(prompts, set.prompts...)
	}
	return prompts
}

// classify runs the composition ensemble. Confidence is the winning
// category's average score as a percentage, rounded to one decimal.
func classify(ctx context.Context, c Classifier, image []byte) (Category, float64, error) {
	label, avg, err := bestLabel(ctx, c, image, compositionSets)
	if err != nil {
		return "", 0, err
	}
	confidence := math.Round(avg*1000) / 10
	return Category(label), confidence, nil
}

// classifySituation runs the situation ensemble. Only the winning label is
// kept; the stored confidence belongs to the composition pass.
func classifySituation(ctx context.Context, c Classifier, image []byte) (Situation, error) {
	label, _, err := bestLabel(ctx, c, image, situationSets)
	if err != nil {
		return "", err
	}
	return Situation(label), nil
}

// bestLabel scores every prompt in one call, averages scores within each set,
// and returns the label with the highest average.
func bestLabel(ctx context.Context, c Classifier, image []byte, sets []promptSet) (string, float64, error) {
	prompts := flattenPrompts(sets)

	scores, err := c.Scores(ctx, image, prompts)
	if err != nil {
		return "", 0, fmt.Errorf("classifier scores: %w", err)
	}
	if len(scores) != len(prompts) {
		return "", 0, fmt.Errorf("classifier returned %d scores for %d prompts", len(scores), len(prompts))
	}

	best := ""
	bestAvg := -1.0
	idx := 0
	for _, set := range sets {
		sum := 0.0
		for range set.prompts {
			sum += scores[idx]
			idx++
		}
		avg := sum / float64(len(set.prompts))
		if avg > bestAvg {
			bestAvg = avg
			best = set.label
		}
	}

	return best, bestAvg, nil
}
