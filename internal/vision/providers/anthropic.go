package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider scores images against text prompts through the Claude
// vision API. It is a fallback for hosts without a local CLIP daemon; scores
// are the model's judgment rather than true embedding similarities, but they
// are softmax-shaped and deterministic enough for category ensembling.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic-backed classifier.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicProvider{
		client: &client,
		model:  model,
	}
}

// Scores implements vision.Classifier.
func (p *AnthropicProvider) Scores(ctx context.Context, image []byte, prompts []string) ([]float64, error) {
	mediaType := http.DetectContentType(image)

	// Prefill the assistant turn with "[" so the model continues with a bare
	// JSON array.
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(image)),
				anthropic.NewTextBlock(buildScoringPrompt(prompts)),
			),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock("[")),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call Claude API: %w", err)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("Claude returned empty response")
	}

	var scores []float64
	if err := json.Unmarshal([]byte("["+responseText), &scores); err != nil {
		return nil, fmt.Errorf("failed to parse score JSON: %w (response was: %.500s)", err, responseText)
	}
	if len(scores) != len(prompts) {
		return nil, fmt.Errorf("Claude returned %d scores for %d prompts", len(scores), len(prompts))
	}

	return scores, nil
}

func buildScoringPrompt(prompts []string) string {
	var sb strings.Builder

	sb.WriteString("Rate how well the attached image matches each description below.\n\n")
	for i, prompt := range prompts {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, prompt))
	}
	sb.WriteString("\nRespond with ONLY a JSON array of ")
	sb.WriteString(fmt.Sprintf("%d", len(prompts)))
	sb.WriteString(" probabilities in the same order, summing to 1.0. ")
	sb.WriteString("No markdown, no explanation - just the raw JSON array.\n")

	return sb.String()
}
