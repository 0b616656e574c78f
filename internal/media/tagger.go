package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const tagPrompt = `List up to 10 short descriptive labels for this image, suitable as product tags. Respond with a single comma-separated line, nothing else.`

// ClaudeTagger labels images with a vision-capable Claude model.
type ClaudeTagger struct {
	client anthropic.Client
	model  string
}

func NewClaudeTagger(apiKey, model string) *ClaudeTagger {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ClaudeTagger{client: client, model: model}
}

func (t *ClaudeTagger) Tag(ctx context.Context, image []byte) ([]string, error) {
	mimeType := http.DetectContentType(image)

	msg := anthropic.NewUserMessage(
		anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(image)),
		anthropic.NewTextBlock(tagPrompt),
	)

	resp, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     t.model,
		MaxTokens: 256,
		Messages:  []anthropic.MessageParam{msg},
	})
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	return parseTags(text), nil
}

func parseTags(text string) []string {
	var tags []string
	for _, part := range strings.Split(text, ",") {
		tag := strings.TrimSpace(part)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
