package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mirrorlake/dreamforge/internal/errs"
	"github.com/mirrorlake/dreamforge/internal/logger"
)

// FalGenerator calls a FAL-style text-to-image endpoint.
type FalGenerator struct {
	url    string
	apiKey string
	http   *http.Client
}

type falRequest struct {
	Prompt              string  `json:"prompt"`
	ImageSize           string  `json:"image_size"`
	NumInferenceSteps   int     `json:"num_inference_steps"`
	GuidanceScale       float64 `json:"guidance_scale"`
	NumImages           int     `json:"num_images"`
	EnableSafetyChecker bool    `json:"enable_safety_checker"`
}

type falResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Error string `json:"error,omitempty"`
}

func NewFalGenerator(url, apiKey string) *FalGenerator {
	return &FalGenerator{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (g *FalGenerator) Generate(ctx context.Context, prompt, size string) (string, error) {
	body, err := json.Marshal(falRequest{
		Prompt:              prompt,
		ImageSize:           size,
		NumInferenceSteps:   28,
		GuidanceScale:       3.5,
		NumImages:           1,
		EnableSafetyChecker: true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", errs.Transient("generate image", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Transient("generate image", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", errs.New(errs.KindTransient, errs.CodeThirdParty, "generate image",
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	}

	var parsed falResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(parsed.Images) == 0 {
		return "", errs.New(errs.KindTerminal, errs.CodeThirdParty, "generate image",
			fmt.Errorf("no images in response"))
	}

	logger.Info("image generated", "size", size)
	return parsed.Images[0].URL, nil
}
