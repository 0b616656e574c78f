// Package media manages the image lifecycle: generation through an external
// text-to-image API, labeling through a vision model, and upload to object
// storage with bounded retries.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mirrorlake/dreamforge/internal/errs"
	"github.com/mirrorlake/dreamforge/internal/logger"
)

type Generator interface {
	Generate(ctx context.Context, prompt, size string) (string, error)
}

type Tagger interface {
	Tag(ctx context.Context, image []byte) ([]string, error)
}

type ObjectStore interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, name string) ([]byte, error)
}

// HandlerConfig tunes the upload retry policy. Validated once at
// construction; immutable afterward.
type HandlerConfig struct {
	Retries  int           `validate:"required,min=1"`
	BaseWait time.Duration `validate:"required,min=1ms"`
	MaxWait  time.Duration `validate:"required,min=1ms"`
}

func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		Retries:  3,
		BaseWait: time.Second,
		MaxWait:  10 * time.Second,
	}
}

type Handler struct {
	gen    Generator
	tagger Tagger
	store  ObjectStore
	cfg    HandlerConfig
	http   *http.Client
}

var validate = validator.New()

func NewHandler(gen Generator, tagger Tagger, store ObjectStore, cfg HandlerConfig) (*Handler, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, errs.New(errs.KindValidation, errs.CodeConfig, "media handler config", err)
	}

	return &Handler{
		gen:    gen,
		tagger: tagger,
		store:  store,
		cfg:    cfg,
		http:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Generate produces one image for the prompt and returns its provider URL.
func (h *Handler) Generate(ctx context.Context, prompt, size string) (string, error) {
	url, err := h.gen.Generate(ctx, prompt, size)
	if err != nil {
		logger.Error("image generation failed", "error", err)
		return "", err
	}
	return url, nil
}

// Download fetches an image's bytes from a URL.
func (h *Handler) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return nil, errs.Transient("download image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Transient("download image", fmt.Errorf("status %d from %s", resp.StatusCode, url))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Transient("download image", err)
	}

	logger.Debug("image downloaded", "url", url, "bytes", len(data))
	return data, nil
}

// Tag labels an image through the vision collaborator. Failures yield an
// empty list, not an error, per the tagging contract.
func (h *Handler) Tag(ctx context.Context, image []byte) []string {
	if h.tagger == nil {
		return nil
	}

	tags, err := h.tagger.Tag(ctx, image)
	if err != nil {
		logger.Error("image tagging failed", "error", err)
		return nil
	}

	logger.Debug("image tagged", "tags", tags)
	return tags
}

// Upload stores the file and returns its public URL, retrying transient
// failures with a doubling backoff bounded by MaxWait. Exhaustion surfaces a
// terminal upload error.
func (h *Handler) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	wait := h.cfg.BaseWait
	contentType := MimeType(fileName)

	var lastErr error
	for attempt := 1; attempt <= h.cfg.Retries; attempt++ {
		url, err := h.store.Upload(ctx, fileName, data, contentType)
		if err == nil {
			logger.Info("file uploaded", "file", fileName, "url", url, "attempt", attempt)
			return url, nil
		}

		lastErr = err
		if attempt < h.cfg.Retries {
			logger.Warn("upload attempt failed", "file", fileName, "attempt", attempt, "retry_in", wait, "error", err)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
			if wait > h.cfg.MaxWait {
				wait = h.cfg.MaxWait
			}
		}
	}

	logger.Error("all upload attempts failed", "file", fileName, "attempts", h.cfg.Retries, "error", lastErr)
	return "", errs.Terminal(errs.CodeUpload, "upload "+fileName, lastErr)
}

// Fetch downloads a previously uploaded object from storage.
func (h *Handler) Fetch(ctx context.Context, fileName string) ([]byte, error) {
	data, err := h.store.Download(ctx, fileName)
	if err != nil {
		return nil, errs.Transient("fetch "+fileName, err)
	}
	return data, nil
}

// Result is the outcome of a full generate-tag-upload pass.
type Result struct {
	Tags      []string
	UploadURL string
}

// Process runs the full lifecycle for one prompt: generate, download, tag,
// upload.
func (h *Handler) Process(ctx context.Context, taskID, prompt, size string) (*Result, error) {
	logger.Info("processing image", "task_id", taskID, "prompt", truncate(prompt, 60))

	url, err := h.Generate(ctx, prompt, size)
	if err != nil {
		return nil, fmt.Errorf("generate image for task %s: %w", taskID, err)
	}

	content, err := h.Download(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download image for task %s: %w", taskID, err)
	}

	tags := h.Tag(ctx, content)

	uploadURL, err := h.Upload(ctx, taskID+".png", content)
	if err != nil {
		return nil, err
	}

	return &Result{Tags: tags, UploadURL: uploadURL}, nil
}

// MimeType maps a file extension to its content type.
func MimeType(fileName string) string {
	switch filepath.Ext(fileName) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
