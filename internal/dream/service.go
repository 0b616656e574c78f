// Package dream coordinates the fan-out/fan-in flow behind the /dream
// command: generate several images in parallel, queue each for durable
// upload, and poll the session until all of them converge into one combined
// result.
package dream

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirrorlake/dreamforge/internal/logger"
	"github.com/mirrorlake/dreamforge/internal/queue"
	"github.com/mirrorlake/dreamforge/internal/session"
)

// MediaHandler is the slice of the media handler the service needs.
type MediaHandler interface {
	Generate(ctx context.Context, prompt, size string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
	Upload(ctx context.Context, fileName string, data []byte) (string, error)
}

// TaskQueue accepts upload tasks for asynchronous processing.
type TaskQueue interface {
	Push(ctx context.Context, queueName string, task any) error
}

// Renderer updates the outward-facing message once a session converges.
type Renderer interface {
	UpdateResult(msg session.Message, prompt string, images []session.Image, combinedURL string) error
}

type Config struct {
	ImageCount     int
	ImageSize      string
	UpdateInterval time.Duration
	MaxAttempts    int
}

func DefaultConfig() Config {
	return Config{
		ImageCount:     2,
		ImageSize:      "landscape_4_3",
		UpdateInterval: 5 * time.Second,
		MaxAttempts:    60,
	}
}

type Service struct {
	media    MediaHandler
	queue    TaskQueue
	sessions *session.Store
	renderer Renderer
	cfg      Config
}

func NewService(media MediaHandler, q TaskQueue, sessions *session.Store, renderer Renderer, cfg Config) *Service {
	return &Service{
		media:    media,
		queue:    q,
		sessions: sessions,
		renderer: renderer,
		cfg:      cfg,
	}
}

// SetRenderer installs the outward message renderer. The bot and the service
// reference each other, so the renderer arrives after construction.
func (s *Service) SetRenderer(r Renderer) {
	s.renderer = r
}

// Generate fans out ImageCount parallel generation+queue operations and
// stores the surviving records under a fresh session id. Failed generations
// are excluded silently; an empty result signals total failure. The returned
// slice preserves fan-out order regardless of completion order.
//
// The session is registered before any upload task is pushed: a worker can
// pop and resolve a task the moment it lands, and a resolve against an
// unregistered session would be lost.
func (s *Service) Generate(ctx context.Context, prompt string) ([]session.Image, string, error) {
	sessionID := newSessionID()

	type slot struct {
		img  session.Image
		task queue.UploadTask
	}
	results := make([]*slot, s.cfg.ImageCount)
	var wg sync.WaitGroup

	for i := 0; i < s.cfg.ImageCount; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			img, task, err := s.generateOne(ctx, prompt, sessionID)
			if err != nil {
				logger.Error("image generation failed", "session_id", sessionID, "error", err)
				return
			}
			results[n] = &slot{img: *img, task: *task}
		}(i)
	}
	wg.Wait()

	var images []session.Image
	var tasks []queue.UploadTask
	for _, r := range results {
		if r != nil {
			images = append(images, r.img)
			tasks = append(tasks, r.task)
		}
	}

	if len(images) == 0 {
		return nil, sessionID, nil
	}

	s.sessions.Put(sessionID, prompt, images)

	var queued []session.Image
	for i := range tasks {
		if err := s.queue.Push(ctx, queue.UploadQueue, &tasks[i]); err != nil {
			logger.Error("queueing upload failed", "session_id", sessionID, "file", tasks[i].FileName, "error", err)
			s.sessions.Drop(sessionID, tasks[i].FileName)
			continue
		}
		logger.Info("image queued for upload", "session_id", sessionID, "file", tasks[i].FileName)
		queued = append(queued, images[i])
	}

	if len(queued) == 0 {
		s.sessions.Delete(sessionID)
		return nil, sessionID, nil
	}

	logger.Info("images generated", "session_id", sessionID, "count", len(queued))
	return queued, sessionID, nil
}

// generateOne produces a single image and prepares its upload task, returning
// a record with a placeholder URL. The task is not queued here; the caller
// pushes it once the session is registered.
func (s *Service) generateOne(ctx context.Context, prompt, sessionID string) (*session.Image, *queue.UploadTask, error) {
	url, err := s.media.Generate(ctx, prompt, s.cfg.ImageSize)
	if err != nil {
		return nil, nil, err
	}

	content, err := s.media.Download(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("download generated image: %w", err)
	}

	fileName := newFileName("DREAM")

	task := &queue.UploadTask{
		ID:           uuid.NewString(),
		FileName:     fileName,
		ImageContent: content,
		SessionID:    sessionID,
	}

	img := &session.Image{
		URL:      session.Placeholder(fileName),
		FileName: fileName,
		Prompt:   prompt,
	}

	return img, task, nil
}

// StartPolling launches the detached convergence poll for a session. The
// cancel handle is retained on the session so shutdown can stop it early.
func (s *Service) StartPolling(sessionID string) {
	sess := s.sessions.Get(sessionID)
	if sess == nil {
		logger.Warn("poll requested for unknown session", "session_id", sessionID)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess.SetCancel(cancel)

	go s.poll(ctx, sess)
}

// poll checks readiness once per interval, updating the outward message
// exactly once on convergence. It gives up silently after MaxAttempts.
func (s *Service) poll(ctx context.Context, sess *session.Session) {
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			logger.Debug("poll cancelled", "session_id", sess.ID)
			return
		case <-time.After(s.cfg.UpdateInterval):
		}

		if sess.Ready() {
			s.updateResult(ctx, sess)
			logger.Info("session converged", "session_id", sess.ID, "attempts", attempt)
			return
		}
	}

	logger.Warn("max update attempts reached", "session_id", sess.ID)
}

func (s *Service) updateResult(ctx context.Context, sess *session.Session) {
	msg := sess.Message()
	if msg == nil || s.renderer == nil {
		logger.Warn("session has no outward message", "session_id", sess.ID)
		return
	}

	combinedURL := s.Combine(ctx, sess.Images(), sess.ID)

	if err := s.renderer.UpdateResult(*msg, sess.Prompt, sess.Images(), combinedURL); err != nil {
		logger.Error("result update failed", "session_id", sess.ID, "error", err)
	}
}

// Sessions exposes the session store for the bot surface.
func (s *Service) Sessions() *session.Store {
	return s.sessions
}

func newSessionID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func newFileName(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%s_%s.jpg", prefix, hex.EncodeToString(b))
}
