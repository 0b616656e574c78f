package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

// PlaceholderPrefix marks an image that exists logically but has not been
// durably stored yet.
const PlaceholderPrefix = "queued://"

// Placeholder builds the sentinel URL for a file still queued for upload.
func Placeholder(fileName string) string {
	return PlaceholderPrefix + fileName
}

// Image is one generated artifact tracked by a session.
type Image struct {
	URL      string
	FileName string
	Prompt   string
}

// Queued reports whether the image is still waiting for its durable URL.
func (img Image) Queued() bool {
	return strings.HasPrefix(img.URL, PlaceholderPrefix)
}

// Message identifies the outward-facing message a session updates on
// convergence.
type Message struct {
	ChannelID string
	MessageID string
}

// Session groups the images generated for one prompt until they converge
// into a single user-visible result.
type Session struct {
	ID     string
	Prompt string

	mu        sync.Mutex
	images    []Image
	message   *Message
	cancel    context.CancelFunc
	createdAt time.Time
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}
