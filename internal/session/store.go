package session

import (
	"context"
	"time"

	"github.com/mirrorlake/dreamforge/internal/logger"
)

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Put registers a new session with its initial image records.
func (s *Store) Put(id, prompt string, images []Image) *Session {
	sess := &Session{
		ID:        id,
		Prompt:    prompt,
		images:    images,
		createdAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return sess
}

// Get returns the session for id, or nil if it does not exist.
func (s *Store) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Delete removes a session, cancelling its poll task if one is running.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		sess.Stop()
	}
}

// Resolve swaps the placeholder URL for fileName in the named session with
// its durable URL. Returns false if the session or file is unknown. This is
// how the upload worker reports completion; the session side still only
// notices through its poll loop.
func (s *Store) Resolve(sessionID, fileName, url string) bool {
	sess := s.Get(sessionID)
	if sess == nil {
		logger.Debug("resolve for unknown session", "session_id", sessionID, "file", fileName)
		return false
	}
	return sess.resolve(fileName, url)
}

// Drop removes the image record for fileName from the named session. Used
// when an upload could not be queued: the record would otherwise stay a
// placeholder forever and block convergence.
func (s *Store) Drop(sessionID, fileName string) {
	sess := s.Get(sessionID)
	if sess == nil {
		return
	}
	sess.drop(fileName)
}

// StopAll cancels every session's poll task. Called on shutdown.
func (s *Store) StopAll() {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	for _, sess := range sessions {
		sess.Stop()
	}
}

// Sweep deletes sessions older than maxAge and returns how many were
// removed.
func (s *Store) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	var stale []*Session
	for id, sess := range s.sessions {
		if sess.createdAt.Before(cutoff) {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Stop()
	}

	return len(stale)
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Images returns a copy of the session's image records in insertion order.
func (s *Session) Images() []Image {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]Image, len(s.images))
	copy(copied, s.images)
	return copied
}

// Ready reports whether every image has resolved out of the queued state. An
// empty session is never ready.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		return false
	}
	for _, img := range s.images {
		if img.Queued() {
			return false
		}
	}
	return true
}

func (s *Session) resolve(fileName, url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.images {
		if s.images[i].FileName == fileName {
			s.images[i].URL = url
			return true
		}
	}
	return false
}

func (s *Session) drop(fileName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.images {
		if s.images[i].FileName == fileName {
			s.images = append(s.images[:i], s.images[i+1:]...)
			return
		}
	}
}

// SetMessage records the outward message this session updates on
// convergence.
func (s *Session) SetMessage(channelID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = &Message{ChannelID: channelID, MessageID: messageID}
}

// Message returns the outward message handle, or nil if none was recorded.
func (s *Session) Message() *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// SetCancel stores the cancel func for the session's poll task so the
// session's lifecycle is controllable rather than left to attempt
// exhaustion.
func (s *Session) SetCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

// Stop cancels the session's poll task if one is running.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
