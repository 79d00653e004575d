// Package recording keeps per-client audio recording sessions and turns a
// finished recording into text.
package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"codelevels/internal/ports"
)

var (
	// ErrUnknownSession is returned for identifiers that were never started,
	// already stopped, or reaped.
	ErrUnknownSession = errors.New("unknown recording session")
	// ErrNoAudio is returned by Stop when the session captured nothing.
	ErrNoAudio = errors.New("no audio recorded")
	// ErrTooLarge is returned when a chunk would push a session past its limit.
	ErrTooLarge = errors.New("recording exceeds size limit")
)

const defaultMaxBytes = 25 << 20

// Options tunes a Manager.
type Options struct {
	// MaxBytes caps the audio buffered per session. Zero uses 25 MiB.
	MaxBytes int
	Logger   *slog.Logger
	Now      func() time.Time
}

type session struct {
	mu           sync.Mutex
	audio        bytes.Buffer
	startedAt    time.Time
	lastActivity time.Time
	closed       bool
}

// Manager owns the active recording sessions.
type Manager struct {
	transcriber ports.Transcriber
	maxBytes    int
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager constructs a Manager that transcribes through transcriber.
func NewManager(transcriber ports.Transcriber, opts Options) *Manager {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		transcriber: transcriber,
		maxBytes:    opts.MaxBytes,
		logger:      opts.Logger,
		now:         opts.Now,
		sessions:    make(map[string]*session),
	}
}

// Start opens a new, empty session and returns its identifier.
func (m *Manager) Start() string {
	id := uuid.NewString()
	now := m.now()

	m.mu.Lock()
	m.sessions[id] = &session{startedAt: now, lastActivity: now}
	m.mu.Unlock()

	m.logger.Debug("recording started", "session", id)
	return id
}

// Append adds an audio chunk to the session.
func (m *Manager) Append(id string, chunk []byte) error {
	s := m.lookup(id)
	if s == nil {
		return ErrUnknownSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnknownSession
	}
	if s.audio.Len()+len(chunk) > m.maxBytes {
		return ErrTooLarge
	}
	s.audio.Write(chunk)
	s.lastActivity = m.now()
	return nil
}

// Stop ends the session and transcribes whatever it captured. The session
// is gone afterwards whether or not transcription succeeds.
func (m *Manager) Stop(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return "", ErrUnknownSession
	}

	s.mu.Lock()
	s.closed = true
	audio := bytes.Clone(s.audio.Bytes())
	elapsed := m.now().Sub(s.startedAt)
	s.audio.Reset()
	s.mu.Unlock()

	if len(audio) == 0 {
		m.logger.Info("recording stopped without audio", "session", id)
		return "", ErrNoAudio
	}
	if m.transcriber == nil {
		return "", fmt.Errorf("transcribe session %s: no transcriber configured", id)
	}

	text, err := m.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return "", fmt.Errorf("transcribe session %s: %w", id, err)
	}

	m.logger.Info("recording transcribed", "session", id, "bytes", len(audio), "elapsed", elapsed)
	return text, nil
}

// Active reports the number of open sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Reap drops sessions idle for longer than ttl and returns how many were
// removed.
func (m *Manager) Reap(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	var stale []string
	for id, s := range m.sessions {
		s.mu.Lock()
		if s.lastActivity.Before(cutoff) {
			s.closed = true
			stale = append(stale, id)
		}
		s.mu.Unlock()
	}
	for _, id := range stale {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if len(stale) > 0 {
		m.logger.Info("reaped idle recordings", "count", len(stale))
	}
	return len(stale)
}

// RunReaper calls Reap every interval until ctx is done.
func (m *Manager) RunReaper(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = ttl / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reap(ttl)
		}
	}
}

func (m *Manager) lookup(id string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}
