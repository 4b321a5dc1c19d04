// Package session keeps the most recent search result list per user so a
// follow-up "pick number N" message can be resolved without re-querying.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"posterbot/internal/provider"
	logx "posterbot/pkg/logx"
)

var (
	ErrNoSession        = errors.New("no active search session")
	ErrInvalidSelection = errors.New("selection index out of range")
)

// MaxItems caps the result list; selections are 1-based against the list as
// rendered to the user.
const MaxItems = 10

const defaultTTL = 30 * time.Minute

type Session struct {
	OwnerID   int64
	Query     string
	Source    provider.Source
	Items     []provider.Record
	CreatedAt time.Time
}

// Store holds one session per owner. Start replaces atomically; a Resolve
// racing a Start sees either the old or the new session, never a torn one.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	ttl time.Duration
	log logx.Logger
}

func NewStore(ttl time.Duration, log logx.Logger) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		log:      log,
	}
}

// Start unconditionally replaces the owner's previous session. Items beyond
// MaxItems are dropped, matching the rendered list.
func (s *Store) Start(ownerID int64, query string, source provider.Source, items []provider.Record) *Session {
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	cp := make([]provider.Record, len(items))
	copy(cp, items)

	sess := &Session{
		OwnerID:   ownerID,
		Query:     query,
		Source:    source,
		Items:     cp,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.sessions[ownerID] = sess
	s.mu.Unlock()
	return sess
}

// Resolve returns the record at the given 1-based index from the owner's
// current session. An expired session behaves like a missing one.
func (s *Store) Resolve(ownerID int64, index int) (provider.Record, error) {
	s.mu.RLock()
	sess := s.sessions[ownerID]
	s.mu.RUnlock()

	if sess == nil || time.Since(sess.CreatedAt) > s.ttl {
		return provider.Record{}, ErrNoSession
	}
	if index < 1 || index > len(sess.Items) {
		return provider.Record{}, ErrInvalidSelection
	}
	return sess.Items[index-1], nil
}

// Get returns the owner's current session, or nil if absent/expired.
func (s *Store) Get(ownerID int64) *Session {
	s.mu.RLock()
	sess := s.sessions[ownerID]
	s.mu.RUnlock()
	if sess == nil || time.Since(sess.CreatedAt) > s.ttl {
		return nil
	}
	return sess
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartSweeper evicts expired sessions periodically so abandoned searches do
// not grow the map without bound. Returns immediately; sweeping stops when
// ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.sweep(time.Now()); n > 0 {
					s.log.Debug("expired search sessions evicted", logx.Int("count", n))
				}
			}
		}
	}()
}

func (s *Store) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for owner, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) > s.ttl {
			delete(s.sessions, owner)
			evicted++
		}
	}
	return evicted
}
