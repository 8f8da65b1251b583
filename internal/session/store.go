// Package session keeps per-user conversational state: the rate-limit
// stamp, the remembered product and the pending disambiguation list.
//
// Each sub-record carries its own timestamp and TTL. Expiry is lazy: a
// record older than its TTL is dropped the moment it is read. Sweep and
// RunJanitor only bound memory growth; correctness never depends on them.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

// ErrNoPendingChoice is returned by ResolveChoice when the user has no
// live pending choice.
var ErrNoPendingChoice = errors.New("no pending choice")

// ErrChoiceOutOfRange is returned by ResolveChoice for a number outside
// 1..Max. The pending choice is left in place.
type ErrChoiceOutOfRange struct {
	Max int
}

func (e *ErrChoiceOutOfRange) Error() string {
	return fmt.Sprintf("choice out of range: pick 1..%d", e.Max)
}

// Config holds the store's time windows.
type Config struct {
	Cooldown  time.Duration
	MemoryTTL time.Duration
	ChoiceTTL time.Duration
}

// DefaultConfig mirrors the reference behavior: 5s cooldown, 15 minute
// memory, 60 second choice window.
func DefaultConfig() Config {
	return Config{
		Cooldown:  5 * time.Second,
		MemoryTTL: 15 * time.Minute,
		ChoiceTTL: 60 * time.Second,
	}
}

// Memory is the most recently resolved product for a user.
type Memory struct {
	Product    domain.ProductRef
	ResolvedAt time.Time
}

// Expired reports whether the memory is older than ttl at now.
func (m Memory) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(m.ResolvedAt) > ttl
}

// PendingChoice is a time-boxed list of candidates awaiting a number.
type PendingChoice struct {
	Candidates []domain.ProductCandidate
	CreatedAt  time.Time
}

// Expired reports whether the choice is older than ttl at now.
func (p PendingChoice) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.CreatedAt) > ttl
}

type record struct {
	lastRateLimitAt time.Time
	stamped         bool
	memory          *Memory
	pending         *PendingChoice
}

func (r *record) empty() bool {
	return !r.stamped && r.memory == nil && r.pending == nil
}

// Store is a mutex-guarded map of per-user records. Every operation runs
// under the lock, so check-and-stamp sequences are atomic per user.
type Store struct {
	mu    sync.Mutex
	users map[string]*record
	cfg   Config
	now   func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store.
func NewStore(cfg Config, opts ...Option) *Store {
	s := &Store{
		users: make(map[string]*record),
		cfg:   cfg,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the store's time windows.
func (s *Store) Config() Config {
	return s.cfg
}

// lookup returns the user's record, creating it when create is set.
// Caller holds s.mu.
func (s *Store) lookup(userID string, create bool) *record {
	rec, ok := s.users[userID]
	if !ok && create {
		rec = &record{}
		s.users[userID] = rec
	}
	return rec
}

// CheckCooldown returns the whole seconds left before userID may send
// another request, rounded up. Zero means allowed, and in that case the
// request is stamped before the lock is released.
func (s *Store) CheckCooldown(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := s.lookup(userID, true)
	if rec.stamped {
		if elapsed := now.Sub(rec.lastRateLimitAt); elapsed < s.cfg.Cooldown {
			return int(math.Ceil((s.cfg.Cooldown - elapsed).Seconds()))
		}
	}
	rec.lastRateLimitAt = now
	rec.stamped = true
	return 0
}

// GetMemory returns the user's remembered product, evicting it if stale.
func (s *Store) GetMemory(userID string) (Memory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memoryLocked(userID)
}

func (s *Store) memoryLocked(userID string) (Memory, bool) {
	rec := s.lookup(userID, false)
	if rec == nil || rec.memory == nil {
		return Memory{}, false
	}
	if rec.memory.Expired(s.now(), s.cfg.MemoryTTL) {
		rec.memory = nil
		return Memory{}, false
	}
	return *rec.memory, true
}

// SetMemory overwrites the user's remembered product and resets its clock.
func (s *Store) SetMemory(userID string, product domain.ProductRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Kind == "" {
		product.Kind = domain.VariantBase
	}
	s.lookup(userID, true).memory = &Memory{Product: product, ResolvedAt: s.now()}
}

// GetPendingChoice returns the user's live pending choice, evicting it if stale.
func (s *Store) GetPendingChoice(userID string) (PendingChoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pendingLocked(userID)
	if !ok {
		return PendingChoice{}, false
	}
	p.Candidates = append([]domain.ProductCandidate(nil), p.Candidates...)
	return p, true
}

func (s *Store) pendingLocked(userID string) (PendingChoice, bool) {
	rec := s.lookup(userID, false)
	if rec == nil || rec.pending == nil {
		return PendingChoice{}, false
	}
	if rec.pending.Expired(s.now(), s.cfg.ChoiceTTL) {
		rec.pending = nil
		return PendingChoice{}, false
	}
	return *rec.pending, true
}

// SetPendingChoice replaces any prior pending choice.
func (s *Store) SetPendingChoice(userID string, candidates []domain.ProductCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookup(userID, true).pending = &PendingChoice{
		Candidates: append([]domain.ProductCandidate(nil), candidates...),
		CreatedAt:  s.now(),
	}
}

// ClearPendingChoice drops the user's pending choice, if any.
func (s *Store) ClearPendingChoice(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.lookup(userID, false); rec != nil {
		rec.pending = nil
	}
}

// ResolveChoice interprets n as a 1-based index into the pending choice.
// In range, the candidate becomes the user's memory and the pending choice
// is cleared. Out of range, *ErrChoiceOutOfRange is returned and the
// pending choice stays available until its TTL lapses.
func (s *Store) ResolveChoice(userID string, n int) (domain.ProductRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pendingLocked(userID)
	if !ok {
		return domain.ProductRef{}, ErrNoPendingChoice
	}
	if n < 1 || n > len(p.Candidates) {
		return domain.ProductRef{}, &ErrChoiceOutOfRange{Max: len(p.Candidates)}
	}

	picked := p.Candidates[n-1]
	ref := domain.ProductRef{ID: picked.ID, Name: picked.Name, Kind: domain.VariantBase}

	rec := s.lookup(userID, true)
	rec.memory = &Memory{Product: ref, ResolvedAt: s.now()}
	rec.pending = nil
	return ref, nil
}

// Len returns the number of users with any state.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Sweep drops every expired sub-record and every user left with nothing.
// It returns the number of users removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, rec := range s.users {
		if rec.memory != nil && rec.memory.Expired(now, s.cfg.MemoryTTL) {
			rec.memory = nil
		}
		if rec.pending != nil && rec.pending.Expired(now, s.cfg.ChoiceTTL) {
			rec.pending = nil
		}
		if rec.stamped && now.Sub(rec.lastRateLimitAt) >= s.cfg.Cooldown {
			rec.stamped = false
		}
		if rec.empty() {
			delete(s.users, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is cancelled. The caller owns
// the goroutine it runs on.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
