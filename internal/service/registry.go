package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pos-checkout-service/internal/util"

	"go.uber.org/zap"
)

// Registry owns the live terminal sessions
type Registry struct {
	deps   SessionDeps
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry
func NewRegistry(deps SessionDeps) *Registry {
	return &Registry{
		deps:     deps,
		logger:   util.GetLogger(),
		sessions: map[string]*Session{},
	}
}

// Open mounts a new terminal session with the catalog and promotions loaded
func (r *Registry) Open(ctx context.Context, cashierID string) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "Registry.Open")
	defer span.End()

	s, err := newSession(ctx, r.deps, cashierID)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	util.SessionsOpened.Inc()
	util.SessionsActive.Inc()
	s.logger.Info("Session opened")
	return s, nil
}

// Get returns a live session
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close discards a session and its unsaved cart
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	util.SessionsActive.Dec()
	s.logger.Info("Session closed")
	return nil
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// RefreshAllPromotions reloads the promotion cache of every live session.
// A failing session keeps its previous promotions.
func (r *Registry) RefreshAllPromotions(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "Registry.RefreshAllPromotions")
	defer span.End()

	var errs []error
	for _, s := range r.snapshot() {
		if _, err := s.RefreshPromotions(ctx); err != nil {
			s.logger.Warn("Failed to refresh promotions", zap.Error(err))
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
		}
	}

	err := errors.Join(errs...)
	util.FailSpan(span, err)
	return err
}

// MarkCatalogsStale flags every live catalog snapshot as outdated.
// Sessions pick up the new catalog on their next checkout or explicit reload.
func (r *Registry) MarkCatalogsStale() {
	for _, s := range r.snapshot() {
		s.markCatalogStale()
	}
}

// ExpireIdle closes sessions untouched for longer than ttl and returns how many were closed.
// Sessions in the middle of a checkout are kept.
func (r *Registry) ExpireIdle(now time.Time, ttl time.Duration) int {
	expired := 0
	for _, s := range r.snapshot() {
		if s.State().CheckoutActive || now.Sub(s.idleSince()) < ttl {
			continue
		}
		if err := r.Close(s.ID); err == nil {
			expired++
		}
	}
	if expired > 0 {
		r.logger.Info("Expired idle sessions", zap.Int("count", expired))
	}
	return expired
}
