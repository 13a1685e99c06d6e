package contextview

import (
	"context"
	"strings"
	"sync"
)

// ActiveContextService owns the at-most-one active context. The slot is
// guarded by a mutex so Get/Set/Clear/SwitchByName/Status are linearizable
// under concurrent handlers. The service is an owned container passed to
// handlers, not a package-level singleton.
type ActiveContextService struct {
	mu     sync.Mutex
	repo   Repository
	active *View
}

// NewActiveContextService creates the service with no active context.
func NewActiveContextService(repo Repository) *ActiveContextService {
	return &ActiveContextService{repo: repo}
}

// Get returns the active view, nil when none is set.
func (s *ActiveContextService) Get() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Set makes v the active context.
func (s *ActiveContextService) Set(v *View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = v
}

// Clear drops the active context.
func (s *ActiveContextService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}

// SwitchByName looks a view up by name and atomically makes it active,
// returning the resolved view.
func (s *ActiveContextService) SwitchByName(ctx context.Context, name string) (*View, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, &Error{Code: ErrCodeInvalidName, Message: "context name must not be blank"}
	}

	view, err := s.repo.FindByName(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, &Error{Code: ErrCodeNotFound, Message: "no context with this name", Key: trimmed}
	}

	s.mu.Lock()
	s.active = view
	s.mu.Unlock()
	return view, nil
}

// Status describes the active slot.
type Status struct {
	Active bool
	Key    string
	Name   string
	Filter string
}

// Status returns a snapshot of the active slot.
func (s *ActiveContextService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Status{}
	}
	return Status{
		Active: true,
		Key:    s.active.Key.String(),
		Name:   s.active.Name,
		Filter: s.active.Filter,
	}
}
