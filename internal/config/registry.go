package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/malhajar17/moentreprise/internal/orchestrator"
	"github.com/malhajar17/moentreprise/pkg/realtime"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider kind. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	realtime   map[string]func(ProviderEntry) (realtime.Provider, error)
	summariser map[string]func(ProviderEntry) (orchestrator.Summariser, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		realtime:   make(map[string]func(ProviderEntry) (realtime.Provider, error)),
		summariser: make(map[string]func(ProviderEntry) (orchestrator.Summariser, error)),
	}
}

// RegisterRealtime registers a realtime provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterRealtime(name string, factory func(ProviderEntry) (realtime.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.realtime[name] = factory
}

// RegisterSummariser registers a briefing summariser factory under name.
func (r *Registry) RegisterSummariser(name string, factory func(ProviderEntry) (orchestrator.Summariser, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summariser[name] = factory
}

// CreateRealtime instantiates a realtime provider using the factory
// registered under entry.Name. Returns [ErrProviderNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateRealtime(entry ProviderEntry) (realtime.Provider, error) {
	r.mu.RLock()
	factory, ok := r.realtime[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: realtime/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSummariser instantiates a briefing summariser using the factory
// registered under entry.Name.
func (r *Registry) CreateSummariser(entry ProviderEntry) (orchestrator.Summariser, error) {
	r.mu.RLock()
	factory, ok := r.summariser[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
