// File: internal/session/manager.go
package session

import (
	"sync"
	"time"

	"authflow_backend/internal/platform/crypto"

	"go.uber.org/zap"
)

const flowIDBytes = 24

// Manager owns the live controllers of a server process, keyed by an opaque
// flow ID handed to the client. HTTP clients span the phone OTP sub-flow
// across requests, so the controller holding the verification handle must
// survive between them.
type Manager struct {
	provider IdentityProvider
	profiles ProfileStore
	logger   *zap.Logger

	mu    sync.Mutex
	flows map[string]*flowEntry
}

type flowEntry struct {
	ctrl     *Controller
	lastSeen time.Time
}

// NewManager creates an empty flow manager.
func NewManager(provider IdentityProvider, profiles ProfileStore, logger *zap.Logger) *Manager {
	return &Manager{
		provider: provider,
		profiles: profiles,
		logger:   logger.Named("FlowManager"),
		flows:    make(map[string]*flowEntry),
	}
}

// Create registers a fresh controller and returns its flow ID.
func (m *Manager) Create() (string, *Controller, error) {
	id, err := crypto.GenerateSecureRandomString(flowIDBytes)
	if err != nil {
		return "", nil, err
	}
	ctrl := NewController(m.provider, m.profiles, m.logger)
	m.mu.Lock()
	m.flows[id] = &flowEntry{ctrl: ctrl, lastSeen: time.Now()}
	m.mu.Unlock()
	return id, ctrl, nil
}

// Get returns the controller for a flow ID and refreshes its last-seen time.
func (m *Manager) Get(id string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.flows[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = time.Now()
	return entry.ctrl, true
}

// Remove closes and forgets a flow. Unknown IDs are a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	entry, ok := m.flows[id]
	delete(m.flows, id)
	m.mu.Unlock()
	if ok {
		entry.ctrl.Close()
	}
}

// Detached returns a controller not tracked by the manager, for single-shot
// operations like password reset that carry no cross-request state.
func (m *Manager) Detached() *Controller {
	return NewController(m.provider, m.profiles, m.logger)
}

// Prune closes and removes flows idle for longer than ttl, returning the
// number removed.
func (m *Manager) Prune(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	var stale []*flowEntry

	m.mu.Lock()
	for id, entry := range m.flows {
		if entry.lastSeen.Before(cutoff) {
			stale = append(stale, entry)
			delete(m.flows, id)
		}
	}
	m.mu.Unlock()

	for _, entry := range stale {
		entry.ctrl.Close()
	}
	if len(stale) > 0 {
		m.logger.Info("Pruned stale auth flows", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Len reports the number of live flows.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flows)
}
