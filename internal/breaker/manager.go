// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package breaker

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	cache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

// manager sweep settings: an endpoint idle for idleTTL is evicted, freeing
// its ring buffer and counters; a new Breaker is created transparently on
// the next call for that URL.
const (
	idleTTL         = 30 * time.Minute
	sweepInterval   = 5 * time.Minute
)

// Manager owns one Breaker per endpoint URL. Breakers for endpoints that
// stop receiving traffic are evicted after idleTTL rather than retained for
// the lifetime of the process.
type Manager struct {
	params Params
	clock  clockwork.Clock
	logger log.FieldLogger
	prober Prober

	mu        sync.Mutex
	breakers  *cache.Cache
}

// NewManager constructs a Manager using params for every breaker it creates.
func NewManager(params Params, clock clockwork.Clock, logger log.FieldLogger) *Manager {
	return &Manager{
		params:   params,
		clock:    clock,
		logger:   logger.WithField("component", "breaker-manager"),
		breakers: cache.New(idleTTL, sweepInterval),
	}
}

// SetProber installs a health probe applied to every breaker, including ones
// created after this call.
func (m *Manager) SetProber(p Prober) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prober = p

	for _, item := range m.breakers.Items() {
		item.Object.(*Breaker).SetProber(p)
	}
}

// Get returns the Breaker for url, creating it if this is the first time the
// URL has been seen (or if it was swept for inactivity).
func (m *Manager) Get(url string) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.breakers.Get(url); ok {
		// Refresh the expiry so only endpoints without traffic are swept.
		m.breakers.SetDefault(url, existing)
		return existing.(*Breaker)
	}

	b := New(url, m.params, m.clock, m.logger)
	if m.prober != nil {
		b.SetProber(m.prober)
	}
	m.breakers.SetDefault(url, b)

	return b
}

// States returns a snapshot of every tracked endpoint's current state,
// primarily for metrics export.
func (m *Manager) States() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]State, m.breakers.ItemCount())
	for url, item := range m.breakers.Items() {
		out[url] = item.Object.(*Breaker).State()
	}
	return out
}
