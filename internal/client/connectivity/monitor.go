// Package connectivity tracks whether the remote service is reachable and
// notifies subscribers on transitions. There is no platform online/offline
// signal to wrap, so reachability is established by probing the service on
// an interval; callers may also feed transitions in directly via Set.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/avolkova/keepsafe/internal/logging"
)

// Probe reports service reachability; nil means online. The default probe is
// the remote client's Ping.
type Probe func(ctx context.Context) error

const probeTimeout = 3 * time.Second

// Monitor holds the current online state and fans transitions out to
// subscribers. Events are edge-triggered: a subscriber sees each offline→
// online or online→offline flip exactly once, never a repeat of the current
// state.
type Monitor struct {
	probe    Probe
	interval time.Duration
	logger   logging.Logger

	mu     sync.Mutex
	online bool
	subs   []chan bool
}

// NewMonitor builds a Monitor that considers the service offline until the
// first successful probe or Set(true).
func NewMonitor(probe Probe, interval time.Duration, logger logging.Logger) *Monitor {
	return &Monitor{probe: probe, interval: interval, logger: logger}
}

// Online returns the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records the state and, on a change, notifies subscribers. Setting the
// state it already has is a no-op, which is what guarantees one event per
// edge.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]chan bool, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	m.logger.Info(context.Background(), "connectivity changed", "online", online)
	for _, ch := range subs {
		select {
		case ch <- online:
		default:
			// Subscriber is lagging; it will observe the state via Online().
		}
	}
}

// Subscribe returns a channel receiving each state transition. The channel
// is buffered; a subscriber that falls behind misses intermediate flips but
// can always query Online for the current truth.
func (m *Monitor) Subscribe() <-chan bool {
	ch := make(chan bool, 4)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Run probes on the configured interval until ctx is cancelled. The first
// probe fires immediately so startup does not wait a full interval to learn
// the state.
func (m *Monitor) Run(ctx context.Context) {
	m.probeOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probeOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probeOnce(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	m.Set(m.probe(probeCtx) == nil)
}
