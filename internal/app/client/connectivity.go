package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

// Monitor tracks whether the remote store is reachable. Connectivity changes
// come from periodic health probes or from explicit SetOnline calls (probes
// and manual overrides share the same transition path).
type Monitor struct {
	remote   RemoteStore
	interval time.Duration
	log      *slog.Logger

	mu        sync.Mutex
	online    bool
	listeners map[int]func(bool)
	nextID    int
	stop      chan struct{}
	done      chan struct{}
}

// NewMonitor creates a connectivity monitor that probes remote every
// interval. The monitor starts in the online state; the first failed probe
// flips it.
func NewMonitor(remote RemoteStore, interval time.Duration, log *slog.Logger) *Monitor {
	return &Monitor{
		remote:    remote,
		interval:  interval,
		log:       log.With("component", "connectivity"),
		online:    true,
		listeners: make(map[int]func(bool)),
	}
}

// Start launches the probe loop. Calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	go m.loop(ctx, stop, done)
}

func (m *Monitor) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)

	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := m.remote.Health(probeCtx)
	m.SetOnline(err == nil)
}

// Stop halts the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// SetOnline records the current connectivity and notifies listeners on a
// state change. Setting the same state twice does not notify.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]func(bool), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	m.log.Info("connectivity changed", "online", online)

	for _, fn := range listeners {
		fn(online)
	}
}

// IsOnline reports the last known connectivity.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnChange registers a listener called on every connectivity transition. The
// returned function removes the listener.
func (m *Monitor) OnChange(fn func(bool)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}
