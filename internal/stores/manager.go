package stores

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the lifecycle position of a registered adapter.
type State int

const (
	StateRegistered State = iota
	StateConnected
	StateInitialized
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateConnected:
		return "connected"
	case StateInitialized:
		return "initialized"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type registration struct {
	adapter Adapter
	active  bool
	state   State
}

// Manager owns the adapter registry and drives the lifecycle of active adapters.
// Steps never abort early: every active adapter is attempted and its outcome reported.
type Manager struct {
	mu           sync.RWMutex
	regs         map[string]*registration
	order        []string
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewManager creates an empty registry. probeTimeout bounds each health ping.
func NewManager(log zerolog.Logger, probeTimeout time.Duration) *Manager {
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	return &Manager{
		regs:         make(map[string]*registration),
		log:          log.With().Str("component", "store-manager").Logger(),
		probeTimeout: probeTimeout,
	}
}

// Register adds an adapter under name. New registrations start active.
func (m *Manager) Register(name string, a Adapter) error {
	if name == "" || a == nil {
		return fmt.Errorf("register: name and adapter are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.regs[name]; ok {
		return fmt.Errorf("register: adapter %q already registered", name)
	}
	m.regs[name] = &registration{adapter: a, active: true, state: StateRegistered}
	m.order = append(m.order, name)
	return nil
}

// Activate includes a registered adapter in lifecycle steps and fan-out.
func (m *Manager) Activate(name string) error { return m.setActive(name, true) }

// Deactivate excludes a registered adapter from lifecycle steps and fan-out.
func (m *Manager) Deactivate(name string) error { return m.setActive(name, false) }

func (m *Manager) setActive(name string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[name]
	if !ok {
		return fmt.Errorf("adapter %q not registered", name)
	}
	if r.active != active {
		r.active = active
		m.log.Info().Str("store", name).Bool("active", active).Msg("store activation changed")
	}
	return nil
}

// IsActive reports whether name is registered and active.
func (m *Manager) IsActive(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.regs[name]
	return ok && r.active
}

// Active returns the active adapter names in registration order.
func (m *Manager) Active() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.order))
	for _, n := range m.order {
		if m.regs[n].active {
			out = append(out, n)
		}
	}
	return out
}

// State returns the lifecycle state of name.
func (m *Manager) State(name string) (State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.regs[name]
	if !ok {
		return 0, false
	}
	return r.state, true
}

// ConnectAll connects every active adapter that is not already connected.
func (m *Manager) ConnectAll(ctx context.Context) map[string]error {
	return m.step(ctx, m.Active(), "connect", func(r *registration) (bool, State) {
		switch r.state {
		case StateRegistered, StateDisconnected:
			return true, StateConnected
		default:
			return false, r.state
		}
	}, func(ctx context.Context, a Adapter) error { return a.Connect(ctx) })
}

// InitializeAll initializes every active adapter that is connected.
// Adapters that never connected report an error and stay where they are.
func (m *Manager) InitializeAll(ctx context.Context) map[string]error {
	return m.step(ctx, m.Active(), "initialize", func(r *registration) (bool, State) {
		return r.state == StateConnected, StateInitialized
	}, func(ctx context.Context, a Adapter) error { return a.Initialize(ctx) })
}

// DisconnectAll disconnects every adapter that holds a connection, including ones
// deactivated after they connected.
func (m *Manager) DisconnectAll(ctx context.Context) map[string]error {
	return m.step(ctx, m.Names(), "disconnect", func(r *registration) (bool, State) {
		if r.state == StateConnected || r.state == StateInitialized {
			return true, StateDisconnected
		}
		return false, r.state
	}, func(ctx context.Context, a Adapter) error { return a.Disconnect(ctx) })
}

// step runs fn for the named adapters. eligible decides whether the adapter may take
// the transition and which state it lands in on success. Ineligible adapters are
// skipped silently when already past the step, or reported when not yet ready.
func (m *Manager) step(ctx context.Context, names []string, op string, eligible func(*registration) (bool, State), fn func(context.Context, Adapter) error) map[string]error {
	out := make(map[string]error)
	for _, name := range names {
		m.mu.RLock()
		r := m.regs[name]
		ok, next := eligible(r)
		cur := r.state
		a := r.adapter
		m.mu.RUnlock()

		if !ok {
			if op == "initialize" && cur != StateInitialized {
				out[name] = fmt.Errorf("%s %s: adapter is %s", op, name, cur)
				m.log.Warn().Str("store", name).Str("state", cur.String()).Msgf("skip %s", op)
			}
			continue
		}

		if err := safeCall(ctx, a, fn); err != nil {
			out[name] = err
			m.log.Error().Stack().Err(err).Str("store", name).Msgf("store %s failed", op)
			continue
		}
		m.mu.Lock()
		r.state = next
		m.mu.Unlock()
		out[name] = nil
		m.log.Info().Str("store", name).Str("state", next.String()).Msgf("store %s ok", op)
	}
	return out
}

// HealthCheckAll pings every active adapter. It never fails: errors, panics, timeouts and
// adapters without a live connection all report false.
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]bool {
	names := m.Active()
	out := make(map[string]bool, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range names {
		m.mu.RLock()
		r := m.regs[name]
		a, st := r.adapter, r.state
		m.mu.RUnlock()

		if st != StateConnected && st != StateInitialized {
			out[name] = false
			continue
		}
		wg.Add(1)
		go func(name string, a Adapter) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
			defer cancel()
			err := safeCall(pctx, a, func(ctx context.Context, a Adapter) error { return a.HealthPing(ctx) })
			if err != nil {
				m.log.Warn().Err(err).Str("store", name).Msg("store health check failed")
			}
			mu.Lock()
			out[name] = err == nil
			mu.Unlock()
		}(name, a)
	}
	wg.Wait()
	return out
}

// Names returns all registered names sorted, active or not.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]string(nil), m.order...)
	sort.Strings(out)
	return out
}

// safeCall shields the manager from adapters that panic.
func safeCall(ctx context.Context, a Adapter, fn func(context.Context, Adapter) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("adapter panic: %v", rec)
		}
	}()
	return fn(ctx, a)
}
