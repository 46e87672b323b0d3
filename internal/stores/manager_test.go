package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	connectErr error
	initErr    error
	pingErr    error
	panicPing  bool
	slowPing   time.Duration

	connects    int
	initializes int
	disconnects int
}

func (f *fakeAdapter) Connect(context.Context) error { f.connects++; return f.connectErr }

func (f *fakeAdapter) Initialize(context.Context) error { f.initializes++; return f.initErr }

func (f *fakeAdapter) Disconnect(context.Context) error { f.disconnects++; return nil }

func (f *fakeAdapter) HealthPing(ctx context.Context) error {
	if f.panicPing {
		panic("boom")
	}
	if f.slowPing > 0 {
		select {
		case <-time.After(f.slowPing):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.pingErr
}

func newTestManager() *Manager { return NewManager(zerolog.Nop(), 50*time.Millisecond) }

func TestManager_RegisterRejectsDuplicates(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.Register(NamePrimary, &fakeAdapter{}))
	assert.Error(t, m.Register(NamePrimary, &fakeAdapter{}))
	assert.Error(t, m.Register("", &fakeAdapter{}))
	assert.Error(t, m.Register("x", nil))
	assert.Error(t, m.Activate("missing"))
}

func TestManager_LifecycleContinuesPastFailures(t *testing.T) {
	m := newTestManager()
	good := &fakeAdapter{}
	bad := &fakeAdapter{connectErr: errors.New("refused")}
	require.NoError(t, m.Register(NamePrimary, good))
	require.NoError(t, m.Register(NameTimeline, bad))

	res := m.ConnectAll(context.Background())
	assert.NoError(t, res[NamePrimary])
	assert.Error(t, res[NameTimeline])
	assert.Equal(t, 1, good.connects)
	assert.Equal(t, 1, bad.connects)

	st, _ := m.State(NameTimeline)
	assert.Equal(t, StateRegistered, st)

	res = m.InitializeAll(context.Background())
	assert.NoError(t, res[NamePrimary])
	assert.Error(t, res[NameTimeline])
	assert.Equal(t, 0, bad.initializes)

	st, _ = m.State(NamePrimary)
	assert.Equal(t, StateInitialized, st)
}

func TestManager_ReconnectIsNoop(t *testing.T) {
	m := newTestManager()
	a := &fakeAdapter{}
	require.NoError(t, m.Register(NameVector, a))

	m.ConnectAll(context.Background())
	m.ConnectAll(context.Background())
	assert.Equal(t, 1, a.connects)

	m.DisconnectAll(context.Background())
	st, _ := m.State(NameVector)
	assert.Equal(t, StateDisconnected, st)

	m.ConnectAll(context.Background())
	assert.Equal(t, 2, a.connects)
}

func TestManager_FailedInitializeKeepsConnected(t *testing.T) {
	m := newTestManager()
	a := &fakeAdapter{initErr: errors.New("schema")}
	require.NoError(t, m.Register(NameGraph, a))
	m.ConnectAll(context.Background())

	res := m.InitializeAll(context.Background())
	assert.Error(t, res[NameGraph])
	st, _ := m.State(NameGraph)
	assert.Equal(t, StateConnected, st)
}

func TestManager_DisconnectReachesDeactivatedAdapters(t *testing.T) {
	m := newTestManager()
	a := &fakeAdapter{initErr: errors.New("schema")}
	require.NoError(t, m.Register(NameTimeline, a))
	m.ConnectAll(context.Background())
	m.InitializeAll(context.Background())
	require.NoError(t, m.Deactivate(NameTimeline))

	res := m.DisconnectAll(context.Background())
	assert.NoError(t, res[NameTimeline])
	assert.Equal(t, 1, a.disconnects)
	st, _ := m.State(NameTimeline)
	assert.Equal(t, StateDisconnected, st)

	// inactive adapters are still not reconnected
	m.ConnectAll(context.Background())
	assert.Equal(t, 1, a.connects)
}

func TestManager_InactiveAdaptersAreSkipped(t *testing.T) {
	m := newTestManager()
	a := &fakeAdapter{}
	b := &fakeAdapter{}
	require.NoError(t, m.Register(NamePrimary, a))
	require.NoError(t, m.Register(NameGraph, b))
	require.NoError(t, m.Deactivate(NameGraph))

	assert.Equal(t, []string{NamePrimary}, m.Active())
	assert.False(t, m.IsActive(NameGraph))

	res := m.ConnectAll(context.Background())
	_, attempted := res[NameGraph]
	assert.False(t, attempted)
	assert.Equal(t, 0, b.connects)
	assert.NotContains(t, m.HealthCheckAll(context.Background()), NameGraph)

	require.NoError(t, m.Activate(NameGraph))
	assert.True(t, m.IsActive(NameGraph))
	assert.Equal(t, []string{NameGraph, NamePrimary}, m.Names())
}

func TestManager_HealthCheckAllNeverFails(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.Register("ok", &fakeAdapter{}))
	require.NoError(t, m.Register("err", &fakeAdapter{pingErr: errors.New("down")}))
	require.NoError(t, m.Register("panic", &fakeAdapter{panicPing: true}))
	require.NoError(t, m.Register("slow", &fakeAdapter{slowPing: time.Second}))
	require.NoError(t, m.Register("closed", &fakeAdapter{connectErr: errors.New("nope")}))
	m.ConnectAll(context.Background())

	got := m.HealthCheckAll(context.Background())
	assert.Equal(t, map[string]bool{
		"ok":     true,
		"err":    false,
		"panic":  false,
		"slow":   false,
		"closed": false,
	}, got)

	m.DisconnectAll(context.Background())
	assert.False(t, m.HealthCheckAll(context.Background())["ok"])
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "initialized", StateInitialized.String())
	assert.Equal(t, "state(9)", State(9).String())
}
