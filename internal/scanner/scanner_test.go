package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CivilAIScanner/internal/domain"
)

type stubScanner struct{ name string }

func (s stubScanner) Name() string { return s.name }

func (s stubScanner) Scan(context.Context, Request, Emit) error { return nil }

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubScanner{name: "rss"})
	reg.Register(stubScanner{name: "gdelt"})

	sc, err := reg.Resolve("rss")
	require.NoError(t, err)
	assert.Equal(t, "rss", sc.Name())

	_, err = reg.Resolve("missing")
	assert.Error(t, err)
	assert.Equal(t, []string{"gdelt", "rss"}, reg.Names())
}

func TestRequestOption(t *testing.T) {
	t.Parallel()

	req := Request{Options: map[string]string{"language": "en", "empty": ""}}
	assert.Equal(t, "en", req.Option("language", "de"))
	assert.Equal(t, "x", req.Option("empty", "x"))
	assert.Equal(t, "y", req.Option("missing", "y"))
}

func TestGateExhaust(t *testing.T) {
	t.Parallel()

	g := NewGate(0)
	require.NoError(t, g.Wait(context.Background()))

	g.Exhaust()
	assert.True(t, g.Exhausted())
	assert.True(t, errors.Is(g.Wait(context.Background()), ErrRateLimited))
}

func TestGatePacing(t *testing.T) {
	t.Parallel()

	g := NewGate(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestGateHonoursContext(t *testing.T) {
	t.Parallel()

	g := NewGate(time.Hour)
	require.NoError(t, g.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, g.Wait(ctx))
}

func TestNilGate(t *testing.T) {
	t.Parallel()

	var g *Gate
	assert.NoError(t, g.Wait(context.Background()))
	assert.False(t, g.Exhausted())
	g.Exhaust()

	var emit Emit = func(domain.Candidate) bool { return true }
	assert.True(t, emit(domain.Candidate{}))
}

type gatedStub struct {
	stubScanner
	gate *Gate
}

func (g *gatedStub) BeginRun() { g.gate.Reset() }

func TestRegistryBeginRunReopensGates(t *testing.T) {
	t.Parallel()

	gated := &gatedStub{stubScanner: stubScanner{name: "newsapi"}, gate: NewGate(0)}
	reg := NewRegistry()
	reg.Register(gated)
	reg.Register(&stubScanner{name: "rss"})

	gated.gate.Exhaust()
	require.ErrorIs(t, gated.gate.Wait(context.Background()), ErrRateLimited)

	reg.BeginRun()
	assert.False(t, gated.gate.Exhausted())
	assert.NoError(t, gated.gate.Wait(context.Background()))
}
