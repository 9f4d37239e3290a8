package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tools.zach/dev/flagman/internal/action/actiontest"
	"tools.zach/dev/flagman/internal/signals"
)

func buildLoop(t *testing.T, cfg map[signals.Signal][]Descriptor) (*Loop, *signals.PendingSet, *actiontest.Log) {
	t.Helper()
	log := &actiontest.Log{}
	bundles, _, err := Build(cfg, testRegistry(log))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bundles.Close() })
	p := signals.NewPendingSet()
	return NewLoop(bundles, p), p, log
}

func TestDrain_StepsBundleInOrderOnce(t *testing.T) {
	loop, p, log := buildLoop(t, map[signals.Signal][]Descriptor{
		signals.USR1: {cmd("record", "x"), cmd("record", "y"), cmd("record", "z")},
	})

	p.Add(signals.USR1)
	require.NoError(t, loop.drain(context.Background()))

	assert.Equal(t, []string{"x", "y", "z"}, log.Steps())
	assert.False(t, p.Has(signals.USR1))
	assert.Equal(t, Stats{Dispatches: 1, Steps: 3}, loop.Stats())
}

func TestDrain_Coalesces(t *testing.T) {
	loop, p, log := buildLoop(t, map[signals.Signal][]Descriptor{
		signals.HUP: {cmd("record", "r")},
	})

	p.Add(signals.HUP)
	p.Add(signals.HUP)
	require.NoError(t, loop.drain(context.Background()))

	assert.Equal(t, []string{"r"}, log.Steps())
}

func TestDrain_FailureDoesNotStopBundle(t *testing.T) {
	captureLogs(t)
	loop, p, log := buildLoop(t, map[signals.Signal][]Descriptor{
		signals.USR1: {cmd("record", "a"), cmd("fail", "b"), cmd("record", "c")},
		signals.USR2: {cmd("record", "d")},
	})

	p.Add(signals.USR1)
	require.NoError(t, loop.drain(context.Background()))
	p.Add(signals.USR2)
	require.NoError(t, loop.drain(context.Background()))
	p.Add(signals.USR1)
	require.NoError(t, loop.drain(context.Background()))

	assert.Equal(t, []string{"a", "b", "c", "d", "a", "b", "c"}, log.Steps())
	assert.Equal(t, uint64(2), loop.Stats().Failures)
}

func TestDrain_SelfClosedNeverSteppedAgain(t *testing.T) {
	loop, p, log := buildLoop(t, map[signals.Signal][]Descriptor{
		signals.USR1: {cmd("once", "o"), cmd("record", "r")},
	})

	for range 3 {
		p.Add(signals.USR1)
		require.NoError(t, loop.drain(context.Background()))
	}

	assert.Equal(t, []string{"o", "r", "r", "r"}, log.Steps())
	assert.Equal(t, []string{"o"}, log.Closes())
	assert.Zero(t, loop.Stats().Failures)

	require.NoError(t, loop.bundles.Close())
	assert.Equal(t, []string{"o", "r"}, log.Closes(), "shutdown close must not repeat teardown")
}

func TestDrain_AllPendingSignals(t *testing.T) {
	loop, p, log := buildLoop(t, map[signals.Signal][]Descriptor{
		signals.USR1: {cmd("record", "a")},
		signals.USR2: {cmd("record", "b")},
		signals.HUP:  {cmd("record", "c")},
	})

	var seen []signals.Signal
	loop.OnDispatch = func(sig signals.Signal, _ Stats) { seen = append(seen, sig) }

	p.Add(signals.HUP)
	p.Add(signals.USR1)
	p.Add(signals.USR2)
	require.NoError(t, loop.drain(context.Background()))

	// Order across signals is unspecified; only the set is checked.
	assert.ElementsMatch(t, []string{"a", "b", "c"}, log.Steps())
	assert.ElementsMatch(t, signals.Handled, seen)
	assert.Zero(t, p.Len())
}

func TestDrain_RedeliveryDuringBundleCollapses(t *testing.T) {
	loop, p, log := buildLoop(t, map[signals.Signal][]Descriptor{
		signals.USR1: {cmd("record", "a")},
	})
	p.Add(signals.USR1)
	sig, ok := p.Next()
	require.True(t, ok)
	loop.dispatch(sig)
	p.Add(signals.USR1) // delivered while the flag is still raised
	p.Clear(sig)

	require.NoError(t, loop.drain(context.Background()))
	assert.Equal(t, []string{"a"}, log.Steps())
}

func TestRun_StopsOnCancel(t *testing.T) {
	loop, _, _ := buildLoop(t, map[signals.Signal][]Descriptor{
		signals.USR1: {cmd("record", "a")},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_DispatchesOnWake(t *testing.T) {
	loop, p, log := buildLoop(t, map[signals.Signal][]Descriptor{
		signals.USR2: {cmd("record", "a"), cmd("record", "b")},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	p.Add(signals.USR2)
	assert.Eventually(t, func() bool { return len(log.Steps()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, log.Steps())
}
