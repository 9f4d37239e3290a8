package signals

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingSet_AddNextClear(t *testing.T) {
	p := NewPendingSet()

	_, ok := p.Next()
	assert.False(t, ok, "empty set has no next signal")

	p.Add(USR2)
	s, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, USR2, s)

	// Next does not remove; only Clear does.
	assert.True(t, p.Has(USR2))
	p.Clear(USR2)
	assert.False(t, p.Has(USR2))
	assert.Equal(t, 0, p.Len())
}

func TestPendingSet_Coalesces(t *testing.T) {
	p := NewPendingSet()
	p.Add(HUP)
	p.Add(HUP)
	p.Add(HUP)
	assert.Equal(t, 1, p.Len())

	p.Clear(HUP)
	_, ok := p.Next()
	assert.False(t, ok, "one clear drains every coalesced delivery")
}

func TestPendingSet_DrainsEverySignal(t *testing.T) {
	p := NewPendingSet()
	for _, s := range Handled {
		p.Add(s)
	}

	var got []Signal
	for {
		s, ok := p.Next()
		if !ok {
			break
		}
		got = append(got, s)
		p.Clear(s)
	}
	assert.ElementsMatch(t, Handled, got)
}

func TestPendingSet_WaitReturnsWhenPending(t *testing.T) {
	p := NewPendingSet()
	p.Add(USR1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))
}

func TestPendingSet_WaitWakesOnAdd(t *testing.T) {
	p := NewPendingSet()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- p.Wait(ctx) }()

	time.Sleep(20 * time.Millisecond)
	p.Add(USR1)

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not wake after Add")
	}
}

func TestPendingSet_WaitIgnoresStaleWake(t *testing.T) {
	p := NewPendingSet()
	p.Add(USR1)
	p.Clear(USR1) // token left behind in wake

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPendingSet_ConcurrentAdd(t *testing.T) {
	p := NewPendingSet()
	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Add(Handled[i%len(Handled)])
		}()
	}
	wg.Wait()
	assert.Equal(t, len(Handled), p.Len())
}
