package signals

import (
	"context"
	"math/bits"
	"sync/atomic"
)

// ///////////////////////////////////////////////
// Pending-Signal Set
// ///////////////////////////////////////////////

// PendingSet records which handled signals have been delivered but not yet
// dispatched. It is written only through [PendingSet.Add] and drained only
// through [PendingSet.Next] and [PendingSet.Clear].
//
// Membership is a bitmask updated with atomic OR/AND, so the writer never
// takes a lock the reader could be holding. Repeated adds of a pending signal
// are no-ops: deliveries coalesce, they are never counted.
type PendingSet struct {
	// bits holds one bit per pending [Signal], see [Signal.mask].
	bits atomic.Uint32
	// wake carries at most one token. Add deposits a token without blocking;
	// Wait consumes it. A stale token only causes an empty drain.
	wake chan struct{}
}

// NewPendingSet returns an empty set.
func NewPendingSet() *PendingSet {
	return &PendingSet{wake: make(chan struct{}, 1)}
}

// Add marks s as pending and wakes a blocked [PendingSet.Wait]. It never
// blocks, allocates, or logs.
func (p *PendingSet) Add(s Signal) {
	p.bits.Or(s.mask())
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Next returns a pending signal without clearing it. Which signal is returned
// when several are pending is unspecified; callers must not rely on FIFO or
// priority order.
func (p *PendingSet) Next() (Signal, bool) {
	b := p.bits.Load()
	if b == 0 {
		return 0, false
	}
	return Signal(bits.TrailingZeros32(b)), true
}

// Clear lowers the pending mark for s.
func (p *PendingSet) Clear(s Signal) {
	p.bits.And(^s.mask())
}

// Has reports whether s is pending.
func (p *PendingSet) Has(s Signal) bool {
	return p.bits.Load()&s.mask() != 0
}

// Len returns the number of pending signals.
func (p *PendingSet) Len() int {
	return bits.OnesCount32(p.bits.Load())
}

// Wait blocks until at least one signal is pending or ctx is done.
func (p *PendingSet) Wait(ctx context.Context) error {
	for p.bits.Load() == 0 {
		select {
		case <-p.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
