package action

import "time"

// ///////////////////////////////////////////////
// Composition Wrappers
// ///////////////////////////////////////////////

// Once wraps inner so that it runs a single time: the first step delegates
// to inner and then reports [SelfClose], whatever inner returned.
func Once(inner Action) Action {
	return &onceAction{inner: inner}
}

type onceAction struct {
	inner Action
}

func (o *onceAction) Step() (Outcome, error) {
	_, err := o.inner.Step()
	return SelfClose, err
}

func (o *onceAction) Close() error { return o.inner.Close() }

// Delay wraps inner so that every successful step is followed by a blocking
// wait of d. If done is non-nil it is called after the wait.
func Delay(inner Action, d time.Duration, done func()) Action {
	return &delayAction{inner: inner, wait: d, done: done, sleep: time.Sleep}
}

type delayAction struct {
	inner Action
	wait  time.Duration
	done  func()
	// sleep is replaced in tests.
	sleep func(time.Duration)
}

func (d *delayAction) Step() (Outcome, error) {
	out, err := d.inner.Step()
	if err != nil {
		return out, err
	}
	d.sleep(d.wait)
	if d.done != nil {
		d.done()
	}
	return out, nil
}

func (d *delayAction) Close() error { return d.inner.Close() }
