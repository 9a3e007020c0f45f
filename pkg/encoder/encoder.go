// Package encoder defines the tick-counter contract the trackers consume.
// Concrete drivers live in their own packages (picoenc, as5048); Fake is
// used by the simulator and by tests.
package encoder

import "sync/atomic"

// Encoder is a tick counter. Counts accumulate in either direction for the
// lifetime of the session. A disconnected encoder keeps returning its last
// value; there is no error path.
type Encoder interface {
	Ticks() int64
}

// Func adapts a plain function to Encoder.
type Func func() int64

func (f Func) Ticks() int64 {
	return f()
}

// Fake is a settable counter, safe for concurrent use.
type Fake struct {
	ticks atomic.Int64
}

func NewFake(initial int64) *Fake {
	f := &Fake{}
	f.ticks.Store(initial)
	return f
}

func (f *Fake) Ticks() int64 {
	return f.ticks.Load()
}

func (f *Fake) Set(ticks int64) {
	f.ticks.Store(ticks)
}

func (f *Fake) Add(delta int64) int64 {
	return f.ticks.Add(delta)
}

var _ Encoder = (*Fake)(nil)
