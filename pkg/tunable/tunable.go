// Package tunable holds named values that can be nudged while the robot is
// running, such as follower gains.
package tunable

import (
	"math"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type Tunable struct {
	Name string
	// Step is the amount one Add step moves the value by.
	Step float64

	bits atomic.Uint64
	log  *zap.SugaredLogger
}

func (t *Tunable) Get() float64 {
	return math.Float64frombits(t.bits.Load())
}

func (t *Tunable) Set(v float64) {
	t.bits.Store(math.Float64bits(v))
	t.log.Infow("Tunable set", "name", t.Name, "value", v)
}

// Add moves the value by steps multiples of Step and returns the result.
func (t *Tunable) Add(steps int) float64 {
	for {
		old := t.bits.Load()
		v := math.Float64frombits(old) + float64(steps)*t.Step
		if t.bits.CompareAndSwap(old, math.Float64bits(v)) {
			t.log.Infow("Tunable adjusted", "name", t.Name, "value", v)
			return v
		}
	}
}

type Tunables struct {
	log *zap.SugaredLogger

	lock     sync.Mutex
	all      []*Tunable
	selected int
}

func New(logger *zap.SugaredLogger) *Tunables {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Tunables{log: logger}
}

func (t *Tunables) Create(name string, value, step float64) *Tunable {
	newTunable := &Tunable{
		Name: name,
		Step: step,
		log:  t.log,
	}
	newTunable.bits.Store(math.Float64bits(value))

	t.lock.Lock()
	t.all = append(t.all, newTunable)
	t.lock.Unlock()
	return newTunable
}

// Lookup returns the tunable called name, or nil.
func (t *Tunables) Lookup(name string) *Tunable {
	t.lock.Lock()
	defer t.lock.Unlock()
	for _, tu := range t.all {
		if tu.Name == name {
			return tu
		}
	}
	return nil
}

func (t *Tunables) All() []*Tunable {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]*Tunable(nil), t.all...)
}

func (t *Tunables) SelectNext() *Tunable {
	return t.selectBy(1)
}

func (t *Tunables) SelectPrev() *Tunable {
	return t.selectBy(-1)
}

func (t *Tunables) selectBy(delta int) *Tunable {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.all) == 0 {
		return nil
	}
	t.selected += delta
	if t.selected >= len(t.all) {
		t.selected = 0
	}
	if t.selected < 0 {
		t.selected = len(t.all) - 1
	}
	cur := t.all[t.selected]
	t.log.Infow("Tunable selected", "name", cur.Name, "value", cur.Get())
	return cur
}

// Current returns the selected tunable, or nil if none have been created.
func (t *Tunables) Current() *Tunable {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.all) == 0 {
		return nil
	}
	return t.all[t.selected]
}
