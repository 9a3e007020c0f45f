// Package executor runs queued path followers on a dedicated scheduling
// goroutine and arbitrates the drivetrain between them and the operator.
//
// While a follower is active and not done, every pass disables manual
// control before updating and driving it; when it finishes, manual control
// is re-enabled once and the next queued follower is promoted. Only the
// scheduling goroutine ever touches the drivetrain's manual-control flag.
//
// Queue state is owned by the scheduling goroutine. Producer calls are sent
// to it as commands and return once applied. Follower code runs on a helper
// goroutine while the scheduler keeps applying commands, so a follower may
// itself call Clear or QueueFollower.
package executor

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/drive"
)

// Follower is one unit of path-following work.
//
// Calculate does the one-off (possibly expensive) preparation. Update
// recomputes the next command from current odometry and Drive sends it to
// the drivetrain. IsDone must eventually return true for the follower to
// ever leave the queue.
type Follower interface {
	Calculate() error
	Update() error
	Drive() error
	IsDone() bool
}

var ErrClosed = errors.New("executor closed")

const (
	DefaultPollInterval = 2 * time.Millisecond
	DefaultFaultBuffer  = 64
)

type Config struct {
	// PollInterval paces passes while a follower is active. Zero runs passes
	// back to back, yielding the processor in between. When nothing is
	// active the loop blocks until a command arrives.
	PollInterval time.Duration
	// FaultBuffer is the capacity of the Faults channel. Faults that do not
	// fit are logged and dropped.
	FaultBuffer int
	Clock       clock.Clock
	Logger      *zap.SugaredLogger
}

type Executor struct {
	drive drive.ManualControl
	cfg   Config
	log   *zap.SugaredLogger

	cmds   chan func()
	wake   chan struct{}
	faults chan Fault
	cancel context.CancelFunc
	quit   <-chan struct{}
	done   chan struct{}

	running atomic.Bool
	size    atomic.Int64

	closeOnce sync.Once

	// Owned by the scheduling goroutine.
	sched          schedule
	pass           uint64
	manualDisabled bool
	clears         uint64
	waiters        []chan struct{}
}

// New creates an executor and its scheduling goroutine, which lives until
// ctx is done or Close is called. No passes run until Start.
func New(ctx context.Context, d drive.ManualControl, cfg Config) *Executor {
	if cfg.FaultBuffer <= 0 {
		cfg.FaultBuffer = DefaultFaultBuffer
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.PollInterval < 0 {
		cfg.PollInterval = 0
	}

	e := &Executor{
		drive:  d,
		cfg:    cfg,
		log:    cfg.Logger,
		cmds:   make(chan func()),
		wake:   make(chan struct{}, 1),
		faults: make(chan Fault, cfg.FaultBuffer),
		done:   make(chan struct{}),
	}

	var loopCtx context.Context
	loopCtx, e.cancel = context.WithCancel(ctx)
	e.quit = loopCtx.Done()
	go e.loop(loopCtx)
	return e
}

// Start lets the scheduling goroutine run passes.
func (e *Executor) Start() {
	e.running.Store(true)
	e.nudge()
	e.log.Info("Executor: started")
}

// Stop asks the scheduling goroutine to stop running passes. It takes effect
// at the next pass boundary; an action that is already running is not
// interrupted. Queued followers are kept.
func (e *Executor) Stop() {
	e.running.Store(false)
	e.nudge()
	e.log.Info("Executor: stop requested")
}

// Close stops the scheduling goroutine and waits for it to exit.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.running.Store(false)
		e.cancel()
	})
	<-e.done
}

// QueueFollower runs f's calculation on the calling goroutine, then appends
// f to the queue. A failed calculation is reported as a Fault and retried
// once by the first pass that sees f.
func (e *Executor) QueueFollower(f Follower) uuid.UUID {
	return e.QueueFollowers([]Follower{f})[0]
}

// QueueFollowers queues fs in order as a single step.
func (e *Executor) QueueFollowers(fs []Follower) []uuid.UUID {
	entries := make([]*entry, len(fs))
	ids := make([]uuid.UUID, len(fs))
	for i, f := range fs {
		ent := &entry{id: uuid.New(), f: f}
		if err := safeCall(f.Calculate); err != nil {
			e.report(Fault{Action: ActionCalculate, Follower: ent.id, Err: err})
		} else {
			ent.calculated = true
		}
		entries[i] = ent
		ids[i] = ent.id
	}

	err := e.do(context.Background(), func() {
		for _, ent := range entries {
			e.sched.queue(ent)
			e.log.Infow("Executor: queued follower", "follower", ent.id)
		}
		e.publish()
	})
	if err != nil {
		e.log.Warnw("Executor: dropped followers queued after close", "count", len(fs))
	}
	return ids
}

// Clear drops every queued and active follower. Once it returns IsEmpty is
// true and no further actions run for the dropped followers, including the
// rest of a pass in progress. An action already running is not retracted.
// If a dropped follower had taken manual control away from the operator, it
// is handed back.
func (e *Executor) Clear() {
	_ = e.do(context.Background(), func() {
		n := e.sched.clear()
		e.clears++
		e.log.Infow("Executor: cleared", "followers", n)
		e.handBack()
		e.publish()
	})
}

func (e *Executor) IsEmpty() bool {
	return e.size.Load() == 0
}

// Lock blocks until the queue is empty. There is no timeout of its own: a
// follower that never finishes blocks it until ctx is done. Follower code
// that calls Lock holds up its own pass, so it only returns with ctx.Err.
func (e *Executor) Lock(ctx context.Context) error {
	ch := make(chan struct{})
	err := e.do(ctx, func() {
		if e.sched.empty() {
			close(ch)
			return
		}
		e.waiters = append(e.waiters, ch)
	})
	if err != nil {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrClosed
	}
}

// Faults delivers scheduling faults for a supervisor to observe. The channel
// is never closed.
func (e *Executor) Faults() <-chan Fault {
	return e.faults
}

// do runs fn on the scheduling goroutine and waits for it to finish.
func (e *Executor) do(ctx context.Context, fn func()) error {
	applied := make(chan struct{})
	select {
	case e.cmds <- func() { fn(); close(applied) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrClosed
	}
	<-applied
	return nil
}

func (e *Executor) nudge() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Executor) report(f Fault) {
	e.log.Warnw("Executor: action failed", "pass", f.Pass, "action", f.Action, "follower", f.Follower, "error", f.Err)
	select {
	case e.faults <- f:
	default:
		e.log.Warn("Executor: fault buffer full, dropping fault")
	}
}

// publish refreshes the lock-free size and releases Lock waiters once the
// queue has drained. Called on the scheduling goroutine after every change.
func (e *Executor) publish() {
	e.size.Store(int64(e.sched.size()))
	if !e.sched.empty() {
		return
	}
	for _, w := range e.waiters {
		close(w)
	}
	e.waiters = nil
}

func (e *Executor) loop(ctx context.Context) {
	defer close(e.done)
	e.log.Info("Executor: loop started")
	defer e.log.Info("Executor: loop exited")
	defer e.handBack()

	var tick <-chan time.Time
	if e.cfg.PollInterval > 0 {
		ticker := e.cfg.Clock.Ticker(e.cfg.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if !e.running.Load() || len(e.sched.active) == 0 {
			// Idle: nothing to do until a command or Start arrives.
			select {
			case <-ctx.Done():
				return
			case cmd := <-e.cmds:
				cmd()
			case <-e.wake:
			}
			continue
		}

		e.runPass()

		if tick == nil {
			select {
			case <-ctx.Done():
				return
			case cmd := <-e.cmds:
				cmd()
			default:
				runtime.Gosched()
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.cmds:
			cmd()
		case <-e.wake:
		case <-tick:
		}
	}
}

// runPass generates the actions for the current active set and then runs
// them in order. A failing action is reported and the rest still run. A
// Clear applied mid-pass drops the actions not yet started.
func (e *Executor) runPass() {
	e.pass++
	clears := e.clears
	actions := e.sched.generate(e)
	for _, a := range actions {
		if e.clears != clears {
			break
		}
		var err error
		if a.kind.runsFollowerCode() {
			var ok bool
			if ok, err = e.call(a.run); !ok {
				return
			}
		} else {
			err = safeCall(a.run)
		}
		if err != nil {
			e.report(Fault{Pass: e.pass, Action: a.kind, Follower: a.follower, Err: err})
		}
	}
	e.publish()
}

// call runs fn on its own goroutine and applies commands until it returns.
// It reports false if the executor shut down first; fn is then abandoned.
func (e *Executor) call(fn func() error) (ok bool, err error) {
	res := make(chan error, 1)
	go func() { res <- safeCall(fn) }()
	for {
		select {
		case callErr := <-res:
			return true, callErr
		case cmd := <-e.cmds:
			cmd()
		case <-e.quit:
			return false, nil
		}
	}
}

// handBack re-enables manual control if a follower still holds it.
func (e *Executor) handBack() {
	if !e.manualDisabled {
		return
	}
	if err := safeCall(e.enableManual); err != nil {
		e.report(Fault{Pass: e.pass, Action: ActionEnableManual, Err: err})
	}
}

// The methods below implement stepper. calculate runs through call like the
// follower's other methods; the rest only run on the scheduling goroutine.

func (e *Executor) calculate(ent *entry) error {
	if ent.calculated {
		return nil
	}
	if err := ent.f.Calculate(); err != nil {
		return err
	}
	ent.calculated = true
	return nil
}

func (e *Executor) disableManual() error {
	e.drive.DisableManualControl()
	e.manualDisabled = true
	return nil
}

func (e *Executor) enableManual() error {
	e.drive.EnableManualControl()
	e.manualDisabled = false
	return nil
}

func (e *Executor) promote(ent *entry) error {
	if e.sched.promote(ent) {
		e.log.Infow("Executor: follower done, next follower active", "done", ent.id, "active", e.sched.active[0].id)
	} else {
		e.log.Infow("Executor: follower done, queue drained", "done", ent.id)
	}
	return nil
}

func (e *Executor) isDone(ent *entry) bool {
	var done bool
	ok, err := e.call(func() error {
		done = ent.f.IsDone()
		return nil
	})
	if !ok {
		return false
	}
	if err != nil {
		e.report(Fault{Pass: e.pass, Action: ActionCheckDone, Follower: ent.id, Err: err})
		return false
	}
	return done
}
