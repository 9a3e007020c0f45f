package executor

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type ActionKind int

const (
	ActionCalculate ActionKind = iota
	ActionDisableManual
	ActionUpdate
	ActionDrive
	ActionEnableManual
	ActionPromote

	// Not a generated action; used to report a follower whose completion
	// check failed.
	ActionCheckDone
)

func (k ActionKind) String() string {
	switch k {
	case ActionCalculate:
		return "calculate"
	case ActionDisableManual:
		return "disable-manual"
	case ActionUpdate:
		return "update"
	case ActionDrive:
		return "drive"
	case ActionEnableManual:
		return "enable-manual"
	case ActionPromote:
		return "promote"
	case ActionCheckDone:
		return "is-done"
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// runsFollowerCode reports whether the action calls into the follower rather
// than into the executor's own state.
func (k ActionKind) runsFollowerCode() bool {
	switch k {
	case ActionCalculate, ActionUpdate, ActionDrive:
		return true
	}
	return false
}

type action struct {
	kind     ActionKind
	follower uuid.UUID
	run      func() error
}

// Fault records an action that returned an error or panicked. The scheduler
// carries on with the next action regardless.
type Fault struct {
	Pass     uint64
	Action   ActionKind
	Follower uuid.UUID
	Err      error
}

func (f Fault) Error() string {
	return fmt.Sprintf("pass %d: %s for follower %s: %v", f.Pass, f.Action, f.Follower, f.Err)
}

func (f Fault) Unwrap() error {
	return f.Err
}

var ErrPanic = errors.New("follower panicked")

// safeCall runs fn, turning a panic into an error wrapping ErrPanic.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrPanic, "%v", r)
		}
	}()
	return fn()
}
