package executor

import (
	"github.com/google/uuid"
)

type entry struct {
	id uuid.UUID
	f  Follower

	// calculated is set once Calculate has succeeded, eagerly at queue time
	// or in a pass. calcEmitted is set once a pass has generated the
	// calculate action for this follower.
	calculated  bool
	calcEmitted bool
}

// schedule is the bank of queued followers and the active set drawn from
// its head. It is only touched by the scheduling goroutine.
//
// Invariant: every active entry is also in the bank, and while the bank is
// non-empty its head is active.
type schedule struct {
	bank   []*entry
	active []*entry
}

func (s *schedule) queue(e *entry) {
	s.bank = append(s.bank, e)
	if len(s.active) == 0 {
		s.active = append(s.active, s.bank[0])
	}
}

func (s *schedule) clear() (cleared int) {
	cleared = len(s.bank)
	s.bank = nil
	s.active = nil
	return
}

func (s *schedule) empty() bool {
	return len(s.bank) == 0 && len(s.active) == 0
}

func (s *schedule) size() int {
	return len(s.bank) + len(s.active)
}

// promote drops e from both collections and activates the new bank head.
// An empty bank leaves the active set empty. It reports whether a new
// follower was activated.
func (s *schedule) promote(e *entry) bool {
	s.bank = without(s.bank, e)
	s.active = without(s.active, e)
	if len(s.bank) == 0 {
		return false
	}
	head := s.bank[0]
	for _, a := range s.active {
		if a == head {
			return false
		}
	}
	s.active = append(s.active, head)
	return true
}

func without(es []*entry, e *entry) []*entry {
	for i, x := range es {
		if x == e {
			return append(es[:i:i], es[i+1:]...)
		}
	}
	return es
}

// stepper supplies the side effects a generated pass refers to.
type stepper interface {
	calculate(e *entry) error
	disableManual() error
	enableManual() error
	promote(e *entry) error
	isDone(e *entry) bool
}

// generate builds the ordered action list for one pass over the active set.
func (s *schedule) generate(st stepper) []action {
	var actions []action
	for _, e := range s.active {
		if !st.isDone(e) {
			if !e.calcEmitted {
				e.calcEmitted = true
				actions = append(actions, action{ActionCalculate, e.id, func() error { return st.calculate(e) }})
			}
			actions = append(actions,
				action{ActionDisableManual, e.id, st.disableManual},
				action{ActionUpdate, e.id, e.f.Update},
				action{ActionDrive, e.id, e.f.Drive},
			)
			continue
		}
		actions = append(actions,
			action{ActionEnableManual, e.id, st.enableManual},
			action{ActionPromote, e.id, func() error { return st.promote(e) }},
		)
	}
	return actions
}
