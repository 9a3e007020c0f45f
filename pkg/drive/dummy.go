package drive

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
)

// Dummy stands in for real hardware. It logs and counts what it is asked to
// do.
type Dummy struct {
	log *zap.SugaredLogger

	lock     sync.Mutex
	manual   bool
	enables  int
	disables int
	states   [chassis.NumModules]ModuleState
}

func NewDummy(logger *zap.SugaredLogger) *Dummy {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dummy{log: logger, manual: true}
}

func (d *Dummy) EnableManualControl() {
	d.log.Debug("DHW: EnableManualControl")
	d.lock.Lock()
	d.manual = true
	d.enables++
	d.lock.Unlock()
}

func (d *Dummy) DisableManualControl() {
	d.log.Debug("DHW: DisableManualControl")
	d.lock.Lock()
	d.manual = false
	d.disables++
	d.lock.Unlock()
}

func (d *Dummy) SetModuleStates(states [chassis.NumModules]ModuleState) error {
	d.log.Debugw("DHW: SetModuleStates", "states", states)
	d.lock.Lock()
	d.states = states
	d.lock.Unlock()
	return nil
}

func (d *Dummy) ManualControlEnabled() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.manual
}

// Toggles returns how many times manual control was enabled and disabled.
func (d *Dummy) Toggles() (enables, disables int) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.enables, d.disables
}

func (d *Dummy) ModuleStates() [chassis.NumModules]ModuleState {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.states
}

var (
	_ ManualControl = (*Dummy)(nil)
	_ Motors        = (*Dummy)(nil)
)
