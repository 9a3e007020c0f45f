package drive

import (
	"fmt"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
)

// ManualControl switches whether operator input reaches the motors. Both
// calls are idempotent.
type ManualControl interface {
	EnableManualControl()
	DisableManualControl()
}

// Translation is a chassis-relative motion request. VX and VY are in the
// range [-1, 1]; Turn is the rotation rate, 1 being full power at the
// modules, positive anticlockwise.
type Translation struct {
	VX, VY, Turn float64
}

func (t Translation) IsZero() bool {
	return t == Translation{}
}

// ModuleState is the commanded wheel angle (degrees) and drive power
// ([-1, 1]) for one module.
type ModuleState struct {
	AngleDeg float64
	Power    float64
}

func (m ModuleState) String() string {
	return fmt.Sprintf("%.1f°@%.2f", m.AngleDeg, m.Power)
}

// Motors accepts module states, indexed by chassis.Module.
type Motors interface {
	SetModuleStates(states [chassis.NumModules]ModuleState) error
}
