package drive

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/angle"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
)

var ErrManualControl = errors.New("drivetrain is under manual control")

// Swerve is a four-module swerve drivetrain shared between the operator and
// autonomous followers. The manual-control flag decides which of the two
// gets through to the motors; it starts enabled.
type Swerve struct {
	geom   chassis.Geometry
	motors Motors
	log    *zap.SugaredLogger

	lock   sync.Mutex
	manual bool
	angles [chassis.NumModules]angle.PlusMinus180
	last   [chassis.NumModules]ModuleState
}

func NewSwerve(geom chassis.Geometry, motors Motors, logger *zap.SugaredLogger) *Swerve {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Swerve{
		geom:   geom,
		motors: motors,
		log:    logger,
		manual: true,
	}
}

// EnableManualControl hands the drivetrain back to the operator. Whatever a
// follower last commanded is stopped.
func (s *Swerve) EnableManualControl() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.manual {
		return
	}
	s.log.Info("Drive: manual control enabled")
	s.manual = true
	if err := s.applyLocked(Translation{}); err != nil {
		s.log.Warnw("Drive: failed to stop motors", "error", err)
	}
}

func (s *Swerve) DisableManualControl() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.manual {
		return
	}
	s.log.Info("Drive: manual control disabled")
	s.manual = false
}

func (s *Swerve) ManualControlEnabled() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.manual
}

// SetManual applies operator input. It is dropped while a follower has
// control.
func (s *Swerve) SetManual(t Translation) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.manual {
		s.log.Debugw("Drive: ignoring operator input", "translation", t)
		return nil
	}
	return s.applyLocked(t)
}

// SetAutonomous applies a follower's command. It fails with ErrManualControl
// unless manual control has been disabled.
func (s *Swerve) SetAutonomous(t Translation) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.manual {
		return ErrManualControl
	}
	return s.applyLocked(t)
}

func (s *Swerve) ModuleStates() [chassis.NumModules]ModuleState {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.last
}

func (s *Swerve) applyLocked(t Translation) error {
	states := Kinematics(s.geom, t, s.angles)
	if err := s.motors.SetModuleStates(states); err != nil {
		return errors.Wrap(err, "failed to set module states")
	}
	for i, st := range states {
		s.angles[i] = angle.FromFloat(st.AngleDeg)
	}
	s.last = states
	return nil
}

var _ ManualControl = (*Swerve)(nil)
