// Package sim is a kinematic model of a swerve chassis. It accepts module
// states like the real motor controllers and produces encoder ticks like the
// real encoders, so the tracking and executor stacks can run without
// hardware.
//
// Steering is instantaneous and wheels never slip.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/drive"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/encoder"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/tracking/swerve"
)

const (
	DefaultMaxSpeed = 20 // inches per second at full power
	DefaultStep     = 5 * time.Millisecond
)

type Config struct {
	Geometry chassis.Geometry
	TurnCPR  int
	DriveCPR int
	// MaxSpeed is the wheel surface speed in inches per second at power 1.
	MaxSpeed float64
	Step     time.Duration
	Clock    clock.Clock
	Logger   *zap.SugaredLogger
}

type Chassis struct {
	cfg Config
	log *zap.SugaredLogger

	turn  [chassis.NumModules]*encoder.Fake
	drive [chassis.NumModules]*encoder.Fake

	lock      sync.Mutex
	states    [chassis.NumModules]drive.ModuleState
	remainder [chassis.NumModules]float64
	elapsed   time.Duration
}

func New(cfg Config) *Chassis {
	if cfg.MaxSpeed <= 0 {
		cfg.MaxSpeed = DefaultMaxSpeed
	}
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	c := &Chassis{cfg: cfg, log: cfg.Logger}
	for i := range c.turn {
		c.turn[i] = encoder.NewFake(0)
		c.drive[i] = encoder.NewFake(0)
	}
	return c
}

func (c *Chassis) SetModuleStates(states [chassis.NumModules]drive.ModuleState) error {
	c.lock.Lock()
	c.states = states
	c.lock.Unlock()
	return nil
}

// Step advances the model by dt: turn encoders jump to the commanded angles
// and drive encoders count the distance each wheel rolls.
func (c *Chassis) Step(dt time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()

	circumference := c.cfg.Geometry.WheelCircumference()
	for i, st := range c.states {
		c.turn[i].Set(int64(math.Round(st.AngleDeg * float64(c.cfg.TurnCPR) / 360)))

		if circumference <= 0 {
			continue
		}
		dist := st.Power * c.cfg.MaxSpeed * dt.Seconds()
		ticks := dist/circumference*float64(c.cfg.DriveCPR) + c.remainder[i]
		whole := math.Trunc(ticks)
		c.remainder[i] = ticks - whole
		c.drive[i].Add(int64(whole))
	}
	c.elapsed += dt
}

// Run steps the model once per configured step of the clock until ctx is
// done.
func (c *Chassis) Run(ctx context.Context) error {
	ticker := c.cfg.Clock.Ticker(c.cfg.Step)
	defer ticker.Stop()
	c.log.Infow("Sim: running", "step", c.cfg.Step, "max_speed", c.cfg.MaxSpeed)
	for {
		select {
		case <-ctx.Done():
			c.log.Infow("Sim: stopped", "elapsed", c.Elapsed())
			return nil
		case <-ticker.C:
			c.Step(c.cfg.Step)
		}
	}
}

// Elapsed is the total simulated time.
func (c *Chassis) Elapsed() time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.elapsed
}

func (c *Chassis) ModuleStates() [chassis.NumModules]drive.ModuleState {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.states
}

func (c *Chassis) TurnEncoder(m chassis.Module) *encoder.Fake {
	return c.turn[m]
}

func (c *Chassis) DriveEncoder(m chassis.Module) *encoder.Fake {
	return c.drive[m]
}

// Encoders returns the encoders in the layout swerve.ChassisConfig expects.
func (c *Chassis) Encoders() (encs [chassis.NumModules]swerve.ModuleEncoders) {
	for i := range encs {
		encs[i] = swerve.ModuleEncoders{Turn: c.turn[i], Drive: c.drive[i]}
	}
	return
}

// TrackerConfig is a chassis tracker configuration wired to this model.
func (c *Chassis) TrackerConfig(logger *zap.SugaredLogger) swerve.ChassisConfig {
	return swerve.ChassisConfig{
		Encoders: c.Encoders(),
		TurnCPR:  c.cfg.TurnCPR,
		DriveCPR: c.cfg.DriveCPR,
		Geometry: c.cfg.Geometry,
		Logger:   logger,
	}
}

var _ drive.Motors = (*Chassis)(nil)
