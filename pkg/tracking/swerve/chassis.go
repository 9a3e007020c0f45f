package swerve

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/encoder"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/geometry"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/tracking"
)

type ModuleEncoders struct {
	Turn  encoder.Encoder
	Drive encoder.Encoder
}

type ChassisConfig struct {
	// Indexed by chassis.Module.
	Encoders [chassis.NumModules]ModuleEncoders
	TurnCPR  int
	DriveCPR int
	Geometry chassis.Geometry
	Logger   *zap.SugaredLogger
}

// ChassisTracker fuses four module trackers into one chassis position by
// taking the unweighted mean of the module positions. There is no outlier
// rejection; a failed encoder skews the estimate.
//
// Heading is not fused: Position always reports a heading of 0.
//
// Update and the position getters share a lock, so a reader sees every
// module as of the same poll.
type ChassisTracker struct {
	geom    chassis.Geometry
	modules [chassis.NumModules]*ModuleTracker
	log     *zap.SugaredLogger

	lock sync.RWMutex
}

func NewChassisTracker(cfg ChassisConfig) *ChassisTracker {
	c := &ChassisTracker{
		geom: cfg.Geometry,
		log:  cfg.Logger,
	}
	if c.log == nil {
		c.log = zap.NewNop().Sugar()
	}
	for i, m := range chassis.Modules {
		c.modules[i] = NewModuleTracker(ModuleConfig{
			Turn:          cfg.Encoders[m].Turn,
			Drive:         cfg.Encoders[m].Drive,
			TurnCPR:       cfg.TurnCPR,
			DriveCPR:      cfg.DriveCPR,
			WheelDiameter: cfg.Geometry.WheelDiameter,
			Offset:        cfg.Geometry.Offset(m),
		})
	}
	return c
}

// NewChassisTrackerFromModules rebuilds a chassis tracker around the
// encoders of four existing module trackers. Wheel diameter, CPRs and gaps
// are taken from the front-right module; the others are assumed symmetric
// and are not checked.
func NewChassisTrackerFromModules(fr, fl, br, bl *ModuleTracker, logger *zap.SugaredLogger) *ChassisTracker {
	ref := fr.Config()
	cfg := ChassisConfig{
		TurnCPR:  ref.TurnCPR,
		DriveCPR: ref.DriveCPR,
		Geometry: chassis.Geometry{
			WheelDiameter: ref.WheelDiameter,
			GapX:          math.Abs(ref.Offset.X) * 2,
			GapY:          math.Abs(ref.Offset.Y) * 2,
		},
		Logger: logger,
	}
	for i, mt := range []*ModuleTracker{fr, fl, br, bl} {
		mc := mt.Config()
		cfg.Encoders[i] = ModuleEncoders{Turn: mc.Turn, Drive: mc.Drive}
	}
	return NewChassisTracker(cfg)
}

// Update polls every module, always in FR, FL, BR, BL order.
func (c *ChassisTracker) Update() {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, m := range c.modules {
		m.Update()
	}
}

func (c *ChassisTracker) Position() geometry.HeadingPoint {
	c.lock.RLock()
	defer c.lock.RUnlock()
	var ps [chassis.NumModules]geometry.Position
	for i, m := range c.modules {
		ps[i] = m.Position().Position
	}
	// Four positions, so the average always exists.
	avg, _ := geometry.Average(ps[:]...)
	return geometry.WithHeading(avg, 0)
}

func (c *ChassisTracker) Module(m chassis.Module) *ModuleTracker {
	return c.modules[m]
}

func (c *ChassisTracker) FrontRight() geometry.HeadingPoint {
	return c.modulePosition(chassis.FrontRight)
}

func (c *ChassisTracker) FrontLeft() geometry.HeadingPoint {
	return c.modulePosition(chassis.FrontLeft)
}

func (c *ChassisTracker) BackRight() geometry.HeadingPoint {
	return c.modulePosition(chassis.BackRight)
}

func (c *ChassisTracker) BackLeft() geometry.HeadingPoint {
	return c.modulePosition(chassis.BackLeft)
}

func (c *ChassisTracker) modulePosition(m chassis.Module) geometry.HeadingPoint {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.modules[m].Position()
}

func (c *ChassisTracker) Geometry() chassis.Geometry {
	return c.geom
}

// Loop polls the trackers every interval until the context is done. The
// more often this runs, the less heading error each integration step picks
// up, so it normally gets a goroutine to itself.
func (c *ChassisTracker) Loop(ctx context.Context, wg *sync.WaitGroup, interval time.Duration) {
	defer wg.Done()
	c.log.Infow("Tracker: loop started", "interval", interval)
	defer c.log.Info("Tracker: loop exited")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		c.Update()
		c.log.Debugw("Tracker: updated", "position", c.Position())
	}
}

var _ tracking.Tracker = (*ChassisTracker)(nil)
