// Package swerve composes angle and point trackers into per-module and
// whole-chassis odometry for a four-module swerve drive.
package swerve

import (
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/encoder"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/geometry"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/tracking"
)

// ModuleConfig captures everything needed to build (or rebuild) a module
// tracker. Offset is relative to the chassis centre.
type ModuleConfig struct {
	Turn          encoder.Encoder
	Drive         encoder.Encoder
	TurnCPR       int
	DriveCPR      int
	WheelDiameter float64
	Offset        geometry.Position
}

// ModuleTracker tracks one swerve module: the turn encoder gives the wheel
// heading, the drive encoder the distance rolled along it.
type ModuleTracker struct {
	cfg   ModuleConfig
	turn  *tracking.AngleTracker
	drive *tracking.PointTracker
}

func NewModuleTracker(cfg ModuleConfig) *ModuleTracker {
	return &ModuleTracker{
		cfg:   cfg,
		turn:  tracking.NewAngleTracker(cfg.Turn, cfg.TurnCPR),
		drive: tracking.NewPointTracker(cfg.Drive, cfg.DriveCPR, cfg.WheelDiameter, cfg.Offset),
	}
}

// Update must advance the angle before the point so the distance is
// projected along the current wheel heading.
func (m *ModuleTracker) Update() {
	m.turn.Update()
	m.drive.Update(m.turn.Angle())
}

// Position reports the drive tracker's estimate, including the heading it
// last integrated along. That heading is the turn angle from the same
// Update, so the two agree.
func (m *ModuleTracker) Position() geometry.HeadingPoint {
	return m.drive.Position()
}

func (m *ModuleTracker) Angle() float64 {
	return m.turn.Angle()
}

func (m *ModuleTracker) Config() ModuleConfig {
	return m.cfg
}

var _ tracking.Tracker = (*ModuleTracker)(nil)
