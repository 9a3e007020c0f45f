// Package tracking turns encoder tick streams into angles and positions.
//
// Integration assumes the wheels never slip. Drift from slip or encoder
// noise is not detected or corrected anywhere.
package tracking

import (
	"math"
	"sync"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/encoder"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/geometry"
)

// Tracker is anything that can be polled for an odometry estimate.
type Tracker interface {
	Update()
	Position() geometry.HeadingPoint
}

// AngleTracker converts a turn encoder's absolute tick count into degrees.
// The result is not wrapped.
type AngleTracker struct {
	enc            encoder.Encoder
	degreesPerTick float64

	lock  sync.Mutex
	angle float64
}

func NewAngleTracker(enc encoder.Encoder, cpr int) *AngleTracker {
	t := &AngleTracker{
		enc:            enc,
		degreesPerTick: 360 / float64(cpr),
	}
	t.Update()
	return t
}

func (t *AngleTracker) Update() {
	angle := float64(t.enc.Ticks()) * t.degreesPerTick
	t.lock.Lock()
	t.angle = angle
	t.lock.Unlock()
}

func (t *AngleTracker) Angle() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.angle
}

func (t *AngleTracker) Encoder() encoder.Encoder {
	return t.enc
}

// PointTracker integrates a drive encoder's tick deltas along the heading
// supplied on each Update. The accumulator starts at offset, so the offset is
// part of every reported position without being re-added.
type PointTracker struct {
	enc         encoder.Encoder
	cpr         int
	diameter    float64
	offset      geometry.Position
	distPerTick float64

	lock      sync.Mutex
	lastTicks int64
	position  geometry.HeadingPoint
}

func NewPointTracker(enc encoder.Encoder, cpr int, wheelDiameter float64, offset geometry.Position) *PointTracker {
	return &PointTracker{
		enc:         enc,
		cpr:         cpr,
		diameter:    wheelDiameter,
		offset:      offset,
		distPerTick: wheelDiameter * math.Pi / float64(cpr),
		lastTicks:   enc.Ticks(),
		position:    geometry.WithHeading(offset, 0),
	}
}

// Update advances the estimate by the distance travelled since the previous
// call, projected along headingDegrees, and returns it.
func (t *PointTracker) Update(headingDegrees float64) geometry.HeadingPoint {
	ticks := t.enc.Ticks()

	t.lock.Lock()
	defer t.lock.Unlock()

	delta := ticks - t.lastTicks
	t.lastTicks = ticks
	distance := float64(delta) * t.distPerTick

	t.position = geometry.InDirection(geometry.WithHeading(t.position.Position, headingDegrees), distance)
	return t.position
}

func (t *PointTracker) Position() geometry.HeadingPoint {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.position
}

func (t *PointTracker) Encoder() encoder.Encoder {
	return t.enc
}

func (t *PointTracker) CPR() int {
	return t.cpr
}

func (t *PointTracker) Diameter() float64 {
	return t.diameter
}

func (t *PointTracker) Offset() geometry.Position {
	return t.offset
}
