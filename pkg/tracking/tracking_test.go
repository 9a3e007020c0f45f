package tracking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/encoder"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/geometry"
)

func TestAngleTracker(t *testing.T) {
	enc := encoder.NewFake(0)
	at := NewAngleTracker(enc, 360)
	assert.Equal(t, 0.0, at.Angle())

	enc.Set(90)
	assert.Equal(t, 0.0, at.Angle(), "angle only changes on Update")
	at.Update()
	assert.InDelta(t, 90, at.Angle(), 1e-9)

	// No wrapping.
	enc.Set(720 + 45)
	at.Update()
	assert.InDelta(t, 765, at.Angle(), 1e-9)

	enc.Set(-1024)
	at = NewAngleTracker(enc, 4096)
	assert.InDelta(t, -90, at.Angle(), 1e-9)
	assert.Same(t, enc, at.Encoder())
}

func TestPointTrackerStartsAtOffset(t *testing.T) {
	enc := encoder.NewFake(500)
	pt := NewPointTracker(enc, 100, 1/math.Pi, geometry.Position{X: 10, Y: 10})
	assert.Equal(t, geometry.Position{X: 10, Y: 10}, pt.Position().Position)

	p := pt.Update(0)
	assert.Equal(t, geometry.Position{X: 10, Y: 10}, p.Position, "no ticks, no motion")
	p = pt.Update(0)
	assert.Equal(t, geometry.Position{X: 10, Y: 10}, p.Position, "offset is not re-added")
}

func TestPointTrackerIntegrates(t *testing.T) {
	enc := encoder.NewFake(0)
	// One tick per unit of distance.
	pt := NewPointTracker(enc, 100, 100/math.Pi, geometry.Position{})

	enc.Add(10)
	p := pt.Update(0)
	expectPosition(t, p, 10, 0, 0)

	enc.Add(5)
	p = pt.Update(90)
	expectPosition(t, p, 10, 5, 90)

	// Driving backwards along 90 degrees.
	enc.Add(-8)
	p = pt.Update(90)
	expectPosition(t, p, 10, -3, 90)

	enc.Add(2)
	p = pt.Update(180)
	expectPosition(t, p, 8, -3, 180)

	assert.Equal(t, p, pt.Position(), "Position does not advance state")
	assert.Equal(t, p, pt.Position())
}

func TestPointTrackerAccessors(t *testing.T) {
	enc := encoder.NewFake(0)
	pt := NewPointTracker(enc, 1024, 4, geometry.Position{X: 1, Y: -1})
	assert.Same(t, enc, pt.Encoder())
	assert.Equal(t, 1024, pt.CPR())
	assert.Equal(t, 4.0, pt.Diameter())
	assert.Equal(t, geometry.Position{X: 1, Y: -1}, pt.Offset())
}

func expectPosition(t *testing.T, p geometry.HeadingPoint, x, y, heading float64) {
	t.Helper()
	if math.Abs(p.X-x) > 1e-9 || math.Abs(p.Y-y) > 1e-9 || p.Heading != heading {
		t.Errorf("Position %v, expected (%.3f, %.3f @ %.1f)", p, x, y, heading)
	}
}
