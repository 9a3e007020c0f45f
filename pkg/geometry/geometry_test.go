package geometry

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverage(t *testing.T) {
	avg, err := Average(Position{0, 0}, Position{10, 0}, Position{10, 20}, Position{0, 20})
	require.NoError(t, err)
	assert.InDelta(t, 5, avg.X, 1e-9)
	assert.InDelta(t, 10, avg.Y, 1e-9)

	avg, err = Average(Position{-3, 7})
	require.NoError(t, err)
	assert.Equal(t, Position{-3, 7}, avg)

	_, err = Average()
	assert.True(t, errors.Is(err, ErrNoPositions))
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(Position{0, 0}, Position{3, 4}), 1e-12)

	pairs := [][2]Position{
		{{1, 2}, {-4, 9}},
		{{0, 0}, {0, 0}},
		{{-2.5, 3.25}, {100, -7}},
	}
	for _, p := range pairs {
		assert.Equal(t, Distance(p[0], p[1]), Distance(p[1], p[0]))
	}
}

func TestIsNearPoint(t *testing.T) {
	a, b := Position{0, 0}, Position{3, 4}
	assert.True(t, IsNearPoint(a, b, 5.01))
	assert.False(t, IsNearPoint(a, b, 5), "tolerance is strict")
	assert.False(t, IsNearPoint(a, a, 0))
	assert.False(t, IsNearPoint(a, a, -1))
}

func TestInDirection(t *testing.T) {
	p := InDirection(WithHeading(Position{}, 0), 5)
	assert.InDelta(t, 5, p.X, 1e-9)
	assert.InDelta(t, 0, p.Y, 1e-9)
	assert.Equal(t, 0.0, p.Heading)

	p = InDirectionOf(Position{}, 90, 5)
	assert.InDelta(t, 0, p.X, 1e-9)
	assert.InDelta(t, 5, p.Y, 1e-9)
	assert.Equal(t, 90.0, p.Heading)

	p = InDirectionOf(Position{1, 1}, 180, 2)
	assert.InDelta(t, -1, p.X, 1e-9)
	assert.InDelta(t, 1, p.Y, 1e-9)
}

func TestAngle(t *testing.T) {
	assert.InDelta(t, 90, Angle(Position{1, 1}, Position{1, 5}), 1e-9)
	assert.InDelta(t, -45, Angle(Position{0, 0}, Position{1, -1}), 1e-9)
}

func TestUnitRoundTrip(t *testing.T) {
	for _, x := range []float64{0, 1, 12, 39.37, 144, -7.5} {
		assert.InDelta(t, x, InchesToMeters(MetersToInches(x)), 1e-3*max(1, x))
		assert.InDelta(t, x, MetersToInches(InchesToMeters(x)), 1e-3*max(1, x))
	}
}

func TestPositionArithmetic(t *testing.T) {
	p := Position{1, 2}.Add(Position{3, 4})
	assert.Equal(t, Position{4, 6}, p)
	assert.Equal(t, Position{-2, -2}, Position{1, 2}.Sub(Position{3, 4}))
	assert.Equal(t, "(1.000, 2.000 @ 90.0°)", WithHeading(Position{1, 2}, 90).String())
}
