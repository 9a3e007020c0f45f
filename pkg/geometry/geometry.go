// Package geometry holds the 2D position types shared by the odometry
// trackers, the drive kinematics and the followers. All lengths are in a
// single consistent unit (inches throughout this module); headings are in
// degrees, anticlockwise from the positive X axis.
package geometry

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

var ErrNoPositions = errors.New("cannot average zero positions")

// Position is an immutable point on the field.
type Position struct {
	X, Y float64
}

func FromVec(v r2.Vec) Position {
	return Position{X: v.X, Y: v.Y}
}

func (p Position) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

func (p Position) Add(q Position) Position {
	return FromVec(r2.Add(p.Vec(), q.Vec()))
}

func (p Position) Sub(q Position) Position {
	return FromVec(r2.Sub(p.Vec(), q.Vec()))
}

func (p Position) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y)
}

// HeadingPoint is a Position with a heading attached.
type HeadingPoint struct {
	Position
	Heading float64
}

func WithHeading(p Position, heading float64) HeadingPoint {
	return HeadingPoint{Position: p, Heading: heading}
}

func (h HeadingPoint) String() string {
	return fmt.Sprintf("(%.3f, %.3f @ %.1f°)", h.X, h.Y, h.Heading)
}

// Average returns the per-axis arithmetic mean. Averaging nothing has no
// meaningful answer, so it is reported as ErrNoPositions rather than
// defaulting to the origin.
func Average(ps ...Position) (Position, error) {
	if len(ps) == 0 {
		return Position{}, ErrNoPositions
	}
	var sum r2.Vec
	for _, p := range ps {
		sum = r2.Add(sum, p.Vec())
	}
	return FromVec(r2.Scale(1/float64(len(ps)), sum)), nil
}

func Distance(a, b Position) float64 {
	return r2.Norm(r2.Sub(b.Vec(), a.Vec()))
}

// InDirection moves length along start's heading. The heading is carried
// over unchanged.
func InDirection(start HeadingPoint, length float64) HeadingPoint {
	rad := start.Heading * math.Pi / 180
	return HeadingPoint{
		Position: Position{
			X: start.X + length*math.Cos(rad),
			Y: start.Y + length*math.Sin(rad),
		},
		Heading: start.Heading,
	}
}

func InDirectionOf(start Position, direction, length float64) HeadingPoint {
	return InDirection(WithHeading(start, direction), length)
}

// IsNearPoint is true when a and b are strictly closer than tolerance. A
// tolerance <= 0 never matches.
func IsNearPoint(a, b Position, tolerance float64) bool {
	return Distance(a, b) < tolerance
}

// Angle returns the direction from a to b in degrees.
func Angle(a, b Position) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi
}

// The two conversion constants are the customary ones and are not exact
// reciprocals, so a round trip is only approximately lossless.
func InchesToMeters(inches float64) float64 {
	return inches * 0.0254
}

func MetersToInches(meters float64) float64 {
	return meters * 39.37
}
