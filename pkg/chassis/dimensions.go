package chassis

import (
	"math"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/geometry"
)

// Defaults for the competition chassis, in inches. Gaps are measured between
// the rotational centres of the swerve modules.
const (
	DefaultWheelDiameter float64 = 4
	DefaultGapX          float64 = 20
	DefaultGapY          float64 = 20
)

type Module int

const (
	FrontRight Module = iota
	FrontLeft
	BackRight
	BackLeft

	NumModules = 4
)

// Modules lists the modules in the order every per-module array uses.
var Modules = [NumModules]Module{FrontRight, FrontLeft, BackRight, BackLeft}

func (m Module) String() string {
	switch m {
	case FrontRight:
		return "FR"
	case FrontLeft:
		return "FL"
	case BackRight:
		return "BR"
	case BackLeft:
		return "BL"
	}
	return "unknown"
}

// Geometry is written once at construction and never changed.
type Geometry struct {
	WheelDiameter float64 `yaml:"wheel_diameter"`
	GapX          float64 `yaml:"gap_x"`
	GapY          float64 `yaml:"gap_y"`
}

var Default = Geometry{
	WheelDiameter: DefaultWheelDiameter,
	GapX:          DefaultGapX,
	GapY:          DefaultGapY,
}

func (g Geometry) WheelCircumference() float64 {
	return g.WheelDiameter * math.Pi
}

// Offset is the module's position relative to the chassis centre.
func (g Geometry) Offset(m Module) geometry.Position {
	x, y := g.GapX/2, g.GapY/2
	switch m {
	case FrontLeft:
		x = -x
	case BackRight:
		y = -y
	case BackLeft:
		x, y = -x, -y
	}
	return geometry.Position{X: x, Y: y}
}

func (g Geometry) ModuleOffsets() (offsets [NumModules]geometry.Position) {
	for i, m := range Modules {
		offsets[i] = g.Offset(m)
	}
	return
}

// CentreToModule is the turning radius of each module when the chassis spins
// in place.
func (g Geometry) CentreToModule() float64 {
	return math.Sqrt(math.Pow(g.GapX/2, 2) + math.Pow(g.GapY/2, 2))
}
