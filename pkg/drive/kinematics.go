package drive

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/angle"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
)

// Powers below this are treated as stopped and leave the wheel angle alone.
const stoppedPower = 1e-6

// Kinematics converts a chassis translation into per-module states. Each
// module takes the shortest rotation from its current angle, reversing the
// wheel when the target is more than 90 degrees away. Powers are scaled
// down together so none exceeds 1.
func Kinematics(geom chassis.Geometry, t Translation, current [chassis.NumModules]angle.PlusMinus180) (states [chassis.NumModules]ModuleState) {
	radius := geom.CentreToModule()
	omega := 0.0
	if radius > 0 {
		omega = t.Turn / radius
	}

	var vecs [chassis.NumModules]r2.Vec
	maxPower := 1.0
	for i, m := range chassis.Modules {
		off := geom.Offset(m)
		vecs[i] = r2.Add(r2.Vec{X: t.VX, Y: t.VY}, r2.Vec{X: -omega * off.Y, Y: omega * off.X})
		maxPower = math.Max(maxPower, r2.Norm(vecs[i]))
	}

	for i, v := range vecs {
		v = r2.Scale(1/maxPower, v)
		power := r2.Norm(v)
		if power < stoppedPower {
			states[i] = ModuleState{AngleDeg: current[i].Float()}
			continue
		}
		target := angle.FromFloat(math.Atan2(v.Y, v.X) * 180 / math.Pi)
		if math.Abs(target.Sub(current[i]).Float()) > 90 {
			target = target.Opposite()
			power = -power
		}
		states[i] = ModuleState{AngleDeg: target.Float(), Power: power}
	}
	return
}
