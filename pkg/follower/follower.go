// Package follower provides simple path followers for the executor: each
// drives the chassis through a list of waypoints using the odometry from a
// tracking.Tracker.
package follower

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/drive"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/geometry"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/tracking"
)

var (
	ErrEmptyPath     = errors.New("path has no waypoints")
	ErrNotCalculated = errors.New("path not calculated")
)

const DefaultTolerance = 0.5

// Mover accepts autonomous drive commands. drive.Swerve implements it.
type Mover interface {
	SetAutonomous(t drive.Translation) error
}

type Config struct {
	Waypoints []geometry.Position
	// Tolerance is how close (inches) the chassis must get to a waypoint
	// before moving on to the next.
	Tolerance float64
	// Spacing splits long legs into intermediate waypoints no further apart
	// than this. Zero keeps legs whole.
	Spacing float64
	// From, if set, is where planning starts instead of the chassis's
	// position at Calculate time. Followers queued back to back use it to
	// start from the previous follower's end point.
	From   *geometry.Position
	Logger *zap.SugaredLogger
}

// path holds what both followers share: the planned waypoints, progress
// along them and the last computed command.
type path struct {
	name    string
	tracker tracking.Tracker
	mover   Mover
	cfg     Config
	log     *zap.SugaredLogger

	lock      sync.Mutex
	waypoints []geometry.Position
	next      int
	cmd       drive.Translation
}

func newPath(name string, tracker tracking.Tracker, mover Mover, cfg Config) path {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return path{
		name:    name,
		tracker: tracker,
		mover:   mover,
		cfg:     cfg,
		log:     cfg.Logger,
	}
}

// Calculate plans straight legs from the start point through every
// waypoint.
func (p *path) Calculate() error {
	if len(p.cfg.Waypoints) == 0 {
		return ErrEmptyPath
	}
	from := p.tracker.Position().Position
	if p.cfg.From != nil {
		from = *p.cfg.From
	}
	var planned []geometry.Position
	for _, to := range p.cfg.Waypoints {
		planned = append(planned, split(from, to, p.cfg.Spacing)...)
		from = to
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	p.waypoints = planned
	p.next = 0
	p.log.Infow(p.name+": planned path", "waypoints", len(planned), "target", planned[len(planned)-1])
	return nil
}

// split returns the points along from->to, excluding from, at most spacing
// apart.
func split(from, to geometry.Position, spacing float64) []geometry.Position {
	dist := geometry.Distance(from, to)
	if spacing <= 0 || dist <= spacing {
		return []geometry.Position{to}
	}
	n := int(math.Ceil(dist / spacing))
	step := r2.Scale(1/float64(n), r2.Sub(to.Vec(), from.Vec()))
	points := make([]geometry.Position, 0, n)
	for i := 1; i < n; i++ {
		points = append(points, geometry.FromVec(r2.Add(from.Vec(), r2.Scale(float64(i), step))))
	}
	return append(points, to)
}

// target advances past any waypoints already reached and returns the unit
// vector towards the current one along with the distance left to the end.
func (p *path) target() (dir r2.Vec, remaining float64, err error) {
	if p.waypoints == nil {
		return r2.Vec{}, 0, ErrNotCalculated
	}
	here := p.tracker.Position().Position
	last := len(p.waypoints) - 1
	for p.next < last && geometry.IsNearPoint(here, p.waypoints[p.next], p.cfg.Tolerance) {
		p.log.Debugw(p.name+": reached waypoint", "index", p.next, "at", here)
		p.next++
	}

	wp := p.waypoints[p.next]
	remaining = geometry.Distance(here, wp)
	for i := p.next; i < last; i++ {
		remaining += geometry.Distance(p.waypoints[i], p.waypoints[i+1])
	}
	delta := r2.Sub(wp.Vec(), here.Vec())
	if n := r2.Norm(delta); n > 0 {
		dir = r2.Scale(1/n, delta)
	}
	return dir, remaining, nil
}

func (p *path) setCommand(dir r2.Vec, power float64) {
	v := r2.Scale(clamp(power, 0, 1), dir)
	p.cmd = drive.Translation{VX: v.X, VY: v.Y}
}

func (p *path) Drive() error {
	p.lock.Lock()
	cmd := p.cmd
	p.lock.Unlock()
	return p.mover.SetAutonomous(cmd)
}

// IsDone is true once the chassis is within tolerance of the final
// waypoint. An unplanned path is never done.
func (p *path) IsDone() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.waypoints) == 0 {
		return false
	}
	here := p.tracker.Position().Position
	return geometry.IsNearPoint(here, p.waypoints[len(p.waypoints)-1], p.cfg.Tolerance)
}

// Waypoints returns the planned path.
func (p *path) Waypoints() []geometry.Position {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]geometry.Position(nil), p.waypoints...)
}

func (p *path) Command() drive.Translation {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.cmd
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
