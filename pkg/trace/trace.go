// Package trace records odometry over a run and renders it as a picture, so
// a simulated or real run can be checked by eye.
package trace

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/geometry"
)

// Source is what a Recorder samples. swerve.ChassisTracker implements it.
type Source interface {
	Position() geometry.HeadingPoint
	FrontRight() geometry.HeadingPoint
	FrontLeft() geometry.HeadingPoint
	BackRight() geometry.HeadingPoint
	BackLeft() geometry.HeadingPoint
}

type Sample struct {
	Chassis geometry.HeadingPoint
	// Indexed by chassis.Module.
	Modules [chassis.NumModules]geometry.HeadingPoint
}

type Recorder struct {
	lock      sync.Mutex
	samples   []Sample
	waypoints []geometry.Position
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Sample(src Source) Sample {
	var s Sample
	s.Chassis = src.Position()
	s.Modules[chassis.FrontRight] = src.FrontRight()
	s.Modules[chassis.FrontLeft] = src.FrontLeft()
	s.Modules[chassis.BackRight] = src.BackRight()
	s.Modules[chassis.BackLeft] = src.BackLeft()
	r.Add(s)
	return s
}

func (r *Recorder) Add(s Sample) {
	r.lock.Lock()
	r.samples = append(r.samples, s)
	r.lock.Unlock()
}

// AddWaypoints marks target points on the rendered trace.
func (r *Recorder) AddWaypoints(ps ...geometry.Position) {
	r.lock.Lock()
	r.waypoints = append(r.waypoints, ps...)
	r.lock.Unlock()
}

func (r *Recorder) Samples() []Sample {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Sample(nil), r.samples...)
}

// Loop samples src every interval until ctx is done.
func (r *Recorder) Loop(ctx context.Context, src Source, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sample(src)
		}
	}
}

var moduleColours = [chassis.NumModules][3]float64{
	chassis.FrontRight: {0.9, 0.3, 0.3},
	chassis.FrontLeft:  {0.3, 0.8, 0.3},
	chassis.BackRight:  {0.3, 0.5, 0.9},
	chassis.BackLeft:   {0.8, 0.7, 0.2},
}

// view maps world inches onto a square image with y pointing up.
type view struct {
	minX, minY, scale, margin, size float64
}

func newView(points []geometry.Position, size int) view {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	if len(points) == 0 {
		minX, minY, maxX, maxY = 0, 0, 1, 1
	}
	span := math.Max(math.Max(maxX-minX, maxY-minY), 1)
	margin := float64(size) / 10
	return view{
		minX:   minX,
		minY:   minY,
		scale:  (float64(size) - 2*margin) / span,
		margin: margin,
		size:   float64(size),
	}
}

func (v view) project(p geometry.Position) (x, y float64) {
	x = v.margin + (p.X-v.minX)*v.scale
	y = v.size - v.margin - (p.Y-v.minY)*v.scale
	return
}

// Render draws module paths thinly, the chassis path thickly, waypoints as
// rings and the final chassis position as a dot.
func Render(samples []Sample, waypoints []geometry.Position, size int) image.Image {
	var all []geometry.Position
	for _, s := range samples {
		all = append(all, s.Chassis.Position)
		for _, m := range s.Modules {
			all = append(all, m.Position)
		}
	}
	all = append(all, waypoints...)
	v := newView(all, size)

	dc := gg.NewContext(size, size)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	path := func(pos func(Sample) geometry.Position) {
		for i, s := range samples {
			x, y := v.project(pos(s))
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.Stroke()
	}

	dc.SetLineWidth(1)
	for _, m := range chassis.Modules {
		c := moduleColours[m]
		dc.SetRGB(c[0], c[1], c[2])
		path(func(s Sample) geometry.Position { return s.Modules[m].Position })
	}

	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(3)
	path(func(s Sample) geometry.Position { return s.Chassis.Position })

	dc.SetLineWidth(2)
	dc.SetRGB(0.6, 0, 0.6)
	for _, w := range waypoints {
		x, y := v.project(w)
		dc.DrawCircle(x, y, 6)
		dc.Stroke()
	}

	if len(samples) > 0 {
		last := samples[len(samples)-1].Chassis
		x, y := v.project(last.Position)
		dc.SetRGB(0, 0, 0)
		dc.DrawCircle(x, y, 4)
		dc.Fill()
		dc.DrawString(fmt.Sprintf("end %s", last.Position), 5, 15)
	}
	return dc.Image()
}

func (r *Recorder) SavePNG(path string, size int) error {
	r.lock.Lock()
	img := Render(r.samples, r.waypoints, size)
	r.lock.Unlock()
	if err := gg.SavePNG(path, img); err != nil {
		return errors.Wrapf(err, "failed to write trace %s", path)
	}
	return nil
}
