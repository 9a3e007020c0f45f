package follower

import (
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/tracking"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/tunable"
)

// Proportional slows down as it approaches the end of the path. Power is
// gain times the distance left, held between MinPower and MaxPower. The gain
// is read on every update so it can be tuned live.
type Proportional struct {
	path
	gain               *tunable.Tunable
	minPower, maxPower float64
}

func NewProportional(tracker tracking.Tracker, mover Mover, cfg Config, gain *tunable.Tunable, minPower, maxPower float64) *Proportional {
	return &Proportional{
		path:     newPath("Proportional", tracker, mover, cfg),
		gain:     gain,
		minPower: minPower,
		maxPower: maxPower,
	}
}

func (p *Proportional) Update() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	dir, remaining, err := p.target()
	if err != nil {
		return err
	}
	p.setCommand(dir, clamp(p.gain.Get()*remaining, p.minPower, p.maxPower))
	return nil
}
