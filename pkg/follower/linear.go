package follower

import (
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/tracking"
)

// Linear drives each leg at a constant power.
type Linear struct {
	path
	power float64
}

func NewLinear(tracker tracking.Tracker, mover Mover, cfg Config, power float64) *Linear {
	return &Linear{
		path:  newPath("Linear", tracker, mover, cfg),
		power: power,
	}
}

func (l *Linear) Update() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	dir, _, err := l.target()
	if err != nil {
		return err
	}
	l.setCommand(dir, l.power)
	return nil
}
