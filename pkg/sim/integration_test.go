package sim_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/drive"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/executor"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/follower"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/geometry"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/sim"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/tracking/swerve"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/tunable"
)

func TestFollowersDriveSimulatedChassis(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	s := sim.New(sim.Config{
		Geometry: chassis.Default,
		TurnCPR:  4096,
		DriveCPR: 1024,
		MaxSpeed: 40,
		Step:     time.Millisecond,
		Logger:   log.Named("sim"),
	})
	tracker := swerve.NewChassisTracker(s.TrackerConfig(log.Named("tracker")))
	sw := drive.NewSwerve(chassis.Default, s, log.Named("drive"))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.Run(ctx)
	}()
	go tracker.Loop(ctx, &wg, time.Millisecond)
	defer func() {
		cancel()
		wg.Wait()
	}()

	exec := executor.New(ctx, sw, executor.Config{
		PollInterval: time.Millisecond,
		Logger:       log.Named("executor"),
	})
	defer exec.Close()

	gain := tunable.New(log).Create("gain", 0.2, 0.01)
	first := geometry.Position{X: 6}
	target := geometry.Position{X: 6, Y: 6}
	exec.QueueFollowers([]executor.Follower{
		follower.NewProportional(tracker, sw, follower.Config{
			Waypoints: []geometry.Position{first},
			Tolerance: 0.5,
		}, gain, 0.1, 0.5),
		follower.NewLinear(tracker, sw, follower.Config{
			Waypoints: []geometry.Position{target},
			Tolerance: 0.5,
			From:      &first,
		}, 0.2),
	})
	assert.True(t, sw.ManualControlEnabled())

	exec.Start()
	lockCtx, lockCancel := context.WithTimeout(ctx, 20*time.Second)
	defer lockCancel()
	require.NoError(t, exec.Lock(lockCtx))

	assert.True(t, exec.IsEmpty())
	assert.True(t, sw.ManualControlEnabled(), "operator has control back")
	for _, st := range sw.ModuleStates() {
		assert.Zero(t, st.Power, "motors stopped")
	}

	pos := tracker.Position().Position
	assert.True(t, geometry.IsNearPoint(pos, target, 1.5), "ended at %s", pos)

	select {
	case f := <-exec.Faults():
		t.Errorf("unexpected fault: %v", f)
	default:
	}
}
