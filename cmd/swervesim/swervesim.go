// swervesim drives the simulated chassis through a list of waypoints using
// the same tracking, drive and executor code as the robot, then writes a
// picture of the run.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/config"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/drive"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/executor"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/follower"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/geometry"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/logging"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/sim"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/trace"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/tracking/swerve"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/tunable"
)

var CLI struct {
	Config    string        `help:"Robot config file. Defaults are used if not given." type:"existingfile"`
	Out       string        `help:"Where to write the trace PNG." default:"swervesim.png" type:"path"`
	Waypoint  []string      `help:"Waypoint as x,y in inches. Repeat for a path." short:"w" sep:"none"`
	Follower  string        `help:"Follower to use (${enum})." enum:"linear,proportional" default:"proportional"`
	Timeout   time.Duration `help:"Give up if the path is not finished in this long." default:"1m"`
	ImageSize int           `help:"Trace image size in pixels." default:"800"`
	LogLevel  string        `help:"Overrides the config's log level."`
}

func main() {
	fmt.Println("---- swervesim ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	kctx := kong.Parse(&CLI,
		kong.Name("swervesim"),
		kong.Description("Run followers against a simulated swerve chassis."),
	)
	if err := run(); err != nil {
		kctx.Fatalf("%v", err)
	}
}

func run() error {
	cfg := config.Default()
	if CLI.Config != "" {
		var err error
		if cfg, err = config.Load(CLI.Config); err != nil {
			return err
		}
		if inUse, err := config.WriteInUse(CLI.Config, cfg); err != nil {
			fmt.Println("Failed to write in-use config:", err)
		} else {
			fmt.Println("Config in use written to", inUse)
		}
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}
	log, err := logging.New("swervesim", cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	waypoints, err := parseWaypoints(CLI.Waypoint)
	if err != nil {
		return err
	}
	if len(waypoints) == 0 {
		waypoints = []geometry.Position{{X: 24}, {X: 24, Y: 24}, {}}
		log.Infow("No waypoints given, driving a triangle", "waypoints", waypoints)
	}

	// Our global context, cancelled on Ctrl-C or when the run is over.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	simulator := sim.New(sim.Config{
		Geometry: cfg.Chassis,
		TurnCPR:  cfg.Encoders.TurnCPR,
		DriveCPR: cfg.Encoders.DriveCPR,
		MaxSpeed: cfg.Sim.MaxSpeed,
		Step:     cfg.Sim.Step,
		Logger:   log.Named("sim"),
	})
	tracker := swerve.NewChassisTracker(simulator.TrackerConfig(log.Named("tracker")))
	drivetrain := drive.NewSwerve(cfg.Chassis, simulator, log.Named("drive"))
	exec := executor.New(ctx, drivetrain, executor.Config{
		PollInterval: cfg.Executor.PollInterval,
		FaultBuffer:  cfg.Executor.FaultBuffer,
		Logger:       log.Named("executor"),
	})
	defer exec.Close()

	rec := trace.NewRecorder()
	rec.AddWaypoints(waypoints...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return simulator.Run(gctx) })
	g.Go(func() error {
		var wg sync.WaitGroup
		wg.Add(1)
		tracker.Loop(gctx, &wg, cfg.Tracking.Interval)
		return nil
	})
	g.Go(func() error { return rec.Loop(gctx, tracker, 20*time.Millisecond) })
	g.Go(func() error { return watchFaults(gctx, exec, log) })

	exec.QueueFollowers(makeFollowers(cfg, tracker, drivetrain, waypoints, log))
	exec.Start()

	lockCtx, lockCancel := context.WithTimeout(ctx, CLI.Timeout)
	runErr := exec.Lock(lockCtx)
	lockCancel()
	if runErr != nil {
		exec.Clear()
		runErr = errors.Wrap(runErr, "path not finished")
	}
	exec.Stop()
	cancel()
	if err := g.Wait(); err != nil {
		log.Warnw("Background loop failed", "error", err)
	}

	rec.Sample(tracker)
	final := tracker.Position()
	log.Infow("Run finished", "position", final, "sim_time", simulator.Elapsed())
	if err := rec.SavePNG(CLI.Out, CLI.ImageSize); err != nil {
		return err
	}
	fmt.Println("Trace written to", CLI.Out)
	return runErr
}

// makeFollowers makes one follower per waypoint, each starting where the
// previous one ends.
func makeFollowers(cfg config.Config, tracker *swerve.ChassisTracker, mover follower.Mover, waypoints []geometry.Position, log *zap.SugaredLogger) []executor.Follower {
	tunables := tunable.New(log.Named("tunable"))
	gain := tunables.Create("follower-gain", cfg.Follower.Gain, 0.01)

	var fs []executor.Follower
	var from *geometry.Position
	for i, wp := range waypoints {
		fcfg := follower.Config{
			Waypoints: []geometry.Position{wp},
			Tolerance: cfg.Follower.Tolerance,
			Spacing:   cfg.Follower.Spacing,
			From:      from,
			Logger:    log.Named(fmt.Sprintf("follower-%d", i)),
		}
		switch CLI.Follower {
		case "linear":
			fs = append(fs, follower.NewLinear(tracker, mover, fcfg, cfg.Follower.Power))
		default:
			fs = append(fs, follower.NewProportional(tracker, mover, fcfg, gain, cfg.Follower.MinPower, cfg.Follower.MaxPower))
		}
		from = &waypoints[i]
	}
	return fs
}

func watchFaults(ctx context.Context, exec *executor.Executor, log *zap.SugaredLogger) error {
	count := 0
	for {
		select {
		case <-ctx.Done():
			if count > 0 {
				log.Warnw("Executor reported faults", "count", count)
			}
			return nil
		case f := <-exec.Faults():
			count++
			log.Debugw("Fault", "fault", f)
		}
	}
}

func parseWaypoints(args []string) ([]geometry.Position, error) {
	var ps []geometry.Position
	for _, a := range args {
		parts := strings.Split(a, ",")
		if len(parts) != 2 {
			return nil, errors.Errorf("bad waypoint %q, want x,y", a)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad waypoint %q", a)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad waypoint %q", a)
		}
		ps = append(ps, geometry.Position{X: x, Y: y})
	}
	return ps, nil
}
