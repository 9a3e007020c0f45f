// encodertest polls the robot's wheel encoders and prints what the trackers
// make of them. Push the robot around by hand to check wiring and CPRs.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/as5048"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/config"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/logging"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/picoenc"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/tracking/swerve"
)

var CLI struct {
	Config string        `help:"Robot config file." default:"${config}"`
	Print  time.Duration `help:"How often to print readings." default:"200ms"`
	Raw    bool          `help:"Print raw tick counts as well as positions."`
}

func main() {
	fmt.Println("---- encodertest ----")
	kctx := kong.Parse(&CLI,
		kong.Name("encodertest"),
		kong.Vars{"config": config.DefaultPath},
	)
	kctx.FatalIfErrorf(run())
}

func run() (err error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	log, err := logging.New("encodertest", cfg.Log.Level)
	if err != nil {
		return err
	}

	pico, err := picoenc.New(cfg.Hardware.PicoBus)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, pico.Close()) }()
	if st, stErr := pico.Status(); stErr != nil {
		log.Warnw("Can't read Pico status", "error", stErr)
	} else if st&picoenc.StatusFault != 0 {
		log.Warnw("Pico reports a fault, travel counts may be stale", "status", st)
	}
	hub := picoenc.NewHub(pico, log.Named("pico"))

	var sensors [chassis.NumModules]*as5048.Sensor
	for i, m := range chassis.Modules {
		s, openErr := as5048.Open(cfg.Hardware.TurnPorts[m], as5048.Config{
			Zero:   cfg.Hardware.TurnZero[m],
			Logger: log.Named("as5048-" + m.String()),
		})
		if openErr != nil {
			return openErr
		}
		defer func() { err = multierr.Append(err, s.Close()) }()
		sensors[i] = s
		checkMagnet(m, s)
	}

	var encs [chassis.NumModules]swerve.ModuleEncoders
	for i, m := range chassis.Modules {
		encs[i] = swerve.ModuleEncoders{Turn: sensors[i], Drive: hub.Encoder(m)}
	}
	tracker := swerve.NewChassisTracker(swerve.ChassisConfig{
		Encoders: encs,
		TurnCPR:  cfg.Encoders.TurnCPR,
		DriveCPR: cfg.Encoders.DriveCPR,
		Geometry: cfg.Chassis,
		Logger:   log.Named("tracker"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2 + len(sensors))
	go hub.Loop(ctx, &wg, cfg.Hardware.PollInterval)
	for _, s := range sensors {
		go s.Loop(ctx, &wg, as5048.DefaultPollInterval)
	}
	go tracker.Loop(ctx, &wg, cfg.Tracking.Interval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(CLI.Print)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
			fmt.Println("Chassis:", tracker.Position())
			for _, m := range chassis.Modules {
				mod := tracker.Module(m)
				fmt.Printf("  %s angle=%7.2f pos=%s", m, mod.Angle(), mod.Position())
				if CLI.Raw {
					fmt.Printf(" turn=%d drive=%d", mod.Config().Turn.Ticks(), mod.Config().Drive.Ticks())
				}
				fmt.Println()
			}
			if n := hub.Errors(); n > 0 {
				fmt.Println("  pico read errors:", n)
			}
		}
	})
	err = g.Wait()
	wg.Wait()
	return err
}

func checkMagnet(m chassis.Module, s *as5048.Sensor) {
	d, err := s.Diagnostics()
	if err != nil {
		fmt.Printf("%s: diagnostics read failed: %v\n", m, err)
		return
	}
	mag, err := s.Magnitude()
	if err != nil {
		fmt.Printf("%s: magnitude read failed: %v\n", m, err)
		return
	}
	fmt.Printf("%s: agc=%d magnitude=%d magnet ok=%v\n", m, d.AGC, mag, d.MagnetOK())
	if !d.MagnetOK() {
		fmt.Printf("  %+v\n", d)
	}
}
