// Package config loads the robot configuration file.
//
// Fields missing from the file keep their defaults. The effective
// configuration can be written back out next to the input so there is a
// record of what a run actually used.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/as5048"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/executor"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/follower"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/picoenc"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/sim"
)

const DefaultPath = "/cfg/pathfinder.yaml"

type Config struct {
	Chassis  chassis.Geometry `yaml:"chassis"`
	Encoders Encoders         `yaml:"encoders"`
	Tracking Tracking         `yaml:"tracking"`
	Executor Executor         `yaml:"executor"`
	Follower Follower         `yaml:"follower"`
	Sim      Sim              `yaml:"sim"`
	Hardware Hardware         `yaml:"hardware"`
	Log      Log              `yaml:"log"`
}

type Encoders struct {
	DriveCPR int `yaml:"drive_cpr"`
	TurnCPR  int `yaml:"turn_cpr"`
}

type Tracking struct {
	Interval time.Duration `yaml:"interval"`
}

type Executor struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	FaultBuffer  int           `yaml:"fault_buffer"`
}

type Follower struct {
	Tolerance float64 `yaml:"tolerance"`
	Spacing   float64 `yaml:"spacing"`
	Power     float64 `yaml:"power"`
	Gain      float64 `yaml:"gain"`
	MinPower  float64 `yaml:"min_power"`
	MaxPower  float64 `yaml:"max_power"`
}

type Sim struct {
	MaxSpeed float64       `yaml:"max_speed"`
	Step     time.Duration `yaml:"step"`
}

type Hardware struct {
	PicoBus      string                     `yaml:"pico_bus"`
	PollInterval time.Duration              `yaml:"poll_interval"`
	TurnPorts    [chassis.NumModules]string `yaml:"turn_ports"`
	TurnZero     [chassis.NumModules]uint16 `yaml:"turn_zero"`
}

type Log struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Chassis: chassis.Default,
		Encoders: Encoders{
			DriveCPR: 1024,
			TurnCPR:  as5048.CPR,
		},
		Tracking: Tracking{Interval: 10 * time.Millisecond},
		Executor: Executor{
			PollInterval: executor.DefaultPollInterval,
			FaultBuffer:  executor.DefaultFaultBuffer,
		},
		Follower: Follower{
			Tolerance: follower.DefaultTolerance,
			Spacing:   6,
			Power:     0.5,
			Gain:      0.1,
			MinPower:  0.1,
			MaxPower:  0.8,
		},
		Sim: Sim{
			MaxSpeed: sim.DefaultMaxSpeed,
			Step:     sim.DefaultStep,
		},
		Hardware: Hardware{
			PicoBus:      picoenc.DefaultBus,
			PollInterval: picoenc.DefaultPollInterval,
			TurnPorts:    [chassis.NumModules]string{"/dev/spidev0.0", "/dev/spidev0.1", "/dev/spidev1.0", "/dev/spidev1.1"},
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the file at path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	positive := func(name string, v float64) {
		if v <= 0 {
			err = multierr.Append(err, errors.Errorf("%s must be positive, got %v", name, v))
		}
	}
	nonNegative := func(name string, d time.Duration) {
		if d < 0 {
			err = multierr.Append(err, errors.Errorf("%s must not be negative, got %v", name, d))
		}
	}

	positive("chassis.wheel_diameter", c.Chassis.WheelDiameter)
	positive("chassis.gap_x", c.Chassis.GapX)
	positive("chassis.gap_y", c.Chassis.GapY)
	positive("encoders.drive_cpr", float64(c.Encoders.DriveCPR))
	positive("encoders.turn_cpr", float64(c.Encoders.TurnCPR))
	positive("tracking.interval", c.Tracking.Interval.Seconds())
	nonNegative("executor.poll_interval", c.Executor.PollInterval)
	positive("executor.fault_buffer", float64(c.Executor.FaultBuffer))
	positive("follower.tolerance", c.Follower.Tolerance)
	positive("sim.max_speed", c.Sim.MaxSpeed)
	nonNegative("sim.step", c.Sim.Step)
	nonNegative("hardware.poll_interval", c.Hardware.PollInterval)

	if c.Follower.Spacing < 0 {
		err = multierr.Append(err, errors.Errorf("follower.spacing must not be negative, got %v", c.Follower.Spacing))
	}
	if c.Follower.MinPower < 0 || c.Follower.MinPower > c.Follower.MaxPower || c.Follower.MaxPower > 1 {
		err = multierr.Append(err, errors.Errorf("follower power limits must satisfy 0 <= min_power <= max_power <= 1, got %v..%v",
			c.Follower.MinPower, c.Follower.MaxPower))
	}
	if c.Follower.Power <= 0 || c.Follower.Power > 1 {
		err = multierr.Append(err, errors.Errorf("follower.power must be in (0, 1], got %v", c.Follower.Power))
	}
	return err
}

// InUsePath is where WriteInUse puts the effective config for path.
func InUsePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-in-use.yaml"
}

func WriteInUse(path string, cfg Config) (string, error) {
	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal config")
	}
	inUse := InUsePath(path)
	if err := os.WriteFile(inUse, out, 0666); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", inUse)
	}
	return inUse, nil
}
