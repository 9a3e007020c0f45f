// Package picoenc reads the drive-wheel encoders counted by the Pico motor
// controller over I2C.
package picoenc

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
)

const (
	PicoAddr   = 0x42
	DefaultBus = "/dev/i2c-1"
)

type Register byte

// RegStatus holds the controller's status flags.
const RegStatus Register = 0x01

type StatusFlag uint16

const (
	StatusFault StatusFlag = 1 << iota
	StatusCalibDone
	StatusWatchdogExpired
)

// The four travel registers are consecutive so one read fetches them all.
// Each is a big-endian signed 16-bit count that wraps.
const (
	RegTravel0 Register = 0x10 + iota
	RegTravel1
	RegTravel2
	RegTravel3
)

// travelRegModule maps the controller's motor channels to chassis modules.
var travelRegModule = [chassis.NumModules]chassis.Module{
	chassis.BackRight,
	chassis.FrontRight,
	chassis.FrontLeft,
	chassis.BackLeft,
}

type PerModule[T any] [chassis.NumModules]T

type port interface {
	ReadReg(reg byte, buf []byte) error
	Close() error
}

type Pico struct {
	dev port
}

func New(bus string) (*Pico, error) {
	if bus == "" {
		bus = DefaultBus
	}
	dev, err := i2c.Open(&i2c.Devfs{Dev: bus}, PicoAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open Pico on %s", bus)
	}
	return &Pico{dev: dev}, nil
}

// RawDistancesTraveled reads the wrapping per-module travel counters.
func (p *Pico) RawDistancesTraveled() (raw PerModule[int16], err error) {
	var buf [2 * chassis.NumModules]byte
	if err = p.dev.ReadReg(byte(RegTravel0), buf[:]); err != nil {
		return raw, errors.Wrap(err, "failed to read travel registers")
	}
	for ch, m := range travelRegModule {
		raw[m] = int16(binary.BigEndian.Uint16(buf[2*ch:]))
	}
	return raw, nil
}

func (p *Pico) Status() (StatusFlag, error) {
	var buf [2]byte
	if err := p.dev.ReadReg(byte(RegStatus), buf[:]); err != nil {
		return 0, errors.Wrap(err, "failed to read status register")
	}
	return StatusFlag(binary.BigEndian.Uint16(buf[:])), nil
}

func (p *Pico) Close() error {
	return p.dev.Close()
}
