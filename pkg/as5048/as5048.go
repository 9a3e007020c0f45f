// Package as5048 drives the AMS AS5048A 14-bit absolute magnetic encoder
// over SPI. The swerve modules use one per module to measure wheel angle.
package as5048

import (
	"context"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// CPR is the number of counts in one revolution.
const CPR = 1 << 14

const (
	RegNOP            uint16 = 0x0000
	RegClearErrorFlag uint16 = 0x0001
	RegDiagAGC        uint16 = 0x3FFD
	RegMagnitude      uint16 = 0x3FFE
	RegAngle          uint16 = 0x3FFF

	flagParity = 1 << 15
	flagRead   = 1 << 14
	flagError  = 1 << 14
	dataMask   = 0x3FFF
)

const DefaultPollInterval = 2 * time.Millisecond

var (
	ErrParity = errors.New("AS5048 parity error")
	ErrSensor = errors.New("AS5048 reported a command error")
)

// tx is the part of spi.Conn the driver needs.
type tx interface {
	Tx(w, r []byte) error
}

type Config struct {
	// Zero is the raw reading at which the wheel points straight ahead.
	Zero   uint16
	Logger *zap.SugaredLogger
}

// Sensor turns raw angle readings into a continuous tick count, so a wheel
// that spins past the zero point keeps counting instead of jumping back.
// Ticks is safe to call from any goroutine; Poll and Loop are not meant to
// run concurrently with each other.
type Sensor struct {
	c      tx
	closer func() error
	zero   uint16
	log    *zap.SugaredLogger

	w, r [2]byte

	haveLast bool
	last     uint16
	ticks    atomic.Int64
	failures atomic.Int64
}

// Open connects to the sensor on the named SPI port, e.g. "/dev/spidev0.0".
func Open(port string, cfg Config) (*Sensor, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialise periph")
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open SPI port %s", port)
	}
	c, err := p.Connect(physic.MegaHertz, spi.Mode1, 8)
	if err != nil {
		_ = p.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s", port)
	}
	s := New(c, cfg)
	s.closer = p.Close
	return s, nil
}

func New(c tx, cfg Config) *Sensor {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Sensor{
		c:    c,
		zero: cfg.Zero & dataMask,
		log:  cfg.Logger,
	}
}

func (s *Sensor) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// command builds a command frame: address, read flag and even parity.
func command(addr uint16, read bool) uint16 {
	frame := addr & dataMask
	if read {
		frame |= flagRead
	}
	if bits.OnesCount16(frame)%2 != 0 {
		frame |= flagParity
	}
	return frame
}

func transfer(c tx, w, r *[2]byte, frame uint16) (uint16, error) {
	w[0], w[1] = byte(frame>>8), byte(frame)
	if err := c.Tx(w[:], r[:]); err != nil {
		return 0, err
	}
	return uint16(r[0])<<8 | uint16(r[1]), nil
}

// ReadRegister reads a 14-bit register. The sensor answers each command in
// the following frame, so a read costs two transfers.
func (s *Sensor) ReadRegister(addr uint16) (uint16, error) {
	if _, err := transfer(s.c, &s.w, &s.r, command(addr, true)); err != nil {
		return 0, errors.Wrap(err, "SPI transfer failed")
	}
	resp, err := transfer(s.c, &s.w, &s.r, command(RegNOP, true))
	if err != nil {
		return 0, errors.Wrap(err, "SPI transfer failed")
	}
	if bits.OnesCount16(resp)%2 != 0 {
		return 0, ErrParity
	}
	if resp&flagError != 0 {
		// Reading the error register clears the flag.
		_, _ = transfer(s.c, &s.w, &s.r, command(RegClearErrorFlag, true))
		return 0, ErrSensor
	}
	return resp & dataMask, nil
}

// Diagnostics is the decoded DIAG/AGC register.
type Diagnostics struct {
	// AGC is the automatic gain control value: 0 for a strong field, 255
	// for a weak one.
	AGC uint8
	// Ready is set once offset compensation has finished after power-up.
	Ready          bool
	CORDICOverflow bool
	FieldTooStrong bool
	FieldTooWeak   bool
}

// MagnetOK reports whether the magnet is close enough for trustworthy
// readings.
func (d Diagnostics) MagnetOK() bool {
	return d.Ready && !d.CORDICOverflow && !d.FieldTooStrong && !d.FieldTooWeak
}

func (s *Sensor) Diagnostics() (Diagnostics, error) {
	v, err := s.ReadRegister(RegDiagAGC)
	if err != nil {
		return Diagnostics{}, err
	}
	return Diagnostics{
		AGC:            uint8(v),
		Ready:          v&(1<<8) != 0,
		CORDICOverflow: v&(1<<9) != 0,
		FieldTooStrong: v&(1<<10) != 0,
		FieldTooWeak:   v&(1<<11) != 0,
	}, nil
}

// Magnitude reads the CORDIC magnitude of the field, in counts.
func (s *Sensor) Magnitude() (uint16, error) {
	return s.ReadRegister(RegMagnitude)
}

// Angle reads the wheel angle in counts relative to the configured zero.
func (s *Sensor) Angle() (uint16, error) {
	raw, err := s.ReadRegister(RegAngle)
	if err != nil {
		return 0, err
	}
	return (raw - s.zero) & dataMask, nil
}

// Poll reads the sensor once and advances the tick count by the shortest
// movement since the last reading.
func (s *Sensor) Poll() error {
	a, err := s.Angle()
	if err != nil {
		s.failures.Add(1)
		return err
	}
	if !s.haveLast {
		// Start in (-CPR/2, CPR/2] so a wheel near straight ahead reads near 0.
		start := int64(a)
		if start > CPR/2 {
			start -= CPR
		}
		s.ticks.Store(start)
		s.haveLast = true
		s.last = a
		return nil
	}
	delta := int64(a) - int64(s.last)
	if delta > CPR/2 {
		delta -= CPR
	} else if delta <= -CPR/2 {
		delta += CPR
	}
	s.ticks.Add(delta)
	s.last = a
	return nil
}

// Ticks is the unwrapped angle in counts. Before the first successful poll it
// is 0.
func (s *Sensor) Ticks() int64 {
	return s.ticks.Load()
}

func (s *Sensor) Errors() int64 {
	return s.failures.Load()
}

// Loop polls until ctx is done. Failed reads are logged and leave Ticks at
// its previous value.
func (s *Sensor) Loop(ctx context.Context, wg *sync.WaitGroup, interval time.Duration) {
	defer wg.Done()
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := s.Poll(); err != nil {
			s.log.Warnw("AS5048: read failed", "error", err)
		}
	}
}
