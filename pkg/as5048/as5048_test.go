package as5048

import (
	"context"
	"math/bits"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeChip answers each frame with the result of the previous command, like
// the real part.
type fakeChip struct {
	lock       sync.Mutex
	angle      uint16
	diag       uint16
	magnitude  uint16
	pending    uint16
	badParity  bool
	errorFlag  bool
	cleared    int
	txFailures int
	frames     []uint16
}

func withParity(v uint16) uint16 {
	if bits.OnesCount16(v)%2 != 0 {
		v |= flagParity
	}
	return v
}

func (f *fakeChip) Tx(w, r []byte) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.txFailures > 0 {
		f.txFailures--
		return errors.New("spi timeout")
	}
	frame := uint16(w[0])<<8 | uint16(w[1])
	f.frames = append(f.frames, frame)

	resp := f.pending
	if f.badParity {
		resp ^= 1
	}
	r[0], r[1] = byte(resp>>8), byte(resp)

	switch frame & dataMask {
	case RegAngle:
		v := f.angle & dataMask
		if f.errorFlag {
			v |= flagError
		}
		f.pending = withParity(v)
	case RegDiagAGC:
		f.pending = withParity(f.diag & dataMask)
	case RegMagnitude:
		f.pending = withParity(f.magnitude & dataMask)
	case RegClearErrorFlag:
		f.errorFlag = false
		f.cleared++
		f.pending = withParity(0)
	default:
		f.pending = withParity(0)
	}
	return nil
}

func (f *fakeChip) setAngle(a uint16) {
	f.lock.Lock()
	f.angle = a
	f.lock.Unlock()
}

func TestCommandParity(t *testing.T) {
	assert.Equal(t, uint16(0xFFFF), command(RegAngle, true))
	assert.Equal(t, uint16(0x4001), command(RegClearErrorFlag, true))
	assert.Equal(t, uint16(0xC000), command(RegNOP, true))
	for _, addr := range []uint16{RegNOP, RegClearErrorFlag, RegDiagAGC, RegMagnitude, RegAngle} {
		assert.Zero(t, bits.OnesCount16(command(addr, true))%2, "even parity for %#x", addr)
		assert.Zero(t, bits.OnesCount16(command(addr, false))%2, "even parity for %#x", addr)
	}
}

func TestReadAngle(t *testing.T) {
	chip := &fakeChip{angle: 1234}
	s := New(chip, Config{})
	a, err := s.Angle()
	require.NoError(t, err)
	assert.EqualValues(t, 1234, a)
	assert.Equal(t, []uint16{0xFFFF, 0xC000}, chip.frames)
}

func TestDiagnostics(t *testing.T) {
	chip := &fakeChip{diag: 1<<8 | 0x80, magnitude: 3000}
	s := New(chip, Config{})
	d, err := s.Diagnostics()
	require.NoError(t, err)
	assert.Equal(t, Diagnostics{AGC: 0x80, Ready: true}, d)
	assert.True(t, d.MagnetOK())

	m, err := s.Magnitude()
	require.NoError(t, err)
	assert.EqualValues(t, 3000, m)

	chip.diag = 1<<8 | 1<<11 | 0xFF
	d, err = s.Diagnostics()
	require.NoError(t, err)
	assert.True(t, d.FieldTooWeak)
	assert.False(t, d.MagnetOK())
}

func TestZeroOffset(t *testing.T) {
	chip := &fakeChip{angle: 100}
	s := New(chip, Config{Zero: 200})
	a, err := s.Angle()
	require.NoError(t, err)
	assert.EqualValues(t, CPR-100, a)
}

func TestParityError(t *testing.T) {
	chip := &fakeChip{angle: 77, badParity: true}
	s := New(chip, Config{})
	_, err := s.Angle()
	assert.Equal(t, ErrParity, err)
}

func TestErrorFlagCleared(t *testing.T) {
	chip := &fakeChip{angle: 77, errorFlag: true}
	s := New(chip, Config{})
	_, err := s.Angle()
	assert.Equal(t, ErrSensor, err)
	assert.Equal(t, 1, chip.cleared)

	a, err := s.Angle()
	require.NoError(t, err)
	assert.EqualValues(t, 77, a)
}

func TestPollUnwraps(t *testing.T) {
	chip := &fakeChip{angle: CPR - 10}
	s := New(chip, Config{})
	assert.Zero(t, s.Ticks())

	require.NoError(t, s.Poll())
	assert.EqualValues(t, -10, s.Ticks(), "starts nearest zero")

	// Forwards across the zero point.
	chip.setAngle(20)
	require.NoError(t, s.Poll())
	assert.EqualValues(t, 20, s.Ticks())

	// A whole revolution in quarter steps.
	for _, a := range []uint16{20 + CPR/4, 20 + CPR/2, 20 + 3*CPR/4 - 1, 20} {
		chip.setAngle(a)
		require.NoError(t, s.Poll())
	}
	assert.EqualValues(t, 20+CPR, s.Ticks())

	// And backwards again.
	for _, a := range []uint16{20 + 3*CPR/4, 20 + CPR/2 + 1, 20 + CPR/4, 20} {
		chip.setAngle(a)
		require.NoError(t, s.Poll())
	}
	assert.EqualValues(t, 20, s.Ticks())
}

func TestPollStaleOnError(t *testing.T) {
	chip := &fakeChip{angle: 500}
	s := New(chip, Config{})
	require.NoError(t, s.Poll())

	chip.setAngle(600)
	chip.txFailures = 1
	assert.Error(t, s.Poll())
	assert.EqualValues(t, 500, s.Ticks())
	assert.EqualValues(t, 1, s.Errors())

	require.NoError(t, s.Poll())
	assert.EqualValues(t, 600, s.Ticks())
}

func TestLoop(t *testing.T) {
	chip := &fakeChip{angle: 42}
	s := New(chip, Config{Logger: zaptest.NewLogger(t).Sugar()})
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go s.Loop(ctx, &wg, time.Millisecond)

	require.Eventually(t, func() bool { return s.Ticks() == 42 }, time.Second, time.Millisecond)
	cancel()
	wg.Wait()
	assert.NoError(t, s.Close())
}
