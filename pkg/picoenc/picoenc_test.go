package picoenc

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
)

type fakeProvider struct {
	lock sync.Mutex
	raw  PerModule[int16]
	err  error
}

func (f *fakeProvider) RawDistancesTraveled() (PerModule[int16], error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.raw, f.err
}

func (f *fakeProvider) set(raw PerModule[int16], err error) {
	f.lock.Lock()
	f.raw, f.err = raw, err
	f.lock.Unlock()
}

func TestFirstPollIsBaseline(t *testing.T) {
	p := &fakeProvider{raw: PerModule[int16]{100, -5, 0, 7}}
	d := NewDistanceTracker(p)
	require.NoError(t, d.Poll())
	assert.Equal(t, PerModule[int64]{}, d.Accumulated())

	p.set(PerModule[int16]{110, -15, 0, 7}, nil)
	require.NoError(t, d.Poll())
	assert.Equal(t, PerModule[int64]{10, -10, 0, 0}, d.Accumulated())

	d.Zero()
	assert.Equal(t, PerModule[int64]{}, d.Accumulated())
}

func TestWraparound(t *testing.T) {
	p := &fakeProvider{raw: PerModule[int16]{math.MaxInt16 - 2, math.MinInt16 + 3}}
	d := NewDistanceTracker(p)
	require.NoError(t, d.Poll())

	p.set(PerModule[int16]{math.MinInt16 + 2, math.MaxInt16 - 1}, nil)
	require.NoError(t, d.Poll())
	assert.Equal(t, PerModule[int64]{5, -5, 0, 0}, d.Accumulated())
}

func TestHubKeepsStaleValueOnError(t *testing.T) {
	p := &fakeProvider{}
	h := NewHub(p, nil)
	require.NoError(t, h.Poll())

	p.set(PerModule[int16]{0, 42}, nil)
	require.NoError(t, h.Poll())
	enc := h.Encoder(chassis.FrontLeft)
	assert.EqualValues(t, 42, enc.Ticks())

	p.set(PerModule[int16]{0, 50}, errors.New("bus error"))
	assert.Error(t, h.Poll())
	assert.EqualValues(t, 42, enc.Ticks())
	assert.EqualValues(t, 1, h.Errors())

	// The baseline survives the failed read.
	p.set(PerModule[int16]{0, 50}, nil)
	require.NoError(t, h.Poll())
	assert.EqualValues(t, 50, enc.Ticks())
}

func TestHubLoop(t *testing.T) {
	p := &fakeProvider{}
	h := NewHub(p, zaptest.NewLogger(t).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go h.Loop(ctx, &wg, time.Millisecond)

	require.Eventually(t, func() bool {
		p.set(PerModule[int16]{0, 0, 0, 9}, nil)
		return h.Encoder(chassis.BackLeft).Ticks() == 9
	}, time.Second, time.Millisecond)

	cancel()
	wg.Wait()
}

type fakePort struct {
	regs map[byte][]byte
}

func (f *fakePort) ReadReg(reg byte, buf []byte) error {
	data, ok := f.regs[reg]
	if !ok {
		return errors.New("nack")
	}
	copy(buf, data)
	return nil
}

func (f *fakePort) Close() error { return nil }

func TestStatus(t *testing.T) {
	p := &Pico{dev: &fakePort{regs: map[byte][]byte{byte(RegStatus): {0x00, 0x03}}}}
	st, err := p.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusFault|StatusCalibDone, st)
	assert.Zero(t, st&StatusWatchdogExpired)

	p = &Pico{dev: &fakePort{}}
	_, err = p.Status()
	assert.Error(t, err)
}

func TestRawDistancesMapChannels(t *testing.T) {
	p := &Pico{dev: &fakePort{regs: map[byte][]byte{
		byte(RegTravel0): {0x00, 0x01, 0x00, 0x02, 0xff, 0xff, 0x80, 0x00},
	}}}
	raw, err := p.RawDistancesTraveled()
	require.NoError(t, err)

	var want PerModule[int16]
	want[chassis.BackRight] = 1
	want[chassis.FrontRight] = 2
	want[chassis.FrontLeft] = -1
	want[chassis.BackLeft] = math.MinInt16
	assert.Equal(t, want, raw)

	p = &Pico{dev: &fakePort{}}
	_, err = p.RawDistancesTraveled()
	assert.Error(t, err)
	assert.NoError(t, p.Close())
}
