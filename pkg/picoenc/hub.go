package picoenc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/pathfinder/pkg/encoder"
)

const DefaultPollInterval = 5 * time.Millisecond

// Hub polls a DistanceTracker and publishes the totals as four encoders. A
// failed poll is logged and the encoders keep their previous values.
type Hub struct {
	tracker *DistanceTracker
	log     *zap.SugaredLogger

	ticks    [chassis.NumModules]atomic.Int64
	failures atomic.Int64
}

func NewHub(pico distanceProvider, logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{
		tracker: NewDistanceTracker(pico),
		log:     logger,
	}
}

// Poll reads the controller once and updates the encoders.
func (h *Hub) Poll() error {
	if err := h.tracker.Poll(); err != nil {
		h.failures.Add(1)
		return err
	}
	for m, v := range h.tracker.Accumulated() {
		h.ticks[m].Store(v)
	}
	return nil
}

func (h *Hub) Encoder(m chassis.Module) encoder.Encoder {
	return encoder.Func(h.ticks[m].Load)
}

// Errors counts failed polls.
func (h *Hub) Errors() int64 {
	return h.failures.Load()
}

func (h *Hub) Loop(ctx context.Context, wg *sync.WaitGroup, interval time.Duration) {
	defer wg.Done()
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.log.Infow("Pico encoders: loop started", "interval", interval)
	defer h.log.Info("Pico encoders: loop stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := h.Poll(); err != nil {
			h.log.Warnw("Pico encoders: poll failed", "error", err)
		}
	}
}
