package picoenc

type distanceProvider interface {
	RawDistancesTraveled() (PerModule[int16], error)
}

// DistanceTracker widens the controller's wrapping 16-bit counters into
// running 64-bit totals. It must be polled often enough that no counter
// moves by more than half its range between polls. Not safe for concurrent
// use.
type DistanceTracker struct {
	src distanceProvider

	// The first successful read only sets the baseline.
	primed bool
	last   PerModule[int16]
	totals PerModule[int64]
}

func NewDistanceTracker(src distanceProvider) *DistanceTracker {
	return &DistanceTracker{src: src}
}

// Poll reads the counters once. On error nothing changes, including the
// baseline.
func (d *DistanceTracker) Poll() error {
	raw, err := d.src.RawDistancesTraveled()
	if err != nil {
		return err
	}
	if d.primed {
		for m := range raw {
			// int16 subtraction wraps, giving the short way round.
			d.totals[m] += int64(raw[m] - d.last[m])
		}
	}
	d.last, d.primed = raw, true
	return nil
}

func (d *DistanceTracker) Accumulated() PerModule[int64] {
	return d.totals
}

func (d *DistanceTracker) Zero() {
	d.totals = PerModule[int64]{}
}
