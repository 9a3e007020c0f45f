package tunable

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestAddAndSet(t *testing.T) {
	ts := New(zaptest.NewLogger(t).Sugar())
	gain := ts.Create("gain", 0.5, 0.1)

	assert.Equal(t, 0.5, gain.Get())
	assert.InDelta(t, 0.7, gain.Add(2), 1e-9)
	assert.InDelta(t, 0.6, gain.Add(-1), 1e-9)
	gain.Set(2)
	assert.Equal(t, 2.0, gain.Get())
}

func TestConcurrentAdd(t *testing.T) {
	ts := New(nil)
	count := ts.Create("count", 0, 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				count.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800.0, count.Get())
}

func TestSelection(t *testing.T) {
	ts := New(nil)
	assert.Nil(t, ts.Current())
	assert.Nil(t, ts.SelectNext())

	a := ts.Create("a", 1, 1)
	b := ts.Create("b", 2, 1)
	c := ts.Create("c", 3, 1)

	assert.Same(t, a, ts.Current())
	assert.Same(t, b, ts.SelectNext())
	assert.Same(t, c, ts.SelectNext())
	assert.Same(t, a, ts.SelectNext(), "wraps forwards")
	assert.Same(t, c, ts.SelectPrev(), "wraps backwards")

	require.Len(t, ts.All(), 3)
	assert.Same(t, b, ts.Lookup("b"))
	assert.Nil(t, ts.Lookup("missing"))
}
