package encoder

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFake(t *testing.T) {
	f := NewFake(10)
	assert.EqualValues(t, 10, f.Ticks())
	assert.EqualValues(t, 5, f.Add(-5))
	f.Set(100)
	assert.EqualValues(t, 100, f.Ticks())
}

func TestFakeConcurrentAdds(t *testing.T) {
	f := NewFake(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				f.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 8000, f.Ticks())
}

func TestFunc(t *testing.T) {
	var e Encoder = Func(func() int64 { return 42 })
	assert.EqualValues(t, 42, e.Ticks())
}
