package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()
	assert.GreaterOrEqual(t, cfg.NumWorkers, 1)

	var counter int64
	seen := make([]int32, 1000)
	For(len(seen), func(i int) {
		atomic.AddInt64(&counter, 1)
		atomic.AddInt32(&seen[i], 1)
	}, cfg)

	assert.Equal(t, int64(len(seen)), counter)
	for i, v := range seen {
		assert.Equal(t, int32(1), v, "index %d", i)
	}
}

func TestForForcedParallel(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 3}

	out := make([]int, 50)
	For(len(out), func(i int) { out[i] = i * i }, cfg)
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestForSequential(t *testing.T) {
	var order []int
	For(5, func(i int) { order = append(order, i) }, Sequential())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestForBatch(t *testing.T) {
	batch, channels := 4, 8
	var results [4][8]int32

	ForBatch(batch, channels, func(b, c int) {
		atomic.AddInt32(&results[b][c], 1)
	}, DefaultConfig().WithMinChunk(2))

	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {
			assert.Equal(t, int32(1), results[b][c], "[%d][%d]", b, c)
		}
	}
}
