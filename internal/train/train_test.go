package train

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMeterMean(t *testing.T) {
	var m Meter
	assert.Zero(t, m.Mean())

	for _, v := range []float64{1.5, 0.5, 1.0, 3.0} {
		m.Add(v)
	}
	assert.InDelta(t, 1.5, m.Mean(), 1e-12)
	assert.Equal(t, 4, m.Count())
	assert.InDelta(t, 3.0, m.Last(), 1e-12)

	m.Reset()
	assert.Zero(t, m.Count())
	assert.Zero(t, m.Mean())
}

func TestWindowSnapshot(t *testing.T) {
	var w Window
	w.Record(64, 20*time.Millisecond, 10*time.Millisecond)
	w.Record(64, 10*time.Millisecond, 20*time.Millisecond)

	snap := w.Snapshot()
	assert.InDelta(t, 2133.3333, snap.ImagesPerSec, 1)
	assert.InDelta(t, 15, snap.AvgDataMS, 1e-9)
	assert.Equal(t, 2, snap.Steps)
	assert.Zero(t, w.steps, "window was not reset")
}

func TestReporterFormats(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out)

	r.GANEpoch(1, 50, 1.23456, 0.5)
	r.Epoch(2, 10, 2.0)
	r.Evaluation(0.9, 0.4567)
	r.Throughput(1, Snapshot{Steps: 1})

	assert.Equal(t,
		"Epoch [1/50], Loss D: 1.2346, Loss G: 0.5000\n"+
			"Epoch [2/10], Loss: 2.0000\n"+
			"Test Loss: 0.9000, Accuracy: 45.67%\n",
		out.String())
}

func TestReporterThroughputLogger(t *testing.T) {
	var out, logs bytes.Buffer
	r := NewReporter(&out)
	r.Logger = log.New(&logs, "", 0)

	r.Throughput(3, Snapshot{Steps: 2, ImagesPerSec: 10})
	assert.Empty(t, out.String())
	assert.Contains(t, logs.String(), "epoch=3 steps=2 images_per_sec=10.0")
}
