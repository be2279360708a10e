package train

import "time"

// Window accumulates timing stats across multiple steps.
type Window struct {
	samples int
	data    time.Duration
	compute time.Duration
	steps   int
}

// Record adds a new measurement to the window.
func (w *Window) Record(batchSize int, dataTime, computeTime time.Duration) {
	w.samples += batchSize
	w.data += dataTime
	w.compute += computeTime
	w.steps++
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps}
	total := w.data + w.compute
	if total > 0 {
		snap.ImagesPerSec = float64(w.samples) / total.Seconds()
	}
	if w.steps > 0 {
		snap.AvgDataMS = (w.data.Seconds() * 1000) / float64(w.steps)
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.steps)
	}
	*w = Window{}
	return snap
}

// Snapshot represents loggable throughput metrics.
type Snapshot struct {
	Steps        int
	ImagesPerSec float64
	AvgDataMS    float64
	AvgComputeMS float64
}
