// Package train holds the bookkeeping shared by the training loops: the
// running loss meter, the throughput window and the console reporter.
package train

// Meter accumulates per-batch losses over an epoch. Mean is the plain
// arithmetic mean over batches, independent of batch sizes.
type Meter struct {
	sum   float64
	count int
	last  float64
}

// Add records one batch loss.
func (m *Meter) Add(loss float64) {
	m.sum += loss
	m.count++
	m.last = loss
}

// Mean returns the mean of the recorded losses, or 0 when empty.
func (m *Meter) Mean() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

// Last returns the most recently recorded loss.
func (m *Meter) Last() float64 { return m.last }

// Count returns the number of recorded losses.
func (m *Meter) Count() int { return m.count }

// Reset clears the meter for the next epoch.
func (m *Meter) Reset() {
	*m = Meter{}
}
