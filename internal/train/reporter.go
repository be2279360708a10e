package train

import (
	"fmt"
	"io"
	"log"
)

// Reporter prints one summary line per epoch, losses to four decimals:
//
//	Epoch [3/50], Loss D: 1.2345, Loss G: 0.6789
//	Epoch [3/10], Loss: 1.2345
//
// Throughput lines go to Logger, and only when it is non-nil, so the
// summary stream stays one line per epoch.
type Reporter struct {
	Out    io.Writer
	Logger *log.Logger
}

// NewReporter creates a reporter writing summaries to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{Out: out}
}

// GANEpoch prints the discriminator and generator losses of an epoch.
func (r *Reporter) GANEpoch(epoch, epochs int, lossD, lossG float64) {
	fmt.Fprintf(r.Out, "Epoch [%d/%d], Loss D: %.4f, Loss G: %.4f\n", epoch, epochs, lossD, lossG)
}

// Epoch prints the mean loss of an epoch.
func (r *Reporter) Epoch(epoch, epochs int, loss float64) {
	fmt.Fprintf(r.Out, "Epoch [%d/%d], Loss: %.4f\n", epoch, epochs, loss)
}

// Evaluation prints test-set loss and accuracy.
func (r *Reporter) Evaluation(loss, accuracy float64) {
	fmt.Fprintf(r.Out, "Test Loss: %.4f, Accuracy: %.2f%%\n", loss, 100*accuracy)
}

// Throughput logs a window snapshot when a logger is configured.
func (r *Reporter) Throughput(epoch int, snap Snapshot) {
	if r.Logger == nil {
		return
	}
	r.Logger.Printf("epoch=%d steps=%d images_per_sec=%.1f data_ms=%.2f compute_ms=%.2f",
		epoch, snap.Steps, snap.ImagesPerSec, snap.AvgDataMS, snap.AvgComputeMS)
}
