// Command cnn trains a convolutional classifier on CIFAR-10, prints the
// mean training loss of every epoch and finally the test-set accuracy.
//
//	cnn -data ./data -epochs 10
//	cnn -synthetic -epochs 1 -samples 256 -save models/cnn.born
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/born-ml/trainers/internal/autodiff"
	"github.com/born-ml/trainers/internal/classifier"
	"github.com/born-ml/trainers/internal/data"
	"github.com/born-ml/trainers/internal/device"
	"github.com/born-ml/trainers/internal/tensor"
	"github.com/born-ml/trainers/internal/train"
)

type options struct {
	dataDir   string
	epochs    int
	batchSize int
	lr        float64
	optimizer string
	seed      int64
	synthetic bool
	samples   int
	save      string
	format    string
	device    string
	verbose   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.dataDir, "data", "./data", "Directory containing the CIFAR-10 binary batches")
	flag.IntVar(&opts.epochs, "epochs", 10, "Number of training epochs")
	flag.IntVar(&opts.batchSize, "batch", 64, "Batch size")
	flag.Float64Var(&opts.lr, "lr", 0.001, "Learning rate")
	flag.StringVar(&opts.optimizer, "optimizer", "adam", "Optimizer: adam or sgd (momentum 0.9)")
	flag.Int64Var(&opts.seed, "seed", 0, "Random seed (0 = seed from the clock)")
	flag.BoolVar(&opts.synthetic, "synthetic", false, "Use generated images instead of CIFAR-10 files")
	flag.IntVar(&opts.samples, "samples", 0, "Max training samples to use (0 = all)")
	flag.StringVar(&opts.save, "save", "", "Write the trained model to this path")
	flag.StringVar(&opts.format, "format", classifier.FormatBorn, "Checkpoint format: born or safetensors")
	flag.StringVar(&opts.device, "device", "cpu", "Compute device: cpu, webgpu or auto")
	flag.BoolVar(&opts.verbose, "v", false, "Log per-epoch throughput to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, data.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "CIFAR-10 not found. Extract cifar-10-binary.tar.gz into the data")
			fmt.Fprintln(os.Stderr, "directory (cifar-10-batches-bin/), or run with -synthetic.")
		}
		log.Fatalf("cnn: %v", err)
	}
}

func loadData(opts options, seed int64) (trainSet, testSet *data.InMemory, err error) {
	if opts.synthetic {
		n := opts.samples
		if n <= 0 {
			n = 1024
		}
		return data.SyntheticCIFAR(n, seed), data.SyntheticCIFAR(max(n/5, 1), seed+1), nil
	}
	if trainSet, err = data.LoadCIFAR10(opts.dataDir, true, opts.samples); err != nil {
		return nil, nil, err
	}
	if testSet, err = data.LoadCIFAR10(opts.dataDir, false, 0); err != nil {
		return nil, nil, err
	}
	return trainSet, testSet, nil
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	tensor.ManualSeed(seed)

	trainSet, testSet, err := loadData(opts, seed)
	if err != nil {
		return err
	}

	inner, release, err := device.Open(opts.device)
	if err != nil {
		return err
	}
	defer release()
	backend := autodiff.New(inner)

	cfg := classifier.DefaultConfig()
	cfg.Epochs = opts.epochs
	cfg.LR = float32(opts.lr)
	cfg.Optimizer = opts.optimizer
	trainer, err := classifier.NewTrainer(cfg, backend)
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "Device: %s on %s\n", inner.Name(), device.Describe())
	fmt.Fprintf(stderr, "Training CNN on %d images (%d test), %s lr=%g, batch %d, %d epochs\n",
		trainSet.Len(), testSet.Len(), opts.optimizer, opts.lr, opts.batchSize, opts.epochs)

	reporter := train.NewReporter(stdout)
	if opts.verbose {
		reporter.Logger = log.New(stderr, "", log.LstdFlags)
	}
	trainLoader := data.NewLoader(trainSet, opts.batchSize, true, seed, backend)
	history, err := trainer.Fit(ctx, trainLoader, reporter)
	if err != nil {
		return err
	}

	testLoader := data.NewLoader(testSet, opts.batchSize, false, 0, backend)
	loss, acc, err := trainer.Evaluate(ctx, testLoader)
	if err != nil {
		return err
	}
	reporter.Evaluation(loss, acc)

	if opts.save != "" {
		if err := trainer.Save(opts.save, opts.format, history[len(history)-1]); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Saved model to %s\n", opts.save)
	}
	return nil
}
