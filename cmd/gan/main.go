// Command gan trains a fully connected GAN on MNIST digits and writes
// generator.born and discriminator.born to the output directory.
//
//	gan -data ./data -epochs 50
//	gan -synthetic -epochs 1 -samples 128
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
	"github.com/born-ml/trainers/internal/data"
	"github.com/born-ml/trainers/internal/device"
	"github.com/born-ml/trainers/internal/gan"
	"github.com/born-ml/trainers/internal/tensor"
	"github.com/born-ml/trainers/internal/train"
)

type options struct {
	dataDir   string
	outDir    string
	epochs    int
	batchSize int
	lr        float64
	latent    int
	seed      int64
	synthetic bool
	samples   int
	device    string
	verbose   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.dataDir, "data", "./data", "Directory containing MNIST idx files")
	flag.StringVar(&opts.outDir, "out", "models", "Directory for generator.born and discriminator.born")
	flag.IntVar(&opts.epochs, "epochs", 50, "Number of training epochs")
	flag.IntVar(&opts.batchSize, "batch", 64, "Batch size")
	flag.Float64Var(&opts.lr, "lr", 0.0002, "Adam learning rate for both networks")
	flag.IntVar(&opts.latent, "latent", 100, "Latent noise dimension")
	flag.Int64Var(&opts.seed, "seed", 0, "Random seed (0 = seed from the clock)")
	flag.BoolVar(&opts.synthetic, "synthetic", false, "Use generated digits instead of MNIST files")
	flag.IntVar(&opts.samples, "samples", 0, "Max samples to use (0 = all)")
	flag.StringVar(&opts.device, "device", "cpu", "Compute device: cpu, webgpu or auto")
	flag.BoolVar(&opts.verbose, "v", false, "Log per-epoch throughput to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, data.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "MNIST files not found. Place train-images-idx3-ubyte[.gz] and")
			fmt.Fprintln(os.Stderr, "train-labels-idx1-ubyte[.gz] in the data directory, or run with -synthetic.")
		}
		log.Fatalf("gan: %v", err)
	}
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	tensor.ManualSeed(seed)

	var ds *data.InMemory
	if opts.synthetic {
		n := opts.samples
		if n <= 0 {
			n = 1024
		}
		ds = data.SyntheticMNIST(n, seed)
	} else {
		var err error
		if ds, err = data.LoadMNIST(opts.dataDir, true, opts.samples); err != nil {
			return err
		}
	}

	inner, release, err := device.Open(opts.device)
	if err != nil {
		return err
	}
	defer release()
	backend := autodiff.New(inner)

	cfg := gan.DefaultConfig()
	cfg.Epochs = opts.epochs
	cfg.LatentDim = opts.latent
	cfg.LR = float32(opts.lr)
	cfg.ImageShape = ds.ImageShape()
	trainer, err := gan.NewTrainer(cfg, backend)
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "Device: %s on %s\n", inner.Name(), device.Describe())
	fmt.Fprintf(stderr, "Training GAN on %d images, batch %d, %d epochs\n", ds.Len(), opts.batchSize, opts.epochs)

	reporter := train.NewReporter(stdout)
	if opts.verbose {
		reporter.Logger = log.New(stderr, "", log.LstdFlags)
	}
	loader := data.NewLoader(ds, opts.batchSize, true, seed, backend)
	if _, err := trainer.Fit(ctx, loader, reporter); err != nil {
		return err
	}

	if err := trainer.Save(opts.outDir); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "Saved %s and %s to %s\n", gan.GeneratorFile, gan.DiscriminatorFile, opts.outDir)
	return nil
}
