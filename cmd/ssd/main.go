// Package main provides the ssd command: it assembles an SSD model from a
// YAML config and pretrained VGG16 weights and runs one forward pass.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"

	"github.com/born-ml/ssd/internal/loader"
	"github.com/born-ml/ssd/internal/ssd"
	"github.com/born-ml/ssd/internal/tensor"
)

const version = "v0.1.0-dev"

type flags struct {
	config      string
	weights     string
	headWeights string
	seed        int64
	batch       int
	summary     bool
	verbose     bool
	version     bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "ssd:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("ssd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "YAML model config (default: SSD300 on VGG16)")
	fs.StringVar(&f.weights, "weights", "", "SafeTensors weights of VGG16 without its classifier")
	fs.StringVar(&f.headWeights, "head-weights", "", "SafeTensors weights of VGG16 with its classifier")
	fs.Int64Var(&f.seed, "seed", -1, "override the transplant seed of the config")
	fs.IntVar(&f.batch, "batch", 1, "batch size of the random input")
	fs.BoolVar(&f.summary, "summary", false, "print the model summary")
	fs.BoolVar(&f.verbose, "v", false, "debug logging")
	fs.BoolVar(&f.version, "version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.batch <= 0 {
		return f, fmt.Errorf("invalid -batch %d", f.batch)
	}
	return f, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if f.version {
		fmt.Fprintf(stdout, "ssd %s\n", version)
		return nil
	}

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg := ssd.DefaultConfig()
	if f.config != "" {
		if cfg, err = ssd.LoadConfig(f.config); err != nil {
			return err
		}
	}
	if f.seed >= 0 {
		cfg.Backbone.Seed = f.seed
	}

	features, closeFeatures, err := openWeights(f.weights)
	if err != nil {
		return err
	}
	defer closeFeatures()
	head, closeHead, err := openWeights(f.headWeights)
	if err != nil {
		return err
	}
	defer closeHead()
	if features == nil || head == nil {
		logger.Warn("pretrained weights missing, using initial values", "weights", f.weights, "head_weights", f.headWeights)
	}

	model, err := ssd.Build(cfg, features, head, ssd.WithLogger(logger))
	if err != nil {
		return err
	}
	if f.summary {
		fmt.Fprintln(stdout, model)
	}

	rng := rand.New(rand.NewSource(cfg.Backbone.Seed)) //nolint:gosec // sample input only
	x := tensor.Uniform(tensor.Shape(cfg.Backbone.InputShape).WithBatch(f.batch), 0, 1, rng)
	outputs, err := model.Forward(x)
	if err != nil {
		return err
	}
	for i, out := range outputs {
		fmt.Fprintf(stdout, "%-16s %s\n", model.Taps()[i], out.Shape())
	}
	return nil
}

// openWeights opens path, or returns a nil source when path is empty.
func openWeights(path string) (loader.WeightSource, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	src, err := loader.OpenSafeTensors(path)
	if err != nil {
		return nil, nil, err
	}
	return src, func() { _ = src.Close() }, nil
}
