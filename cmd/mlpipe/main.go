package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/YuminosukeSato/mlpipe/config"
	"github.com/YuminosukeSato/mlpipe/pipeline"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/pkg/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	var cfgPath, source, level string
	flag.StringVar(&cfgPath, "config", os.Getenv("MLPIPE_CONFIG"), "Path to YAML config file (optional; tries mlpipe.yaml and configs/mlpipe.yaml)")
	flag.StringVar(&source, "source", os.Getenv("MLPIPE_SOURCE"), "Override the source dataset path")
	flag.StringVar(&level, "log-level", "", "Override the log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %s\n", errors.Detail(err))
		return 1
	}
	if source != "" {
		cfg.Source = source
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %s\n", errors.Detail(err))
		return 1
	}

	provider, closeLog, err := log.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		return 1
	}
	defer closeLog()
	if level != "" {
		l, err := log.ParseLevel(level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -log-level: %v\n", err)
			return 1
		}
		provider.SetLevel(l)
	}

	res, err := pipeline.New(cfg, provider).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline failed: %s\n", errors.Detail(err))
		return 1
	}

	fmt.Printf("best model: %s\n", res.BestName)
	fmt.Printf("r2 score: %.4f\n", res.BestScore)
	if res.ModelPath != "" {
		fmt.Printf("model: %s\n", res.ModelPath)
	}
	return 0
}
