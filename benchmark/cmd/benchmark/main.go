package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/akamensky/argparse"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-facedet/benchmark"
	"github.com/nvr-ai/go-facedet/config"
	"github.com/nvr-ai/go-facedet/detector"
	"github.com/nvr-ai/go-facedet/inference"
	"github.com/nvr-ai/go-facedet/logger"
	"github.com/nvr-ai/go-facedet/models"
	"github.com/nvr-ai/go-facedet/models/model/preprocess"
	"github.com/nvr-ai/go-facedet/util"
)

func main() {
	parser := argparse.NewParser("benchmark", "Benchmark the face detector over a directory of images")
	configPath := parser.String("c", "config", &argparse.Options{Help: "Configuration file", Default: ""})
	modelPath := parser.String("m", "model", &argparse.Options{Help: "Path to the ONNX model, overrides the configuration"})
	images := parser.String("d", "dir", &argparse.Options{Help: "Directory of test images", Required: true})
	outputDir := parser.String("o", "output", &argparse.Options{Help: "Output directory for results", Default: "./benchmark_results"})
	scenarioFile := parser.String("s", "scenarios", &argparse.Options{Help: "Scenario set file"})
	iterations := parser.Int("n", "iterations", &argparse.Options{Help: "Timed iterations per scenario", Default: 50})
	resolutions := parser.Flag("r", "resolutions", &argparse.Options{Help: "Compare camera resolutions"})
	batchSize := parser.Int("b", "batch", &argparse.Options{Help: "Frames per timed run, preprocessed concurrently", Default: 1})
	timeout := parser.String("", "timeout", &argparse.Options{Help: "Benchmark timeout", Default: "30m"})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	if err := run(*configPath, *modelPath, *images, *outputDir, *scenarioFile, *iterations, *batchSize, *resolutions, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, modelPath, dir, outputDir, scenarioFile string, iterations, batchSize int, resolutions bool, timeout string) error {
	limit, err := time.ParseDuration(timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if modelPath != "" {
		cfg.Engine.ModelPath = modelPath
	}

	log, err := logger.NewWithSyncer(cfg.Log, zapcore.Lock(os.Stderr))
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	files, err := util.LoadDirectoryImageFiles(dir)
	if err != nil {
		return err
	}
	corpus := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, err := preprocess.DecodeImage(&preprocess.Image{Data: f.Data})
		if err != nil {
			log.Warn("skipping image", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		corpus = append(corpus, img)
	}

	engine, err := inference.NewONNXEngine(cfg.Engine, log)
	if err != nil {
		return err
	}
	m, err := models.NewModel(cfg.Model, cfg.Decode, log)
	if err != nil {
		engine.Close()
		return err
	}
	det, err := detector.New(engine, m, log)
	if err != nil {
		engine.Close()
		return err
	}
	defer det.Close()

	suite := benchmark.NewSuite(det, corpus, outputDir, log)

	var set *benchmark.ScenarioSet
	switch {
	case scenarioFile != "":
		if set, err = benchmark.LoadScenarioSet(scenarioFile); err != nil {
			return err
		}
	case resolutions:
		set = benchmark.ResolutionScenarios(iterations)
	default:
		set = benchmark.QuickScenarios(iterations)
	}
	for _, s := range set.Scenarios {
		if s.ScoreThreshold == 0 {
			s.ScoreThreshold = cfg.Decode.ScoreThreshold
		}
		if s.BatchSize == 0 || batchSize > 1 {
			s.BatchSize = batchSize
		}
		suite.AddScenario(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), limit)
	defer cancel()

	if err := suite.RunAllScenarios(ctx); err != nil {
		return err
	}

	for _, r := range suite.GetResults() {
		fmt.Printf("%-16s %8.2f FPS  %8.2f ms mean  %6d faces\n",
			r.Scenario.Name, r.FramesPerSecond, float64(r.MeanLatency.Microseconds())/1e3, r.DetectionCount)
	}
	return nil
}
