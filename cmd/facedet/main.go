// Command facedet runs the face detector on an image or a directory of images
// and prints the detections as JSON lines.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/akamensky/argparse"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-facedet/config"
	"github.com/nvr-ai/go-facedet/detector"
	"github.com/nvr-ai/go-facedet/inference"
	"github.com/nvr-ai/go-facedet/logger"
	"github.com/nvr-ai/go-facedet/models"
	"github.com/nvr-ai/go-facedet/models/model/preprocess"
	"github.com/nvr-ai/go-facedet/models/postprocess"
	"github.com/nvr-ai/go-facedet/util"
)

// record is one line of output.
type record struct {
	Path       string                  `json:"path"`
	Frame      int                     `json:"frame,omitempty"`
	Width      int                     `json:"width"`
	Height     int                     `json:"height"`
	Detections []postprocess.Detection `json:"detections"`
}

type options struct {
	configPath  string
	modelPath   string
	libraryPath string
	input       string
	dir         string
	output      string
	threshold   float64
	debug       bool
}

func main() {
	parser := argparse.NewParser("facedet", "Detect faces in images")
	configPath := parser.String("c", "config", &argparse.Options{Help: "Configuration file", Default: ""})
	modelPath := parser.String("m", "model", &argparse.Options{Help: "Path to the ONNX model, overrides the configuration"})
	libraryPath := parser.String("l", "library", &argparse.Options{Help: "Path to the ONNX Runtime shared library, overrides the configuration"})
	input := parser.String("i", "input", &argparse.Options{Help: "Input image"})
	dir := parser.String("d", "dir", &argparse.Options{Help: "Directory of input images"})
	output := parser.String("o", "output", &argparse.Options{Help: "Annotated output image, or a directory with -d"})
	threshold := parser.Float("t", "threshold", &argparse.Options{Help: "Score threshold, defaults to the configured one", Default: -1.0})
	debug := parser.Flag("v", "verbose", &argparse.Options{Help: "Log decode diagnostics"})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	opts := options{
		configPath:  *configPath,
		modelPath:   *modelPath,
		libraryPath: *libraryPath,
		input:       *input,
		dir:         *dir,
		output:      *output,
		threshold:   *threshold,
		debug:       *debug,
	}
	if err := run(opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run writes detections to out and log entries to logOut.
func run(opts options, out, logOut io.Writer) error {
	if (opts.input == "") == (opts.dir == "") {
		return fmt.Errorf("exactly one of -i or -d is required")
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.modelPath != "" {
		cfg.Engine.ModelPath = opts.modelPath
	}
	if opts.libraryPath != "" {
		cfg.Engine.LibraryPath = opts.libraryPath
	}
	if opts.debug {
		cfg.Log.Debug = true
	}
	threshold := cfg.Decode.ScoreThreshold
	if opts.threshold >= 0 {
		threshold = float32(opts.threshold)
	}

	log, err := logger.NewWithSyncer(cfg.Log, zapcore.AddSync(logOut))
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting",
		zap.String("model", cfg.Engine.ModelPath),
		zap.String("provider", string(cfg.Engine.Provider.Backend)),
		zap.Float32("threshold", threshold))

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

	enc := json.NewEncoder(out)

	if opts.input != "" {
		data, err := os.ReadFile(opts.input)
		if err != nil {
			return err
		}
		return detect(det, enc, data, record{Path: opts.input}, threshold, opts.output, log)
	}

	files, err := util.LoadDirectoryImageFiles(opts.dir)
	if err != nil {
		return err
	}
	if opts.output != "" {
		if err := os.MkdirAll(opts.output, 0o755); err != nil {
			return err
		}
	}
	for _, f := range files {
		dst := ""
		if opts.output != "" {
			dst = filepath.Join(opts.output, filepath.Base(f.Path))
		}
		err := detect(det, enc, f.Data, record{Path: f.Path, Frame: max(f.Frame, 0)}, threshold, dst, log)
		if errors.Is(err, errUndecodable) {
			log.Warn("skipping image", zap.String("path", f.Path))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

var errUndecodable = errors.New("image cannot be decoded")

func detect(det *detector.Detector, enc *json.Encoder, data []byte, rec record, threshold float32, dst string, log *zap.Logger) error {
	img, dets := det.DetectBytes(&preprocess.Image{Data: data}, threshold)
	if img == nil {
		return fmt.Errorf("%s: %w", rec.Path, errUndecodable)
	}
	rec.Width = img.Bounds().Dx()
	rec.Height = img.Bounds().Dy()
	rec.Detections = dets
	if rec.Detections == nil {
		rec.Detections = []postprocess.Detection{}
	}
	if err := enc.Encode(rec); err != nil {
		return err
	}

	if dst == "" {
		return nil
	}
	if err := imaging.Save(annotate(img, dets), dst); err != nil {
		return fmt.Errorf("saving %s: %w", dst, err)
	}
	log.Debug("annotated", zap.String("path", dst), zap.Int("faces", len(dets)))
	return nil
}
