// Package config - loads the detector configuration from defaults, a YAML file and the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-facedet/inference"
	"github.com/nvr-ai/go-facedet/logger"
	"github.com/nvr-ai/go-facedet/models/facedet"
	"github.com/nvr-ai/go-facedet/models/model"
)

// EnvPrefix prefixes the environment overrides, e.g. FACEDET_DECODE_SCORETHRESHOLD=0.6.
const EnvPrefix = "FACEDET_"

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "config/config.yaml"

// AppConfig is the complete configuration of the detector.
type AppConfig struct {
	Model  model.NewModelArgs `koanf:"model"`
	Engine inference.Config   `koanf:"engine"`
	Decode facedet.Config     `koanf:"decode"`
	Log    logger.Config      `koanf:"log"`
}

// Default returns the configuration used when nothing is overridden.
func Default() AppConfig {
	return AppConfig{
		Model: model.NewModelArgs{
			Name:      model.ModelNameFaceDet,
			Family:    model.ModelFamilyYOLO,
			InputSize: facedet.DefaultInputSize,
		},
		Engine: inference.DefaultConfig(),
		Decode: facedet.DefaultConfig(),
		Log:    logger.Config{Format: "json"},
	}
}

func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"model.name":                        string(d.Model.Name),
		"model.family":                      string(d.Model.Family),
		"model.inputsize":                   d.Model.InputSize,
		"engine.librarypath":                d.Engine.LibraryPath,
		"engine.inputname":                  d.Engine.InputName,
		"engine.outputname":                 d.Engine.OutputName,
		"engine.inputsize":                  d.Engine.InputSize,
		"engine.provider.backend":           string(d.Engine.Provider.Backend),
		"engine.provider.intraopnumthreads": d.Engine.Provider.IntraOpNumThreads,
		"engine.provider.interopnumthreads": d.Engine.Provider.InterOpNumThreads,
		"engine.provider.graphoptimization": d.Engine.Provider.GraphOptimization,
		"decode.inputsize":                  d.Decode.InputSize,
		"decode.scorethreshold":             d.Decode.ScoreThreshold,
		"decode.normalizedlimit":            d.Decode.NormalizedLimit,
		"decode.strides":                    d.Decode.Strides,
		"decode.minboxsize":                 d.Decode.MinBoxSize,
		"decode.maxarearatio":               d.Decode.MaxAreaRatio,
		"decode.clusterradius":              d.Decode.ClusterRadius,
		"decode.clusteriou":                 d.Decode.ClusterIoU,
		"decode.iouthreshold":               d.Decode.IoUThreshold,
		"decode.maxdetections":              d.Decode.MaxDetections,
		"decode.swapwh":                     d.Decode.SwapWH,
		"decode.rawsamplesize":              d.Decode.RawSampleSize,
		"decode.neighborsample":             d.Decode.NeighborSample,
		"log.debug":                         d.Log.Debug,
		"log.format":                        d.Log.Format,
	}
}

// Load reads the defaults, then the YAML file at path (skipped when path is
// empty), then FACEDET_ environment variables, and validates the result.
// Nested keys are joined by underscores in the environment and comma-separated
// values become lists.
func Load(path string) (AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return AppConfig{}, errors.Wrap(err, "loading defaults")
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return AppConfig{}, errors.Wrapf(err, "loading %s", path)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(s string, v string) (string, any) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
		if strings.Contains(v, ",") {
			return key, strings.Split(strings.TrimSpace(v), ",")
		}
		return key, v
	}), nil); err != nil {
		return AppConfig{}, errors.Wrap(err, "loading environment")
	}

	var c AppConfig
	if err := k.Unmarshal("", &c); err != nil {
		return AppConfig{}, errors.Wrap(err, "decoding configuration")
	}
	c.resolve()

	if err := c.Validate(); err != nil {
		return AppConfig{}, err
	}
	return c, nil
}

// resolve copies the model settings into the engine and decoder.
func (c *AppConfig) resolve() {
	if c.Engine.ModelPath == "" {
		c.Engine.ModelPath = c.Model.Path
	}
	if c.Model.InputSize > 0 {
		c.Engine.InputSize = c.Model.InputSize
		c.Decode.InputSize = c.Model.InputSize
	}
}

// Validate checks every section. The model path is checked when the engine is created.
func (c AppConfig) Validate() error {
	if err := c.Decode.Validate(); err != nil {
		return errors.Wrap(err, "decode")
	}
	if err := c.Engine.Provider.Validate(); err != nil {
		return errors.Wrap(err, "engine provider")
	}
	if err := c.Log.Validate(); err != nil {
		return errors.Wrap(err, "log")
	}
	if c.Engine.InputSize != c.Decode.InputSize {
		return fmt.Errorf("engine input size %d differs from decode input size %d",
			c.Engine.InputSize, c.Decode.InputSize)
	}
	return nil
}
