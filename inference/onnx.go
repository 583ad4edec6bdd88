package inference

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-facedet/inference/providers"
	"github.com/nvr-ai/go-facedet/models/decode"
)

var envOnce sync.Once
var envErr error

func initEnvironment(libraryPath string) error {
	envOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if _, err := os.Stat(libraryPath); err != nil {
			envErr = fmt.Errorf("ONNX Runtime library not found at %s: %w", libraryPath, err)
			return
		}
		ort.SetSharedLibraryPath(libraryPath)
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("error initializing ORT environment: %w", err)
		}
	})
	return envErr
}

// ONNXEngine runs a model through an ONNX Runtime dynamic session.
// The output shape is read from each run, so any output layout reaches the decoder.
type ONNXEngine struct {
	config  Config
	session *ort.DynamicAdvancedSession
	input   *ort.Tensor[float32]
	log     *zap.Logger
}

// NewONNXEngine loads the model and prepares the input tensor.
//
// Arguments:
//   - config: The engine configuration.
//   - logger: Destination for engine diagnostics. Nil discards them.
//
// Returns:
//   - *ONNXEngine: The engine, which the caller must Close.
//   - error: If the runtime, the model or the named output cannot be loaded.
func NewONNXEngine(config Config, logger *zap.Logger) (*ONNXEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := initEnvironment(config.LibraryPath); err != nil {
		return nil, err
	}

	_, outputs, err := ort.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading model info from %s", config.ModelPath)
	}
	names := make([]string, 0, len(outputs))
	for _, o := range outputs {
		names = append(names, o.Name)
	}
	if !slices.Contains(names, config.OutputName) {
		return nil, fmt.Errorf("%w: %q not in %v", ErrOutputNotFound, config.OutputName, names)
	}

	options, err := providers.NewSessionOptions(config.Provider)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	s := int64(config.InputSize)
	input, err := ort.NewTensor(ort.NewShape(1, 3, s, s), make([]float32, config.InputLen()))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		config.ModelPath,
		[]string{config.InputName},
		[]string{config.OutputName},
		options,
	)
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	logger.Info("onnx engine ready",
		zap.String("model", config.ModelPath),
		zap.String("backend", string(config.Provider.Backend)),
		zap.String("output", config.OutputName),
		zap.Int("input_size", config.InputSize),
	)

	return &ONNXEngine{config: config, session: session, input: input, log: logger}, nil
}

// Run implements Engine.
func (e *ONNXEngine) Run(input []float32) (decode.RawTensor, error) {
	data := e.input.GetData()
	if len(input) != len(data) {
		return decode.RawTensor{}, fmt.Errorf("%w: got %d values, want %d", ErrInputSize, len(input), len(data))
	}
	copy(data, input)

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{e.input}, outputs); err != nil {
		return decode.RawTensor{}, fmt.Errorf("failed to run inference: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return decode.RawTensor{}, fmt.Errorf("%w: output %q is not float32", decode.ErrInvalidShape, e.config.OutputName)
	}

	chw, err := ShapeToCHW(out.GetShape())
	if err != nil {
		return decode.RawTensor{}, err
	}
	// The output buffer is owned by the runtime and freed on Destroy.
	dense := tensor.New(tensor.WithShape(chw...), tensor.WithBacking(slices.Clone(out.GetData())))
	return decode.FromDense(dense)
}

// OutputName implements Engine.
func (e *ONNXEngine) OutputName() string {
	return e.config.OutputName
}

// Close implements Engine.
func (e *ONNXEngine) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.input != nil {
		if derr := e.input.Destroy(); err == nil {
			err = derr
		}
		e.input = nil
	}
	return err
}
