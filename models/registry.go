// Package models - registry for models.
package models

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-facedet/models/facedet"
	"github.com/nvr-ai/go-facedet/models/model"
)

// NewModel creates a new detection model instance based on the specified model name.
//
// Arguments:
//   - args: Configuration parameters specifying the model name and location.
//   - config: The decode tuning.
//   - logger: Destination for model diagnostics. Nil discards them.
//
// Returns:
//   - model.Model: A fully configured model instance implementing the Model interface.
//   - error: An error if the model name is unsupported or the configuration is invalid.
//
// Example:
//
// ```go
//
//	m, err := NewModel(model.NewModelArgs{
//	    Name: model.ModelNameFaceDet,
//	    Path: "/models/face.onnx",
//	}, facedet.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//
// ```
func NewModel(args model.NewModelArgs, config facedet.Config, logger *zap.Logger) (model.Model, error) {
	switch args.Name {
	case model.ModelNameFaceDet, "":
		m, err := facedet.NewModel(args, config, logger)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported model name: %s", args.Name)
	}
}
