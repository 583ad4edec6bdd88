// Package model - Definitions shared by detection models and the components that run them.
package model

import (
	"github.com/nvr-ai/go-facedet/models/decode"
	"github.com/nvr-ai/go-facedet/models/postprocess"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyYOLO is an anchor-free YOLO-style head with a single class.
	ModelFamilyYOLO Family = "yolo"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameFaceDet is the single-class face detector.
	ModelNameFaceDet Name = "facedet"
)

// Frame carries the per-call parameters of a decode.
type Frame struct {
	// OriginalWidth is the width of the image before letterboxing.
	OriginalWidth int `json:"originalWidth"`
	// OriginalHeight is the height of the image before letterboxing.
	OriginalHeight int `json:"originalHeight"`
	// ScoreThreshold is the minimum confidence of a kept record.
	ScoreThreshold float32 `json:"scoreThreshold"`
}

// BaseModel describes a loaded model.
type BaseModel struct {
	Name      Name
	Family    Family
	Path      string
	InputSize int
	Inputs    []string
	Outputs   []string
}

// Model turns raw head output into detections.
type Model interface {
	Options() BaseModel
	PostProcess(raw decode.RawTensor, frame Frame) []postprocess.Detection
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name      Name     `json:"name" yaml:"name" koanf:"name"`
	Family    Family   `json:"family" yaml:"family" koanf:"family"`
	Path      string   `json:"path" yaml:"path" koanf:"path"`
	InputSize int      `json:"inputSize" yaml:"inputSize" koanf:"inputsize"`
	Inputs    []string `json:"inputs" yaml:"inputs" koanf:"inputs"`
	Outputs   []string `json:"outputs" yaml:"outputs" koanf:"outputs"`
}
