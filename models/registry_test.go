package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-facedet/models/facedet"
	"github.com/nvr-ai/go-facedet/models/model"
)

func TestNewModel(t *testing.T) {
	tests := []struct {
		name    string
		args    model.NewModelArgs
		wantErr bool
	}{
		{"face detector", model.NewModelArgs{Name: model.ModelNameFaceDet}, false},
		{"default name", model.NewModelArgs{}, false},
		{"unknown", model.NewModelArgs{Name: "yolov4"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewModel(tt.args, facedet.DefaultConfig(), nil)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.ModelNameFaceDet, m.Options().Name)
		})
	}
}
