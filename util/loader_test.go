package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectoryImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-10.jpg", "frame-2.png", "b.webp", "a.JPEG", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o700))

	images, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, image := range images {
		names = append(names, filepath.Base(image.Path))
		assert.Equal(t, filepath.Base(image.Path), string(image.Data))
	}
	assert.Equal(t, []string{"frame-2.png", "frame-10.jpg", "a.JPEG", "b.webp"}, names)
	assert.Equal(t, 2, images[0].Frame)
	assert.Equal(t, -1, images[3].Frame)
}

func TestLoadDirectoryImagesMissing(t *testing.T) {
	_, err := LoadDirectoryImageFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFrameNumber(t *testing.T) {
	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"frame-7.jpg", 7, true},
		{"/tmp/clip/frame-0123.png", 123, true},
		{"frame-x.jpg", -1, false},
		{"face.jpg", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := FrameNumber(tt.name)
			assert.Equal(t, tt.want, n)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
