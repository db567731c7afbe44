package fb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/fbclock/internal/pixel"
)

func TestParseVirtualSize(t *testing.T) {
	tests := map[string]struct {
		in      string
		w, h    int
		wantErr bool
	}{
		"plain":    {in: "1920,1200", w: 1920, h: 1200},
		"newline":  {in: "800,480\n", w: 800, h: 480},
		"spaces":   {in: " 640 , 480 ", w: 640, h: 480},
		"garbage":  {in: "lots of pixels", wantErr: true},
		"onepart":  {in: "1920", wantErr: true},
		"zero":     {in: "0,480", wantErr: true},
		"negative": {in: "-1,480", wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w, h, err := ParseVirtualSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestReadGeometryFiles(t *testing.T) {
	dir := t.TempDir()
	sizePath := filepath.Join(dir, `virtual_size`)
	bppPath := filepath.Join(dir, `bits_per_pixel`)
	require.NoError(t, os.WriteFile(sizePath, []byte("1920,1200\n"), 0o644))
	require.NoError(t, os.WriteFile(bppPath, []byte("16\n"), 0o644))

	geo, err := readGeometryFiles(sizePath, bppPath)
	require.NoError(t, err)
	assert.Equal(t, 1920, geo.Width)
	assert.Equal(t, 1200, geo.Height)
	assert.Equal(t, pixel.RGB565, geo.Format)
	assert.Equal(t, 1920*2, geo.Stride())
	assert.Equal(t, 1920*1200*2, geo.BufferLen())
}

func TestReadGeometryFilesMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := readGeometryFiles(filepath.Join(dir, `nope`), filepath.Join(dir, `nope2`))
	assert.Error(t, err)
}

func TestDevicePathEnvOverride(t *testing.T) {
	t.Setenv(`FRAMEBUFFER`, `/dev/fb1`)
	assert.Equal(t, `/dev/fb1`, DevicePath())
}
