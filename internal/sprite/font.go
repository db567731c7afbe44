package sprite

import (
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/srlehn/fbclock/internal/errors"
	"github.com/srlehn/fbclock/internal/logx"
)

// fontSearchPaths are the usual suspects on Raspberry Pi OS images.
var fontSearchPaths = []string{
	`/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf`,
	`/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf`,
	`/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf`,
}

// LoadFont parses the TrueType font at path.
func LoadFont(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err)
	}
	fnt, err := truetype.Parse(data)
	if err != nil {
		return nil, errors.Errorf(`font %q: %v`, path, err)
	}
	return fnt, nil
}

// FindFont loads the configured font if set, else the first system font
// found, else the embedded Go Regular. Font load failures are never fatal.
func FindFont(configured string, lp logx.LoggerProvider) *truetype.Font {
	paths := fontSearchPaths
	if len(configured) > 0 {
		paths = append([]string{configured}, paths...)
	}
	for _, path := range paths {
		fnt, err := LoadFont(path)
		if err != nil {
			continue
		}
		logx.Info(`using TrueType font`, lp, `path`, path)
		return fnt
	}
	logx.Warn(`no system font found, using embedded Go Regular`, lp)
	fnt, err := truetype.Parse(goregular.TTF)
	if err != nil {
		// the embedded font is known-good
		panic(err)
	}
	return fnt
}
