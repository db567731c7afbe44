// Package config loads the clock configuration from a YAML file and applies
// environment variable overrides. Environment variables always take
// precedence over file values.
package config

import (
	"image/color"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"

	"github.com/srlehn/fbclock/internal/errors"
)

type Config struct {
	Display Display `yaml:"display"`
	Time    Time    `yaml:"time"`
	Weather Weather `yaml:"weather"`
}

type Display struct {
	Color           string `yaml:"color"`
	TimeFontSize    int    `yaml:"time_font_size"`
	DateFontSize    int    `yaml:"date_font_size"`
	WeatherFontSize int    `yaml:"weather_font_size"`
	StatusFontSize  int    `yaml:"status_font_size"`
	DateFormat      string `yaml:"date_format"`
	FontPath        string `yaml:"font_path"`
	ShowSeconds     bool   `yaml:"show_seconds"`
	ShowStatusBar   bool   `yaml:"show_status_bar"`

	ScreensaverEnabled   bool `yaml:"screensaver_enabled"`
	ScreensaverStartHour int  `yaml:"screensaver_start_hour"`
	ScreensaverEndHour   int  `yaml:"screensaver_end_hour"`

	DimAtNight      bool    `yaml:"dim_at_night"`
	NightBrightness float64 `yaml:"night_brightness"`
	NightStartHour  int     `yaml:"night_start_hour"`
	NightEndHour    int     `yaml:"night_end_hour"`

	PixelShiftEnabled          bool `yaml:"pixel_shift_enabled"`
	PixelShiftIntervalSeconds  int  `yaml:"pixel_shift_interval_seconds"`
	PixelShiftDisableStartHour int  `yaml:"pixel_shift_disable_start_hour"`
	PixelShiftDisableEndHour   int  `yaml:"pixel_shift_disable_end_hour"`
	PixelShiftMax              int  `yaml:"pixel_shift_max"`

	FontVariationEnabled         bool `yaml:"font_variation_enabled"`
	FontVariationIntervalSeconds int  `yaml:"font_variation_interval_seconds"`

	// NativeRenderer is the path of an optional external renderer binary
	// fed over a stdin line pipe instead of the in-process compositor.
	NativeRenderer string `yaml:"native_renderer"`
}

type Time struct {
	Format12h bool `yaml:"format_12h"`
}

type Weather struct {
	Enabled               bool   `yaml:"enabled"`
	APIKey                string `yaml:"api_key"`
	Location              string `yaml:"location"`
	Units                 string `yaml:"units"`
	Language              string `yaml:"language"`
	UpdateIntervalSeconds int    `yaml:"update_interval_seconds"`
}

// Default returns the built-in configuration, matching a bare config file.
func Default() *Config {
	return &Config{
		Display: Display{
			Color:           `#00FF00`,
			TimeFontSize:    280,
			DateFontSize:    90,
			WeatherFontSize: 60,
			StatusFontSize:  28,
			DateFormat:      `Monday, January 2, 2006`,
			ShowSeconds:     true,
			ShowStatusBar:   true,

			ScreensaverEnabled:   true,
			ScreensaverStartHour: 2,
			ScreensaverEndHour:   5,

			DimAtNight:      true,
			NightBrightness: 0.3,
			NightStartHour:  22,
			NightEndHour:    6,

			PixelShiftEnabled:          true,
			PixelShiftIntervalSeconds:  60,
			PixelShiftDisableStartHour: 12,
			PixelShiftDisableEndHour:   14,
			PixelShiftMax:              10,

			FontVariationEnabled:         true,
			FontVariationIntervalSeconds: 300,
		},
		Time: Time{Format12h: true},
		Weather: Weather{
			Units:                 `metric`,
			Language:              `en`,
			UpdateIntervalSeconds: 600,
		},
	}
}

// Load reads the YAML file at path (skipped if path is empty), applies
// environment overrides and validates. Errors are fatal for the caller:
// running with ambiguous configuration is worse than not running.
func Load(path string) (*Config, error) {
	cfg := Default()
	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.New(err)
		}
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.Errorf(`malformed configuration %q: %v`, path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv walks the yaml-tagged leaf fields. Every leaf has two candidate
// variable names: the section-prefixed one (DISPLAY_COLOR) and the bare
// field name (SHOW_SECONDS). The prefixed form wins when both are set.
func (c *Config) applyEnv() error {
	if c == nil {
		return errors.NilReceiver()
	}
	outer := reflect.ValueOf(c).Elem()
	outerType := outer.Type()
	for i := 0; i < outer.NumField(); i++ {
		section := yamlKey(outerType.Field(i))
		inner := outer.Field(i)
		innerType := inner.Type()
		for j := 0; j < inner.NumField(); j++ {
			key := yamlKey(innerType.Field(j))
			var val string
			var found bool
			for _, envKey := range []string{
				strcase.ToScreamingSnake(section + `_` + key),
				strcase.ToScreamingSnake(key),
			} {
				if v, ok := os.LookupEnv(envKey); ok {
					val, found = v, true
					break
				}
			}
			if !found {
				continue
			}
			if err := setLeaf(inner.Field(j), val); err != nil {
				return errors.Errorf(`override %s.%s: %v`, section, key, err)
			}
		}
	}
	return nil
}

func yamlKey(f reflect.StructField) string {
	tag := f.Tag.Get(`yaml`)
	if idx := strings.IndexByte(tag, ','); idx >= 0 {
		tag = tag[:idx]
	}
	if len(tag) == 0 {
		tag = strcase.ToSnake(f.Name)
	}
	return tag
}

func setLeaf(v reflect.Value, s string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New(err)
		}
		v.SetInt(int64(n))
	case reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return errors.New(err)
		}
		v.SetFloat(f)
	default:
		return errors.Errorf(`unsupported config field kind %s`, v.Kind())
	}
	return nil
}

// ParseBool accepts true/1/yes and false/0/no, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case `true`, `1`, `yes`:
		return true, nil
	case `false`, `0`, `no`:
		return false, nil
	}
	return false, errors.Errorf(`not a boolean: %q`, s)
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.NilReceiver()
	}
	if _, err := ParseHexColor(c.Display.Color); err != nil {
		return err
	}
	for _, sz := range []int{
		c.Display.TimeFontSize, c.Display.DateFontSize,
		c.Display.WeatherFontSize, c.Display.StatusFontSize,
	} {
		if sz <= 0 {
			return errors.Errorf(`font size must be positive, got %d`, sz)
		}
	}
	for _, h := range []int{
		c.Display.ScreensaverStartHour, c.Display.ScreensaverEndHour,
		c.Display.NightStartHour, c.Display.NightEndHour,
		c.Display.PixelShiftDisableStartHour, c.Display.PixelShiftDisableEndHour,
	} {
		if h < 0 || h > 23 {
			return errors.Errorf(`hour out of range [0,24): %d`, h)
		}
	}
	if b := c.Display.NightBrightness; b < 0 || b > 1 {
		return errors.Errorf(`night_brightness out of range [0,1]: %v`, b)
	}
	if c.Display.PixelShiftMax < 0 {
		return errors.Errorf(`pixel_shift_max must not be negative, got %d`, c.Display.PixelShiftMax)
	}
	for name, iv := range map[string]int{
		`pixel_shift_interval_seconds`:    c.Display.PixelShiftIntervalSeconds,
		`font_variation_interval_seconds`: c.Display.FontVariationIntervalSeconds,
		`weather update_interval_seconds`: c.Weather.UpdateIntervalSeconds,
	} {
		if iv <= 0 {
			return errors.Errorf(`%s must be positive, got %d`, name, iv)
		}
	}
	switch c.Weather.Units {
	case `metric`, `imperial`, `standard`:
	default:
		return errors.Errorf(`weather units must be metric, imperial or standard, got %q`, c.Weather.Units)
	}
	return nil
}

// ParseHexColor parses "#RRGGBB" (leading '#' optional).
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), `#`)
	if len(hex) != 6 {
		return color.NRGBA{}, errors.Errorf(`color %q not in #RRGGBB form`, s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, errors.Errorf(`color %q not in #RRGGBB form`, s)
	}
	return color.NRGBA{
		R: uint8(n >> 16),
		G: uint8(n >> 8),
		B: uint8(n),
		A: 0xff,
	}, nil
}
