// Package weather fetches current conditions from OpenWeatherMap. Results
// are cached; a failed refresh silently reuses the stale report, which
// beats an empty display line.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/srlehn/fbclock/internal/config"
	"github.com/srlehn/fbclock/internal/errors"
	"github.com/srlehn/fbclock/internal/logx"
)

const defaultBaseURL = `https://api.openweathermap.org/data/2.5/weather`

// Report is one weather observation, already rounded for display.
type Report struct {
	Temp      int
	FeelsLike int
	Humidity  int
	Pressure  int
	Condition string
	Icon      string
	WindSpeed float64
	City      string
	Country   string
	TempUnit  string
	WindUnit  string
}

// Line formats the display string shown under the date.
func (r *Report) Line() string {
	if r == nil {
		return ``
	}
	return fmt.Sprintf(`%s • %d° • Humidity: %d%%`, r.Condition, r.Temp, r.Humidity)
}

type Service struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	location string
	units    string
	language string

	cacheFor  time.Duration
	cached    *Report
	lastFetch time.Time
	now       func() time.Time

	lp logx.LoggerProvider
}

// NewService returns nil when the configuration cannot produce fetches;
// callers treat a nil service as "weather disabled".
func NewService(cfg config.Weather, lp logx.LoggerProvider) *Service {
	if !cfg.Enabled {
		return nil
	}
	if len(cfg.APIKey) == 0 {
		logx.Warn(`weather disabled: api key not set`, lp)
		return nil
	}
	if len(cfg.Location) == 0 {
		logx.Warn(`weather disabled: location not set`, lp)
		return nil
	}
	logx.Info(`weather service enabled`, lp, `location`, cfg.Location, `units`, cfg.Units)
	return &Service{
		client:   &http.Client{Timeout: 2 * time.Second},
		baseURL:  defaultBaseURL,
		apiKey:   cfg.APIKey,
		location: cfg.Location,
		units:    cfg.Units,
		language: cfg.Language,
		cacheFor: 10 * time.Minute,
		now:      time.Now,
		lp:       lp,
	}
}

// Current returns the freshest report available. The cache is served while
// valid; after a failed refresh the stale report is returned unchanged.
func (s *Service) Current(ctx context.Context) *Report {
	if s == nil {
		return nil
	}
	if s.cached != nil && s.now().Sub(s.lastFetch) < s.cacheFor {
		return s.cached
	}
	report, err := s.fetch(ctx)
	if logx.IsErr(err, s.lp, slog.LevelError, `location`, s.location) {
		return s.cached
	}
	s.cached = report
	s.lastFetch = s.now()
	logx.Info(`weather fetched`, s.lp,
		`condition`, report.Condition, `temp`, report.Temp)
	return s.cached
}

type owmResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
}

func (s *Service) fetch(ctx context.Context) (*Report, error) {
	q := url.Values{}
	q.Set(`q`, s.location)
	q.Set(`appid`, s.apiKey)
	q.Set(`units`, s.units)
	q.Set(`lang`, s.language)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+`?`+q.Encode(), nil)
	if err != nil {
		return nil, errors.New(err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.New(err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, errors.New(`invalid weather api key`)
	case http.StatusNotFound:
		return nil, errors.Errorf(`location not found: %q`, s.location)
	default:
		return nil, errors.Errorf(`weather api status %s`, resp.Status)
	}
	var body owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.New(err)
	}
	if len(body.Weather) == 0 {
		return nil, errors.New(`weather api response missing conditions`)
	}
	report := &Report{
		Temp:      int(math.Round(body.Main.Temp)),
		FeelsLike: int(math.Round(body.Main.FeelsLike)),
		Humidity:  body.Main.Humidity,
		Pressure:  body.Main.Pressure,
		Condition: titleCase(body.Weather[0].Description),
		Icon:      body.Weather[0].Icon,
		WindSpeed: body.Wind.Speed,
		City:      body.Name,
		Country:   body.Sys.Country,
	}
	switch s.units {
	case `metric`:
		report.TempUnit, report.WindUnit = `°C`, `m/s`
	case `imperial`:
		report.TempUnit, report.WindUnit = `°F`, `mph`
	default:
		report.TempUnit, report.WindUnit = `K`, `m/s`
	}
	return report, nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 && r[0] >= 'a' && r[0] <= 'z' {
			r[0] -= 'a' - 'A'
		}
		words[i] = string(r)
	}
	return strings.Join(words, ` `)
}
