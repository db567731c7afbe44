package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/fbclock/internal/config"
)

const owmBody = `{
	"main": {"temp": 21.6, "feels_like": 20.9, "humidity": 40, "pressure": 1013},
	"weather": [{"description": "scattered clouds", "icon": "03d"}],
	"wind": {"speed": 3.4},
	"name": "Berlin",
	"sys": {"country": "DE"}
}`

func testService(t *testing.T, handler http.HandlerFunc) (*Service, *int) {
	t.Helper()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	s := NewService(config.Weather{
		Enabled:  true,
		APIKey:   `k`,
		Location: `Berlin,DE`,
		Units:    `metric`,
		Language: `en`,
	}, nil)
	require.NotNil(t, s)
	s.baseURL = srv.URL
	return s, &calls
}

func TestFetchAndFormat(t *testing.T) {
	s, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `Berlin,DE`, r.URL.Query().Get(`q`))
		assert.Equal(t, `metric`, r.URL.Query().Get(`units`))
		_, _ = w.Write([]byte(owmBody))
	})
	report := s.Current(context.Background())
	require.NotNil(t, report)
	assert.Equal(t, 22, report.Temp)
	assert.Equal(t, `Scattered Clouds`, report.Condition)
	assert.Equal(t, `°C`, report.TempUnit)
	assert.Equal(t, `Scattered Clouds • 22° • Humidity: 40%`, report.Line())
}

func TestCacheServedWhileFresh(t *testing.T) {
	s, calls := testService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(owmBody))
	})
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NotNil(t, s.Current(context.Background()))
	require.NotNil(t, s.Current(context.Background()))
	assert.Equal(t, 1, *calls)

	now = now.Add(11 * time.Minute)
	require.NotNil(t, s.Current(context.Background()))
	assert.Equal(t, 2, *calls)
}

func TestStaleCacheReusedOnFailure(t *testing.T) {
	var fail bool
	s, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(owmBody))
	})
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	first := s.Current(context.Background())
	require.NotNil(t, first)

	fail = true
	now = now.Add(time.Hour)
	second := s.Current(context.Background())
	assert.Same(t, first, second, `stale report must be reused silently`)
}

func TestDisabledConfigurations(t *testing.T) {
	assert.Nil(t, NewService(config.Weather{Enabled: false}, nil))
	assert.Nil(t, NewService(config.Weather{Enabled: true, Location: `X`}, nil))
	assert.Nil(t, NewService(config.Weather{Enabled: true, APIKey: `k`}, nil))
	var s *Service
	assert.Nil(t, s.Current(context.Background()))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, `Light Rain`, titleCase(`light rain`))
	assert.Equal(t, ``, titleCase(``))
}
