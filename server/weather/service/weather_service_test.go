package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshare/server/common/apperr"
	"fileshare/server/weather/domain"
)

const tokyoBody = `{"name":"Tokyo","cod":200,"main":{"temp":21.5,"humidity":60},"weather":[{"id":800,"main":"Clear","description":"clear sky","icon":"01d"}]}`

type upstream struct {
	server *httptest.Server
	calls  atomic.Int32
	lastQ  atomic.Value
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()
	u := &upstream{}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		u.lastQ.Store(r.URL.Query())
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(u.server.Close)
	return u
}

func newService(u *upstream, apiKey string) *WeatherService {
	return NewWeatherService(Config{APIKey: apiKey, APIURL: u.server.URL, CacheTTL: time.Minute}, NewMemoryCache(time.Minute))
}

func TestGetWeatherCachesUpstreamAnswer(t *testing.T) {
	u := newUpstream(t, http.StatusOK, tokyoBody)
	svc := newService(u, "secret")
	ctx := context.Background()

	first, err := svc.GetWeather(ctx, "Tokyo", false)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Nil(t, first.CachedAt)
	assert.Equal(t, "Tokyo", first.Data.Name)
	assert.InDelta(t, 21.5, first.Data.Main.Temp, 0.001)

	second, err := svc.GetWeather(ctx, "tokyo ", false)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	require.NotNil(t, second.CachedAt)
	assert.Equal(t, int32(1), u.calls.Load())

	query := u.lastQ.Load().(url.Values)
	assert.Equal(t, []string{"Tokyo"}, query["q"])
	assert.Equal(t, []string{"secret"}, query["appid"])
	assert.Equal(t, []string{"metric"}, query["units"])
}

func TestGetWeatherClearBypassesCache(t *testing.T) {
	u := newUpstream(t, http.StatusOK, tokyoBody)
	svc := newService(u, "secret")
	ctx := context.Background()

	_, err := svc.GetWeather(ctx, "Tokyo", false)
	require.NoError(t, err)
	resp, err := svc.GetWeather(ctx, "Tokyo", true)
	require.NoError(t, err)

	assert.False(t, resp.Cached)
	assert.Equal(t, int32(2), u.calls.Load())
}

func TestGetWeatherIgnoresStaleEntries(t *testing.T) {
	u := newUpstream(t, http.StatusOK, tokyoBody)
	svc := newService(u, "secret")
	ctx := context.Background()
	require.NoError(t, svc.cache.Set(ctx, "Tokyo", domain.CacheEntry{Timestamp: time.Now().Add(-2 * time.Minute)}))

	resp, err := svc.GetWeather(ctx, "Tokyo", false)
	require.NoError(t, err)

	assert.False(t, resp.Cached)
	assert.Equal(t, int32(1), u.calls.Load())
}

func TestClearCache(t *testing.T) {
	u := newUpstream(t, http.StatusOK, tokyoBody)
	svc := newService(u, "secret")
	ctx := context.Background()
	_, err := svc.GetWeather(ctx, "Tokyo", false)
	require.NoError(t, err)

	message, err := svc.ClearCache(ctx, "Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "Cache cleared for Tokyo", message)

	resp, err := svc.GetWeather(ctx, "Tokyo", false)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, int32(2), u.calls.Load())
}

func TestGetWeatherErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newService(newUpstream(t, http.StatusOK, tokyoBody), "secret").GetWeather(ctx, "  ", false)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, ErrCityRequired, err.Error())

	_, err = newService(newUpstream(t, http.StatusOK, tokyoBody), "").GetWeather(ctx, "Tokyo", false)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.Equal(t, ErrAPIKeyMissing, err.Error())

	_, err = newService(newUpstream(t, http.StatusNotFound, `{"cod":"404"}`), "secret").GetWeather(ctx, "Atlantis", false)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, ErrCityNotFound, err.Error())

	_, err = newService(newUpstream(t, http.StatusTooManyRequests, "slow down"), "secret").GetWeather(ctx, "Tokyo", false)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.Equal(t, "Weather API error: 429 - slow down", err.Error())
}

func TestUpstreamFailureIsNotCached(t *testing.T) {
	u := newUpstream(t, http.StatusInternalServerError, "boom")
	svc := newService(u, "secret")
	ctx := context.Background()

	_, err := svc.GetWeather(ctx, "Tokyo", false)
	require.Error(t, err)

	_, ok, err := svc.cache.Get(ctx, "Tokyo")
	require.NoError(t, err)
	assert.False(t, ok)
}
