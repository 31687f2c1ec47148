package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fileshare/server/common/apperr"
	commonlog "fileshare/server/common/log"
	"fileshare/server/weather/domain"
)

const (
	ErrCityRequired      = "City is required"
	ErrAPIKeyMissing     = "Weather API key not configured"
	ErrCityNotFound      = "City not found"
	ErrClearCacheFailed  = "Failed to clear cache"
	DefaultAPIURL        = "https://api.openweathermap.org/data/2.5/weather"
	DefaultCacheTTL      = 5 * time.Minute
	maxUpstreamErrorBody = 512
)

type Config struct {
	APIKey   string
	APIURL   string
	CacheTTL time.Duration
}

type WeatherService struct {
	cfg    Config
	cache  Cache
	client *http.Client
	now    func() time.Time
}

func NewWeatherService(cfg Config, cache Cache) *WeatherService {
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	return &WeatherService{
		cfg:    cfg,
		cache:  cache,
		client: &http.Client{Timeout: 5 * time.Second},
		now:    time.Now,
	}
}

// GetWeather answers from the cache while the entry is younger than the TTL.
// clearCache forces an upstream fetch; the fresh answer is cached again.
func (s *WeatherService) GetWeather(ctx context.Context, city string, clearCache bool) (domain.Response, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return domain.Response{}, apperr.Validation(ErrCityRequired)
	}
	if s.cfg.APIKey == "" {
		return domain.Response{}, apperr.Unauthorized(ErrAPIKeyMissing)
	}

	if !clearCache {
		if entry, ok := s.cached(ctx, city); ok {
			cacheHitsTotal.Inc()
			cachedAt := entry.Timestamp
			return domain.Response{Success: true, Data: &entry.Weather, Cached: true, CachedAt: &cachedAt}, nil
		}
	}
	cacheMissesTotal.Inc()

	weather, err := s.fetch(ctx, city)
	if err != nil {
		return domain.Response{}, err
	}
	if err := s.cache.Set(ctx, city, domain.CacheEntry{Weather: weather, Timestamp: s.now().UTC()}); err != nil {
		commonlog.Warnf("cache weather for %s: %v", city, err)
	}
	return domain.Response{Success: true, Data: &weather}, nil
}

func (s *WeatherService) cached(ctx context.Context, city string) (domain.CacheEntry, bool) {
	entry, ok, err := s.cache.Get(ctx, city)
	if err != nil {
		commonlog.Warnf("read weather cache for %s: %v", city, err)
		return domain.CacheEntry{}, false
	}
	if !ok || !entry.Timestamp.After(s.now().Add(-s.cfg.CacheTTL)) {
		return domain.CacheEntry{}, false
	}
	return entry, true
}

func (s *WeatherService) fetch(ctx context.Context, city string) (domain.Weather, error) {
	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", s.cfg.APIKey)
	query.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.APIURL+"?"+query.Encode(), nil)
	if err != nil {
		return domain.Weather{}, apperr.Internal("Failed to fetch weather data from API", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		commonlog.Errorf("weather api request for %s: %v", city, err)
		return domain.Weather{}, &apperr.Error{Kind: apperr.KindInternal, Message: fmt.Sprintf("Failed to fetch weather data from API: %v", err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Weather{}, apperr.NotFound(ErrCityNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamErrorBody))
		commonlog.Errorf("weather api status %d for %s: %s", resp.StatusCode, city, body)
		return domain.Weather{}, &apperr.Error{
			Kind:    apperr.KindInternal,
			Message: fmt.Sprintf("Weather API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var weather domain.Weather
	if err := json.NewDecoder(resp.Body).Decode(&weather); err != nil {
		return domain.Weather{}, apperr.Internal("Failed to fetch weather data from API", err)
	}
	return weather, nil
}

func (s *WeatherService) ClearCache(ctx context.Context, city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", apperr.Validation(ErrCityRequired)
	}
	if err := s.cache.Delete(ctx, city); err != nil {
		commonlog.Errorf("clear weather cache for %s: %v", city, err)
		return "", apperr.Internal(ErrClearCacheFailed, err)
	}
	return fmt.Sprintf("Cache cleared for %s", city), nil
}
