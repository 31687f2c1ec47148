package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"fileshare/server/common/apperr"
	"fileshare/server/weather/domain"
)

type stubWeather struct {
	clearFlag bool
	err       error
}

func (s *stubWeather) GetWeather(_ context.Context, city string, clearCache bool) (domain.Response, error) {
	s.clearFlag = clearCache
	if s.err != nil {
		return domain.Response{}, s.err
	}
	return domain.Response{Success: true, Data: &domain.Weather{Name: city}}, nil
}

func (s *stubWeather) ClearCache(_ context.Context, city string) (string, error) {
	return "Cache cleared for " + city, nil
}

func serve(h *Handler, method, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestGetWeatherPassesClearFlag(t *testing.T) {
	stub := &stubWeather{}

	w := serve(NewHandler(stub), http.MethodGet, "/api/weather/Osaka?clear=true")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, stub.clearFlag)
	assert.Contains(t, w.Body.String(), `"name":"Osaka"`)
	assert.Contains(t, w.Body.String(), `"cached":false`)
}

func TestGetWeatherErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Unauthorized("Weather API key not configured"), http.StatusUnauthorized},
		{apperr.NotFound("City not found"), http.StatusNotFound},
		{apperr.Internal("Weather API error: 500 - boom", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := serve(NewHandler(&stubWeather{err: tc.err}), http.MethodGet, "/api/weather/Osaka")

		assert.Equal(t, tc.want, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"`+tc.err.Error()+`","cached":false}`, w.Body.String())
	}
}

func TestClearCacheRoute(t *testing.T) {
	w := serve(NewHandler(&stubWeather{}), http.MethodDelete, "/api/weather/Osaka/cache")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":true,"message":"Cache cleared for Osaka"}`, w.Body.String())
}
