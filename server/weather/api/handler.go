package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fileshare/server/common/transport/httpresp"
	"fileshare/server/weather/domain"
)

type WeatherService interface {
	GetWeather(ctx context.Context, city string, clearCache bool) (domain.Response, error)
	ClearCache(ctx context.Context, city string) (string, error)
}

type Handler struct {
	weather WeatherService
}

func NewHandler(weather WeatherService) *Handler {
	return &Handler{weather: weather}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/weather")
	{
		api.GET("/:city", h.getWeather)
		api.DELETE("/:city/cache", h.clearCache)
	}
}

func (h *Handler) getWeather(c *gin.Context) {
	clearCache, _ := strconv.ParseBool(c.Query("clear"))
	resp, err := h.weather.GetWeather(c.Request.Context(), c.Param("city"), clearCache)
	if err != nil {
		c.JSON(httpresp.StatusFor(err, http.StatusInternalServerError), domain.Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) clearCache(c *gin.Context) {
	message, err := h.weather.ClearCache(c.Request.Context(), c.Param("city"))
	if err != nil {
		httpresp.FromError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewMessageResponse(true, message))
}
