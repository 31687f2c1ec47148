package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"fileshare/server/common/transport/httpresp"
	"fileshare/server/rag/domain"
)

type RAGService interface {
	AddText(ctx context.Context, question, answer, metadata string) (domain.AddTextResult, error)
	Search(ctx context.Context, query string) (domain.SearchResult, error)
}

type Handler struct {
	svc RAGService
}

func NewHandler(svc RAGService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/autorag")
	{
		api.POST("/add-text", h.addText)
		api.POST("/search", h.search)
	}
}

func (h *Handler) addText(c *gin.Context) {
	var req struct {
		Question string `json:"question" binding:"required"`
		Answer   string `json:"answer" binding:"required"`
		Metadata string `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.AddText(c.Request.Context(), req.Question, req.Answer, req.Metadata)
	if err != nil {
		httpresp.FromError(c, err, http.StatusInternalServerError)
		return
	}
	httpresp.Success(c, http.StatusOK, result)
}

func (h *Handler) search(c *gin.Context) {
	var req struct {
		Query string `json:"query" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.Search(c.Request.Context(), req.Query)
	if err != nil {
		httpresp.FromError(c, err, http.StatusInternalServerError)
		return
	}
	httpresp.Success(c, http.StatusOK, result)
}
