package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/legalvault/internal/pkg/errcode"
	"github.com/xxxsen/legalvault/internal/pkg/response"
	"github.com/xxxsen/legalvault/internal/service"
	"github.com/xxxsen/legalvault/internal/similarity"
)

type SimilarityHandler struct {
	sim *service.SimilarityService
}

func NewSimilarityHandler(sim *service.SimilarityService) *SimilarityHandler {
	return &SimilarityHandler{sim: sim}
}

type similarityRequest struct {
	QueryText string `json:"query_text"`
	TopK      int    `json:"top_k"`
}

func (h *SimilarityHandler) ByText(c *gin.Context) {
	var req similarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.TopK < 0 {
		response.Error(c, errcode.ErrInvalid, "top_k must not be negative")
		return
	}
	results, err := h.sim.SimilaritySearch(c.Request.Context(), req.QueryText, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.List(c, results)
}

func (h *SimilarityHandler) ByCase(c *gin.Context) {
	topK, err := parseTopK(c.Query("top_k"), similarity.DefaultTopK)
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid top_k")
		return
	}
	results, err := h.sim.SimilaritySearchForCase(c.Request.Context(), c.Param("id"), topK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"case_id": c.Param("id"),
		"count":   len(results),
		"results": results,
	})
}
