package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/legalvault/internal/pkg/errcode"
	"github.com/xxxsen/legalvault/internal/pkg/response"
	"github.com/xxxsen/legalvault/internal/service"
)

type CaseHandler struct {
	cases *service.CaseService
	sim   *service.SimilarityService
}

func NewCaseHandler(cases *service.CaseService, sim *service.SimilarityService) *CaseHandler {
	return &CaseHandler{cases: cases, sim: sim}
}

func (h *CaseHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "healthy"})
}

func (h *CaseHandler) Status(c *gin.Context) {
	response.Success(c, h.cases.Status(c.Request.Context()))
}

func (h *CaseHandler) Search(c *gin.Context) {
	var req service.SearchFilter
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if len(h.sim.Cases()) == 0 {
		response.Error(c, errcode.ErrNoData, "no data available")
		return
	}
	response.List(c, h.cases.Search(c.Request.Context(), req))
}

func (h *CaseHandler) Get(c *gin.Context) {
	item, err := h.sim.GetCase(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}

func (h *CaseHandler) Analytics(c *gin.Context) {
	if len(h.sim.Cases()) == 0 {
		response.Error(c, errcode.ErrNoData, "no data available")
		return
	}
	ctx := c.Request.Context()
	var data interface{}
	switch c.Param("type") {
	case "judges":
		data = h.cases.JudgeStatistics(ctx)
	case "acts":
		data = h.cases.MostCitedActs(ctx)
	case "courts":
		data = h.cases.CourtDistribution(ctx)
	case "outcomes":
		data = h.cases.OutcomeDistribution(ctx)
	default:
		response.Error(c, errcode.ErrInvalid, "invalid analysis type")
		return
	}
	response.Success(c, gin.H{"data": data})
}
