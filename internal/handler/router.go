package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/legalvault/internal/middleware"
	"github.com/xxxsen/legalvault/internal/pkg/jwt"
)

type RouterDeps struct {
	Cases           *CaseHandler
	Similarity      *SimilarityHandler
	Import          *ImportHandler
	ImportSecret    []byte
	ImportRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Cases.Health)
	api.GET("/status", deps.Cases.Status)
	api.POST("/search", deps.Cases.Search)
	api.GET("/cases/:id", deps.Cases.Get)
	api.GET("/analytics/:type", deps.Cases.Analytics)

	api.POST("/similarity", deps.Similarity.ByText)
	api.GET("/cases/:id/similar", deps.Similarity.ByCase)

	importGroup := api.Group("")
	importGroup.Use(
		middleware.TokenAuth(deps.ImportSecret, jwt.ScopeImport),
		middleware.RateLimit(deps.ImportRateLimit),
	)
	importGroup.POST("/cases/import", deps.Import.Import)
}
