package api

import (
	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/wager-engine/internal/api/handlers"
)

// SetupRoutes wires the API surface under the given group.
func SetupRoutes(group *gin.RouterGroup, optimization *handlers.OptimizationHandler) {
	group.POST("/optimize", optimization.Optimize)
	group.POST("/evaluate", optimization.Evaluate)
	group.GET("/profiles", optimization.Profiles)

	selections := group.Group("/selections")
	{
		selections.GET("", optimization.RecentSelections)
		selections.GET("/:run_id", optimization.SelectionsByRun)
	}
}
