package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Papers *PaperHandler
	Tags   *TagHandler
	// WriteLimiter, when set, guards every mutating route.
	WriteLimiter gin.HandlerFunc
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", deps.Papers.Health)
	api.GET("/papers", deps.Papers.List)
	api.GET("/paper", deps.Papers.Latest)
	api.GET("/paper/:id", deps.Papers.Get)
	if deps.Tags != nil {
		api.GET("/tags", deps.Tags.List)
	}

	writes := api.Group("")
	if deps.WriteLimiter != nil {
		writes.Use(deps.WriteLimiter)
	}
	writes.POST("/paper", deps.Papers.Create)
	writes.PUT("/paper/section/:id", deps.Papers.ReplaceLatestSection)
	writes.DELETE("/paper/section/:id", deps.Papers.DeleteLatestSection)
	writes.PUT("/papers/:id/sections/:sectionId", deps.Papers.ReplaceSection)
	writes.DELETE("/papers/:id/sections/:sectionId", deps.Papers.DeleteSection)
}

// NewRouter builds the engine with middlewares applied before every /api route.
func NewRouter(deps RouterDeps, middlewares ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middlewares...)
	RegisterRoutes(engine.Group("/api"), deps)
	return engine
}
