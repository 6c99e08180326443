package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/mygoreply/internal/api/handler"
	"github.com/timmy/mygoreply/internal/api/middleware"
	"github.com/timmy/mygoreply/internal/config"
	"github.com/timmy/mygoreply/internal/layout"
)

// Dependencies are the services behind the HTTP routes.
type Dependencies struct {
	Assistant handler.Assistant
	Corpus    handler.Lookuper
	Layout    layout.Options
	// CorpusSize and IndexSize are reported by /health.
	CorpusSize int
	IndexSize  int
	// AssetBaseURL and AssetExt build lookup URLs.
	AssetBaseURL string
	AssetExt     string
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Dependencies, cfg *config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	healthHandler := handler.NewHealthHandler(deps.CorpusSize, deps.IndexSize)
	conversationHandler := handler.NewConversationHandler(deps.Assistant, deps.Layout)
	corpusHandler := handler.NewCorpusHandler(deps.Corpus, deps.AssetBaseURL, deps.AssetExt)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/segment", conversationHandler.Segment)
		v1.POST("/analyze", conversationHandler.Analyze)
		v1.POST("/recommend", conversationHandler.Recommend)
		v1.GET("/lookup", corpusHandler.Lookup)
		v1.GET("/tags", corpusHandler.Tags)
	}

	return r
}
