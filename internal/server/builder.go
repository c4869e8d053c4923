package server

import (
	"net/http"

	"quotaflow-go/internal/config"
	"quotaflow-go/internal/credential"
	"quotaflow-go/internal/events"
	mw "quotaflow-go/internal/middleware"
	store "quotaflow-go/internal/storage"
	"quotaflow-go/internal/upstream"
	upgem "quotaflow-go/internal/upstream/gemini"

	"github.com/gin-gonic/gin"
)

// Dependencies encapsulates runtime services required to build the HTTP engine.
type Dependencies struct {
	Runner    *upstream.Runner
	Pool      *credential.Pool
	Generator upgem.Generator
	Features  *FeatureRegistry
	// Store and Overrides are optional; without them the preference
	// endpoints answer 503 and health skips the storage check.
	Store     store.PreferenceStore
	Overrides *store.OverrideReader
	Publisher events.Publisher
}

// BuildEngine constructs the gin engine with every route mounted under the
// configured base path.
func BuildEngine(cfg *config.Config, deps Dependencies) *gin.Engine {
	engine := gin.New()
	applyStandardEngineSettings(engine, cfg)

	root := engine.Group(cfg.Server.BasePath)

	h := &handler{cfg: cfg, deps: deps}
	root.POST("/v1/features/:feature/generate", h.generate)
	root.GET("/v1/features", h.listFeatures)

	root.GET("/healthz", h.healthz)
	root.GET("/metrics", mw.MetricsHandler())

	if cfg.Server.ManagementEnabled {
		registerManagementRoutes(root, cfg, h)
	}

	engine.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "not found", nil)
	})
	return engine
}

type handler struct {
	cfg  *config.Config
	deps Dependencies
}
