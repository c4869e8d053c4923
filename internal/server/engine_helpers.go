package server

import (
	"quotaflow-go/internal/config"
	mw "quotaflow-go/internal/middleware"

	"github.com/gin-gonic/gin"
)

// baseMiddleware is the chain every route shares, outermost first.
func baseMiddleware(cfg *config.Config) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{mw.Recovery(), mw.RequestID(), mw.Metrics()}
	if cfg.Logging.RequestLog {
		chain = append(chain, mw.RequestLogger())
	}
	if rl := cfg.RateLimit; rl.Enabled {
		var key mw.KeyFunc
		if rl.KeyHeader != "" {
			key = mw.ByHeader(rl.KeyHeader)
		}
		chain = append(chain, mw.RateLimiter(rl.RPS, rl.Burst, key))
	}
	return chain
}

func applyStandardEngineSettings(engine *gin.Engine, cfg *config.Config) {
	if !cfg.Logging.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	// no reverse proxy is trusted, ClientIP is always the socket peer
	_ = engine.SetTrustedProxies(nil)
	engine.Use(baseMiddleware(cfg)...)
}
