package server

import (
	"encoding/json"
	"io"
	"net/http"

	"quotaflow-go/internal/logging"
	"quotaflow-go/internal/upstream"
	upgem "quotaflow-go/internal/upstream/gemini"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

const maxRequestBody = 8 << 20

// generate runs a generateContent payload through the feature's tier cascade.
// ?format=text returns only the concatenated answer text.
func (h *handler) generate(c *gin.Context) {
	feature := c.Param("feature")
	c.Set(logging.KeyFeature, feature)

	tierCfgs, ok := h.deps.Features.Tiers(feature)
	if !ok {
		respondError(c, http.StatusNotFound, "unknown feature", feature)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read body", err.Error())
		return
	}
	if len(body) > maxRequestBody {
		respondError(c, http.StatusRequestEntityTooLarge, "request body too large", nil)
		return
	}
	if !gjson.ValidBytes(body) || !gjson.GetBytes(body, "contents").IsArray() {
		respondError(c, http.StatusBadRequest, "body must be a generateContent request with a contents array", nil)
		return
	}

	tiers := upgem.BuildTiers(h.deps.Generator, tierCfgs, body)
	out, err := upstream.Execute[json.RawMessage](c.Request.Context(), h.deps.Runner, feature, tiers)
	if err != nil {
		kind := logging.KindOf(err)
		c.Set(logging.KeyErrorKind, kind)
		logging.WithReq(c, nil).WithError(err).Warn("generate failed")
		respondAPIError(c, err)
		return
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, upgem.ResponseText(out))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}

func (h *handler) listFeatures(c *gin.Context) {
	out := make([]gin.H, 0)
	for _, name := range h.deps.Features.Names() {
		tiers, _ := h.deps.Features.Tiers(name)
		out = append(out, gin.H{"name": name, "tiers": tiers})
	}
	c.JSON(http.StatusOK, gin.H{"features": out})
}

func (h *handler) healthz(c *gin.Context) {
	status := gin.H{"status": "ok", "credentials": h.deps.Pool.Size()}
	if h.deps.Store != nil {
		if err := h.deps.Store.Health(c.Request.Context()); err != nil {
			status["status"] = "degraded"
			status["storage"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["storage"] = h.deps.Store.Name()
	}
	c.JSON(http.StatusOK, status)
}
