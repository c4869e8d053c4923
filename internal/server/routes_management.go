package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"quotaflow-go/internal/config"
	"quotaflow-go/internal/credential"
	"quotaflow-go/internal/events"
	"quotaflow-go/internal/monitoring"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// OverrideChangeEvent is published when an operator sets or clears the
// override credential.
type OverrideChangeEvent struct {
	Key     string `json:"key"`
	Cleared bool   `json:"cleared"`
	Masked  string `json:"masked,omitempty"`
}

func registerManagementRoutes(root *gin.RouterGroup, cfg *config.Config, h *handler) {
	mg := root.Group("/v1", managementRemoteGuard(cfg))
	mg.Use(func(c *gin.Context) {
		setNoCacheHeaders(c)
		c.Next()
	})

	mg.GET("/pool", h.poolSnapshot)
	mg.POST("/pool/reset", h.poolReset)

	mg.GET("/preferences/override", h.getOverride)
	mg.PUT("/preferences/override", h.setOverride)
	mg.DELETE("/preferences/override", h.clearOverride)

	mg.GET("/storage/slow", h.slowQueries)
}

type poolSnapshotResponse struct {
	Size        int      `json:"size"`
	Cursor      int      `json:"cursor"`
	Current     string   `json:"current,omitempty"`
	Credentials []string `json:"credentials"`
	Exhausted   []int    `json:"exhausted"`
	MaxAttempts int      `json:"max_attempts"`
}

func (h *handler) poolSnapshot(c *gin.Context) {
	snap := h.deps.Pool.Snapshot()
	resp := poolSnapshotResponse{
		Size:        snap.Size,
		Cursor:      snap.Cursor,
		Current:     snap.Current,
		Credentials: snap.Masked,
		Exhausted:   snap.Exhausted,
		MaxAttempts: h.deps.Pool.MaxAttempts(),
	}
	if resp.Credentials == nil {
		resp.Credentials = []string{}
	}
	if resp.Exhausted == nil {
		resp.Exhausted = []int{}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) poolReset(c *gin.Context) {
	h.deps.Pool.Reset()
	log.WithField("size", h.deps.Pool.Size()).Info("credential pool reset by operator")
	h.poolSnapshot(c)
}

func (h *handler) overrideKey() string {
	if h.deps.Overrides != nil {
		return h.deps.Overrides.Key()
	}
	return h.cfg.Preferences.OverrideKey
}

func (h *handler) getOverride(c *gin.Context) {
	if h.deps.Overrides == nil {
		respondError(c, http.StatusServiceUnavailable, "preference store not configured", nil)
		return
	}
	cred, ok, err := h.deps.Overrides.OverrideCredential(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, "preference lookup failed", err.Error())
		return
	}
	resp := gin.H{"key": h.overrideKey(), "set": ok}
	if ok {
		resp["credential"] = cred.Masked()
	}
	c.JSON(http.StatusOK, resp)
}

type setOverrideRequest struct {
	Credential string `json:"credential" binding:"required"`
}

func (h *handler) setOverride(c *gin.Context) {
	if h.deps.Store == nil {
		respondError(c, http.StatusServiceUnavailable, "preference store not configured", nil)
		return
	}
	var req setOverrideRequest
	if !bindJSON(c, &req) {
		return
	}
	cred := credential.Credential(strings.TrimSpace(req.Credential))
	if cred.Empty() {
		respondError(c, http.StatusBadRequest, "credential must not be blank", nil)
		return
	}
	key := h.overrideKey()
	if err := h.deps.Store.SetPreference(c.Request.Context(), key, string(cred)); err != nil {
		respondError(c, http.StatusBadGateway, "failed to store override", err.Error())
		return
	}
	h.publishOverride(c.Request.Context(), OverrideChangeEvent{Key: key, Masked: cred.Masked()})
	c.JSON(http.StatusOK, gin.H{"key": key, "set": true, "credential": cred.Masked()})
}

func (h *handler) clearOverride(c *gin.Context) {
	if h.deps.Store == nil {
		respondError(c, http.StatusServiceUnavailable, "preference store not configured", nil)
		return
	}
	key := h.overrideKey()
	if err := h.deps.Store.DeletePreference(c.Request.Context(), key); err != nil {
		respondError(c, http.StatusBadGateway, "failed to clear override", err.Error())
		return
	}
	h.publishOverride(c.Request.Context(), OverrideChangeEvent{Key: key, Cleared: true})
	c.Status(http.StatusNoContent)
}

func (h *handler) publishOverride(ctx context.Context, ev OverrideChangeEvent) {
	if h.deps.Publisher == nil {
		return
	}
	h.deps.Publisher.Publish(ctx, events.TopicOverrideChanged, ev, map[string]string{"key": ev.Key})
}

func (h *handler) slowQueries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	queries := monitoring.SlowQueries().Recent(limit)
	c.JSON(http.StatusOK, gin.H{"count": len(queries), "queries": queries})
}
