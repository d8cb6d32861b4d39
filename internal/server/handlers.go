// Package server exposes the strategy compiler over HTTP: CRUD on saved
// strategies plus validate, compile and test operations on graph snapshots.
package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"strategy-graph-lab/internal/backtester"
	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/graph"
	"strategy-graph-lab/internal/lifecycle"
	"strategy-graph-lab/internal/metrics"
	"strategy-graph-lab/internal/storage"
)

// Handler serves the strategy API.
type Handler struct {
	Service *lifecycle.Service
	Logger  *zap.Logger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	h.Register(r)
	return r
}

// Register attaches all routes.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.health)

	group := r.Group("/api/v1")
	group.GET("/strategies", h.listStrategies)
	group.POST("/strategies", h.saveStrategy)
	group.GET("/strategies/:id", h.getStrategy)
	group.DELETE("/strategies/:id", h.deleteStrategy)
	group.GET("/strategies/:id/history", h.history)
	group.POST("/strategies/:id/test", h.testStrategy)
	group.POST("/validate", h.validate)
	group.POST("/compile", h.compile)
}

func (h *Handler) health(c *gin.Context) {
	Ok(c, map[string]any{"status": "ok"}, nil)
}

// snapshotRequest is the body for validate and compile.
type snapshotRequest struct {
	Name     string               `json:"name"`
	Snapshot domain.GraphSnapshot `json:"snapshot"`
}

// saveRequest is the body for saving a strategy.
type saveRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Snapshot    domain.GraphSnapshot `json:"snapshot"`
}

// testRequest is the body for testing a saved strategy.
type testRequest struct {
	Symbol         string  `json:"symbol"`
	FromMs         int64   `json:"fromMs"`
	ToMs           int64   `json:"toMs"`
	InitialCapital float64 `json:"initialCapital"`
	Commission     float64 `json:"commission"`
	Spread         float64 `json:"spread"`
}

func (h *Handler) listStrategies(c *gin.Context) {
	items, err := h.Service.ListStrategies(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *Handler) saveStrategy(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		Error(c, http.StatusBadRequest, "name required", nil)
		return
	}

	g, err := graph.FromSnapshot(req.Snapshot)
	if err != nil {
		Error(c, http.StatusUnprocessableEntity, "corrupt snapshot: "+err.Error(), nil)
		return
	}

	saved, err := h.Service.SaveStrategy(c.Request.Context(), g, req.Name, req.Description)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, saved, nil)
}

func (h *Handler) getStrategy(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}

	saved, err := h.Service.GetStrategy(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			Error(c, http.StatusNotFound, "strategy not found", nil)
			return
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, saved, nil)
}

func (h *Handler) deleteStrategy(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}

	if err := h.Service.DeleteStrategy(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			Error(c, http.StatusNotFound, "strategy not found", nil)
			return
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"id": id}, nil)
}

func (h *Handler) history(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}

	saved, err := h.Service.GetStrategy(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			Error(c, http.StatusNotFound, "strategy not found", nil)
			return
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	runs, err := h.Service.History(c.Request.Context(), saved.VersionID)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{
		"runs":    runs,
		"summary": metrics.Summarize(runs),
	}, map[string]any{"versionId": saved.VersionID, "count": len(runs)})
}

func (h *Handler) testStrategy(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}

	var req testRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}

	saved, err := h.Service.GetStrategy(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			Error(c, http.StatusNotFound, "strategy not found", nil)
			return
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	g, err := h.Service.LoadStrategy(saved)
	if err != nil {
		Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}

	results, err := h.Service.TestStrategy(c.Request.Context(), g, lifecycle.TestOptions{
		Symbol:         req.Symbol,
		FromMs:         req.FromMs,
		ToMs:           req.ToMs,
		InitialCapital: req.InitialCapital,
		Commission:     req.Commission,
		Spread:         req.Spread,
		Name:           saved.Name,
		StrategyID:     saved.ID,
	})
	if err != nil {
		var vErr *lifecycle.ValidationError
		switch {
		case errors.As(err, &vErr):
			Error(c, http.StatusUnprocessableEntity, "strategy validation failed",
				map[string]any{"errors": vErr.Findings})
		case errors.Is(err, lifecycle.ErrSymbolRequired):
			Error(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, lifecycle.ErrTestInProgress):
			Error(c, http.StatusConflict, err.Error(), nil)
		case errors.Is(err, backtester.ErrBacktestFailed):
			Error(c, http.StatusBadGateway, err.Error(), nil)
		default:
			Error(c, http.StatusInternalServerError, err.Error(), nil)
		}
		return
	}

	Ok(c, results, nil)
}

func (h *Handler) validate(c *gin.Context) {
	var req snapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}

	g, err := graph.FromSnapshot(req.Snapshot)
	if err != nil {
		Error(c, http.StatusUnprocessableEntity, "corrupt snapshot: "+err.Error(), nil)
		return
	}

	result := h.Service.Validate(g)
	Ok(c, result, map[string]any{"valid": result.Valid()})
}

func (h *Handler) compile(c *gin.Context) {
	var req snapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}

	g, err := graph.FromSnapshot(req.Snapshot)
	if err != nil {
		Error(c, http.StatusUnprocessableEntity, "corrupt snapshot: "+err.Error(), nil)
		return
	}

	compiled, warnings, err := h.Service.Compile(g, req.Name)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	Ok(c, map[string]any{
		"versionId":    compiled.VersionID,
		"artifactHash": compiled.ArtifactHash,
		"script":       compiled.Script,
		"warnings":     warnings,
	}, nil)
}
