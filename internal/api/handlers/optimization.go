package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/wager-engine/internal/cache"
	"github.com/stitts-dev/wager-engine/internal/engine"
	"github.com/stitts-dev/wager-engine/internal/oddsmath"
	"github.com/stitts-dev/wager-engine/internal/storage"
	"github.com/stitts-dev/wager-engine/internal/websocket"
	"github.com/stitts-dev/wager-engine/pkg/logger"
	"github.com/stitts-dev/wager-engine/pkg/utils"
)

// OptimizationHandler runs the engine behind the HTTP API: cache lookup,
// progress streaming over the hub, and persistence of the final selections.
type OptimizationHandler struct {
	engine  *engine.Engine
	cache   *cache.ResultCache
	store   *storage.SelectionStore
	hub     *websocket.Hub
	timeout time.Duration
	log     *logrus.Entry
}

func NewOptimizationHandler(eng *engine.Engine, resultCache *cache.ResultCache, store *storage.SelectionStore, hub *websocket.Hub, timeout time.Duration) *OptimizationHandler {
	return &OptimizationHandler{
		engine:  eng,
		cache:   resultCache,
		store:   store,
		hub:     hub,
		timeout: timeout,
		log:     logger.WithService("optimization-handler"),
	}
}

// OptimizeRequest is the request body for an optimization run.
type OptimizeRequest struct {
	Pool     []engine.Wager `json:"pool" binding:"required,min=2"`
	Bankroll float64        `json:"bankroll" binding:"required,gt=0"`
	Profile  string         `json:"profile"`
}

// Optimize runs one optimization synchronously. Identical requests within
// the cache TTL are served from Redis without re-running the engine.
func (h *OptimizationHandler) Optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid optimization request", err.Error())
		return
	}

	cacheKey, err := cache.RequestKey(req.Pool, req.Profile, req.Bankroll)
	if err == nil {
		if cached, cacheErr := h.cache.Get(c.Request.Context(), cacheKey); cacheErr == nil {
			h.log.WithField("run_id", cached.RunID).Debug("Serving cached optimization result")
			utils.SendSuccess(c, cached)
			return
		}
	}

	runID := uuid.New().String()
	c.Set("run_id", runID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.engine.Run(ctx, engine.Request{
		Pool:     req.Pool,
		Bankroll: req.Bankroll,
		Profile:  req.Profile,
		RunID:    runID,
		OnProgress: func(done, total int) {
			progress := 0.0
			if total > 0 {
				progress = float64(done) / float64(total)
			}
			h.hub.SendRunProgress(websocket.RunProgress{
				RunID:             runID,
				Status:            "scoring",
				Progress:          progress,
				CombinationsDone:  done,
				CombinationsTotal: total,
			})
		},
	})
	if err != nil {
		h.sendRunError(c, runID, err)
		return
	}

	h.hub.SendRunProgress(websocket.RunProgress{
		RunID:    runID,
		Status:   "completed",
		Progress: 1.0,
		Message:  result.Reason,
	})

	if err := h.store.SaveSelections(c.Request.Context(), result); err != nil {
		// The result is still good; persistence is for later review.
		h.log.WithField("run_id", runID).WithError(err).Error("Failed to persist selections")
	}

	if cacheKey != "" {
		if err := h.cache.SetWithRetry(c.Request.Context(), cacheKey, result, 3); err != nil {
			h.log.WithField("run_id", runID).WithError(err).Warn("Failed to cache result")
		}
	}

	utils.SendSuccess(c, result)
}

func (h *OptimizationHandler) sendRunError(c *gin.Context, runID string, err error) {
	h.hub.SendRunProgress(websocket.RunProgress{
		RunID:  runID,
		Status: "failed",
		Error:  err.Error(),
	})

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		utils.SendTimeout(c, "optimization run exceeded the configured timeout")
	case errors.Is(err, engine.ErrPoolTooSmall),
		errors.Is(err, oddsmath.ErrInvalidOdds),
		errors.Is(err, oddsmath.ErrInvalidProbability),
		errors.Is(err, engine.ErrInvalidCombination):
		utils.SendValidationError(c, "optimization request rejected", err.Error())
	default:
		h.log.WithField("run_id", runID).WithError(err).Error("Optimization run failed")
		utils.SendInternalError(c, "optimization run failed")
	}
}

// EvaluateRequest prices a single leg without running the full pipeline.
type EvaluateRequest struct {
	Wager    engine.Wager `json:"wager" binding:"required"`
	Bankroll float64      `json:"bankroll" binding:"required,gt=0"`
}

// Evaluate returns the edge, EV, fair odds, and suggested stake for one leg.
func (h *OptimizationHandler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid evaluation request", err.Error())
		return
	}

	eval, err := engine.EvaluateLeg(req.Wager, req.Bankroll, engine.DefaultEdgeConfig())
	if err != nil {
		utils.SendValidationError(c, "leg rejected", err.Error())
		return
	}

	utils.SendSuccess(c, eval)
}

// Profiles lists the built-in strategy profiles and their thresholds.
func (h *OptimizationHandler) Profiles(c *gin.Context) {
	utils.SendSuccess(c, []engine.StrategyProfile{
		engine.ProfileConservative,
		engine.ProfileModerate,
		engine.ProfileAggressive,
	})
}

// SelectionsByRun returns the persisted picks for one run.
func (h *OptimizationHandler) SelectionsByRun(c *gin.Context) {
	runID := c.Param("run_id")
	if _, err := uuid.Parse(runID); err != nil {
		utils.SendValidationError(c, "invalid run id", err.Error())
		return
	}

	records, err := h.store.SelectionsByRun(c.Request.Context(), runID)
	if err != nil {
		h.log.WithField("run_id", runID).WithError(err).Error("Failed to load selections")
		utils.SendInternalError(c, "failed to load selections")
		return
	}
	if len(records) == 0 {
		utils.SendNotFound(c, "no selections for run")
		return
	}

	utils.SendSuccess(c, records)
}

// RecentSelections returns the latest persisted picks across runs.
func (h *OptimizationHandler) RecentSelections(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.store.RecentSelections(c.Request.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to load recent selections")
		utils.SendInternalError(c, "failed to load selections")
		return
	}

	utils.SendSuccess(c, records)
}
