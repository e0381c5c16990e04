package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagediff/cache"
	"github.com/use-agent/pagediff/compare"
	"github.com/use-agent/pagediff/config"
	"github.com/use-agent/pagediff/models"
	"github.com/use-agent/pagediff/report"
	"github.com/use-agent/pagediff/webhook"
)

// Compare returns a handler for POST /api/v1/compare.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup (bounded by max_age).
//  3. Comparer.Compare → per-viewport pixel + structural facts.
//  4. Report persistence, cache store, webhook notification when
//     changes were found.
func Compare(cp *compare.Comparer, cc *cache.Cache, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.CompareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.CompareResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		// ── 2. Cache lookup ─────────────────────────────────────────
		cacheKey := cache.Key(&req, cfg.Diff.Threshold, cfg.Diff.MaxShift)
		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				cached.CacheStatus = "hit"
				cached.Timing.TotalMs = time.Since(totalStart).Milliseconds()
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Compare ──────────────────────────────────────────────
		resp, err := cp.Compare(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			})
			return
		}

		// ── 4. Report + cache store + webhook ───────────────────────
		if cfg.Report.Dir != "" {
			persistReport(cfg.Report.Dir, cacheKey[:16], resp)
		}
		if cc != nil && req.MaxAge > 0 {
			cc.Set(cacheKey, resp)
			resp.CacheStatus = "miss"
		}
		if req.WebhookURL != "" && resp.HasChanges {
			webhook.DeliverAsync(req.WebhookURL, cfg.Webhook.Secret, &webhook.Event{
				Type:      "compare.completed",
				JobID:     cacheKey[:16],
				Timestamp: time.Now().Unix(),
				Data:      resp,
			})
		}

		c.JSON(http.StatusOK, resp)
	}
}

// persistReport writes the diff PNGs and HTML report for one completed
// comparison under dir, in a subdirectory named by the job key, and
// records the location on the response. Persistence failure is logged
// and never fails the request; the comparison itself succeeded.
func persistReport(dir, key string, resp *models.CompareResponse) {
	out := filepath.Join(dir, key)
	if err := report.Write(out, resp); err != nil {
		slog.Warn("failed to persist report", "dir", out, "error", err)
		return
	}
	resp.ReportPath = out
}

// respondError maps a CompareError to the correct HTTP status code and
// writes a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var compareErr *models.CompareError
	if !errors.As(err, &compareErr) {
		compareErr = models.NewCompareError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(compareErr), models.CompareResponse{
		Success: false,
		Error:   compareErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.CompareError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeVisionAuthFailure:
		return http.StatusBadRequest // 400: the caller's key, not ours
	default:
		return http.StatusInternalServerError // 500
	}
}
