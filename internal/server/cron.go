package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/horecaalert/internal/alertrun"
	obslogger "github.com/smallbiznis/horecaalert/internal/observability/logger"
	"go.uber.org/zap"
)

type cronRunResponse struct {
	Success      bool                      `json:"success"`
	Processed    int                       `json:"processed"`
	TotalMatched int                       `json:"totalMatched"`
	Results      []alertrun.PropertyResult `json:"results"`
	Sent         int                       `json:"sent"`
	Duplicates   int                       `json:"duplicates"`
	Held         int                       `json:"held"`
	Failed       int                       `json:"failed"`
}

type cronErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func abortCron(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, cronErrorResponse{Success: false, Error: message})
}

// RunSearchAlerts runs one matching pass over recently published listings.
func (s *Server) RunSearchAlerts(c *gin.Context) {
	ctx := c.Request.Context()
	log := obslogger.WithContext(ctx, s.log)
	defer func() {
		if r := recover(); r != nil {
			log.Error("search alert run panicked", zap.Any("panic", r), zap.Stack("stack"))
			abortCron(c, http.StatusInternalServerError, "internal server error")
		}
	}()

	summary, err := s.runner.Run(ctx, alertrun.TriggerCron)
	if err != nil {
		if errors.Is(err, alertrun.ErrRunInProgress) {
			s.pipeline.IncTriggerRejected(rejectReasonInProgress)
			log.Info("cron trigger skipped, run in progress")
			abortCron(c, http.StatusConflict, "conflict")
			return
		}
		log.Error("search alert run failed", zap.Error(err))
		abortCron(c, http.StatusInternalServerError, "internal server error")
		return
	}

	if summary.Err != nil {
		log.Warn("search alert run finished with pair failures",
			zap.String("alert_run_id", summary.RunID),
			zap.Int("failed", summary.Failed),
			zap.Error(summary.Err),
		)
	}

	results := summary.Results
	if results == nil {
		results = []alertrun.PropertyResult{}
	}
	c.JSON(http.StatusOK, cronRunResponse{
		Success:      true,
		Processed:    summary.Processed,
		TotalMatched: summary.TotalMatched,
		Results:      results,
		Sent:         summary.Sent,
		Duplicates:   summary.Duplicates,
		Held:         summary.Held,
		Failed:       summary.Failed,
	})
}

// CronTriggerRateLimit throttles authenticated triggers with the shared token
// bucket. A limiter failure lets the trigger through; the run lock still
// prevents overlap.
func (s *Server) CronTriggerRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		res, err := s.limiter.AllowTrigger(ctx)
		if err != nil {
			obslogger.WithContext(ctx, s.log).Warn("cron trigger rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if res != nil && !res.Allowed {
			retryAfter := int(res.RetryAfter.Round(time.Second) / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			obslogger.WithContext(ctx, s.log).Warn("cron trigger rate limit exceeded",
				zap.Int("limit", res.Limit),
				zap.Int("retry_after_seconds", retryAfter),
			)
			s.pipeline.IncTriggerRejected(rejectReasonRateLimited)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			abortCron(c, http.StatusTooManyRequests, "rate limited")
			return
		}
		c.Next()
	}
}
