package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/horecaalert/internal/observability/context"
	obslogger "github.com/smallbiznis/horecaalert/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	rejectReasonUnauthorized  = "unauthorized"
	rejectReasonMisconfigured = "misconfigured"
	rejectReasonRateLimited   = "rate_limited"
	rejectReasonInProgress    = "in_progress"
)

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func tokenMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// CronSecretRequired authenticates the external run trigger. An unset secret
// is a server misconfiguration and never lets the request through.
func (s *Server) CronSecretRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if s.cfg.CronSecret == "" {
			obslogger.WithContext(ctx, s.log).Error("cron trigger rejected, CRON_SECRET is not configured",
				zap.Error(ErrMisconfigured),
			)
			s.pipeline.IncTriggerRejected(rejectReasonMisconfigured)
			abortCron(c, http.StatusInternalServerError, "internal server error")
			return
		}

		token, ok := bearerToken(c)
		if !ok || !tokenMatches(token, s.cfg.CronSecret) {
			obslogger.WithContext(ctx, s.log).Warn("cron trigger rejected", zap.String("reason", rejectReasonUnauthorized))
			s.pipeline.IncTriggerRejected(rejectReasonUnauthorized)
			abortCron(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		c.Request = c.Request.WithContext(obscontext.WithActor(ctx, "system", "cron"))
		c.Next()
	}
}

// InternalTokenRequired guards the alert management API. The API is closed
// when INTERNAL_API_TOKEN is unset.
func (s *Server) InternalTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.InternalAPIToken == "" {
			AbortWithError(c, ErrForbidden)
			return
		}
		token, ok := bearerToken(c)
		if !ok || !tokenMatches(token, s.cfg.InternalAPIToken) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), "internal", "api"))
		c.Next()
	}
}
