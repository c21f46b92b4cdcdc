package middleware

import (
	"net/http"
	"strings"

	"github.com/kataras/iris/v12"
	"github.com/relayhq/relay-server/internal/security"
	"github.com/relayhq/relay-server/pkg/errors"
)

// callerIDKey is the context-values key holding the resolved caller identity.
const callerIDKey = "caller_id"

// Auth resolves the caller identity from a bearer token and stores it on the
// request context. Handlers downstream never see an unauthenticated caller.
func Auth(jwtSecret string) iris.Handler {
	return func(ctx iris.Context) {
		header := ctx.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			unauthorized(ctx)
			return
		}

		claims, err := security.ValidateJWT(token, jwtSecret)
		if err != nil || claims.UserID == "" {
			unauthorized(ctx)
			return
		}

		ctx.Values().Set(callerIDKey, claims.UserID)
		ctx.Next()
	}
}

// CallerID returns the resolved caller identity set by Auth, or "" when the
// route ran without it.
func CallerID(ctx iris.Context) string {
	return ctx.Values().GetString(callerIDKey)
}

// RateLimit rejects callers that exceed the per-user or per-IP budget.
// Applied to mutating routes after Auth.
func RateLimit(limiter *RateLimiter) iris.Handler {
	return func(ctx iris.Context) {
		if !limiter.CheckIPLimit(ctx.RemoteAddr()) {
			tooManyRequests(ctx)
			return
		}
		if userID := CallerID(ctx); userID != "" && !limiter.CheckUserLimit(userID) {
			tooManyRequests(ctx)
			return
		}
		ctx.Next()
	}
}

func unauthorized(ctx iris.Context) {
	ctx.StatusCode(http.StatusUnauthorized)
	ctx.JSON(iris.Map{"error": errors.ErrCodeNotAuthenticated, "message": "login required"})
}

func tooManyRequests(ctx iris.Context) {
	ctx.StatusCode(http.StatusTooManyRequests)
	ctx.JSON(iris.Map{"error": errors.ErrCodeRateLimitExceeded, "message": "too many requests"})
}
