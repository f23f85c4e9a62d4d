package handlers

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/redis/ratelimit"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
)

// MsgTooManyRequests is sent to callers over their quota
const MsgTooManyRequests = "Too many requests from this IP, please try again after 15 minutes."

type subjectKey struct{}

// RateLimiter counts requests per caller key
type RateLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
	Max() int
}

type MiddlewareProvider struct {
	SecretOption string
	limiter      RateLimiter
	logger       primary.Logger
}

// New builds the middleware set; an empty secret disables auth and a nil limiter disables the rate guard
func New(secret string, limiter RateLimiter, logger primary.Logger) *MiddlewareProvider {
	return &MiddlewareProvider{
		SecretOption: secret,
		limiter:      limiter,
		logger:       logger,
	}
}

func (m *MiddlewareProvider) secret() []byte {
	return []byte(m.SecretOption)
}

// SubjectFromContext returns the verified token subject, if any
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey{}).(string)
	return sub, ok && sub != ""
}

func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	if m.SecretOption == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			ResponseError(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		// Extract token from "Bearer <token>"
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return m.secret(), nil
		})

		if err != nil || !token.Valid {
			ResponseError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
			ctx = context.WithValue(ctx, subjectKey{}, sub)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware rejects callers over quota before anything is enqueued.
// A limiter outage lets requests through.
func (m *MiddlewareProvider) RateLimitMiddleware(next http.Handler) http.Handler {
	if m.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, err := m.limiter.Allow(r.Context(), clientKey(r))
		if err != nil {
			m.logger.Warn("Rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limiter.Max()))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(decision.ResetIn.Seconds()))))
			ResponseError(w, MsgTooManyRequests, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey prefers the authenticated subject over the remote address
func clientKey(r *http.Request) string {
	if sub, ok := SubjectFromContext(r.Context()); ok {
		return "sub:" + sub
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
