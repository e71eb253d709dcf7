package middleware

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"xenocpu/internal/services"
)

// ClientNameKey is the gin context key holding the authenticated client name
const ClientNameKey = "client_name"

var errMalformedToken = errors.New("malformed token")

// RateLimiter implements token bucket rate limiting per IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
}

// NewRateLimiter creates a limiter allowing limit requests per second per IP
func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// GetLimiter gets or creates a limiter for an IP address
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[ip]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ip] = limiter
	return limiter
}

// RateLimitMiddleware enforces rate limiting per IP
func RateLimitMiddleware(limiter *RateLimiter, sl *SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			sl.log.Warnw("rate limit exceeded", "ip", ip, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": 60,
			})
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers to all responses
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

// OriginAllowed reports whether origin matches the allowed list. An empty
// list allows any non-empty origin. Entries without a scheme match the host.
func OriginAllowed(origin string, allowedOrigins []string) bool {
	normalizedOrigin := strings.TrimRight(origin, "/")
	if len(allowedOrigins) == 0 {
		return normalizedOrigin != ""
	}

	for _, o := range allowedOrigins {
		trimmed := strings.TrimRight(strings.TrimSpace(o), "/")
		if trimmed == "" {
			continue
		}
		if trimmed == "*" || normalizedOrigin == trimmed {
			return true
		}
		if trimmed == "xenocpu://app" && strings.HasPrefix(normalizedOrigin, "xenocpu://") {
			return true
		}
		if !strings.Contains(trimmed, "://") {
			if parsed, err := url.Parse(normalizedOrigin); err == nil && parsed.Host == trimmed {
				return true
			}
		}
	}
	return false
}

// CORSMiddleware configures CORS with security restrictions
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if OriginAllowed(origin, allowedOrigins) {
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Origin", strings.TrimRight(origin, "/"))
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// IPAllowList restricts access to listed IPs. Loopback is always allowed.
type IPAllowList struct {
	ips map[string]bool
}

// NewIPAllowList creates a new IP allow list
func NewIPAllowList(ips []string) *IPAllowList {
	al := &IPAllowList{ips: make(map[string]bool)}
	for _, ip := range ips {
		al.ips[strings.TrimSpace(ip)] = true
	}
	return al
}

// IsAllowed checks if an IP is allowed
func (al *IPAllowList) IsAllowed(ip string) bool {
	// Strip port from IP if present
	ipOnly, _, err := net.SplitHostPort(ip)
	if err != nil {
		ipOnly = ip
	}

	if ipOnly == "localhost" {
		return true
	}
	if parsed := net.ParseIP(ipOnly); parsed != nil && parsed.IsLoopback() {
		return true
	}

	// If no list configured, allow all
	if len(al.ips) == 0 {
		return true
	}
	return al.ips[ipOnly]
}

// IPAllowListMiddleware enforces the allow list
func IPAllowListMiddleware(allowList *IPAllowList, sl *SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !allowList.IsAllowed(ip) {
			sl.LogFailedAuth(ip, "ip not in allow list")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*services.CustomClaims, error)
}

// ExtractToken reads a token from the Authorization header, falling back to
// the token query parameter.
func ExtractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return c.Query("token")
}

// BearerAuthMiddleware rejects requests without a valid token. When
// required is false every request passes and a valid token, if any, still
// sets the client name.
func BearerAuthMiddleware(validator TokenValidator, required bool, sl *SecurityLogger) gin.HandlerFunc {
	format := NewInputValidator()
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			if required {
				sl.LogFailedAuth(c.ClientIP(), "missing token")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}
			c.Next()
			return
		}

		var claims *services.CustomClaims
		err := errMalformedToken
		if format.ValidateToken(token) {
			claims, err = validator.ValidateToken(token)
		}
		if err != nil {
			if required {
				sl.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.Next()
			return
		}

		c.Set(ClientNameKey, claims.ClientName)
		c.Next()
	}
}

// SecurityLogger logs security events
type SecurityLogger struct {
	log *zap.SugaredLogger
}

// NewSecurityLogger creates a new security logger
func NewSecurityLogger(log *zap.SugaredLogger) *SecurityLogger {
	return &SecurityLogger{log: log.With("component", "security")}
}

// LogFailedAuth logs failed authentication attempts
func (sl *SecurityLogger) LogFailedAuth(ip string, reason string) {
	sl.log.Warnw("authentication failed", "ip", ip, "reason", reason)
}

// LogTokenGenerated logs successful token generation
func (sl *SecurityLogger) LogTokenGenerated(source string, clientName string) {
	sl.log.Infow("token generated", "client", clientName, "source", source)
}

// LogWebSocketConnected logs successful WebSocket connections
func (sl *SecurityLogger) LogWebSocketConnected(ip string, clientName string) {
	sl.log.Infow("websocket connected", "client", clientName, "ip", ip)
}

// LogWebSocketDisconnected logs WebSocket disconnections
func (sl *SecurityLogger) LogWebSocketDisconnected(ip string, clientID string) {
	sl.log.Infow("websocket disconnected", "client_id", clientID, "ip", ip)
}

// InputValidator validates and sanitizes user input
type InputValidator struct{}

// NewInputValidator creates a new input validator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateToken checks if token format is valid
func (iv *InputValidator) ValidateToken(token string) bool {
	// JWT tokens are in format: header.payload.signature
	if len(token) < 20 || len(token) > 4096 {
		return false
	}
	return strings.Count(token, ".") == 2
}

// ValidateClientName checks if a client name is safe
func (iv *InputValidator) ValidateClientName(name string) bool {
	if len(name) < 1 || len(name) > 255 {
		return false
	}

	// Allow alphanumeric, hyphens, underscores, dots
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '-' || c == '_' || c == '.') {
			return false
		}
	}
	return true
}
