package handler

import (
	"net/http"
	"strings"
	"time"

	"vomprater-server/internal/access"
	"vomprater-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const actorContextKey = "actor"

// extractBearerToken pulls a bearer token out of the Authorization header.
func extractBearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// ActorMiddleware resolves the request actor from the Authorization header.
// Moderator tokens and story-scoped tokens share the header; the moderator
// verifier runs first because its claims carry a role. Requests without a
// token pass through anonymously; route guards decide whether that is enough.
func ActorMiddleware(stories *access.Service, moderators *access.ModeratorVerifier, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ActorMiddleware")
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c)
		if !ok {
			c.Next()
			return
		}

		if claims, err := moderators.VerifyToken(token); err == nil {
			if claims.IsModerator() {
				c.Set(actorContextKey, service.Actor{Moderator: true})
			}
			c.Next()
			return
		}

		if storyID, err := stories.VerifyToken(token); err == nil {
			c.Set(actorContextKey, service.Actor{StoryID: storyID})
			c.Next()
			return
		}

		// A malformed or expired token is an error, not anonymity: the
		// caller believes they are authenticated.
		log.Debug("Rejecting request with unverifiable bearer token", zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
}

// currentActor returns the resolved actor, anonymous when absent.
func currentActor(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(service.Actor); ok {
			return actor
		}
	}
	return service.Actor{}
}

// RequireActor rejects anonymous requests.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentActor(c)
		if !actor.Moderator && actor.StoryID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		c.Next()
	}
}

// RequireModerator rejects everything but moderator tokens.
func RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentActor(c).Moderator {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
			return
		}
		c.Next()
	}
}

// uuidParam parses a UUID path parameter, aborting with 400 on bad format.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name + " format"})
		return uuid.Nil, false
	}
	return id, true
}

// ZapLoggingMiddleware logs requests with zap, skipping the health and
// metrics endpoints, and tags every response with a request id.
func ZapLoggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		if path == "/healthz" || path == "/metrics" {
			c.Next()
			return
		}

		c.Next()

		latency := time.Since(start)
		if rawQuery := c.Request.URL.RawQuery; rawQuery != "" {
			path = path + "?" + rawQuery
		}

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
			zap.String("user_agent", c.Request.UserAgent()),
		}

		requestID := c.Writer.Header().Get("X-Request-ID")
		if requestID == "" {
			requestID = c.GetHeader("X-Request-ID")
		}
		if requestID == "" {
			requestID = uuid.NewString()
			c.Header("X-Request-ID", requestID)
		}
		fields = append(fields, zap.String("request_id", requestID))

		if len(c.Errors) > 0 {
			for _, ginErr := range c.Errors.ByType(gin.ErrorTypeAny) {
				log.Error("Request error", append(fields, zap.Error(ginErr.Err))...)
			}
			return
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("Request completed with server error", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("Request completed with client error", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}
