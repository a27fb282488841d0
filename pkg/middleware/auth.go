package middleware

import (
	"strings"

	"speech-coach-demo/backend/pkg/errors"
	"speech-coach-demo/backend/pkg/jwt"
	"speech-coach-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// JWTAuth returns a middleware that validates a bearer token and stores the
// authenticated user's ID and email on the request context.
func JWTAuth(jwtService *jwt.Service, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Error(errors.NewUnauthorizedError(errors.CodeUnauthorized, "Authorization header is required"))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			c.Error(errors.NewUnauthorizedError(errors.CodeUnauthorized, "Authorization header must be a bearer token"))
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			log.Warn("token validation failed", "error", err.Error())
			c.Error(errors.NewUnauthorizedError(errors.CodeUnauthorized, "Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set("userId", claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}
