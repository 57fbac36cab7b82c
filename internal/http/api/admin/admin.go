package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ContactRelay/internal/config"
	handlers "github.com/router-for-me/ContactRelay/internal/http/api/admin/handlers"
	"github.com/router-for-me/ContactRelay/internal/security"
)

// RegisterAdminRoutes registers the submission review API behind admin JWT auth.
func RegisterAdminRoutes(r gin.IRouter, submissions handlers.SubmissionStore, adminCfg config.AdminConfig, jwtCfg config.JWTConfig) {
	if r == nil || submissions == nil {
		return
	}

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(adminCfg, jwtCfg)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(adminCfg, jwtCfg))

	submissionHandler := handlers.NewSubmissionHandler(submissions)
	authed.GET("/submissions", submissionHandler.List)
	authed.GET("/submissions/:id", submissionHandler.Get)
	authed.POST("/submissions/:id/read", submissionHandler.MarkRead)
}

// adminAuthMiddleware validates admin JWTs and stores the admin name in context.
func adminAuthMiddleware(adminCfg config.AdminConfig, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Username != adminCfg.Username {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}

		c.Set("adminUsername", claims.Username)
		c.Next()
	}
}
