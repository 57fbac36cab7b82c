package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ContactRelay/internal/config"
	"github.com/router-for-me/ContactRelay/internal/security"
	log "github.com/sirupsen/logrus"
)

// AuthHandler issues admin tokens.
type AuthHandler struct {
	admin config.AdminConfig
	jwt   config.JWTConfig
	nowFn func() time.Time
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(admin config.AdminConfig, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{admin: admin, jwt: jwtCfg, nowFn: time.Now}
}

// loginRequest captures admin credentials.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks credentials and returns a signed token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	if !security.CheckAdminCredentials(h.admin.Username, h.admin.PasswordHash, username, body.Password) {
		log.WithField("username", username).Warn("admin: login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, expiresAt, errIssue := security.IssueAdminToken(h.jwt.Secret, username, h.jwt.Expiry, h.nowFn())
	if errIssue != nil {
		log.WithError(errIssue).Error("admin: issue token failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}
