// Package middleware holds the Gin middleware for authenticating requests
// against Casdoor-issued JWTs and mirroring users into the local store.
package middleware

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/examforge/exam-service/internal/config"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/utils"
)

type Authenticator struct {
	client *casdoorsdk.Client
	users  repositories.UserRepository
	logger utils.Logger
}

func NewAuthenticator(cfg config.CasdoorConfig, users repositories.UserRepository, logger utils.Logger) *Authenticator {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.Organization,
		cfg.Application,
	)
	return &Authenticator{
		client: client,
		users:  users,
		logger: logger,
	}
}

// Middleware validates the bearer token and sets "user_id" and "role" in
// the request context. First-time callers are mirrored into the users
// table with the student role; role upgrades happen out of band.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Missing bearer token",
			})
			return
		}

		claims, err := a.client.ParseJwtToken(token)
		if err != nil {
			a.logger.Warn("Token validation failed", "error", err, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid token",
			})
			return
		}

		userID := claims.User.Id
		if userID == "" {
			userID = claims.User.Name
		}

		role, err := a.resolveRole(c, userID, &claims.User)
		if err != nil {
			a.logger.Error("Failed to resolve user role", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"message": "Internal server error",
			})
			return
		}

		c.Set("user_id", userID)
		c.Set("role", string(role))
		c.Next()
	}
}

// resolveRole reads the local role, creating the user on first sight.
func (a *Authenticator) resolveRole(c *gin.Context, userID string, casdoorUser *casdoorsdk.User) (models.UserRole, error) {
	ctx := c.Request.Context()

	role, err := a.users.GetRole(ctx, userID)
	if err == nil {
		return role, nil
	}
	if !repositories.IsNotFoundError(err) {
		return "", err
	}

	user := &models.User{
		ID:       userID,
		FullName: casdoorUser.DisplayName,
		Email:    casdoorUser.Email,
		Role:     models.RoleStudent,
		IsActive: true,
	}
	if user.FullName == "" {
		user.FullName = casdoorUser.Name
	}
	if err := a.users.Upsert(ctx, user); err != nil {
		return "", err
	}

	a.logger.Info("Mirrored new user from Casdoor", "user_id", userID)
	return models.RoleStudent, nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
