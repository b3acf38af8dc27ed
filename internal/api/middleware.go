package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ZJUSCT/backoffice/internal/auth"
	"github.com/ZJUSCT/backoffice/internal/config"
	"github.com/ZJUSCT/backoffice/internal/database"
	"github.com/ZJUSCT/backoffice/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TokenCookie carries the JWT of browser sessions.
const TokenCookie = "backoffice_token"

// CORSMiddleware provides a configurable CORS middleware.
func CORSMiddleware(cfg config.CORS) gin.HandlerFunc {
	return func(c *gin.Context) {
		// If no origins are configured, do nothing.
		if len(cfg.AllowedOrigins) == 0 {
			c.Next()
			return
		}

		origin := c.Request.Header.Get("Origin")
		allowOrigin := ""

		// Check if the origin is in the allowed list
		for _, o := range cfg.AllowedOrigins {
			if o == "*" {
				allowOrigin = "*"
				break
			}
			if o == origin {
				allowOrigin = origin
				break
			}
		}

		// Only set headers if the origin is allowed.
		if allowOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, HX-Request")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}
		c.Next()
	}
}

// AuthMiddleware accepts a Bearer token or the token cookie, reloads the user
// and stores its principal in the request context. Page requests without a
// valid session are sent to loginURL.
func AuthMiddleware(secret string, db *gorm.DB, loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFrom(c)
		if err != nil {
			deny(c, loginURL, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := auth.ValidateJWT(tokenString, secret)
		if err != nil {
			deny(c, loginURL, http.StatusUnauthorized, err.Error())
			return
		}

		user, err := database.GetUserByID(db, claims.Subject)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				deny(c, loginURL, http.StatusUnauthorized, "user no longer exists")
			} else {
				util.Error(c, http.StatusInternalServerError, "database error")
				c.Abort()
			}
			return
		}
		if user.IsBanned(time.Now()) {
			deny(c, loginURL, http.StatusForbidden, "account is banned")
			return
		}

		p := auth.Principal{UserID: user.ID, Username: user.Username, Roles: user.Roles}
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Set("userID", user.ID)
		c.Next()
	}
}

func tokenFrom(c *gin.Context) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errors.New("Authorization header format must be Bearer {token}")
		}
		return parts[1], nil
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", errors.New("authentication required")
}

func deny(c *gin.Context, loginURL string, code int, msg string) {
	if c.Request.Method == http.MethodGet && !util.WantsJSON(c) && c.GetHeader("Authorization") == "" {
		c.Redirect(http.StatusFound, loginURL)
		c.Abort()
		return
	}
	util.Error(c, code, msg)
	c.Abort()
}
