// Package session keeps one-shot flash messages per browser session in the database.
package session

import (
	"net/http"

	"github.com/ZJUSCT/backoffice/internal/database"
	"github.com/ZJUSCT/backoffice/internal/database/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CookieName is the cookie carrying the session identifier.
const CookieName = "backoffice_session"

const contextKey = "session_id"

// Store reads and writes flash messages of sessions.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Middleware makes sure every request belongs to a session.
func (s *Store) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CookieName, id, 0, "/", "", false, true)
		}
		c.Set(contextKey, id)
		c.Next()
	}
}

// ID returns the session of the request, or "" outside the middleware.
func ID(c *gin.Context) string {
	return c.GetString(contextKey)
}

// Sink returns the flash sink of the request's session.
func (s *Store) Sink(c *gin.Context) *Sink {
	return &Sink{store: s, sessionID: ID(c)}
}

// Pop returns and clears the pending flash messages of the request's session.
func (s *Store) Pop(c *gin.Context) []models.FlashMessage {
	id := ID(c)
	if id == "" {
		return nil
	}
	flashes, err := database.PopFlashes(s.db, id)
	if err != nil {
		zap.S().Errorf("failed to read flash messages of session %s: %v", id, err)
		return nil
	}
	return flashes
}

// Sink stores flash messages for one session.
type Sink struct {
	store     *Store
	sessionID string
}

func (k *Sink) SetFlash(category, key string) {
	if k.sessionID == "" {
		return
	}
	if err := database.AddFlash(k.store.db, k.sessionID, category, key); err != nil {
		zap.S().Errorf("failed to store flash %s for session %s: %v", key, k.sessionID, err)
	}
}
