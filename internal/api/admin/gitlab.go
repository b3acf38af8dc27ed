package admin

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ZJUSCT/backoffice/internal/auth"
	"github.com/ZJUSCT/backoffice/internal/database"
	"github.com/ZJUSCT/backoffice/internal/database/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	stateCookie = "backoffice_oauth_state"
	statePath   = prefix + "/login/gitlab"
)

func (h *Handler) gitlabLogin(c *gin.Context) {
	state := uuid.NewString()
	target, err := h.gitlab.AuthCodeURL(c.Request.Context(), state)
	if err != nil {
		zap.S().Errorf("gitlab sign-in unavailable: %v", err)
		h.loginFailed(c, false, "", http.StatusBadGateway, "GitLab sign-in is unavailable")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, statePath, "", false, true)
	c.Redirect(http.StatusFound, target)
}

func (h *Handler) gitlabCallback(c *gin.Context) {
	state, err := c.Cookie(stateCookie)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, "", -1, statePath, "", false, true)
	if err != nil || state == "" || c.Query("state") != state {
		h.loginFailed(c, false, "", http.StatusBadRequest, "invalid sign-in state, please try again")
		return
	}
	if reason := c.Query("error"); reason != "" {
		h.loginFailed(c, false, "", http.StatusUnauthorized, "GitLab refused the sign-in: "+reason)
		return
	}

	ident, err := h.gitlab.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		zap.S().Warnf("gitlab sign-in failed: %v", err)
		h.loginFailed(c, false, "", http.StatusBadGateway, "GitLab sign-in failed")
		return
	}

	user, err := h.gitlabUser(ident)
	if err != nil {
		zap.S().Errorf("failed to resolve gitlab user %s: %v", ident.Username, err)
		h.loginFailed(c, false, ident.Username, http.StatusInternalServerError, "database error")
		return
	}
	if user.IsBanned(time.Now()) {
		h.loginFailed(c, false, user.Username, http.StatusForbidden, "account is banned")
		return
	}
	h.startSession(c, false, user)
}

// gitlabUser finds the local user of a GitLab identity. An account already
// linked wins, then an unlinked account of the same username is linked;
// otherwise a new user with the default roles is created.
func (h *Handler) gitlabUser(ident *auth.GitLabIdentity) (*models.User, error) {
	if ident.Subject == "" || ident.Username == "" {
		return nil, errors.New("gitlab identity has no subject or username")
	}

	user, err := database.GetUserByGitLabID(h.db, ident.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err = database.GetUserByUsername(h.db, ident.Username)
	switch {
	case err == nil:
		if user.GitLabID != nil {
			return nil, fmt.Errorf("user %s is linked to another GitLab account", user.Username)
		}
		if err := h.db.Model(user).Update("git_lab_id", ident.Subject).Error; err != nil {
			return nil, err
		}
		user.GitLabID = &ident.Subject
		zap.S().Infof("linked user %s to gitlab account %s", user.Username, ident.Subject)
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	subject := ident.Subject
	user = &models.User{
		GitLabID: &subject,
		Username: ident.Username,
		Nickname: ident.Name,
		Email:    ident.Email,
		Roles:    models.StringList(h.cfg.Auth.GitLab.DefaultRoles),
	}
	if err := database.CreateUser(h.db, user); err != nil {
		return nil, err
	}
	zap.S().Infof("new user registered through gitlab: %s", user.Username)
	return user, nil
}
