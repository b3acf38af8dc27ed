package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/ZJUSCT/backoffice/internal/api"
	"github.com/ZJUSCT/backoffice/internal/auth"
	"github.com/ZJUSCT/backoffice/internal/database"
	"github.com/ZJUSCT/backoffice/internal/database/models"
	"github.com/ZJUSCT/backoffice/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errBadCredentials = errors.New("invalid username or password")

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (h *Handler) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", h.loginData(c))
}

func (h *Handler) loginData(c *gin.Context) gin.H {
	data := h.pageData(c)
	data["gitlab"] = h.gitlab != nil
	return data
}

// login accepts a form post from the login page or a JSON body from API
// clients. Browsers get the token as a cookie, API clients in the body.
func (h *Handler) login(c *gin.Context) {
	jsonClient := util.WantsJSON(c)

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.loginFailed(c, jsonClient, req.Username, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := database.GetUserByUsername(h.db, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.loginFailed(c, jsonClient, req.Username, http.StatusUnauthorized, errBadCredentials.Error())
		} else {
			h.loginFailed(c, jsonClient, req.Username, http.StatusInternalServerError, "database error")
		}
		return
	}

	if user.PasswordHash == "" || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		h.loginFailed(c, jsonClient, req.Username, http.StatusUnauthorized, errBadCredentials.Error())
		return
	}
	if user.IsBanned(time.Now()) {
		h.loginFailed(c, jsonClient, req.Username, http.StatusForbidden, "account is banned")
		return
	}

	h.startSession(c, jsonClient, user)
}

// startSession issues the JWT of user: in the body for API clients, as a cookie otherwise.
func (h *Handler) startSession(c *gin.Context, jsonClient bool, user *models.User) {
	p := auth.Principal{UserID: user.ID, Username: user.Username, Roles: user.Roles}
	jwtToken, err := auth.GenerateJWT(p, h.cfg.Auth.JWT.Secret, h.cfg.Auth.JWT.ExpireHours)
	if err != nil {
		h.loginFailed(c, jsonClient, user.Username, http.StatusInternalServerError, "failed to generate JWT")
		return
	}
	zap.S().Infof("user %s logged in to the backoffice", user.Username)

	if jsonClient {
		util.Success(c, gin.H{"token": jwtToken}, "Login successful")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(api.TokenCookie, jwtToken, h.cfg.Auth.JWT.ExpireHours*3600, "/", "", false, true)
	c.Redirect(http.StatusFound, prefix+"/")
}

func (h *Handler) loginFailed(c *gin.Context, jsonClient bool, username string, code int, msg string) {
	if jsonClient {
		util.Error(c, code, msg)
		return
	}
	zap.S().Warnf("backoffice login failed for %q: %s", username, msg)
	data := h.loginData(c)
	data["error"] = msg
	data["username"] = username
	c.HTML(code, "login.html", data)
}

func (h *Handler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(api.TokenCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, loginURL)
}
