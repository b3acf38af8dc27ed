package admin

import (
	"fmt"
	"net/http"

	modeladmin "github.com/ZJUSCT/backoffice/internal/admin"
	"github.com/ZJUSCT/backoffice/internal/api"
	"github.com/ZJUSCT/backoffice/internal/embedui"
	"github.com/ZJUSCT/backoffice/internal/render"
	"github.com/gin-gonic/gin"
)

const (
	prefix   = modeladmin.DefaultPrefix
	loginURL = prefix + "/login"
)

type routed interface {
	Routes() []modeladmin.Route
}

// NewAdminRouter creates and configures the admin Gin engine.
func NewAdminRouter(h *Handler) (*gin.Engine, error) {
	r := gin.Default()

	for _, layout := range []string{h.cfg.Templates.Layout, h.cfg.Templates.AjaxLayout} {
		if !render.HasLayout(layout) {
			return nil, fmt.Errorf("unknown layout %q", layout)
		}
	}

	renderer, err := render.New()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	r.HTMLRender = renderer

	r.Use(api.CORSMiddleware(h.cfg.CORS))

	embedui.RegisterStaticHandlers(r, prefix+"/static")

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, prefix+"/")
	})

	g := r.Group(prefix, h.sessions.Middleware())
	{
		g.GET("/login", h.loginPage)
		g.POST("/login", h.login)
		g.POST("/logout", h.logout)
		if h.gitlab != nil {
			g.GET("/login/gitlab", h.gitlabLogin)
			g.GET("/login/gitlab/callback", h.gitlabCallback)
		}

		authed := g.Group("", api.AuthMiddleware(h.cfg.Auth.JWT.Secret, h.db, loginURL))
		authed.GET("/", h.dashboard)
		authed.GET("/ws/activity", h.handleActivityWs)

		for _, a := range h.set.Pool.Admins() {
			ra, ok := a.(routed)
			if !ok {
				return nil, fmt.Errorf("admin %s does not expose routes", a.Code())
			}
			for _, route := range ra.Routes() {
				handler := h.action(a.Code(), route.Name)
				for _, method := range route.Methods {
					authed.Handle(method, route.Path, handler)
				}
			}
		}
	}

	r.NoRoute(h.sessions.Middleware(), func(c *gin.Context) {
		h.renderError(c, nil, http.StatusNotFound, "The page you requested does not exist.")
	})

	return r, nil
}
