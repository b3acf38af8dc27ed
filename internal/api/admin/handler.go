package admin

import (
	"github.com/ZJUSCT/backoffice/internal/admins"
	"github.com/ZJUSCT/backoffice/internal/auth"
	"github.com/ZJUSCT/backoffice/internal/config"
	"github.com/ZJUSCT/backoffice/internal/crud"
	"github.com/ZJUSCT/backoffice/internal/pubsub"
	"github.com/ZJUSCT/backoffice/internal/session"
	"gorm.io/gorm"
)

// Handler holds all dependencies for the admin handlers.
type Handler struct {
	cfg        *config.Config
	db         *gorm.DB
	set        *admins.Set
	dispatcher *crud.Dispatcher
	sessions   *session.Store
	broker     *pubsub.Broker
	gitlab     *auth.GitLab
}

// NewHandler creates a new admin handler with its dependencies.
func NewHandler(
	cfg *config.Config,
	db *gorm.DB,
	set *admins.Set,
	broker *pubsub.Broker,
) *Handler {
	d := crud.NewDispatcher(set.Pool, crud.Templates{
		Layout:     cfg.Templates.Layout,
		AjaxLayout: cfg.Templates.AjaxLayout,
	})
	admins.RegisterBatchActions(d)

	var gitlab *auth.GitLab
	if g := cfg.Auth.GitLab; g.Enabled {
		gitlab = auth.NewGitLab(g.URL, g.ClientID, g.ClientSecret, g.RedirectURI)
	}

	return &Handler{
		cfg:        cfg,
		db:         db,
		set:        set,
		dispatcher: d,
		sessions:   session.NewStore(db),
		broker:     broker,
		gitlab:     gitlab,
	}
}
