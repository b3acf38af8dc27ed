package admin

import (
	"context"
	"net/http"
	"net/url"

	modeladmin "github.com/ZJUSCT/backoffice/internal/admin"
	"github.com/ZJUSCT/backoffice/internal/crud"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type dashboardEntry struct {
	Code      string
	Label     string
	Count     int64
	ListURL   string
	CreateURL string
}

type counted interface {
	Total() int64
}

// navigation links the lists of the top-level admins the principal may see.
func (h *Handler) navigation(ctx context.Context) []modeladmin.Link {
	var links []modeladmin.Link
	for _, a := range h.set.Pool.Admins() {
		if a.IsChild() || !a.IsGranted(ctx, crud.PermissionList) {
			continue
		}
		links = append(links, modeladmin.Link{Label: a.Label(), URL: a.GenerateURL(nil, crud.RouteList, nil)})
	}
	return links
}

func (h *Handler) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	var entries []dashboardEntry
	for _, a := range h.set.Pool.Admins() {
		if a.IsChild() || !a.IsGranted(ctx, crud.PermissionList) {
			continue
		}
		entry := dashboardEntry{
			Code:    a.Code(),
			Label:   a.Label(),
			ListURL: a.GenerateURL(nil, crud.RouteList, nil),
		}
		if a.IsGranted(ctx, crud.PermissionCreate) {
			entry.CreateURL = a.GenerateURL(nil, crud.RouteCreate, nil)
		}

		s := &crud.Scope{
			Request: &crud.Request{Method: http.MethodGet, Params: url.Values{}, Form: url.Values{}},
			Admin:   a,
			Root:    a,
		}
		grid, err := a.Datagrid(ctx, s)
		if err == nil {
			err = grid.BuildPager(ctx)
		}
		if err != nil {
			zap.S().Errorf("failed to count %s: %v", a.Code(), err)
		} else if n, ok := grid.(counted); ok {
			entry.Count = n.Total()
		}
		entries = append(entries, entry)
	}

	data := h.pageData(c)
	data["entries"] = entries
	c.HTML(http.StatusOK, "dashboard.html", data)
}
