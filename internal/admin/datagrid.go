package admin

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/ZJUSCT/backoffice/internal/crud"
)

// Datagrid is the filtered, paginated list of one admin.
type Datagrid[T any] struct {
	scope   *crud.Scope
	admin   *ModelAdmin[T]
	query   *Query
	values  url.Values
	page    int
	perPage int
	total   int64
}

func (g *Datagrid[T]) Query() crud.Query { return g.query }

// BuildPager applies the filters, counts the matches and bounds the query to
// the requested page.
func (g *Datagrid[T]) BuildPager(ctx context.Context) error {
	for _, f := range g.admin.cfg.Filters {
		v := strings.TrimSpace(g.values.Get(f.Param()))
		if v == "" {
			continue
		}
		switch f.Match {
		case "partial":
			g.query.Where(f.Column+" LIKE ?", "%"+v+"%")
		case "bool":
			b, err := strconv.ParseBool(v)
			if err != nil {
				continue
			}
			g.query.Where(f.Column+" = ?", b)
		default:
			g.query.Where(f.Column+" = ?", v)
		}
	}

	total, err := g.query.Count(ctx)
	if err != nil {
		return err
	}
	g.total = total

	if last := g.LastPage(); g.page > last {
		g.page = last
	}
	first := (g.page - 1) * g.perPage
	max := g.perPage
	g.query.SetFirstResult(&first)
	g.query.SetMaxResults(&max)
	return nil
}

func (g *Datagrid[T]) Results(ctx context.Context) ([]any, error) {
	var rows []T
	if err := g.query.Build(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]any, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (g *Datagrid[T]) Page() int         { return g.page }
func (g *Datagrid[T]) PerPage() int      { return g.perPage }
func (g *Datagrid[T]) Total() int64      { return g.total }
func (g *Datagrid[T]) Filters() []Filter { return g.admin.cfg.Filters }

// FilterValue is the current value of the named filter.
func (g *Datagrid[T]) FilterValue(name string) string {
	return g.values.Get("filter_" + name)
}

func (g *Datagrid[T]) LastPage() int {
	if g.total == 0 {
		return 1
	}
	return int((g.total + int64(g.perPage) - 1) / int64(g.perPage))
}

// PageURL links to page n of the list, keeping the filters.
func (g *Datagrid[T]) PageURL(n int) string {
	params := url.Values{}
	for k, v := range g.values {
		params[k] = v
	}
	params.Set("page", strconv.Itoa(n))
	return g.admin.GenerateURL(g.scope, crud.RouteList, params)
}
