package crud

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// BatchHandler runs a batch action over the prepared, unpaginated query.
type BatchHandler func(ctx context.Context, s *Scope, q Query) (Outcome, error)

// BatchSelection is what the list view posted.
type BatchSelection struct {
	Action      string
	IDs         []string
	AllElements bool
}

// Empty reports whether nothing was selected.
func (b BatchSelection) Empty() bool {
	return len(b.IDs) == 0 && !b.AllElements
}

// SelectionFrom reads the batch selection out of a request.
func SelectionFrom(req *Request) BatchSelection {
	var ids []string
	for _, id := range req.Values("idx") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return BatchSelection{
		Action:      req.Param("action"),
		IDs:         ids,
		AllElements: truthy(req.Param("all_elements")),
	}
}

// RegisterBatchAction binds a batch action name to its handler. The admin must
// also list the name in its BatchActions registry for the action to run.
func (d *Dispatcher) RegisterBatchAction(name string, h BatchHandler) {
	d.batch[name] = h
}

// HandlerName is the conventional name of the handler for a batch action.
func HandlerName(action string) string {
	return "batchAction" + Camelize(action)
}

// Camelize turns "mark_as-read" into "MarkAsRead".
func Camelize(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || r == '.' || r == ' ':
			upper = true
		case upper:
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Batch runs the action chosen on the list view over the selected objects.
func (d *Dispatcher) Batch(ctx context.Context, req *Request) (Outcome, error) {
	s, err := d.Contextualize(req)
	if err != nil {
		return Outcome{}, err
	}
	if req.Method != http.MethodPost {
		return Outcome{}, fmt.Errorf("%w: invalid request type %q, POST expected", ErrInvalidRequest, req.Method)
	}

	sel := SelectionFrom(req)
	if sel.Empty() {
		req.SetFlash(FlashInfo, FlashBatchEmpty)
		return Redirect(s.URL(RouteList)), nil
	}

	if _, ok := s.Admin.BatchActions()[sel.Action]; !ok {
		return Outcome{}, fmt.Errorf("%w: the %q batch action is not defined", ErrConfiguration, sel.Action)
	}
	handler, ok := d.batch[sel.Action]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: a %s handler must be registered for the %q batch action",
			ErrConfiguration, HandlerName(sel.Action), sel.Action)
	}

	grid, err := s.Admin.Datagrid(ctx, s)
	if err != nil {
		return Outcome{}, err
	}
	if err := grid.BuildPager(ctx); err != nil {
		return Outcome{}, err
	}
	query := grid.Query()
	query.SetFirstResult(nil)
	query.SetMaxResults(nil)

	if len(sel.IDs) > 0 {
		if err := s.Admin.ModelManager().AddIdentifiersToQuery(s.Admin.Class(), query, sel.IDs); err != nil {
			return Outcome{}, err
		}
	}

	zap.S().Infof("admin %s: batch %s over %d selected (all=%v)", s.Code(), sel.Action, len(sel.IDs), sel.AllElements)
	return handler(ctx, s, query)
}

func (d *Dispatcher) batchActionDelete(ctx context.Context, s *Scope, q Query) (Outcome, error) {
	if err := d.Grant(ctx, s, PermissionDelete); err != nil {
		return Outcome{}, err
	}
	if err := s.Admin.ModelManager().BatchDelete(ctx, s.Admin.Class(), q); err != nil {
		return Outcome{}, err
	}
	s.Request.SetFlash(FlashSuccess, FlashBatchDeleteSuccess)
	return Redirect(s.URL(RouteList)), nil
}
