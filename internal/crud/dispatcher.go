// Package crud maps admin requests onto permission checks, object lookups,
// form lifecycles and batch handlers, and normalizes every result to an Outcome.
package crud

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Submit buttons recognized by the redirect policy.
const (
	ButtonUpdateAndList   = "btn_update_and_list"
	ButtonCreateAndList   = "btn_create_and_list"
	ButtonCreateAndCreate = "btn_create_and_create"
)

// Templates holds the base layouts a rendered page extends.
type Templates struct {
	Layout     string
	AjaxLayout string
}

// Dispatcher runs admin actions. It is safe for concurrent use once built;
// batch handlers must be registered before serving.
type Dispatcher struct {
	pool      Pool
	templates Templates
	batch     map[string]BatchHandler
}

// NewDispatcher creates a dispatcher over pool with the built-in delete batch handler.
func NewDispatcher(pool Pool, templates Templates) *Dispatcher {
	d := &Dispatcher{
		pool:      pool,
		templates: templates,
		batch:     make(map[string]BatchHandler),
	}
	d.RegisterBatchAction("delete", d.batchActionDelete)
	return d
}

// Contextualize resolves the admin the request addresses and binds it to the request.
func (d *Dispatcher) Contextualize(req *Request) (*Scope, error) {
	code := req.Param(ParamAdminCode)
	if code == "" {
		return nil, fmt.Errorf("%w: request has no %s parameter", ErrConfiguration, ParamAdminCode)
	}
	admin, ok := d.pool.Resolve(code)
	if !ok {
		zap.S().Errorf("unable to find the admin class related to the current request (%s)", code)
		return nil, fmt.Errorf("%w: no admin registered for code %q", ErrConfiguration, code)
	}

	s := &Scope{Request: req, Admin: admin, Root: admin}
	if admin.IsChild() {
		s.CurrentChild = true
		for s.Root.IsChild() && s.Root.Parent() != nil {
			s.Root = s.Root.Parent()
		}
	}
	return s, nil
}

// BaseTemplate selects the layout for the request; asynchronous requests get the bare one.
func (d *Dispatcher) BaseTemplate(req *Request) string {
	if req.IsXMLHTTPRequest() {
		return d.templates.AjaxLayout
	}
	return d.templates.Layout
}

// Grant fails with ErrPermissionDenied unless the scope's admin grants perm.
func (d *Dispatcher) Grant(ctx context.Context, s *Scope, perm Permission) error {
	if !s.Admin.IsGranted(ctx, perm) {
		return fmt.Errorf("%w: %s on %s", ErrPermissionDenied, perm, s.Code())
	}
	return nil
}

func (d *Dispatcher) lookup(ctx context.Context, s *Scope) (any, error) {
	id := s.ID()
	object, err := s.Admin.Object(ctx, s, id)
	if err != nil {
		return nil, err
	}
	if object == nil {
		return nil, fmt.Errorf("%w: unable to find %s with id %q", ErrNotFound, s.Admin.Class(), id)
	}
	return object, nil
}

// parent loads the object a child admin is nested under.
func (d *Dispatcher) parent(ctx context.Context, s *Scope) (any, error) {
	p := s.Admin.Parent()
	id := s.ParentID()
	ps := &Scope{Request: s.Request, Admin: p, Root: s.Root, CurrentChild: p.IsChild()}
	object, err := p.Object(ctx, ps, id)
	if err != nil {
		return nil, err
	}
	if object == nil {
		return nil, fmt.Errorf("%w: unable to find %s with id %q", ErrNotFound, p.Class(), id)
	}
	return object, nil
}

// List renders the admin's list view.
func (d *Dispatcher) List(ctx context.Context, req *Request) (Outcome, error) {
	s, err := d.Contextualize(req)
	if err != nil {
		return Outcome{}, err
	}
	if err := d.Grant(ctx, s, PermissionList); err != nil {
		return Outcome{}, err
	}

	grid, err := s.Admin.Datagrid(ctx, s)
	if err != nil {
		return Outcome{}, err
	}
	if err := grid.BuildPager(ctx); err != nil {
		return Outcome{}, err
	}
	results, err := grid.Results(ctx)
	if err != nil {
		return Outcome{}, err
	}

	return Render(s.Admin.Template(TemplateList), View{
		"action":        "list",
		"admin":         s,
		"base_template": d.BaseTemplate(req),
		"datagrid":      grid,
		"results":       results,
	}), nil
}

// Show renders one object. The identifier comes from the request.
func (d *Dispatcher) Show(ctx context.Context, req *Request) (Outcome, error) {
	s, err := d.Contextualize(req)
	if err != nil {
		return Outcome{}, err
	}
	if err := d.Grant(ctx, s, PermissionShow); err != nil {
		return Outcome{}, err
	}
	object, err := d.lookup(ctx, s)
	if err != nil {
		return Outcome{}, err
	}
	s.Subject = object

	return Render(s.Admin.Template(TemplateShow), View{
		"action":        "show",
		"object":        object,
		"elements":      s.Admin.ShowElements(s, object),
		"admin":         s,
		"base_template": d.BaseTemplate(req),
	}), nil
}

// Create shows and processes the creation form.
func (d *Dispatcher) Create(ctx context.Context, req *Request) (Outcome, error) {
	s, err := d.Contextualize(req)
	if err != nil {
		return Outcome{}, err
	}
	if err := d.Grant(ctx, s, PermissionCreate); err != nil {
		return Outcome{}, err
	}
	if s.CurrentChild {
		if _, err := d.parent(ctx, s); err != nil {
			return Outcome{}, err
		}
	}
	object := s.Admin.NewInstance(s)
	return d.formLifecycle(ctx, s, "create", object)
}

// Edit shows and processes the edition form of an existing object.
func (d *Dispatcher) Edit(ctx context.Context, req *Request) (Outcome, error) {
	s, err := d.Contextualize(req)
	if err != nil {
		return Outcome{}, err
	}
	if err := d.Grant(ctx, s, PermissionEdit); err != nil {
		return Outcome{}, err
	}
	object, err := d.lookup(ctx, s)
	if err != nil {
		return Outcome{}, err
	}
	return d.formLifecycle(ctx, s, "edit", object)
}

func (d *Dispatcher) formLifecycle(ctx context.Context, s *Scope, action string, object any) (Outcome, error) {
	req := s.Request
	s.Subject = object

	form := s.Admin.Form(s, object)
	form.SetData(object)

	if req.Method == http.MethodPost {
		form.Submit(req.Form)

		if form.IsValid() {
			persist, success := s.Admin.Update, FlashEditSuccess
			if action == "create" {
				persist, success = s.Admin.Create, FlashCreateSuccess
			}
			if err := persist(ctx, object); err != nil {
				return Outcome{}, err
			}
			req.SetFlash(FlashSuccess, success)

			id := s.Admin.NormalizedIdentifier(object)
			zap.S().Infof("admin %s: %s %s %s", s.Code(), action, s.Admin.Class(), id)
			if req.IsXMLHTTPRequest() {
				return JSON(map[string]any{"result": "ok", "objectId": id}, http.StatusOK), nil
			}
			return Redirect(d.redirectTo(s, object)), nil
		}

		if action == "create" {
			req.SetFlash(FlashError, FlashCreateError)
		} else {
			req.SetFlash(FlashError, FlashEditError)
		}
	}

	return Render(s.Admin.Template(TemplateEdit), View{
		"action":        action,
		"form":          form.CreateView(),
		"object":        object,
		"admin":         s,
		"base_template": d.BaseTemplate(req),
	}), nil
}

// redirectTo picks where a successful create or edit lands.
func (d *Dispatcher) redirectTo(s *Scope, object any) string {
	req := s.Request
	if req.Has(ButtonUpdateAndList) || req.Has(ButtonCreateAndList) {
		return s.URL(RouteList)
	}
	if req.Has(ButtonCreateAndCreate) {
		return s.URL(RouteCreate)
	}
	return s.ObjectURL(RouteEdit, object)
}

// Delete removes one object. There is no confirmation step.
func (d *Dispatcher) Delete(ctx context.Context, req *Request) (Outcome, error) {
	s, err := d.Contextualize(req)
	if err != nil {
		return Outcome{}, err
	}
	if err := d.Grant(ctx, s, PermissionDelete); err != nil {
		return Outcome{}, err
	}
	object, err := d.lookup(ctx, s)
	if err != nil {
		return Outcome{}, err
	}
	s.Subject = object

	if err := s.Admin.Delete(ctx, object); err != nil {
		return Outcome{}, err
	}
	zap.S().Infof("admin %s: deleted %s %s", s.Code(), s.Admin.Class(), s.Admin.NormalizedIdentifier(object))
	req.SetFlash(FlashSuccess, FlashDeleteSuccess)

	return Redirect(s.URL(RouteList)), nil
}
