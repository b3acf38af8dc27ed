// Package admin implements crud.Admin generically over gorm models.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/ZJUSCT/backoffice/internal/auth"
	"github.com/ZJUSCT/backoffice/internal/crud"
	"github.com/ZJUSCT/backoffice/internal/pubsub"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPrefix is where admin routes are mounted.
const DefaultPrefix = "/admin"

// Deps are the services shared by every admin.
type Deps struct {
	DB      *gorm.DB
	Policy  *auth.Policy
	Broker  *pubsub.Broker
	PerPage int
	Prefix  string
}

// Config declares one admin over model T.
type Config[T any] struct {
	Code  string
	Label string
	Class string
	// Path is the route segment of the admin, under its parent when it has one.
	Path string

	Parent       crud.Admin
	ParentColumn string

	FormFields []Field
	ListFields []Field
	ShowFields []Field
	Filters    []Filter
	OrderBy    string

	// BatchActions are offered in addition to delete.
	BatchActions map[string]crud.BatchActionDescriptor
	Templates    map[string]string

	// Init prepares a new instance, for example by linking it to the parent.
	Init func(s *crud.Scope, object *T)
	// Validate reports extra errors keyed by form parameter.
	Validate func(db *gorm.DB, object *T, creating bool) map[string]string
	// BeforeSave runs before every create and update.
	BeforeSave func(object *T, creating bool) error
}

// Route is one HTTP endpoint of an admin.
type Route struct {
	Name    string
	Methods []string
	Path    string
}

// Link is a labelled URL.
type Link struct {
	Label string
	URL   string
}

// ModelAdmin is a crud.Admin over the gorm model T.
type ModelAdmin[T any] struct {
	cfg      Config[T]
	deps     Deps
	fields   []Field
	list     []Field
	show     []Field
	children []crud.Admin
}

var _ crud.Admin = (*ModelAdmin[struct{ ID string }])(nil)

// New validates cfg against T and builds the admin.
func New[T any](deps Deps, cfg Config[T]) (*ModelAdmin[T], error) {
	if cfg.Code == "" || cfg.Path == "" {
		return nil, fmt.Errorf("admin for %T needs a code and a path", *new(T))
	}
	if cfg.Parent != nil && cfg.ParentColumn == "" {
		return nil, fmt.Errorf("child admin %s needs a parent column", cfg.Code)
	}
	if cfg.Parent != nil && cfg.Parent.IsChild() {
		return nil, fmt.Errorf("admin %s cannot nest under child admin %s", cfg.Code, cfg.Parent.Code())
	}
	t := reflect.TypeOf(*new(T))
	if cfg.Class == "" {
		cfg.Class = t.Name()
	}
	if cfg.Label == "" {
		cfg.Label = cfg.Class
	}
	if cfg.OrderBy == "" {
		cfg.OrderBy = "created_at desc"
	}
	if deps.PerPage <= 0 {
		deps.PerPage = 25
	}
	if deps.Prefix == "" {
		deps.Prefix = DefaultPrefix
	}

	a := &ModelAdmin[T]{cfg: cfg, deps: deps}
	var err error
	if a.fields, err = resolveFields(t, cfg.FormFields); err != nil {
		return nil, err
	}
	if a.list, err = resolveFields(t, cfg.ListFields); err != nil {
		return nil, err
	}
	if a.show, err = resolveFields(t, cfg.ShowFields); err != nil {
		return nil, err
	}
	if p, ok := cfg.Parent.(interface{ addChild(crud.Admin) }); ok {
		p.addChild(a)
	}
	return a, nil
}

func (a *ModelAdmin[T]) addChild(child crud.Admin) {
	a.children = append(a.children, child)
}

func (a *ModelAdmin[T]) Code() string  { return a.cfg.Code }
func (a *ModelAdmin[T]) Class() string { return a.cfg.Class }
func (a *ModelAdmin[T]) Label() string { return a.cfg.Label }

func (a *ModelAdmin[T]) IsChild() bool { return a.cfg.Parent != nil }

func (a *ModelAdmin[T]) Parent() crud.Admin { return a.cfg.Parent }

func (a *ModelAdmin[T]) IDParameter() string {
	if a.IsChild() {
		return "childId"
	}
	return "id"
}

func (a *ModelAdmin[T]) IsGranted(ctx context.Context, perm crud.Permission) bool {
	if a.deps.Policy == nil {
		return false
	}
	return a.deps.Policy.Granted(ctx, a.cfg.Code, string(perm))
}

func (a *ModelAdmin[T]) ListFields() []Field { return a.list }
func (a *ModelAdmin[T]) FormFields() []Field { return a.fields }

func (a *ModelAdmin[T]) ModelManager() crud.ModelManager { return ModelManager{} }

// query starts a query over T, limited to the parent object for child admins.
func (a *ModelAdmin[T]) query(s *crud.Scope) *Query {
	q := newQuery(a.deps.DB, new(T))
	if a.IsChild() {
		q.Where(a.cfg.ParentColumn+" = ?", s.ParentID())
	}
	return q
}

func (a *ModelAdmin[T]) Object(ctx context.Context, s *crud.Scope, id string) (any, error) {
	if id == "" {
		return nil, nil
	}
	obj := new(T)
	err := a.query(s).Build(ctx).Where("id = ?", id).First(obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", a.cfg.Class, id, err)
	}
	return obj, nil
}

func (a *ModelAdmin[T]) NewInstance(s *crud.Scope) any {
	obj := new(T)
	if a.cfg.Init != nil {
		a.cfg.Init(s, obj)
	}
	return obj
}

func (a *ModelAdmin[T]) Form(s *crud.Scope, object any) crud.Form {
	f := &Form[T]{admin: a, creating: a.NormalizedIdentifier(object) == ""}
	f.SetData(object)
	if f.object == nil {
		f.object = new(T)
	}
	return f
}

// paramOf maps a struct field name to its form parameter.
func (a *ModelAdmin[T]) paramOf(name string) string {
	for _, f := range a.fields {
		if f.Name == name {
			return f.param
		}
	}
	return FormError
}

func (a *ModelAdmin[T]) cast(object any) (*T, error) {
	o, ok := object.(*T)
	if !ok {
		return nil, fmt.Errorf("%s admin cannot handle %T", a.cfg.Code, object)
	}
	return o, nil
}

func (a *ModelAdmin[T]) Create(ctx context.Context, object any) error {
	o, err := a.cast(object)
	if err != nil {
		return err
	}
	if a.cfg.BeforeSave != nil {
		if err := a.cfg.BeforeSave(o, true); err != nil {
			return err
		}
	}
	if err := a.deps.DB.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("create %s: %w", a.cfg.Class, err)
	}
	a.Publish(ctx, "create", identifierOf(o), 1)
	return nil
}

func (a *ModelAdmin[T]) Update(ctx context.Context, object any) error {
	o, err := a.cast(object)
	if err != nil {
		return err
	}
	if a.cfg.BeforeSave != nil {
		if err := a.cfg.BeforeSave(o, false); err != nil {
			return err
		}
	}
	if err := a.deps.DB.WithContext(ctx).Omit(clause.Associations).Save(o).Error; err != nil {
		return fmt.Errorf("update %s: %w", a.cfg.Class, err)
	}
	a.Publish(ctx, "update", identifierOf(o), 1)
	return nil
}

func (a *ModelAdmin[T]) Delete(ctx context.Context, object any) error {
	o, err := a.cast(object)
	if err != nil {
		return err
	}
	if err := a.deps.DB.WithContext(ctx).Delete(o).Error; err != nil {
		return fmt.Errorf("delete %s: %w", a.cfg.Class, err)
	}
	a.Publish(ctx, "delete", identifierOf(o), 1)
	return nil
}

// Publish announces a mutation of this admin on the activity topic.
func (a *ModelAdmin[T]) Publish(ctx context.Context, action, objectID string, count int64) {
	if a.deps.Broker == nil {
		return
	}
	actor := ""
	if p, ok := auth.FromContext(ctx); ok {
		actor = p.Username
	}
	a.deps.Broker.PublishActivity(pubsub.Activity{
		Admin:    a.cfg.Code,
		Action:   action,
		ObjectID: objectID,
		Actor:    actor,
		Count:    count,
	})
}

func (a *ModelAdmin[T]) NormalizedIdentifier(object any) string {
	return identifierOf(object)
}

func (a *ModelAdmin[T]) Template(name string) string {
	if t, ok := a.cfg.Templates[name]; ok {
		return t
	}
	return "crud/" + name + ".html"
}

func (a *ModelAdmin[T]) ShowElements(s *crud.Scope, object any) []crud.Element {
	elements := make([]crud.Element, 0, len(a.show))
	for _, f := range a.show {
		var value any = FieldValue(object, f.Name)
		if f.Markdown {
			html, err := RenderMarkdown(value.(string))
			if err != nil {
				zap.S().Warnf("failed to render %s.%s as markdown: %v", a.cfg.Code, f.Name, err)
			} else {
				value = html
			}
		}
		elements = append(elements, crud.Element{Name: f.param, Label: f.Label, Value: value})
	}
	return elements
}

// ChildLinks links to the lists of the child admins of object.
func (a *ModelAdmin[T]) ChildLinks(s *crud.Scope, object any) []Link {
	links := make([]Link, 0, len(a.children))
	for _, child := range a.children {
		params := url.Values{}
		params.Set(a.IDParameter(), a.NormalizedIdentifier(object))
		links = append(links, Link{
			Label: child.Label(),
			URL:   child.GenerateURL(s, crud.RouteList, params),
		})
	}
	return links
}

func (a *ModelAdmin[T]) BatchActions() map[string]crud.BatchActionDescriptor {
	actions := map[string]crud.BatchActionDescriptor{
		"delete": {Label: "Delete", AskConfirmation: true},
	}
	for name, desc := range a.cfg.BatchActions {
		actions[name] = desc
	}
	return actions
}

func (a *ModelAdmin[T]) FilterParameters(s *crud.Scope) url.Values {
	params := url.Values{}
	for _, f := range a.cfg.Filters {
		if v := s.Request.Param(f.Param()); v != "" {
			params.Set(f.Param(), v)
		}
	}
	if v := s.Request.Param("per_page"); v != "" {
		params.Set("per_page", v)
	}
	return params
}

func (a *ModelAdmin[T]) Datagrid(ctx context.Context, s *crud.Scope) (crud.Datagrid, error) {
	q := a.query(s)
	q.Order(a.cfg.OrderBy)

	perPage := a.deps.PerPage
	if n := atoiOr(s.Request.Param("per_page"), 0); n > 0 && n <= 500 {
		perPage = n
	}
	page := atoiOr(s.Request.Param("page"), 1)
	if page < 1 {
		page = 1
	}
	return &Datagrid[T]{
		scope:   s,
		admin:   a,
		query:   q,
		values:  a.FilterParameters(s),
		page:    page,
		perPage: perPage,
	}, nil
}

// RoutePattern is the gin path of the admin's collection, without the prefix.
func (a *ModelAdmin[T]) RoutePattern() string {
	if p, ok := a.cfg.Parent.(interface{ RoutePattern() string }); ok {
		return p.RoutePattern() + "/:" + a.cfg.Parent.IDParameter() + "/" + a.cfg.Path
	}
	return "/" + a.cfg.Path
}

// Routes lists the endpoints of the admin, without the prefix.
func (a *ModelAdmin[T]) Routes() []Route {
	base := a.RoutePattern()
	item := base + "/:" + a.IDParameter()
	return []Route{
		{Name: crud.RouteList, Methods: []string{http.MethodGet}, Path: base + "/list"},
		{Name: crud.RouteCreate, Methods: []string{http.MethodGet, http.MethodPost}, Path: base + "/create"},
		{Name: crud.RouteBatch, Methods: []string{http.MethodGet, http.MethodPost}, Path: base + "/batch"},
		{Name: crud.RouteShow, Methods: []string{http.MethodGet}, Path: item + "/show"},
		{Name: crud.RouteEdit, Methods: []string{http.MethodGet, http.MethodPost}, Path: item + "/edit"},
		{Name: crud.RouteDelete, Methods: []string{http.MethodPost, http.MethodDelete}, Path: item + "/delete"},
	}
}

// GenerateURL fills the route's path parameters from params, falling back to
// the current request, and appends the remaining params as the query string.
func (a *ModelAdmin[T]) GenerateURL(s *crud.Scope, route string, params url.Values) string {
	var path string
	for _, r := range a.Routes() {
		if r.Name == route {
			path = r.Path
			break
		}
	}
	if path == "" {
		zap.S().Warnf("admin %s has no route %q", a.cfg.Code, route)
		return ""
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		name := seg[1:]
		v := query.Get(name)
		query.Del(name)
		if v == "" && s != nil && s.Request != nil {
			v = s.Request.Param(name)
		}
		segments[i] = url.PathEscape(v)
	}

	u := a.deps.Prefix + strings.Join(segments, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
