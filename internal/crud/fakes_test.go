package crud

import (
	"context"
	"net/url"
	"strings"
)

type fakeObject struct {
	ID   string
	Name string
}

type flashEntry struct {
	Category string
	Key      string
}

type fakeFlash struct {
	entries []flashEntry
}

func (f *fakeFlash) SetFlash(category, key string) {
	f.entries = append(f.entries, flashEntry{category, key})
}

type fakePool map[string]Admin

func (p fakePool) Resolve(code string) (Admin, bool) {
	a, ok := p[code]
	return a, ok
}

type fakeQuery struct {
	first, max *int
	ids        []string
}

func (q *fakeQuery) SetFirstResult(n *int) { q.first = n }
func (q *fakeQuery) SetMaxResults(n *int)  { q.max = n }

type fakeDatagrid struct {
	query *fakeQuery
	built bool
	rows  []any
}

func (g *fakeDatagrid) BuildPager(ctx context.Context) error {
	g.built = true
	first, max := 20, 20
	g.query.first, g.query.max = &first, &max
	return nil
}
func (g *fakeDatagrid) Query() Query                               { return g.query }
func (g *fakeDatagrid) Results(ctx context.Context) ([]any, error) { return g.rows, nil }

type fakeModelManager struct {
	narrowed     []string
	batchDeleted bool
	batchUpdated map[string]any
}

func (m *fakeModelManager) AddIdentifiersToQuery(class string, q Query, ids []string) error {
	m.narrowed = append(m.narrowed, ids...)
	q.(*fakeQuery).ids = ids
	return nil
}

func (m *fakeModelManager) BatchDelete(ctx context.Context, class string, q Query) error {
	m.batchDeleted = true
	return nil
}

func (m *fakeModelManager) BatchUpdate(ctx context.Context, class string, q Query, values map[string]any) error {
	m.batchUpdated = values
	return nil
}

type fakeForm struct {
	object    *fakeObject
	submitted bool
	values    url.Values
}

func (f *fakeForm) SetData(object any) { f.object = object.(*fakeObject) }

func (f *fakeForm) Submit(values url.Values) {
	f.submitted = true
	f.values = values
	f.object.Name = values.Get("name")
}

func (f *fakeForm) IsSubmitted() bool { return f.submitted }
func (f *fakeForm) IsValid() bool     { return f.submitted && strings.TrimSpace(f.values.Get("name")) != "" }

type fakeFormView struct {
	Submitted bool
	Name      string
}

func (f *fakeForm) CreateView() any {
	return fakeFormView{Submitted: f.submitted, Name: f.object.Name}
}

// fakeAdmin records every collaborator call so tests can assert what was touched.
type fakeAdmin struct {
	code    string
	denied  map[Permission]bool
	objects map[string]*fakeObject
	parent  Admin
	batch   map[string]BatchActionDescriptor
	grid    *fakeDatagrid
	mm      *fakeModelManager

	lookups  int
	forms    int
	created  []*fakeObject
	updated  []*fakeObject
	deleted  []*fakeObject
	lastForm *fakeForm
}

func newFakeAdmin(code string) *fakeAdmin {
	return &fakeAdmin{
		code:    code,
		denied:  map[Permission]bool{},
		objects: map[string]*fakeObject{"42": {ID: "42", Name: "answer"}},
		batch:   map[string]BatchActionDescriptor{"delete": {Label: "Delete"}},
		grid:    &fakeDatagrid{query: &fakeQuery{}},
		mm:      &fakeModelManager{},
	}
}

func (a *fakeAdmin) Code() string  { return a.code }
func (a *fakeAdmin) Class() string { return "fake" }
func (a *fakeAdmin) Label() string { return "Fakes" }

func (a *fakeAdmin) IsGranted(ctx context.Context, perm Permission) bool { return !a.denied[perm] }

func (a *fakeAdmin) Object(ctx context.Context, s *Scope, id string) (any, error) {
	a.lookups++
	if o, ok := a.objects[id]; ok {
		return o, nil
	}
	return nil, nil
}

func (a *fakeAdmin) NewInstance(s *Scope) any { return &fakeObject{} }

func (a *fakeAdmin) Form(s *Scope, object any) Form {
	a.forms++
	a.lastForm = &fakeForm{}
	return a.lastForm
}

func (a *fakeAdmin) Create(ctx context.Context, object any) error {
	o := object.(*fakeObject)
	o.ID = "new-1"
	a.created = append(a.created, o)
	return nil
}

func (a *fakeAdmin) Update(ctx context.Context, object any) error {
	a.updated = append(a.updated, object.(*fakeObject))
	return nil
}

func (a *fakeAdmin) Delete(ctx context.Context, object any) error {
	a.deleted = append(a.deleted, object.(*fakeObject))
	return nil
}

func (a *fakeAdmin) NormalizedIdentifier(object any) string { return object.(*fakeObject).ID }
func (a *fakeAdmin) IDParameter() string                     { return "id" }

func (a *fakeAdmin) GenerateURL(s *Scope, route string, params url.Values) string {
	u := "/admin/" + a.code + "/" + route
	if id := params.Get("id"); id != "" {
		u = "/admin/" + a.code + "/" + id + "/" + route
		params.Del("id")
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (a *fakeAdmin) Template(name string) string { return "fake/" + name + ".html" }

func (a *fakeAdmin) ShowElements(s *Scope, object any) []Element {
	return []Element{{Name: "name", Label: "Name", Value: object.(*fakeObject).Name}}
}

func (a *fakeAdmin) BatchActions() map[string]BatchActionDescriptor { return a.batch }

func (a *fakeAdmin) Datagrid(ctx context.Context, s *Scope) (Datagrid, error) { return a.grid, nil }

func (a *fakeAdmin) FilterParameters(s *Scope) url.Values {
	out := url.Values{}
	if v := s.Request.Param("filter_name"); v != "" {
		out.Set("filter_name", v)
	}
	return out
}

func (a *fakeAdmin) ModelManager() ModelManager { return a.mm }
func (a *fakeAdmin) IsChild() bool              { return a.parent != nil }
func (a *fakeAdmin) Parent() Admin              { return a.parent }

func (a *fakeAdmin) touchedPersistence() bool {
	return len(a.created)+len(a.updated)+len(a.deleted) > 0 || a.mm.batchDeleted
}

func newRequest(method, code string, params url.Values, form url.Values) (*Request, *fakeFlash) {
	if params == nil {
		params = url.Values{}
	}
	if form == nil {
		form = url.Values{}
	}
	params.Set(ParamAdminCode, code)
	flash := &fakeFlash{}
	return &Request{Method: method, Params: params, Form: form, Header: map[string][]string{}, Flash: flash}, flash
}
