package crud

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTemplates = Templates{Layout: "layout.html", AjaxLayout: "ajax_layout.html"}

func newTestDispatcher(admins ...*fakeAdmin) *Dispatcher {
	pool := fakePool{}
	for _, a := range admins {
		pool[a.code] = a
	}
	return NewDispatcher(pool, testTemplates)
}

func TestContextualize_MissingCode(t *testing.T) {
	d := newTestDispatcher(newFakeAdmin("post"))
	_, err := d.Contextualize(&Request{Method: http.MethodGet, Params: url.Values{}})
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestContextualize_UnknownCode(t *testing.T) {
	d := newTestDispatcher(newFakeAdmin("post"))
	req, _ := newRequest(http.MethodGet, "nope", nil, nil)
	_, err := d.Contextualize(req)
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "nope")
}

func TestContextualize_ChildWalksToRoot(t *testing.T) {
	root := newFakeAdmin("contest")
	mid := newFakeAdmin("round")
	mid.parent = root
	child := newFakeAdmin("announcement")
	child.parent = mid

	d := newTestDispatcher(root, mid, child)
	req, _ := newRequest(http.MethodGet, "announcement", url.Values{"id": {"7"}}, nil)
	s, err := d.Contextualize(req)
	require.NoError(t, err)

	assert.True(t, s.CurrentChild)
	assert.Same(t, child, s.Admin)
	assert.Same(t, root, s.Root)
	assert.Equal(t, "7", s.ParentID())
}

func TestPermissionDenied_TouchesNothing(t *testing.T) {
	actions := []struct {
		name string
		perm Permission
		run  func(d *Dispatcher, req *Request) (Outcome, error)
	}{
		{"list", PermissionList, func(d *Dispatcher, r *Request) (Outcome, error) { return d.List(context.Background(), r) }},
		{"show", PermissionShow, func(d *Dispatcher, r *Request) (Outcome, error) { return d.Show(context.Background(), r) }},
		{"create", PermissionCreate, func(d *Dispatcher, r *Request) (Outcome, error) { return d.Create(context.Background(), r) }},
		{"edit", PermissionEdit, func(d *Dispatcher, r *Request) (Outcome, error) { return d.Edit(context.Background(), r) }},
		{"delete", PermissionDelete, func(d *Dispatcher, r *Request) (Outcome, error) { return d.Delete(context.Background(), r) }},
	}

	for _, tc := range actions {
		t.Run(tc.name, func(t *testing.T) {
			a := newFakeAdmin("post")
			a.denied[tc.perm] = true
			d := newTestDispatcher(a)
			req, _ := newRequest(http.MethodPost, "post", url.Values{"id": {"42"}}, url.Values{"name": {"x"}})

			_, err := tc.run(d, req)
			require.ErrorIs(t, err, ErrPermissionDenied)
			assert.Zero(t, a.lookups)
			assert.Zero(t, a.forms)
			assert.False(t, a.grid.built)
			assert.False(t, a.touchedPersistence())
		})
	}
}

func TestLookupMiss_NotFoundWithoutPersistence(t *testing.T) {
	for _, name := range []string{"show", "edit", "delete"} {
		t.Run(name, func(t *testing.T) {
			a := newFakeAdmin("post")
			d := newTestDispatcher(a)
			req, _ := newRequest(http.MethodPost, "post", url.Values{"id": {"7"}}, url.Values{"name": {"x"}})

			var err error
			switch name {
			case "show":
				_, err = d.Show(context.Background(), req)
			case "edit":
				_, err = d.Edit(context.Background(), req)
			case "delete":
				_, err = d.Delete(context.Background(), req)
			}
			require.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, 1, a.lookups)
			assert.Zero(t, a.forms)
			assert.False(t, a.touchedPersistence())
		})
	}
}

func TestList_RendersWithLayout(t *testing.T) {
	a := newFakeAdmin("post")
	a.grid.rows = []any{&fakeObject{ID: "1"}}
	d := newTestDispatcher(a)
	req, _ := newRequest(http.MethodGet, "post", nil, nil)

	out, err := d.List(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, KindRender, out.Kind)
	assert.Equal(t, "fake/list.html", out.Template)
	assert.Equal(t, "layout.html", out.View["base_template"])
	assert.Len(t, out.View["results"], 1)

	s, ok := out.View["admin"].(*Scope)
	require.True(t, ok)
	assert.Same(t, a, s.Admin)
}

func TestBaseTemplate_Async(t *testing.T) {
	d := newTestDispatcher(newFakeAdmin("post"))

	req, _ := newRequest(http.MethodGet, "post", nil, nil)
	assert.Equal(t, "layout.html", d.BaseTemplate(req))

	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	assert.Equal(t, "ajax_layout.html", d.BaseTemplate(req))

	req, _ = newRequest(http.MethodGet, "post", url.Values{ParamXMLHTTPRequest: {"1"}}, nil)
	assert.Equal(t, "ajax_layout.html", d.BaseTemplate(req))

	req, _ = newRequest(http.MethodGet, "post", url.Values{ParamXMLHTTPRequest: {"0"}}, nil)
	assert.Equal(t, "layout.html", d.BaseTemplate(req))

	req, _ = newRequest(http.MethodGet, "post", nil, nil)
	req.Header.Set("HX-Request", "true")
	assert.Equal(t, "ajax_layout.html", d.BaseTemplate(req))
}

func TestShow_SetsSubjectAndElements(t *testing.T) {
	a := newFakeAdmin("post")
	d := newTestDispatcher(a)
	req, _ := newRequest(http.MethodGet, "post", url.Values{"id": {"42"}}, nil)

	out, err := d.Show(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "fake/show.html", out.Template)
	assert.Equal(t, a.objects["42"], out.View["object"])
	assert.Equal(t, a.objects["42"], out.View["admin"].(*Scope).Subject)

	elements := out.View["elements"].([]Element)
	require.Len(t, elements, 1)
	assert.Equal(t, "answer", elements[0].Value)
}

func TestEdit_GetRendersUnsubmittedForm(t *testing.T) {
	a := newFakeAdmin("post")
	d := newTestDispatcher(a)
	req, _ := newRequest(http.MethodGet, "post", url.Values{"id": {"42"}}, nil)

	out, err := d.Edit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, KindRender, out.Kind)
	assert.Equal(t, "fake/edit.html", out.Template)
	assert.Equal(t, fakeFormView{Submitted: false, Name: "answer"}, out.View["form"])
	assert.Equal(t, a.objects["42"], out.View["object"])
	assert.Equal(t, "layout.html", out.View["base_template"])
	assert.IsType(t, &Scope{}, out.View["admin"])
	assert.False(t, a.touchedPersistence())
}

func TestCreate_ValidDataOnGetDoesNotPersist(t *testing.T) {
	a := newFakeAdmin("post")
	d := newTestDispatcher(a)
	req, flash := newRequest(http.MethodGet, "post", nil, url.Values{"name": {"hello"}})

	out, err := d.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, KindRender, out.Kind)
	assert.False(t, a.lastForm.IsSubmitted())
	assert.False(t, a.touchedPersistence())
	assert.Empty(t, flash.entries)
}

func TestEdit_InvalidPostRetainsSubmittedValues(t *testing.T) {
	a := newFakeAdmin("post")
	d := newTestDispatcher(a)
	req, flash := newRequest(http.MethodPost, "post", url.Values{"id": {"42"}}, url.Values{"name": {"   "}})

	out, err := d.Edit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, KindRender, out.Kind)
	assert.Equal(t, fakeFormView{Submitted: true, Name: "   "}, out.View["form"])
	assert.False(t, a.touchedPersistence())
	assert.Equal(t, []flashEntry{{FlashError, FlashEditError}}, flash.entries)
}

func TestCreate_InvalidPostFlashesCreateError(t *testing.T) {
	a := newFakeAdmin("post")
	d := newTestDispatcher(a)
	req, flash := newRequest(http.MethodPost, "post", nil, url.Values{"name": {""}})

	_, err := d.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, a.created)
	assert.Equal(t, []flashEntry{{FlashError, FlashCreateError}}, flash.entries)
}

func TestCreate_AsyncValidReturnsJSON(t *testing.T) {
	a := newFakeAdmin("post")
	d := newTestDispatcher(a)
	req, flash := newRequest(http.MethodPost, "post", nil, url.Values{"name": {"hello"}})
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	out, err := d.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, KindJSON, out.Kind)
	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, map[string]any{"result": "ok", "objectId": "new-1"}, out.Payload)
	require.Len(t, a.created, 1)
	assert.Equal(t, "hello", a.created[0].Name)
	assert.Equal(t, []flashEntry{{FlashSuccess, FlashCreateSuccess}}, flash.entries)
}

func TestRedirectPolicy(t *testing.T) {
	cases := []struct {
		name    string
		buttons url.Values
		want    string
	}{
		{"default goes to edit", url.Values{}, "/admin/post/42/edit"},
		{"update and list", url.Values{ButtonUpdateAndList: {""}}, "/admin/post/list?filter_name=a"},
		{"create and create", url.Values{ButtonCreateAndCreate: {""}}, "/admin/post/create"},
		{"list wins over create", url.Values{ButtonCreateAndCreate: {""}, ButtonUpdateAndList: {""}}, "/admin/post/list?filter_name=a"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newFakeAdmin("post")
			d := newTestDispatcher(a)
			form := url.Values{"name": {"renamed"}}
			for k, v := range tc.buttons {
				form[k] = v
			}
			req, flash := newRequest(http.MethodPost, "post", url.Values{"id": {"42"}, "filter_name": {"a"}}, form)

			out, err := d.Edit(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, KindRedirect, out.Kind)
			assert.Equal(t, tc.want, out.URL)
			require.Len(t, a.updated, 1)
			assert.Equal(t, "renamed", a.updated[0].Name)
			assert.Equal(t, []flashEntry{{FlashSuccess, FlashEditSuccess}}, flash.entries)
		})
	}
}

func TestDelete_RemovesAndRedirectsToList(t *testing.T) {
	a := newFakeAdmin("post")
	d := newTestDispatcher(a)
	req, flash := newRequest(http.MethodPost, "post", url.Values{"id": {"42"}}, nil)

	out, err := d.Delete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, KindRedirect, out.Kind)
	assert.Equal(t, "/admin/post/list", out.URL)
	require.Len(t, a.deleted, 1)
	assert.Equal(t, "42", a.deleted[0].ID)
	assert.Equal(t, []flashEntry{{FlashSuccess, FlashDeleteSuccess}}, flash.entries)
}

func TestDelete_MissingObject(t *testing.T) {
	a := newFakeAdmin("post")
	d := newTestDispatcher(a)
	req, flash := newRequest(http.MethodPost, "post", url.Values{"id": {"7"}}, nil)

	_, err := d.Delete(context.Background(), req)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, a.deleted)
	assert.Empty(t, flash.entries)
}

func TestCreate_ChildRequiresParent(t *testing.T) {
	parent := newFakeAdmin("contest")
	child := newFakeAdmin("announcement")
	child.parent = parent
	d := newTestDispatcher(parent, child)

	req, flash := newRequest(http.MethodPost, "announcement", url.Values{"id": {"7"}}, url.Values{"name": {"x"}})
	_, err := d.Create(context.Background(), req)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, parent.lookups)
	assert.Zero(t, child.forms)
	assert.False(t, child.touchedPersistence())
	assert.Empty(t, flash.entries)

	req, _ = newRequest(http.MethodGet, "announcement", url.Values{"id": {"42"}}, nil)
	out, err := d.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, KindRender, out.Kind)
}
