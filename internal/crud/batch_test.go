package crud

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCamelize(t *testing.T) {
	assert.Equal(t, "Delete", Camelize("delete"))
	assert.Equal(t, "MarkAsRead", Camelize("mark_as-read"))
	assert.Equal(t, "batchActionSendReminder", HandlerName("send_reminder"))
}

func TestSelectionFrom(t *testing.T) {
	req, _ := newRequest(http.MethodPost, "post", nil, url.Values{
		"action":       {"delete"},
		"idx[]":        {"1", " 2 ", ""},
		"all_elements": {"0"},
	})
	sel := SelectionFrom(req)
	assert.Equal(t, "delete", sel.Action)
	assert.Equal(t, []string{"1", "2"}, sel.IDs)
	assert.False(t, sel.AllElements)
	assert.False(t, sel.Empty())

	req, _ = newRequest(http.MethodPost, "post", nil, url.Values{"action": {"delete"}, "all_elements": {"on"}})
	sel = SelectionFrom(req)
	assert.True(t, sel.AllElements)
	assert.False(t, sel.Empty())
}

func TestBatch_RequiresPost(t *testing.T) {
	d := newTestDispatcher(newFakeAdmin("post"))
	req, _ := newRequest(http.MethodGet, "post", nil, url.Values{"action": {"delete"}, "idx": {"1"}})

	_, err := d.Batch(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestBatch_EmptySelectionShortCircuits(t *testing.T) {
	a := newFakeAdmin("post")
	// Neither the registry nor a handler would accept this action.
	a.batch = nil
	d := newTestDispatcher(a)
	req, flash := newRequest(http.MethodPost, "post", url.Values{"filter_name": {"abc"}}, url.Values{"action": {"explode"}})

	out, err := d.Batch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, KindRedirect, out.Kind)
	assert.Equal(t, "/admin/post/list?filter_name=abc", out.URL)
	assert.Equal(t, []flashEntry{{FlashInfo, FlashBatchEmpty}}, flash.entries)
	assert.False(t, a.grid.built)
	assert.False(t, a.touchedPersistence())
}

func TestBatch_UnregisteredAction(t *testing.T) {
	a := newFakeAdmin("post")
	d := newTestDispatcher(a)
	req, _ := newRequest(http.MethodPost, "post", nil, url.Values{"action": {"archive"}, "idx": {"1"}})

	_, err := d.Batch(context.Background(), req)
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "archive")
	assert.False(t, a.grid.built)
}

func TestBatch_MissingHandler(t *testing.T) {
	a := newFakeAdmin("post")
	a.batch["send_reminder"] = BatchActionDescriptor{Label: "Send reminder"}
	d := newTestDispatcher(a)
	req, _ := newRequest(http.MethodPost, "post", nil, url.Values{"action": {"send_reminder"}, "idx": {"1"}})

	_, err := d.Batch(context.Background(), req)
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "batchActionSendReminder")
}

func TestBatch_DeleteSelection(t *testing.T) {
	a := newFakeAdmin("post")
	d := newTestDispatcher(a)
	req, flash := newRequest(http.MethodPost, "post", nil, url.Values{"action": {"delete"}, "idx": {"1", "2", "3"}})

	out, err := d.Batch(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, a.grid.built)
	assert.Nil(t, a.grid.query.first)
	assert.Nil(t, a.grid.query.max)
	assert.Equal(t, []string{"1", "2", "3"}, a.grid.query.ids)
	assert.True(t, a.mm.batchDeleted)
	assert.Equal(t, []flashEntry{{FlashSuccess, FlashBatchDeleteSuccess}}, flash.entries)
	assert.Equal(t, KindRedirect, out.Kind)
	assert.Equal(t, "/admin/post/list", out.URL)
}

func TestBatch_AllElementsKeepsQueryUnnarrowed(t *testing.T) {
	a := newFakeAdmin("post")
	d := newTestDispatcher(a)
	req, _ := newRequest(http.MethodPost, "post", nil, url.Values{"action": {"delete"}, "all_elements": {"1"}})

	_, err := d.Batch(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, a.mm.narrowed)
	assert.Nil(t, a.grid.query.ids)
	assert.Nil(t, a.grid.query.first)
	assert.True(t, a.mm.batchDeleted)
}

func TestBatch_DeleteDenied(t *testing.T) {
	a := newFakeAdmin("post")
	a.denied[PermissionDelete] = true
	d := newTestDispatcher(a)
	req, _ := newRequest(http.MethodPost, "post", nil, url.Values{"action": {"delete"}, "idx": {"1"}})

	_, err := d.Batch(context.Background(), req)
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.False(t, a.mm.batchDeleted)
}

func TestBatch_CustomHandlerOutcomeReturnedAsIs(t *testing.T) {
	a := newFakeAdmin("post")
	a.batch["publish"] = BatchActionDescriptor{Label: "Publish"}
	d := newTestDispatcher(a)

	var seen Query
	d.RegisterBatchAction("publish", func(ctx context.Context, s *Scope, q Query) (Outcome, error) {
		seen = q
		return JSON(map[string]any{"published": 2}, http.StatusAccepted), nil
	})

	req, _ := newRequest(http.MethodPost, "post", nil, url.Values{"action": {"publish"}, "idx": {"4", "5"}})
	out, err := d.Batch(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, a.grid.query, seen)
	assert.Equal(t, JSON(map[string]any{"published": 2}, http.StatusAccepted), out)
}
