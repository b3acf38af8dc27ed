package admins

import (
	"context"
	"time"

	"github.com/ZJUSCT/backoffice/internal/crud"
)

// BanDuration is how long the ban batch action bans users for.
const BanDuration = 30 * 24 * time.Hour

type publisher interface {
	Publish(ctx context.Context, action, objectID string, count int64)
}

// RegisterBatchActions binds the batch actions the admins offer beyond delete.
func RegisterBatchActions(d *crud.Dispatcher) {
	d.RegisterBatchAction("ban", updateAction(d, "ban", func() map[string]any {
		return map[string]any{
			"banned_until": time.Now().Add(BanDuration),
			"ban_reason":   "Banned from the backoffice.",
		}
	}))
	d.RegisterBatchAction("unban", updateAction(d, "unban", func() map[string]any {
		return map[string]any{"banned_until": nil, "ban_reason": ""}
	}))
	d.RegisterBatchAction("publish", updateAction(d, "publish", func() map[string]any {
		return map[string]any{"published": true}
	}))
	d.RegisterBatchAction("unpublish", updateAction(d, "unpublish", func() map[string]any {
		return map[string]any{"published": false}
	}))
}

// updateAction sets the same columns on every selected object.
func updateAction(d *crud.Dispatcher, action string, values func() map[string]any) crud.BatchHandler {
	return func(ctx context.Context, s *crud.Scope, q crud.Query) (crud.Outcome, error) {
		if err := d.Grant(ctx, s, crud.PermissionEdit); err != nil {
			return crud.Outcome{}, err
		}
		if err := s.Admin.ModelManager().BatchUpdate(ctx, s.Admin.Class(), q, values()); err != nil {
			return crud.Outcome{}, err
		}
		if p, ok := s.Admin.(publisher); ok {
			p.Publish(ctx, action, "", 0)
		}
		s.Request.SetFlash(crud.FlashSuccess, crud.FlashBatchSuccess)
		return crud.Redirect(s.URL(crud.RouteList)), nil
	}
}
