package bot

import (
	"context"
	"fmt"
	"strconv"

	"posterbot/internal/render"
)

// argID parses the single numeric-id argument the moderation commands take.
func argID(req *Request) (int64, bool) {
	if len(req.Args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(req.Args[0], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func (r *Router) handleBan(ctx context.Context, req *Request) error {
	id, ok := argID(req)
	if !ok {
		return r.replyText(ctx, req, render.ErrInvalidID)
	}
	if id == r.ownerID {
		return r.replyText(ctx, req, "<b>⚠️ The owner cannot be banned.</b>")
	}
	changed, err := r.store.BanUser(ctx, id)
	if err != nil {
		return fmt.Errorf("ban %d: %w", id, err)
	}
	if !changed {
		return r.replyText(ctx, req, fmt.Sprintf("<b>User <code>%d</code> is already banned.</b>", id))
	}
	return r.replyText(ctx, req, fmt.Sprintf("<b>🚫 User <code>%d</code> banned.</b>", id))
}

func (r *Router) handleUnban(ctx context.Context, req *Request) error {
	id, ok := argID(req)
	if !ok {
		return r.replyText(ctx, req, render.ErrInvalidID)
	}
	changed, err := r.store.UnbanUser(ctx, id)
	if err != nil {
		return fmt.Errorf("unban %d: %w", id, err)
	}
	if !changed {
		return r.replyText(ctx, req, fmt.Sprintf("<b>User <code>%d</code> is not banned.</b>", id))
	}
	return r.replyText(ctx, req, fmt.Sprintf("<b>✅ User <code>%d</code> unbanned.</b>", id))
}

func (r *Router) handleAddAdmin(ctx context.Context, req *Request) error {
	id, ok := argID(req)
	if !ok {
		return r.replyText(ctx, req, render.ErrInvalidID)
	}
	changed, err := r.store.AddAdmin(ctx, id)
	if err != nil {
		return fmt.Errorf("add admin %d: %w", id, err)
	}
	if !changed {
		return r.replyText(ctx, req, fmt.Sprintf("<b>User <code>%d</code> is already an admin.</b>", id))
	}
	return r.replyText(ctx, req, fmt.Sprintf("<b>🛡 User <code>%d</code> is now an admin.</b>", id))
}

func (r *Router) handleRemoveAdmin(ctx context.Context, req *Request) error {
	id, ok := argID(req)
	if !ok {
		return r.replyText(ctx, req, render.ErrInvalidID)
	}
	changed, err := r.store.RemoveAdmin(ctx, id)
	if err != nil {
		return fmt.Errorf("remove admin %d: %w", id, err)
	}
	if !changed {
		return r.replyText(ctx, req, fmt.Sprintf("<b>User <code>%d</code> is not an admin.</b>", id))
	}
	return r.replyText(ctx, req, fmt.Sprintf("<b>✅ User <code>%d</code> removed from admins.</b>", id))
}

func (r *Router) handleAdminList(ctx context.Context, req *Request) error {
	admins, err := r.store.AllAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	return r.replyText(ctx, req, render.AdminList(r.ownerID, admins))
}
