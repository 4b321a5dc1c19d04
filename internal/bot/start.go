package bot

import (
	"context"

	"posterbot/internal/render"
	"posterbot/internal/storage"
	logx "posterbot/pkg/logx"
)

// handleStart registers the user and sends the landing message, decorated
// with a spotlight pick when a provider can supply one.
func (r *Router) handleStart(ctx context.Context, req *Request) error {
	name := "there"
	user := storage.User{ID: req.FromID}
	if m := req.Update.Message; m != nil {
		user.Username = m.FromUsername
		user.FirstName = m.FromName
		if m.FromName != "" {
			name = m.FromName
		}
	}

	isNew, err := r.store.AddUser(ctx, user)
	if err != nil {
		r.log.Warn("user registration failed", logx.Int64("user", req.FromID), logx.Err(err))
	} else if isNew {
		r.log.Info("new user registered", logx.Int64("user", req.FromID))
	}

	spot := r.agg.Spotlight(ctx)
	text := render.Spotlight(name, spot)

	if spot != nil && spot.PosterURL != "" {
		if _, err := r.adapter.SendPhoto(ctx, req.Chat, spot.PosterURL, text, render.HTMLOptions()); err == nil {
			return nil
		}
	}
	return r.replyText(ctx, req, text)
}

func (r *Router) handleHelp(ctx context.Context, req *Request) error {
	return r.replyText(ctx, req, render.Help)
}
