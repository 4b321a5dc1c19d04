package bot

import (
	"context"
	"fmt"
	"strings"

	"posterbot/internal/fanout"
	"posterbot/internal/render"
	logx "posterbot/pkg/logx"
)

// handleBroadcast fans the text after /broadcast out to every registered
// user. Recipients who blocked the bot or deleted their account are dropped
// from the roster as the run discovers them.
func (r *Router) handleBroadcast(ctx context.Context, req *Request) error {
	// Everything after the command token, newlines preserved.
	text := ""
	if i := strings.IndexAny(req.Text, " \n"); i >= 0 {
		text = strings.TrimSpace(req.Text[i:])
	}
	if text == "" {
		return r.replyText(ctx, req, "<b>⚠️ Usage:</b> <code>/broadcast [message]</code>")
	}

	users, err := r.store.AllUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	if len(users) == 0 {
		return r.replyText(ctx, req, render.BroadcastNone)
	}

	status, err := r.adapter.SendText(ctx, req.Chat,
		fmt.Sprintf("<b>📣 Broadcasting to %d user(s)...</b>", len(users)), render.HTMLOptions())
	if err != nil {
		return err
	}

	payload := fanout.Payload{Text: text, Options: render.HTMLOptions()}
	job := r.disp.Broadcast(ctx, payload, users, fanout.BroadcastOptions{
		OnProgress: func(j fanout.Job) {
			if err := r.adapter.EditText(ctx, status, render.BroadcastProgress(j), render.HTMLOptions()); err != nil {
				r.log.Debug("broadcast progress edit failed", logx.Err(err))
			}
		},
		OnGone: func(recipient int64) {
			if err := r.store.DeleteUser(ctx, recipient); err != nil {
				r.log.Warn("failed removing unreachable user",
					logx.Int64("user", recipient), logx.Err(err))
			} else {
				r.log.Info("removed unreachable user", logx.Int64("user", recipient))
			}
		},
	})

	return r.adapter.EditText(ctx, status, render.BroadcastSummary(job), render.HTMLOptions())
}
