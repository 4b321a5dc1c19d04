package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"posterbot/internal/render"
	logx "posterbot/pkg/logx"
)

func (r *Router) mwRecover() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if p := recover(); p != nil {
					r.log.Error("panic recovered",
						logx.Any("panic", p),
						logx.String("stack", string(debug.Stack())))
					err = fmt.Errorf("panic: %v", p)
				}
			}()
			return next(ctx, req)
		}
	}
}

func (r *Router) mwRequestLog() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			fields := []logx.Field{
				logx.String("kind", string(req.Update.Kind)),
				logx.Int64("from", req.FromID),
				logx.String("cmd", req.Command),
				logx.Duration("dur", time.Since(start)),
			}
			if err != nil {
				r.log.Warn("request failed", append(fields, logx.Err(err))...)
			} else {
				r.log.Debug("request ok", fields...)
			}
			return err
		}
	}
}

// mwBanGate drops every interaction from banned users.
func (r *Router) mwBanGate() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			banned, err := r.store.IsBanned(ctx, req.FromID)
			if err != nil {
				return fmt.Errorf("ban check: %w", err)
			}
			if banned {
				return r.replyText(ctx, req, render.ErrBanned)
			}
			return next(ctx, req)
		}
	}
}

func (r *Router) mwOwnerOnly() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if req.FromID != r.ownerID {
				return r.replyText(ctx, req, render.ErrOwnerOnly)
			}
			return next(ctx, req)
		}
	}
}

// mwAdminOnly admits the owner and anyone on the admin list.
func (r *Router) mwAdminOnly() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if req.FromID == r.ownerID {
				return next(ctx, req)
			}
			admin, err := r.store.IsAdmin(ctx, req.FromID)
			if err != nil {
				return fmt.Errorf("admin check: %w", err)
			}
			if !admin {
				return r.replyText(ctx, req, render.ErrAdminOnly)
			}
			return next(ctx, req)
		}
	}
}

func (r *Router) replyText(ctx context.Context, req *Request, text string) error {
	_, err := r.adapter.SendText(ctx, req.Chat, text, render.HTMLOptions())
	return err
}
