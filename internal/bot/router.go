// Package bot routes incoming chat updates to handlers: free-text search,
// numeric selections, inline-button callbacks and the admin/owner commands.
package bot

import (
	"context"
	"strconv"
	"strings"

	"posterbot/internal/fanout"
	"posterbot/internal/provider"
	"posterbot/internal/scanner"
	"posterbot/internal/session"
	"posterbot/internal/storage"
	kit "posterbot/internal/transport"
	logx "posterbot/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// Request carries one update through the middleware chain.
type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Command string   // "" for free text
	Args    []string // tokens after the command
	Text    string   // full message text
}

type Router struct {
	adapter  kit.Adapter
	store    storage.Store
	agg      *provider.Aggregator
	sessions *session.Store
	disp     *fanout.Dispatcher
	scan     *scanner.Scanner
	ownerID  int64
	log      logx.Logger

	commands map[string]HandlerFunc
}

func NewRouter(
	adapter kit.Adapter,
	store storage.Store,
	agg *provider.Aggregator,
	sessions *session.Store,
	disp *fanout.Dispatcher,
	scan *scanner.Scanner,
	ownerID int64,
	log logx.Logger,
) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Router{
		adapter:  adapter,
		store:    store,
		agg:      agg,
		sessions: sessions,
		disp:     disp,
		scan:     scan,
		ownerID:  ownerID,
		log:      log,
	}
	r.commands = map[string]HandlerFunc{
		"start":       r.handleStart,
		"help":        r.handleHelp,
		"settings":    Chain(r.handleSettings, r.mwAdminOnly()),
		"stats":       Chain(r.handleStats, r.mwAdminOnly()),
		"admins":      Chain(r.handleAdminList, r.mwAdminOnly()),
		"ban":         Chain(r.handleBan, r.mwOwnerOnly()),
		"unban":       Chain(r.handleUnban, r.mwOwnerOnly()),
		"addadmin":    Chain(r.handleAddAdmin, r.mwOwnerOnly()),
		"removeadmin": Chain(r.handleRemoveAdmin, r.mwOwnerOnly()),
		"setchannel":  Chain(r.handleSetChannel, r.mwOwnerOnly()),
		"toggleauto":  Chain(r.handleToggleAuto, r.mwOwnerOnly()),
		"setinterval": Chain(r.handleSetInterval, r.mwOwnerOnly()),
		"post":        Chain(r.handleManualScan, r.mwOwnerOnly()),
		"broadcast":   Chain(r.handleBroadcast, r.mwOwnerOnly()),
	}
	return r
}

// Run consumes updates until ctx is done. Each update is handled in its own
// goroutine so a slow provider call cannot stall the poll loop.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-updates:
			if !ok {
				return
			}
			go r.dispatch(ctx, up)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, up kit.Update) {
	req := buildRequest(up)
	if req == nil {
		return
	}

	h := r.route(req)
	if h == nil {
		return
	}
	h = Chain(h, r.mwRecover(), r.mwRequestLog(), r.mwBanGate())
	if err := h(ctx, req); err != nil {
		r.log.Warn("handler error",
			logx.String("cmd", req.Command),
			logx.Int64("from", req.FromID),
			logx.Err(err))
	}
}

func (r *Router) route(req *Request) HandlerFunc {
	if req.Update.Kind == kit.UpdateCallback {
		return r.handleCallback
	}
	if req.Command != "" {
		return r.commands[req.Command] // nil for unknown commands: ignored
	}
	// Free text in private chats: numeric is a selection, anything else a
	// search. Groups are out of scope for the interactive flow.
	if req.Update.Message != nil && req.Update.Message.IsGroup {
		return nil
	}
	if _, err := strconv.Atoi(strings.TrimSpace(req.Text)); err == nil {
		return r.handleSelection
	}
	if len(strings.TrimSpace(req.Text)) < 2 {
		return nil
	}
	return r.handleSearch
}

func buildRequest(up kit.Update) *Request {
	switch up.Kind {
	case kit.UpdateMessage:
		m := up.Message
		if m == nil {
			return nil
		}
		req := &Request{
			Update: up,
			Chat:   kit.ChatTarget{ChatID: m.ChatID},
			FromID: m.FromID,
			Text:   m.Text,
		}
		if strings.HasPrefix(m.Text, "/") {
			fields := strings.Fields(m.Text)
			cmd := strings.TrimPrefix(fields[0], "/")
			// Strip the @botname suffix Telegram appends in groups.
			if i := strings.IndexByte(cmd, '@'); i >= 0 {
				cmd = cmd[:i]
			}
			req.Command = strings.ToLower(cmd)
			req.Args = fields[1:]
		}
		return req
	case kit.UpdateCallback:
		cb := up.Callback
		if cb == nil {
			return nil
		}
		return &Request{
			Update: up,
			Chat:   kit.ChatTarget{ChatID: cb.ChatID},
			FromID: cb.FromID,
			Text:   cb.Data,
		}
	default:
		return nil
	}
}
