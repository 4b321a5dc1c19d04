package bot

import (
	"context"
	"fmt"
	"strconv"

	"posterbot/internal/render"
)

func (r *Router) handleSettings(ctx context.Context, req *Request) error {
	settings, err := r.store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	return r.replyText(ctx, req, render.Settings(settings))
}

func (r *Router) handleStats(ctx context.Context, req *Request) error {
	users, err := r.store.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("user count: %w", err)
	}
	admins, err := r.store.AdminCount(ctx)
	if err != nil {
		return fmt.Errorf("admin count: %w", err)
	}
	banned, err := r.store.BannedCount(ctx)
	if err != nil {
		return fmt.Errorf("banned count: %w", err)
	}
	posted, err := r.store.PostedCount(ctx)
	if err != nil {
		return fmt.Errorf("posted count: %w", err)
	}
	return r.replyText(ctx, req, render.Stats(users, admins, banned, posted))
}

func (r *Router) handleSetChannel(ctx context.Context, req *Request) error {
	if len(req.Args) != 1 {
		return r.replyText(ctx, req, render.ErrInvalidID)
	}
	id, err := strconv.ParseInt(req.Args[0], 10, 64)
	if err != nil || id == 0 {
		return r.replyText(ctx, req, render.ErrInvalidID)
	}
	if err := r.store.SetChannel(ctx, id); err != nil {
		return fmt.Errorf("set channel: %w", err)
	}
	return r.replyText(ctx, req, fmt.Sprintf("<b>✅ Auto-post channel set to <code>%d</code>.</b>", id))
}

func (r *Router) handleToggleAuto(ctx context.Context, req *Request) error {
	settings, err := r.store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !settings.AutoPostEnabled && settings.ChannelID == 0 {
		return r.replyText(ctx, req, "<b>⚠️ Set a channel with /setchannel first.</b>")
	}
	enabled := !settings.AutoPostEnabled
	if err := r.store.SetAutoPost(ctx, enabled); err != nil {
		return fmt.Errorf("toggle auto-post: %w", err)
	}
	if enabled {
		return r.replyText(ctx, req, "<b>✅ Auto-posting enabled.</b>")
	}
	return r.replyText(ctx, req, "<b>❌ Auto-posting disabled.</b>")
}

func (r *Router) handleSetInterval(ctx context.Context, req *Request) error {
	if len(req.Args) != 1 {
		return r.replyText(ctx, req, "<b>⚠️ Usage:</b> <code>/setinterval [hours]</code>")
	}
	hours, err := strconv.Atoi(req.Args[0])
	if err != nil || hours < 1 || hours > 168 {
		return r.replyText(ctx, req, "<b>⚠️ Interval must be between 1 and 168 hours.</b>")
	}
	if err := r.store.SetCheckInterval(ctx, hours); err != nil {
		return fmt.Errorf("set interval: %w", err)
	}
	if err := r.scan.Reschedule(ctx, hours); err != nil {
		return fmt.Errorf("reschedule: %w", err)
	}
	return r.replyText(ctx, req, fmt.Sprintf("<b>✅ Release scans now run every %d hour(s).</b>", hours))
}

// handleManualScan runs one release scan immediately, same path as the timer.
func (r *Router) handleManualScan(ctx context.Context, req *Request) error {
	status, err := r.adapter.SendText(ctx, req.Chat, render.ScanStarted, render.HTMLOptions())
	if err != nil {
		return err
	}
	report, err := r.scan.Trigger(ctx)
	if err != nil {
		return r.adapter.EditText(ctx, status, fmt.Sprintf("<b>❌ Scan failed:</b> %v", err), render.HTMLOptions())
	}
	if report.Disabled {
		return r.adapter.EditText(ctx, status, render.ScanDisabled, render.HTMLOptions())
	}
	return r.adapter.EditText(ctx, status,
		render.ScanSummary(report.Posted, report.Skipped, report.Failed), render.HTMLOptions())
}
