package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"posterbot/internal/provider"
	"posterbot/internal/render"
	"posterbot/internal/session"
	kit "posterbot/internal/transport"
	logx "posterbot/pkg/logx"
)

func (r *Router) handleSearch(ctx context.Context, req *Request) error {
	query := strings.TrimSpace(req.Text)

	status, err := r.adapter.SendText(ctx, req.Chat, render.Searching, render.HTMLOptions())
	if err != nil {
		return err
	}

	source, records := r.agg.Search(ctx, query)
	if len(records) == 0 {
		return r.adapter.EditText(ctx, status, render.NoResults, render.HTMLOptions())
	}

	sess := r.sessions.Start(req.FromID, query, source, records)

	opt := render.HTMLOptions()
	opt.ReplyMarkupAdapter = selectionKeyboard(len(sess.Items))
	return r.adapter.EditText(ctx, status, render.SearchResults(query, sess.Items), opt)
}

// handleSelection resolves a bare number against the user's current search
// session. Indices are 1-based, exactly as rendered in the result list.
func (r *Router) handleSelection(ctx context.Context, req *Request) error {
	index, err := strconv.Atoi(strings.TrimSpace(req.Text))
	if err != nil {
		return nil
	}
	rec, err := r.sessions.Resolve(req.FromID, index)
	switch {
	case errors.Is(err, session.ErrNoSession):
		return r.replyText(ctx, req, render.ErrNoSession)
	case errors.Is(err, session.ErrInvalidSelection):
		return r.replyText(ctx, req, render.ErrBadChoice)
	case err != nil:
		return err
	}
	return r.sendDetails(ctx, req, rec)
}

// handleCallback serves the inline selection buttons ("select_<n>", 1-based)
// and the "start" home button.
func (r *Router) handleCallback(ctx context.Context, req *Request) error {
	cb := req.Update.Callback
	data := strings.TrimSpace(cb.Data)

	if data == "start" {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "")
		return r.handleStart(ctx, req)
	}

	idx, ok := strings.CutPrefix(data, "select_")
	if !ok {
		return nil
	}
	index, err := strconv.Atoi(idx)
	if err != nil {
		return nil
	}

	rec, err := r.sessions.Resolve(req.FromID, index)
	switch {
	case errors.Is(err, session.ErrNoSession):
		return r.adapter.AnswerCallback(ctx, cb.ID, "Session expired, search again.")
	case errors.Is(err, session.ErrInvalidSelection):
		return r.adapter.AnswerCallback(ctx, cb.ID, "Invalid selection.")
	case err != nil:
		return err
	}
	_ = r.adapter.AnswerCallback(ctx, cb.ID, "")
	return r.sendDetails(ctx, req, rec)
}

// sendDetails fetches the full record from the session's pinned source and
// sends it with its poster, falling back to text when the poster is missing
// or rejected by Telegram.
func (r *Router) sendDetails(ctx context.Context, req *Request, rec provider.Record) error {
	full, err := r.agg.Details(ctx, rec.Source, rec.ExternalID)
	if errors.Is(err, provider.ErrNotFound) {
		return r.replyText(ctx, req, render.ErrAPI)
	}
	if err != nil {
		return err
	}

	caption := render.DetailCaption(*full)
	opt := render.HTMLOptions()
	opt.ReplyMarkupAdapter = detailKeyboard()

	if full.PosterURL != "" {
		if _, err := r.adapter.SendPhoto(ctx, req.Chat, full.PosterURL, caption, opt); err == nil {
			return nil
		} else if !errors.Is(err, kit.ErrRecipientGone) {
			r.log.Debug("poster send failed, falling back to text",
				logx.String("poster", full.PosterURL), logx.Err(err))
		}
	}
	_, err = r.adapter.SendText(ctx, req.Chat, caption, opt)
	return err
}

// selectionKeyboard builds rows of numbered buttons, five per row, with raw
// callback data "select_<n>" matching the 1-based list indices.
func selectionKeyboard(n int) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	var rows []tele.Row
	var row tele.Row
	for i := 1; i <= n; i++ {
		row = append(row, tele.Btn{Text: strconv.Itoa(i), Data: "select_" + strconv.Itoa(i)})
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rm.Inline(rows...)
	return rm
}

func detailKeyboard() *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	rm.Inline(tele.Row{tele.Btn{Text: "🏠 Home", Data: "start"}})
	return rm
}
