// Package render builds the HTML texts sent to Telegram. All user- and
// provider-derived strings are escaped here; truncation of long plot text
// happens here too, at the delivery boundary.
package render

import (
	"fmt"
	"html"
	"strings"

	"posterbot/internal/fanout"
	"posterbot/internal/provider"
)

// overviewLimit caps plot/overview text in captions.
const overviewLimit = 500

func esc(s string) string { return html.EscapeString(s) }

func truncateOverview(s string) string {
	r := []rune(s)
	if len(r) <= overviewLimit {
		return s
	}
	return string(r[:overviewLimit-3]) + "..."
}

// SearchResults renders the numbered result list the selection indices
// refer to.
func SearchResults(query string, items []provider.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>🔍 Results for:</b> <i>%s</i>\n", esc(query))
	fmt.Fprintf(&b, "<b>Found %d result(s)</b>\n\n", len(items))
	for i, it := range items {
		fmt.Fprintf(&b, "<b>%d.</b> %s (%s)\n", i+1, esc(it.Title), esc(it.Year))
	}
	b.WriteString("\n<i>Reply with a number or tap a button to see details.</i>")
	return b.String()
}

// DetailCaption renders the full detail view for a selected record. The two
// providers expose different field sets, so the layouts differ.
func DetailCaption(rec provider.Record) string {
	if rec.Source == provider.SourceOMDb {
		return omdbCaption(rec)
	}
	return tmdbCaption(rec)
}

func omdbCaption(rec provider.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>🎬 %s (%s)</b>\n\n", esc(rec.Title), esc(rec.Year))
	fmt.Fprintf(&b, "<b>📅 Released:</b> %s\n", esc(rec.ReleaseDate))
	fmt.Fprintf(&b, "<b>⏱ Runtime:</b> %s\n", esc(rec.Runtime))
	fmt.Fprintf(&b, "<b>🎭 Genre:</b> %s\n", esc(rec.Genre))
	fmt.Fprintf(&b, "<b>🗣 Language:</b> %s\n", esc(rec.Language))
	fmt.Fprintf(&b, "<b>🏆 Awards:</b> %s\n", esc(rec.Awards))
	fmt.Fprintf(&b, "<b>🎥 Director:</b> %s\n", esc(rec.Director))
	fmt.Fprintf(&b, "<b>⭐ Cast:</b> %s\n\n", esc(rec.Actors))
	fmt.Fprintf(&b, "<b>📖 Plot:</b>\n<i>%s</i>\n\n", esc(truncateOverview(rec.Overview)))
	fmt.Fprintf(&b, "<b>⭐ IMDb:</b> %s | <b>💰 Box Office:</b> %s\n", esc(rec.Rating), esc(rec.BoxOffice))
	fmt.Fprintf(&b, "<code>%s</code>", esc(rec.ExternalID))
	return b.String()
}

func tmdbCaption(rec provider.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>🎬 %s (%s)</b>\n\n", esc(rec.Title), esc(rec.Year))
	fmt.Fprintf(&b, "<b>📅 Released:</b> %s\n", esc(rec.ReleaseDate))
	fmt.Fprintf(&b, "<b>⏱ Runtime:</b> %s\n", esc(rec.Runtime))
	fmt.Fprintf(&b, "<b>🎭 Genre:</b> %s\n", esc(rec.Genre))
	fmt.Fprintf(&b, "<b>🗣 Language:</b> %s\n\n", esc(rec.Language))
	fmt.Fprintf(&b, "<b>📖 Plot:</b>\n<i>%s</i>\n\n", esc(truncateOverview(rec.Overview)))
	fmt.Fprintf(&b, "<b>⭐ Rating:</b> %s\n", esc(rec.Rating))
	fmt.Fprintf(&b, "<b>💵 Budget:</b> %s | <b>💰 Revenue:</b> %s", esc(rec.Budget), esc(rec.Revenue))
	return b.String()
}

// AutoPost renders the channel post for a newly discovered release.
func AutoPost(rec provider.Record) fanout.Payload {
	kind := "MOVIE"
	if rec.Kind == provider.KindSeries {
		kind = "SERIES"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>🆕 New %s Release!</b>\n\n", kind)
	fmt.Fprintf(&b, "<b>🎬 %s</b>\n", esc(rec.Title))
	fmt.Fprintf(&b, "<b>📅 Release Date:</b> %s\n", esc(rec.ReleaseDate))
	fmt.Fprintf(&b, "<b>⭐ Rating:</b> %s\n\n", esc(rec.Rating))
	overview := rec.Overview
	if strings.TrimSpace(overview) == "" {
		overview = "No overview available."
	}
	fmt.Fprintf(&b, "<i>%s</i>", esc(truncateOverview(overview)))
	return fanout.Payload{
		Text:     b.String(),
		PhotoURL: rec.PosterURL,
		Options:  HTMLOptions(),
	}
}

// Spotlight renders the landing message, with or without a spotlight record.
func Spotlight(firstName string, rec *provider.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>👋 Hey %s!</b>\n\n", esc(firstName))
	b.WriteString("<b>I'm Poster Bot</b> — send me a movie or series title and I'll fetch its poster and details.\n\n")
	if rec != nil {
		fmt.Fprintf(&b, "<b>✨ Spotlight:</b> %s (%s) — ⭐ %s\n\n", esc(rec.Title), esc(rec.Year), esc(rec.Rating))
	}
	b.WriteString("<i>Type any title to get started, or /help for commands.</i>")
	return b.String()
}
