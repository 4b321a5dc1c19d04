package render

import (
	"fmt"
	"strings"

	"posterbot/internal/fanout"
	"posterbot/internal/storage"
	kit "posterbot/internal/transport"
)

// HTMLOptions returns the send options every rendered text expects.
func HTMLOptions() *kit.SendOptions {
	return &kit.SendOptions{ParseMode: "HTML", DisablePreview: true}
}

const Help = `<b>📚 Commands</b>

<b>For everyone:</b>
• Send any movie/series title — search
• Reply with a number — pick a result
• /start — welcome and spotlight
• /help — this message

<b>Admins:</b>
• /settings — current bot settings
• /stats — usage statistics
• /admins — list admins

<b>Owner:</b>
• /broadcast [text] — message all users
• /setchannel [id] — set the auto-post channel
• /toggleauto — enable/disable auto-posting
• /setinterval [hours] — release scan interval
• /post — run a release scan now
• /ban /unban [id] — manage bans
• /addadmin /removeadmin [id] — manage admins`

const (
	NoResults     = "<b>❌ No results found!</b>\n<i>Try a different title.</i>"
	Searching     = "<b>🔍 Searching...</b>"
	ErrBanned     = "<b>🚫 You are banned from using this bot.</b>"
	ErrOwnerOnly  = "<b>⛔ This command is restricted to the owner.</b>"
	ErrAdminOnly  = "<b>⛔ This command is restricted to admins.</b>"
	ErrInvalidID  = "<b>⚠️ Invalid id!</b> <i>Expected a numeric id.</i>"
	ErrAPI        = "<b>❌ Could not fetch details. Try again later.</b>"
	ErrNoSession  = "<b>⚠️ No active search!</b>\n<i>Send a title first, then pick a number.</i>"
	ErrBadChoice  = "<b>⚠️ Invalid selection!</b>\n<i>Please choose a number from the list.</i>"
	ScanStarted   = "<b>🔄 Checking for new releases...</b>"
	ScanDisabled  = "<b>⚠️ Auto-posting is disabled or no channel is set.</b>\n<i>Use /setchannel and /toggleauto first.</i>"
	BroadcastNone = "<b>⚠️ No users to broadcast to!</b>"
)

func Settings(s storage.Settings) string {
	channel := "<i>not set</i>"
	if s.ChannelID != 0 {
		channel = fmt.Sprintf("<code>%d</code>", s.ChannelID)
	}
	status := "Disabled ❌"
	if s.AutoPostEnabled {
		status = "Enabled ✅"
	}
	var b strings.Builder
	b.WriteString("<b>⚙️ Settings</b>\n\n")
	fmt.Fprintf(&b, "<b>Channel:</b> %s\n", channel)
	fmt.Fprintf(&b, "<b>Auto-post:</b> %s\n", status)
	fmt.Fprintf(&b, "<b>Check interval:</b> every %d hour(s)", s.CheckInterval)
	return b.String()
}

func Stats(users, admins, banned, posted int) string {
	var b strings.Builder
	b.WriteString("<b>📊 Statistics</b>\n\n")
	fmt.Fprintf(&b, "<b>👥 Users:</b> %d\n", users)
	fmt.Fprintf(&b, "<b>🛡 Admins:</b> %d\n", admins)
	fmt.Fprintf(&b, "<b>🚫 Banned:</b> %d\n", banned)
	fmt.Fprintf(&b, "<b>📤 Posted releases:</b> %d", posted)
	return b.String()
}

func AdminList(ownerID int64, admins []int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>👑 Owner:</b> <code>%d</code>\n\n<b>Admins:</b>\n", ownerID)
	if len(admins) == 0 {
		b.WriteString("<i>No admins added yet.</i>")
	} else {
		for _, id := range admins {
			fmt.Fprintf(&b, "• <code>%d</code>\n", id)
		}
	}
	return b.String()
}

func BroadcastProgress(j fanout.Job) string {
	return fmt.Sprintf("<b>📣 Broadcasting...</b>\n\n<b>Sent:</b> %d\n<b>Failed:</b> %d\n<b>Total:</b> %d",
		j.Sent, j.Failed, j.Total)
}

func BroadcastSummary(j fanout.Job) string {
	return fmt.Sprintf("<b>✅ Broadcast complete!</b>\n\n<b>Sent:</b> %d\n<b>Failed:</b> %d\n<b>Total:</b> %d",
		j.Sent, j.Failed, j.Total)
}

func ScanSummary(posted, skipped, failed int) string {
	return fmt.Sprintf("<b>✅ Scan complete!</b>\n\n<b>Posted:</b> %d\n<b>Skipped:</b> %d\n<b>Failed:</b> %d",
		posted, skipped, failed)
}
