package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty, sqlite is assumed.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

type User struct {
	ID        int64
	Username  string
	FirstName string
	JoinedAt  time.Time
}

// Settings is the auto-post configuration persisted across restarts.
type Settings struct {
	ChannelID       int64
	AutoPostEnabled bool
	CheckInterval   int // hours between release scans
}

// PostedRecord is one ledger row: a content key that has been published.
type PostedRecord struct {
	ContentKey string
	Title      string
	PostedAt   time.Time
}

// Store is the persistence API used by the bot: the user roster, the
// admin/ban lists, auto-post settings and the posted-content ledger.
type Store interface {
	// Users. AddUser reports whether the user was newly registered.
	AddUser(ctx context.Context, u User) (bool, error)
	DeleteUser(ctx context.Context, id int64) error
	AllUsers(ctx context.Context) ([]int64, error)
	UserCount(ctx context.Context) (int, error)

	// Admins. Add/Remove report whether anything changed.
	AddAdmin(ctx context.Context, id int64) (bool, error)
	RemoveAdmin(ctx context.Context, id int64) (bool, error)
	IsAdmin(ctx context.Context, id int64) (bool, error)
	AllAdmins(ctx context.Context) ([]int64, error)
	AdminCount(ctx context.Context) (int, error)

	// Bans.
	BanUser(ctx context.Context, id int64) (bool, error)
	UnbanUser(ctx context.Context, id int64) (bool, error)
	IsBanned(ctx context.Context, id int64) (bool, error)
	BannedCount(ctx context.Context) (int, error)

	// Settings.
	GetSettings(ctx context.Context) (Settings, error)
	SetChannel(ctx context.Context, channelID int64) error
	SetAutoPost(ctx context.Context, enabled bool) error
	SetCheckInterval(ctx context.Context, hours int) error

	// Posted-content ledger. MarkPosted inserts if absent and reports
	// whether the row is new; marking the same key twice leaves one row.
	IsPosted(ctx context.Context, contentKey string) (bool, error)
	MarkPosted(ctx context.Context, contentKey, title string) (bool, error)
	PostedCount(ctx context.Context) (int, error)

	Close() error
}
