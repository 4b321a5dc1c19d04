package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "posterbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return err
	}
	// Settings singleton row.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings(id, auto_post_channel, auto_post_enabled, check_interval)
		 VALUES(1, 0, 0, 6)
		 ON CONFLICT(id) DO NOTHING`)
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- Users ----

func (s *sqliteStore) AddUser(ctx context.Context, u User) (bool, error) {
	at := u.JoinedAt
	if at.IsZero() {
		at = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(user_id, username, first_name, joined_at) VALUES(?,?,?,?)
		 ON CONFLICT(user_id) DO NOTHING`,
		u.ID, nullStr(u.Username), nullStr(u.FirstName), at.Format(time.RFC3339Nano))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *sqliteStore) DeleteUser(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, id)
	return err
}

func (s *sqliteStore) AllUsers(ctx context.Context) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT user_id FROM users ORDER BY joined_at`)
}

func (s *sqliteStore) UserCount(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`)
}

// ---- Admins ----

func (s *sqliteStore) AddAdmin(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO admins(user_id, added_at) VALUES(?,?)
		 ON CONFLICT(user_id) DO NOTHING`,
		id, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *sqliteStore) RemoveAdmin(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *sqliteStore) IsAdmin(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM admins WHERE user_id = ?`, id)
}

func (s *sqliteStore) AllAdmins(ctx context.Context) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT user_id FROM admins ORDER BY added_at`)
}

func (s *sqliteStore) AdminCount(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM admins`)
}

// ---- Bans ----

func (s *sqliteStore) BanUser(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO banned_users(user_id, banned_at) VALUES(?,?)
		 ON CONFLICT(user_id) DO NOTHING`,
		id, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *sqliteStore) UnbanUser(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM banned_users WHERE user_id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *sqliteStore) IsBanned(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM banned_users WHERE user_id = ?`, id)
}

func (s *sqliteStore) BannedCount(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM banned_users`)
}

// ---- Settings ----

func (s *sqliteStore) GetSettings(ctx context.Context) (Settings, error) {
	var (
		out     Settings
		enabled int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT auto_post_channel, auto_post_enabled, check_interval FROM settings WHERE id = 1`).
		Scan(&out.ChannelID, &enabled, &out.CheckInterval)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{CheckInterval: 6}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	out.AutoPostEnabled = enabled != 0
	return out, nil
}

func (s *sqliteStore) SetChannel(ctx context.Context, channelID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE settings SET auto_post_channel = ? WHERE id = 1`, channelID)
	return err
}

func (s *sqliteStore) SetAutoPost(ctx context.Context, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	_, err := s.db.ExecContext(ctx, `UPDATE settings SET auto_post_enabled = ? WHERE id = 1`, v)
	return err
}

func (s *sqliteStore) SetCheckInterval(ctx context.Context, hours int) error {
	if hours < 1 {
		return errors.New("check interval must be at least 1 hour")
	}
	_, err := s.db.ExecContext(ctx, `UPDATE settings SET check_interval = ? WHERE id = 1`, hours)
	return err
}

// ---- Posted ledger ----

func (s *sqliteStore) IsPosted(ctx context.Context, contentKey string) (bool, error) {
	if contentKey == "" {
		return false, nil
	}
	return s.exists(ctx, `SELECT 1 FROM posted WHERE content_key = ?`, contentKey)
}

// MarkPosted is the atomic insert-if-absent primitive: the returned bool is
// true only for the writer that actually inserted the row, so concurrent
// markers of the same key cannot both claim it.
func (s *sqliteStore) MarkPosted(ctx context.Context, contentKey, title string) (bool, error) {
	if contentKey == "" {
		return false, errors.New("content key is empty")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posted(content_key, title, posted_at) VALUES(?,?,?)
		 ON CONFLICT(content_key) DO NOTHING`,
		contentKey, title, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *sqliteStore) PostedCount(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM posted`)
}

// ---- helpers ----

func (s *sqliteStore) queryIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *sqliteStore) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *sqliteStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
