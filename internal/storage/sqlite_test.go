package storage

import (
	"context"
	"path/filepath"
	"testing"

	logx "posterbot/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestAddUserIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	isNew, err := st.AddUser(ctx, User{ID: 100, Username: "ana", FirstName: "Ana"})
	if err != nil || !isNew {
		t.Fatalf("first AddUser = (%v, %v), want (true, nil)", isNew, err)
	}
	isNew, err = st.AddUser(ctx, User{ID: 100, Username: "ana"})
	if err != nil || isNew {
		t.Fatalf("second AddUser = (%v, %v), want (false, nil)", isNew, err)
	}

	users, err := st.AllUsers(ctx)
	if err != nil {
		t.Fatalf("AllUsers: %v", err)
	}
	if len(users) != 1 || users[0] != 100 {
		t.Fatalf("users = %v, want [100]", users)
	}

	if err := st.DeleteUser(ctx, 100); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if n, _ := st.UserCount(ctx); n != 0 {
		t.Fatalf("UserCount after delete = %d", n)
	}
}

func TestAdminRoundtrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if ok, _ := st.IsAdmin(ctx, 200); ok {
		t.Fatal("fresh store reports an admin")
	}
	if changed, err := st.AddAdmin(ctx, 200); err != nil || !changed {
		t.Fatalf("AddAdmin = (%v, %v)", changed, err)
	}
	if changed, _ := st.AddAdmin(ctx, 200); changed {
		t.Fatal("re-adding an admin reported a change")
	}
	if ok, _ := st.IsAdmin(ctx, 200); !ok {
		t.Fatal("IsAdmin false after AddAdmin")
	}
	if changed, _ := st.RemoveAdmin(ctx, 200); !changed {
		t.Fatal("RemoveAdmin reported no change")
	}
	if changed, _ := st.RemoveAdmin(ctx, 200); changed {
		t.Fatal("removing a missing admin reported a change")
	}
}

func TestBanRoundtrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if changed, err := st.BanUser(ctx, 300); err != nil || !changed {
		t.Fatalf("BanUser = (%v, %v)", changed, err)
	}
	if banned, _ := st.IsBanned(ctx, 300); !banned {
		t.Fatal("IsBanned false after ban")
	}
	if n, _ := st.BannedCount(ctx); n != 1 {
		t.Fatalf("BannedCount = %d, want 1", n)
	}
	if changed, _ := st.UnbanUser(ctx, 300); !changed {
		t.Fatal("UnbanUser reported no change")
	}
	if banned, _ := st.IsBanned(ctx, 300); banned {
		t.Fatal("still banned after unban")
	}
}

func TestSettingsDefaultsAndRoundtrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	s, err := st.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if s.ChannelID != 0 || s.AutoPostEnabled || s.CheckInterval != 6 {
		t.Fatalf("defaults = %+v, want channel=0 disabled interval=6", s)
	}

	if err := st.SetChannel(ctx, -1001234567890); err != nil {
		t.Fatalf("SetChannel: %v", err)
	}
	if err := st.SetAutoPost(ctx, true); err != nil {
		t.Fatalf("SetAutoPost: %v", err)
	}
	if err := st.SetCheckInterval(ctx, 12); err != nil {
		t.Fatalf("SetCheckInterval: %v", err)
	}
	if err := st.SetCheckInterval(ctx, 0); err == nil {
		t.Fatal("SetCheckInterval(0) must be rejected")
	}

	s, err = st.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if s.ChannelID != -1001234567890 || !s.AutoPostEnabled || s.CheckInterval != 12 {
		t.Fatalf("settings = %+v", s)
	}
}

func TestMarkPostedInsertIfAbsent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if posted, _ := st.IsPosted(ctx, "tmdb:42"); posted {
		t.Fatal("fresh key already posted")
	}
	inserted, err := st.MarkPosted(ctx, "tmdb:42", "Movie A")
	if err != nil || !inserted {
		t.Fatalf("first MarkPosted = (%v, %v), want (true, nil)", inserted, err)
	}
	inserted, err = st.MarkPosted(ctx, "tmdb:42", "Movie A")
	if err != nil || inserted {
		t.Fatalf("second MarkPosted = (%v, %v), want (false, nil)", inserted, err)
	}
	if posted, _ := st.IsPosted(ctx, "tmdb:42"); !posted {
		t.Fatal("IsPosted false after mark")
	}
	if n, _ := st.PostedCount(ctx); n != 1 {
		t.Fatalf("PostedCount = %d, want exactly 1 row", n)
	}

	if _, err := st.MarkPosted(ctx, "", "nameless"); err == nil {
		t.Fatal("empty content key must be rejected")
	}
}

func TestLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	ctx := context.Background()

	st, err := Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := st.MarkPosted(ctx, "omdb:tt1375666", "Inception"); err != nil {
		t.Fatalf("MarkPosted: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	if posted, _ := st.IsPosted(ctx, "omdb:tt1375666"); !posted {
		t.Fatal("ledger row lost across reopen")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "postgres", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver must be rejected")
	}
}
