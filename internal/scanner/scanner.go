// Package scanner runs the periodic release scan: pull new items from the
// aggregator, drop everything already published, publish the rest to the
// configured channel and mark the ledger.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"posterbot/internal/fanout"
	"posterbot/internal/provider"
	"posterbot/internal/storage"
	logx "posterbot/pkg/logx"
)

// Catalog is the slice of the aggregator the scanner needs.
type Catalog interface {
	NewReleases(ctx context.Context) []provider.Record
}

// Ledger is the slice of the store the scanner needs: the auto-post settings
// gate and the posted-content ledger.
type Ledger interface {
	GetSettings(ctx context.Context) (storage.Settings, error)
	IsPosted(ctx context.Context, contentKey string) (bool, error)
	MarkPosted(ctx context.Context, contentKey, title string) (bool, error)
}

// Publisher delivers one payload to one recipient, applying the platform
// rate-limit policy.
type Publisher interface {
	Send(ctx context.Context, recipient int64, p fanout.Payload) error
}

// Caption renders the channel post for a release.
type Caption func(rec provider.Record) fanout.Payload

type Config struct {
	// PostDelay is the fixed pacing delay between successive channel posts.
	PostDelay time.Duration
}

// Report summarizes one scan pass.
type Report struct {
	Fetched   int
	Skipped   int // already posted or no poster
	Posted    int
	Failed    int
	Disabled  bool // auto-post off or no channel configured
	StartedAt time.Time
	Took      time.Duration
}

type Scanner struct {
	cfg     Config
	catalog Catalog
	ledger  Ledger
	pub     Publisher
	caption Caption
	log     logx.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	hours   int
	running bool
}

func New(cfg Config, catalog Catalog, ledger Ledger, pub Publisher, caption Caption, log logx.Logger) *Scanner {
	if cfg.PostDelay <= 0 {
		cfg.PostDelay = 3 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scanner{
		cfg:     cfg,
		catalog: catalog,
		ledger:  ledger,
		pub:     pub,
		caption: caption,
		log:     log,
	}
}

// Start registers the periodic scan using the persisted check interval and
// starts the cron loop. Safe to call once; use Reschedule for interval
// changes.
func (s *Scanner) Start(ctx context.Context) error {
	settings, err := s.ledger.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	hours := settings.CheckInterval
	if hours < 1 {
		hours = 6
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	s.cron = cron.New()
	s.hours = hours
	id, err := s.cron.AddFunc(everySpec(hours), func() { s.tick(ctx) })
	if err != nil {
		return err
	}
	s.entry = id
	s.cron.Start()
	s.log.Info("release scanner started", logx.Int("interval_hours", hours))
	return nil
}

func (s *Scanner) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
		s.log.Info("release scanner stopped")
	}
}

// Reschedule swaps the scan interval. No-op when the interval is unchanged
// or the scanner is not running.
func (s *Scanner) Reschedule(ctx context.Context, hours int) error {
	if hours < 1 {
		return fmt.Errorf("invalid interval: %d", hours)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil || hours == s.hours {
		return nil
	}
	s.cron.Remove(s.entry)
	id, err := s.cron.AddFunc(everySpec(hours), func() { s.tick(ctx) })
	if err != nil {
		return err
	}
	s.entry = id
	s.hours = hours
	s.log.Info("scan interval updated", logx.Int("interval_hours", hours))
	return nil
}

func (s *Scanner) tick(ctx context.Context) {
	if _, err := s.Trigger(ctx); err != nil {
		s.log.Error("scheduled scan failed", logx.Err(err))
	}
}

// Trigger runs one scan pass now, reusing the same path as the timer. Only
// one pass runs at a time; a tick overlapping a manual trigger is skipped.
func (s *Scanner) Trigger(ctx context.Context) (Report, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Report{}, fmt.Errorf("scan already in progress")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return s.runOnce(ctx)
}

// runOnce is the Idle -> Fetching -> Filtering -> Publishing -> Idle pass.
//
// Known weak point: the ledger is marked after a successful send, so a crash
// between the two can repost one item on the next pass (at-least-once).
// Marking before sending would instead lose items on transient send
// failures, which is worse for this domain.
func (s *Scanner) runOnce(ctx context.Context) (Report, error) {
	report := Report{StartedAt: time.Now()}
	defer func() { report.Took = time.Since(report.StartedAt) }()

	settings, err := s.ledger.GetSettings(ctx)
	if err != nil {
		return report, fmt.Errorf("load settings: %w", err)
	}
	if !settings.AutoPostEnabled {
		s.log.Info("auto-posting disabled, skipping scan")
		report.Disabled = true
		return report, nil
	}
	if settings.ChannelID == 0 {
		s.log.Info("no auto-post channel set, skipping scan")
		report.Disabled = true
		return report, nil
	}

	s.log.Info("fetching new releases")
	releases := s.catalog.NewReleases(ctx)
	report.Fetched = len(releases)
	if len(releases) == 0 {
		s.log.Info("no releases found or providers unavailable")
		return report, nil
	}

	for _, rec := range releases {
		if ctx.Err() != nil {
			break
		}

		key := rec.ContentKey()
		posted, err := s.ledger.IsPosted(ctx, key)
		if err != nil {
			s.log.Error("ledger lookup failed", logx.String("key", key), logx.Err(err))
			report.Failed++
			continue
		}
		if posted {
			report.Skipped++
			continue
		}
		// A record without visual media is not publishable.
		if rec.PosterURL == "" {
			report.Skipped++
			continue
		}

		if err := s.pub.Send(ctx, settings.ChannelID, s.caption(rec)); err != nil {
			// One failed item never aborts the scan.
			s.log.Error("publish failed", logx.String("title", rec.Title), logx.String("key", key), logx.Err(err))
			report.Failed++
		} else {
			inserted, err := s.ledger.MarkPosted(ctx, key, rec.Title)
			if err != nil {
				s.log.Error("ledger mark failed", logx.String("key", key), logx.Err(err))
			} else if !inserted {
				// Lost a race with another marker; the send already happened.
				s.log.Warn("release marked by someone else", logx.String("key", key))
			}
			report.Posted++
			s.log.Info("posted release", logx.String("title", rec.Title), logx.String("key", key))
		}

		// Pacing covers every delivery attempt, failed ones included.
		if err := sleepCtx(ctx, s.cfg.PostDelay); err != nil {
			break
		}
	}

	s.log.Info("scan complete",
		logx.Int("fetched", report.Fetched),
		logx.Int("posted", report.Posted),
		logx.Int("skipped", report.Skipped),
		logx.Int("failed", report.Failed))
	return report, nil
}

func everySpec(hours int) string {
	return fmt.Sprintf("@every %dh", hours)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
