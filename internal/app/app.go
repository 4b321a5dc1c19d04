// Package app assembles the bot: config, logging, storage, providers,
// transport, scanner and router, with ordered startup and shutdown.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"posterbot/internal/bot"
	"posterbot/internal/config"
	"posterbot/internal/fanout"
	"posterbot/internal/provider"
	"posterbot/internal/render"
	"posterbot/internal/scanner"
	"posterbot/internal/session"
	"posterbot/internal/storage"
	kit "posterbot/internal/transport"
	"posterbot/internal/transport/telegram"
	logx "posterbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	logs *logx.Service
	log  logx.Logger

	store    storage.Store
	agg      *provider.Aggregator
	sessions *session.Store
	adapter  kit.Adapter
	disp     *fanout.Dispatcher
	scan     *scanner.Scanner
	router   *bot.Router

	updates chan kit.Update

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	busyTimeout, err := config.ParseDuration("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	agg, err := provider.New(provider.Config{
		OMDbAPIKey: cfg.Providers.OMDbAPIKey,
		TMDbAPIKey: cfg.Providers.TMDbAPIKey,
	}, log.With(logx.String("comp", "provider")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	pollTimeout, err := config.ParseDuration("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	sessionTTL, err := config.ParseDuration("session.ttl", cfg.Session.TTL, 0)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	sessions := session.NewStore(sessionTTL, log.With(logx.String("comp", "session")))

	disp := fanout.New(fanout.Config{
		RatePerSec:    cfg.Broadcast.RatePerSec,
		ProgressEvery: cfg.Broadcast.ProgressEvery,
	}, adapter, log.With(logx.String("comp", "fanout")))

	postDelay, err := config.ParseDuration("scanner.post_delay", cfg.Scanner.PostDelay, 0)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	scan := scanner.New(scanner.Config{PostDelay: postDelay},
		agg, store, disp, render.AutoPost,
		log.With(logx.String("comp", "scanner")))

	router := bot.NewRouter(adapter, store, agg, sessions, disp, scan,
		cfg.Telegram.OwnerID, log.With(logx.String("comp", "bot")))

	return &App{
		cfgm:     cfgm,
		logs:     logSvc,
		log:      log.With(logx.String("comp", "app")),
		store:    store,
		agg:      agg,
		sessions: sessions,
		adapter:  adapter,
		disp:     disp,
		scan:     scan,
		router:   router,
		updates:  make(chan kit.Update, 256),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		cancel()
		return err
	}
	a.sessions.StartSweeper(runCtx)
	if err := a.scan.Start(runCtx); err != nil {
		cancel()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.router.Run(runCtx, a.updates)
	}()

	// Config hot reload: logging changes apply live, everything else needs a
	// restart.
	sub := a.cfgm.Subscribe(8)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.logs.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
				a.log.Info("logging config applied")
			}
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx); err != nil && runCtx.Err() == nil {
			a.log.Warn("config watcher exited", logx.Err(err))
		}
	}()

	a.log.Info("app started")
	return nil
}

// Stop unwinds in reverse dependency order; each step is bounded so a stuck
// component cannot stall the whole shutdown.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	a.scan.Stop()

	stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := a.adapter.Stop(stopCtx); err != nil {
		a.log.Warn("adapter stop error", logx.Err(err))
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-stopCtx.Done():
		a.log.Warn("background loops did not stop in time")
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close error", logx.Err(err))
	}

	a.log.Info("stopped")
	return a.logs.Close()
}
