// Package fanout delivers a payload to one or many recipients with
// rate-limit backoff and partial-failure accounting.
package fanout

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	kit "posterbot/internal/transport"
	logx "posterbot/pkg/logx"
)

type Outcome int

const (
	Sent Outcome = iota
	RateLimited
	TransientFailure
	PermanentFailure
)

func (o Outcome) String() string {
	switch o {
	case Sent:
		return "sent"
	case RateLimited:
		return "rate_limited"
	case TransientFailure:
		return "transient_failure"
	case PermanentFailure:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// Payload is one message to deliver. When PhotoURL is set the payload is
// sent as a photo with Text as its caption.
type Payload struct {
	Text     string
	PhotoURL string
	Options  *kit.SendOptions
}

// Result is the classified outcome of a single delivery attempt.
type Result struct {
	Outcome Outcome
	Wait    time.Duration // server-imposed wait, RateLimited only
	Err     error
}

type Config struct {
	// RatePerSec paces sends across recipients; applied regardless of
	// per-send outcome so a run stays under platform throughput limits.
	RatePerSec int
	// ProgressEvery is the batch size between OnProgress callbacks.
	ProgressEvery int
}

// Job accounts for one broadcast run.
//
// Invariant: Sent + Failed == Processed <= len(recipients), all counters
// monotonically non-decreasing while the run is live.
type Job struct {
	Total     int
	Sent      int
	Failed    int
	Processed int
	StartedAt time.Time
	DoneAt    time.Time
}

type BroadcastOptions struct {
	// OnProgress is called after every ProgressEvery recipients with a
	// snapshot of the running counters.
	OnProgress func(j Job)
	// OnGone is called for recipients that are permanently unreachable so
	// the roster owner can drop them.
	OnGone func(recipient int64)
}

// Dispatcher sends payloads through the chat adapter, classifying outcomes
// and pacing deliveries.
type Dispatcher struct {
	cfg     Config
	adapter kit.Adapter
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger) *Dispatcher {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 20
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 20
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		cfg:     cfg,
		adapter: adapter,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log,
	}
}

// DeliverOne performs a single delivery attempt and classifies the result.
// It never retries; retry policy belongs to the callers.
func (d *Dispatcher) DeliverOne(ctx context.Context, recipient int64, p Payload) Result {
	to := kit.ChatTarget{ChatID: recipient}
	var err error
	if p.PhotoURL != "" {
		_, err = d.adapter.SendPhoto(ctx, to, p.PhotoURL, p.Text, p.Options)
	} else {
		_, err = d.adapter.SendText(ctx, to, p.Text, p.Options)
	}
	return classify(err)
}

// Send delivers to a single recipient with the same rate-limit handling a
// broadcast applies: on RateLimited it waits the server-specified duration
// and retries exactly once.
func (d *Dispatcher) Send(ctx context.Context, recipient int64, p Payload) error {
	res := d.deliverWithRetry(ctx, recipient, p)
	return res.Err
}

func (d *Dispatcher) deliverWithRetry(ctx context.Context, recipient int64, p Payload) Result {
	res := d.DeliverOne(ctx, recipient, p)
	if res.Outcome != RateLimited {
		return res
	}

	d.log.Debug("rate limited, retrying once",
		logx.Int64("recipient", recipient), logx.Duration("wait", res.Wait))
	if err := sleepCtx(ctx, res.Wait); err != nil {
		return Result{Outcome: TransientFailure, Err: err}
	}

	retry := d.DeliverOne(ctx, recipient, p)
	if retry.Outcome == RateLimited {
		// A second throttle within one payload is a failure; keep the run moving.
		retry.Outcome = TransientFailure
	}
	return retry
}

// Broadcast delivers the payload to every recipient in order, synchronously.
// Cancellation lets the in-flight recipient finish and stops before the
// next one; the returned Job keeps the counters accumulated so far.
func (d *Dispatcher) Broadcast(ctx context.Context, p Payload, recipients []int64, opts BroadcastOptions) Job {
	job := Job{Total: len(recipients), StartedAt: time.Now()}

	for _, recipient := range recipients {
		if ctx.Err() != nil {
			break
		}
		// Pacing applies regardless of the previous outcome.
		if err := d.limiter.Wait(ctx); err != nil {
			break
		}

		res := d.deliverWithRetry(ctx, recipient, p)
		switch res.Outcome {
		case Sent:
			job.Sent++
		case PermanentFailure:
			job.Failed++
			d.log.Info("recipient gone, flagging for removal",
				logx.Int64("recipient", recipient), logx.Err(res.Err))
			if opts.OnGone != nil {
				opts.OnGone(recipient)
			}
		default:
			job.Failed++
			d.log.Warn("broadcast send failed",
				logx.Int64("recipient", recipient),
				logx.String("outcome", res.Outcome.String()),
				logx.Err(res.Err))
		}
		job.Processed++

		if opts.OnProgress != nil && job.Processed%d.cfg.ProgressEvery == 0 {
			opts.OnProgress(job)
		}
	}

	job.DoneAt = time.Now()
	d.log.Info("broadcast finished",
		logx.Int("total", job.Total),
		logx.Int("sent", job.Sent),
		logx.Int("failed", job.Failed),
		logx.Duration("dur", job.DoneAt.Sub(job.StartedAt)))
	return job
}

// classify maps adapter errors onto the outcome taxonomy.
func classify(err error) Result {
	if err == nil {
		return Result{Outcome: Sent}
	}
	var limited *kit.RateLimitedError
	if errors.As(err, &limited) {
		return Result{Outcome: RateLimited, Wait: limited.RetryAfter, Err: err}
	}
	if errors.Is(err, kit.ErrRecipientGone) {
		return Result{Outcome: PermanentFailure, Err: err}
	}
	return Result{Outcome: TransientFailure, Err: err}
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
