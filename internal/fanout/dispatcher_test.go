package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kit "posterbot/internal/transport"
	logx "posterbot/pkg/logx"
)

// fakeAdapter scripts per-recipient failures; errs entries are consumed one
// per attempt so a retry can observe a different outcome.
type fakeAdapter struct {
	mu    sync.Mutex
	errs  map[int64][]error
	sends []int64
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{errs: make(map[int64][]error)}
}

func (f *fakeAdapter) fail(recipient int64, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[recipient] = append(f.errs[recipient], errs...)
}

func (f *fakeAdapter) send(to kit.ChatTarget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, to.ChatID)
	if q := f.errs[to.ChatID]; len(q) > 0 {
		f.errs[to.ChatID] = q[1:]
		return q[0]
	}
	return nil
}

func (f *fakeAdapter) attempts(recipient int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.sends {
		if id == recipient {
			n++
		}
	}
	return n
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{ChatID: to.ChatID}, f.send(to)
}

func (f *fakeAdapter) SendPhoto(ctx context.Context, to kit.ChatTarget, photoURL, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{ChatID: to.ChatID}, f.send(to)
}

func (f *fakeAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	return nil
}

func (f *fakeAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return nil
}

func testConfig() Config {
	// High rate so pacing never dominates test time.
	return Config{RatePerSec: 10000, ProgressEvery: 20}
}

func recipients(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func TestBroadcastAccounting(t *testing.T) {
	ad := newFakeAdapter()
	// Recipient 10 is throttled once and succeeds on retry; 15 is gone.
	ad.fail(10, &kit.RateLimitedError{RetryAfter: 5 * time.Millisecond})
	ad.fail(15, kit.ErrRecipientGone)

	var gone []int64
	var progress []Job
	d := New(testConfig(), ad, logx.Nop())
	job := d.Broadcast(context.Background(), Payload{Text: "hi"}, recipients(25), BroadcastOptions{
		OnProgress: func(j Job) { progress = append(progress, j) },
		OnGone:     func(r int64) { gone = append(gone, r) },
	})

	if job.Total != 25 || job.Processed != 25 {
		t.Fatalf("total/processed = %d/%d, want 25/25", job.Total, job.Processed)
	}
	if job.Sent != 24 || job.Failed != 1 {
		t.Fatalf("sent/failed = %d/%d, want 24/1", job.Sent, job.Failed)
	}
	if job.Sent+job.Failed != job.Processed {
		t.Fatalf("counter invariant broken: %d + %d != %d", job.Sent, job.Failed, job.Processed)
	}
	if len(gone) != 1 || gone[0] != 15 {
		t.Fatalf("gone = %v, want [15]", gone)
	}
	if got := ad.attempts(10); got != 2 {
		t.Fatalf("throttled recipient attempted %d times, want 2", got)
	}
	if len(progress) != 1 || progress[0].Processed != 20 {
		t.Fatalf("progress callbacks = %+v, want one at processed=20", progress)
	}
}

func TestSecondThrottleIsNotRetried(t *testing.T) {
	ad := newFakeAdapter()
	ad.fail(1,
		&kit.RateLimitedError{RetryAfter: time.Millisecond},
		&kit.RateLimitedError{RetryAfter: time.Millisecond})

	d := New(testConfig(), ad, logx.Nop())
	res := d.deliverWithRetry(context.Background(), 1, Payload{Text: "hi"})
	if res.Outcome != TransientFailure {
		t.Fatalf("outcome = %v, want transient failure", res.Outcome)
	}
	if got := ad.attempts(1); got != 2 {
		t.Fatalf("attempts = %d, want exactly 2", got)
	}
}

func TestBroadcastCancellationKeepsCounters(t *testing.T) {
	ad := newFakeAdapter()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	d := New(testConfig(), ad, logx.Nop())
	job := d.Broadcast(ctx, Payload{Text: "hi"}, recipients(50), BroadcastOptions{
		OnProgress: func(j Job) {
			calls++
			if calls == 1 {
				cancel()
			}
		},
	})

	if job.Processed >= 50 {
		t.Fatalf("run was not cut short, processed = %d", job.Processed)
	}
	if job.Sent+job.Failed != job.Processed {
		t.Fatalf("counter invariant broken after cancel: %+v", job)
	}
}

func TestClassify(t *testing.T) {
	if res := classify(nil); res.Outcome != Sent {
		t.Errorf("nil error = %v, want Sent", res.Outcome)
	}
	res := classify(&kit.RateLimitedError{RetryAfter: 3 * time.Second})
	if res.Outcome != RateLimited || res.Wait != 3*time.Second {
		t.Errorf("flood classify = %v wait=%s", res.Outcome, res.Wait)
	}
	wrapped := errors.Join(kit.ErrRecipientGone, errors.New("forbidden: bot was blocked"))
	if res := classify(wrapped); res.Outcome != PermanentFailure {
		t.Errorf("gone classify = %v, want PermanentFailure", res.Outcome)
	}
	if res := classify(errors.New("boom")); res.Outcome != TransientFailure {
		t.Errorf("unknown classify = %v, want TransientFailure", res.Outcome)
	}
}

func TestSendPhotoPayloadUsesPhotoPath(t *testing.T) {
	ad := newFakeAdapter()
	d := New(testConfig(), ad, logx.Nop())
	if err := d.Send(context.Background(), 9, Payload{Text: "cap", PhotoURL: "https://img.example/p.jpg"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := ad.attempts(9); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
}
