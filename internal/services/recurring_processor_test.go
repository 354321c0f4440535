package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/store"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []*amqp.TransactionDueMessage
	failAt   int // 1-based call that fails; 0 never fails
	calls    int
}

func (p *recordingPublisher) Publish(_ context.Context, msg *amqp.TransactionDueMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failAt > 0 && p.calls == p.failAt {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	for i, m := range p.messages {
		out[i] = m.Key
	}
	return out
}

func at(y, m, d, hour int) time.Time {
	return time.Date(y, time.Month(m), d, hour, 0, 0, 0, time.UTC)
}

func newProcessor(t *testing.T, pub Publisher, cfg RecurringProcessorConfig) (*RecurringProcessor, *LedgerService) {
	t.Helper()
	ledger, st := newLedger(t, fixtureRecords()...)
	return NewRecurringProcessor(ledger, st, pub, cfg, log.Discard()), ledger
}

func TestRecurringProcessor_FirstRunPublishesToday(t *testing.T) {
	pub := &recordingPublisher{}
	p, _ := newProcessor(t, pub, DefaultRecurringProcessorConfig())
	ctx := context.Background()

	n, err := p.ProcessDue(ctx, at(2024, 3, 5, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"rent/Alquiler/2024-03-05"}, pub.keys())

	msg := pub.messages[0]
	assert.Equal(t, core.Expense, msg.Kind)
	assert.Equal(t, int64(90000), msg.AmountCents)
	assert.Equal(t, "Casa", msg.Category)

	last, err := p.processed.LastProcessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 3, 5), last)
}

func TestRecurringProcessor_PublishesEachOccurrenceOnce(t *testing.T) {
	pub := &recordingPublisher{}
	p, _ := newProcessor(t, pub, DefaultRecurringProcessorConfig())
	ctx := context.Background()

	for _, now := range []time.Time{
		at(2024, 3, 5, 10),
		at(2024, 3, 5, 23), // same day again
		at(2024, 3, 18, 8), // catches up 6..18
		at(2024, 3, 18, 9),
		at(2024, 3, 20, 7),
	} {
		_, err := p.ProcessDue(ctx, now)
		require.NoError(t, err)
	}

	keys := pub.keys()
	seen := make(map[string]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "published twice: %s", k)
		seen[k] = true
	}
	assert.ElementsMatch(t, []string{
		"rent/Alquiler/2024-03-05",
		"hucha/Hucha/2024-03-10",
		"subs/gimnasio#2/2024-03-11",
		"subs/streaming#1/2024-03-17",
		"subs/gimnasio#2/2024-03-18",
		"dinner/Cena/2024-03-20",
	}, keys)
}

func TestRecurringProcessor_FailedDayIsRetried(t *testing.T) {
	pub := &recordingPublisher{failAt: 2}
	p, _ := newProcessor(t, pub, DefaultRecurringProcessorConfig())
	ctx := context.Background()

	_, err := p.ProcessDue(ctx, at(2024, 3, 9, 12))
	require.NoError(t, err)

	// 10th publishes the saving, 11th fails on the gym.
	n, err := p.ProcessDue(ctx, at(2024, 3, 11, 12))
	require.Error(t, err)
	assert.Equal(t, 1, n)

	last, err := p.processed.LastProcessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 3, 10), last)

	n, err = p.ProcessDue(ctx, at(2024, 3, 11, 13))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"hucha/Hucha/2024-03-10", "subs/gimnasio#2/2024-03-11"}, pub.keys())
}

func TestRecurringProcessor_CatchUpWindow(t *testing.T) {
	pub := &recordingPublisher{}
	p, _ := newProcessor(t, pub, RecurringProcessorConfig{Interval: time.Minute, MaxCatchUpDays: 3})
	ctx := context.Background()
	require.NoError(t, p.processed.MarkProcessed(ctx, core.NewDate(2023, 6, 1), 0))

	_, err := p.ProcessDue(ctx, at(2024, 3, 5, 12))
	require.NoError(t, err)
	// Only 2..5 March: streaming on the 3rd, the gym on the 4th, rent on the 5th.
	assert.Equal(t, []string{
		"subs/streaming#1/2024-03-03",
		"subs/gimnasio#2/2024-03-04",
		"rent/Alquiler/2024-03-05",
	}, pub.keys())
}

func TestRecurringProcessor_NotInitialized(t *testing.T) {
	p := NewRecurringProcessor(nil, nil, nil, RecurringProcessorConfig{}, nil)
	_, err := p.ProcessDue(context.Background(), time.Now())
	assert.Error(t, err)
	assert.Equal(t, time.Hour, p.config.Interval)
	assert.Equal(t, 31, p.config.MaxCatchUpDays)
}

func TestRecurringProcessor_StartStop(t *testing.T) {
	pub := &recordingPublisher{}
	p, _ := newProcessor(t, pub, RecurringProcessorConfig{Interval: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Start(ctx))
	assert.Error(t, p.Start(ctx), "second start must fail")
	require.NoError(t, p.Stop(ctx))
	require.NoError(t, p.Stop(ctx), "stop is idempotent")

	last, err := p.processed.LastProcessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.DateOf(time.Now()), last)
}

// stalledLog holds the first LastProcessed call until release is closed.
type stalledLog struct {
	store.ProcessingLog
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *stalledLog) LastProcessed(ctx context.Context) (core.Date, error) {
	l.once.Do(func() { close(l.entered) })
	<-l.release
	return l.ProcessingLog.LastProcessed(ctx)
}

func TestRecurringProcessor_StopAfterTimeout(t *testing.T) {
	ledger, st := newLedger(t, fixtureRecords()...)
	stalled := &stalledLog{ProcessingLog: st, entered: make(chan struct{}), release: make(chan struct{})}
	p := NewRecurringProcessor(ledger, stalled, &recordingPublisher{}, RecurringProcessorConfig{Interval: time.Hour}, log.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Start(ctx))
	<-stalled.entered

	expired, cancelExpired := context.WithCancel(context.Background())
	cancelExpired()
	assert.ErrorIs(t, p.Stop(expired), context.Canceled)
	assert.Error(t, p.Start(ctx), "loop still running after a timed-out stop")

	close(stalled.release)
	require.NotPanics(t, func() {
		require.NoError(t, p.Stop(ctx))
	})
	require.NoError(t, p.Stop(ctx))

	require.NoError(t, p.Start(ctx), "restart after a completed stop")
	require.NoError(t, p.Stop(ctx))
}
