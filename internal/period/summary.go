package period

import (
	"fmt"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/recurrence"
)

// Memo memoizes money sums by key. A *cache.LRUCache[core.Money] is one.
type Memo interface {
	GetOrCompute(key string, compute func() (core.Money, error)) (core.Money, error)
}

type noMemo struct{}

func (noMemo) GetOrCompute(_ string, compute func() (core.Money, error)) (core.Money, error) {
	return compute()
}

// Summarizer computes period summaries with a fixed engine and policy.
type Summarizer struct {
	engine *recurrence.Engine
	policy Policy
	memo   Memo
}

// SummarizerOption customizes a Summarizer.
type SummarizerOption func(*Summarizer)

// WithMemo routes per-kind sums and carry-overs through m.
func WithMemo(m Memo) SummarizerOption {
	return func(s *Summarizer) {
		if m != nil {
			s.memo = m
		}
	}
}

func NewSummarizer(e *recurrence.Engine, p Policy, opts ...SummarizerOption) *Summarizer {
	if e == nil {
		e = recurrence.Default()
	}
	if p == nil {
		p = CalendarMonth{}
	}
	s := &Summarizer{engine: e, policy: p, memo: noMemo{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Summarizer) Policy() Policy { return s.policy }

// Bounds returns the period containing ref.
func (s *Summarizer) Bounds(snap core.Snapshot, ref core.Date) (core.Date, core.Date) {
	return s.policy.Bounds(snap, ref)
}

// Summarize totals the period containing ref and the balance carried into it.
// Balance is carry-over plus income minus expenses and savings.
func (s *Summarizer) Summarize(snap core.Snapshot, ref core.Date) (core.PeriodSummary, error) {
	start, end := s.policy.Bounds(snap, ref)
	totals, err := s.Totals(snap, start.Time, end.Time)
	if err != nil {
		return core.PeriodSummary{}, err
	}
	carry, err := s.memo.GetOrCompute(fmt.Sprintf("carry:%d", start.DayKey()), func() (core.Money, error) {
		return s.CarryOver(snap, start), nil
	})
	if err != nil {
		return core.PeriodSummary{}, err
	}

	return core.PeriodSummary{
		Policy:    s.policy.Name(),
		Start:     start.Time,
		End:       end.Time,
		Totals:    totals,
		CarryOver: carry,
		Balance:   carry.Add(totals.Net()),
	}, nil
}

// Totals sums each kind over the inclusive range, one memo entry per kind.
func (s *Summarizer) Totals(snap core.Snapshot, start, end time.Time) (core.Totals, error) {
	var t core.Totals
	for _, kind := range core.Kinds() {
		records := snap.Of(kind)
		key := fmt.Sprintf("sum:%s:%d:%d", kind, core.DayKey(start), core.DayKey(end))
		m, err := s.memo.GetOrCompute(key, func() (core.Money, error) {
			return s.engine.SumInRange(records, start, end), nil
		})
		if err != nil {
			return core.Totals{}, err
		}
		t.Add(kind, m)
	}
	return t, nil
}

// CarryOver is income minus expenses from the first recorded day up to the
// day before boundary. It is zero when nothing predates the boundary.
func (s *Summarizer) CarryOver(snap core.Snapshot, boundary core.Date) core.Money {
	first, ok := EarliestDay(snap)
	if !ok || first.DayKey() >= boundary.DayKey() {
		return core.Money{}
	}
	last := boundary.AddDays(-1)
	income := s.engine.SumInRange(snap.Income, first.Time, last.Time)
	expense := s.engine.SumInRange(snap.Expenses, first.Time, last.Time)
	return income.Sub(expense)
}

// EarliestDay finds the first day with recorded history: the earliest
// one-time date of any record or item, or the earliest creation time.
func EarliestDay(snap core.Snapshot) (core.Date, bool) {
	var (
		first core.Date
		found bool
	)
	consider := func(d core.Date) {
		if d.IsZero() {
			return
		}
		if !found || d.DayKey() < first.DayKey() {
			first, found = d, true
		}
	}
	for _, r := range snap.All() {
		consider(r.Date)
		if !r.CreatedAt.IsZero() {
			consider(core.DateOf(r.CreatedAt.In(time.UTC)))
		}
		for _, it := range r.Items {
			consider(it.Date)
		}
	}
	return first, found
}
