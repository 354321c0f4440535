package http

import (
	"time"

	"finanzas/internal/core"
)

// amountView renders money as a decimal string plus integer cents.
type amountView struct {
	Value string `json:"value"`
	Cents int64  `json:"cents"`
}

func amount(m core.Money) amountView {
	return amountView{Value: m.String(), Cents: m.Cents}
}

type totalsView struct {
	Income  amountView `json:"income"`
	Expense amountView `json:"expense"`
	Saving  amountView `json:"saving"`
	Net     amountView `json:"net"`
}

func totals(t core.Totals) totalsView {
	return totalsView{
		Income:  amount(t.Income),
		Expense: amount(t.Expense),
		Saving:  amount(t.Saving),
		Net:     amount(t.Net()),
	}
}

type summaryView struct {
	Start  string     `json:"start"`
	End    string     `json:"end"`
	Totals totalsView `json:"totals"`
}

type transactionView struct {
	Date           string     `json:"date"`
	RecordID       string     `json:"recordId"`
	Kind           string     `json:"kind"`
	Name           string     `json:"name"`
	Group          string     `json:"group,omitempty"`
	Category       string     `json:"category"`
	Amount         amountView `json:"amount"`
	OccurrenceType string     `json:"occurrenceType"`
}

func transactions(rows []core.Transaction) []transactionView {
	out := make([]transactionView, len(rows))
	for i, tx := range rows {
		out[i] = transactionView{
			Date:           tx.Date.String(),
			RecordID:       tx.RecordID,
			Kind:           string(tx.Kind),
			Name:           tx.Name,
			Group:          tx.Group,
			Category:       tx.Category,
			Amount:         amount(tx.Amount),
			OccurrenceType: string(tx.OccurrenceType),
		}
	}
	return out
}

type categoryView struct {
	Name   string     `json:"name"`
	Amount amountView `json:"amount"`
}

type monthView struct {
	Year         int               `json:"year"`
	Month        int               `json:"month"`
	Totals       totalsView        `json:"totals"`
	ByCategory   []categoryView    `json:"byCategory"`
	Transactions []transactionView `json:"transactions"`
}

func month(ov core.MonthOverview) monthView {
	v := monthView{
		Year:         ov.Year,
		Month:        ov.Month,
		Totals:       totals(ov.Totals),
		ByCategory:   make([]categoryView, len(ov.ByCategory)),
		Transactions: transactions(ov.Transactions),
	}
	for i, c := range ov.ByCategory {
		v.ByCategory[i] = categoryView{Name: c.Name, Amount: amount(c.Amount)}
	}
	return v
}

type monthTotalView struct {
	Year  int        `json:"year"`
	Month int        `json:"month"`
	Kind  string     `json:"kind"`
	Total amountView `json:"total"`
}

type dayView struct {
	Date         string            `json:"date"`
	Total        amountView        `json:"total"`
	Transactions []transactionView `json:"transactions"`
}

type calendarView struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Days  []core.DayMark `json:"days"`
}

type periodView struct {
	Policy    string     `json:"policy"`
	Start     string     `json:"start"`
	End       string     `json:"end"`
	Totals    totalsView `json:"totals"`
	CarryOver amountView `json:"carryOver"`
	Balance   amountView `json:"balance"`
}

func periodSummary(p core.PeriodSummary) periodView {
	return periodView{
		Policy:    p.Policy,
		Start:     p.Start.Format(time.DateOnly),
		End:       p.End.Format(time.DateOnly),
		Totals:    totals(p.Totals),
		CarryOver: amount(p.CarryOver),
		Balance:   amount(p.Balance),
	}
}

// recordView is a record as stored, with its amount also in cents.
type recordView struct {
	core.Record
	AmountCents int64 `json:"amountCents"`
}

func records(rs []core.Record) []recordView {
	out := make([]recordView, len(rs))
	for i, r := range rs {
		out[i] = recordView{Record: r, AmountCents: r.Amount.Cents}
	}
	return out
}

type installmentRequest struct {
	Item string `json:"item"`
}
