package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/cli"
	"finanzas/internal/config"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/store/memory"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func fixture() []core.Record {
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return []core.Record{
		{
			ID: "salary", Kind: core.Income, Name: "Nómina", OccurrenceType: core.Recurring,
			Amount: core.Money{Cents: 250000}, Recurrence: &core.RecurrenceRule{Kind: core.Monthly, DaysOfMonth: []int{1}},
			CreatedAt: created,
		},
		{
			ID: "rent", Kind: core.Expense, Name: "Alquiler", Category: "Casa", OccurrenceType: core.Recurring,
			Amount: core.Money{Cents: 90000}, Recurrence: &core.RecurrenceRule{Kind: core.Monthly, DaysOfMonth: []int{5}},
			CreatedAt: created.Add(time.Minute),
		},
		{
			ID: "dinner", Kind: core.Expense, Name: "Cena", Category: "Ocio", OccurrenceType: core.OneTime,
			Amount: core.Money{Cents: 4550}, Date: core.NewDate(2024, 3, 18), CreatedAt: created.Add(2 * time.Minute),
		},
	}
}

type opener struct {
	calls    int
	policies []string
}

func (o *opener) open(_ context.Context, policy string) (*services.LedgerService, func() error, error) {
	o.calls++
	o.policies = append(o.policies, policy)
	ledger, err := cli.NewLedger(config.Load(), memory.New(fixture()...), policy, log.Discard())
	if err != nil {
		return nil, nil, err
	}
	return ledger, func() error { return nil }, nil
}

func run(t *testing.T, o *opener, args ...string) (string, error) {
	t.Helper()
	root := newRootCmdWithClock(o.open, func() time.Time { return fixedNow })
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd((&opener{}).open)
	assert.Equal(t, "finctl", root.Use)
	assert.NotNil(t, root.PersistentFlags().Lookup("json"))

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"sum", "month", "day", "calendar", "period", "records"} {
		assert.Contains(t, names, want)
	}
}

func TestSumCommand(t *testing.T) {
	o := &opener{}
	out, err := run(t, o, "sum", "--from", "2024-03-01", "--to", "2024-03-31")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-03-01..2024-03-31")
	assert.Contains(t, out, "2500.00")
	assert.Contains(t, out, "945.50")
	assert.Contains(t, out, "1554.50")

	out, err = run(t, o, "sum", "--kind", "expense", "--from", "2024-03-01", "--to", "2024-03-17")
	require.NoError(t, err)
	assert.Contains(t, out, "expense")
	assert.Contains(t, out, "900.00")
	assert.NotContains(t, out, "945.50")
}

func TestSumCommand_DefaultsToCurrentMonth(t *testing.T) {
	out, err := run(t, &opener{}, "sum", "--json")
	require.NoError(t, err)

	var body struct {
		Start  core.Date   `json:"start"`
		End    core.Date   `json:"end"`
		Totals core.Totals `json:"totals"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, core.NewDate(2024, 3, 1), body.Start)
	assert.Equal(t, core.NewDate(2024, 3, 31), body.End)
	assert.Equal(t, int64(94550), body.Totals.Expense.Cents)
}

func TestSumCommand_ReversedRangeIsZero(t *testing.T) {
	out, err := run(t, &opener{}, "sum", "--kind", "income", "--from", "2024-03-31", "--to", "2024-03-01")
	require.NoError(t, err)
	assert.Contains(t, out, "0.00")
	assert.NotContains(t, out, "2500.00")
}

func TestSumCommand_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad kind", []string{"sum", "--kind", "bonus"}},
		{"bad from", []string{"sum", "--from", "2024-13-01"}},
		{"impossible date", []string{"sum", "--to", "2023-02-29"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &opener{}
			_, err := run(t, o, tt.args...)
			assert.Error(t, err)
			assert.Zero(t, o.calls, "store must not be opened on flag errors")
		})
	}
}

func TestMonthCommand(t *testing.T) {
	out, err := run(t, &opener{}, "month", "--year", "2024", "--month", "3", "--order", "asc", "--json")
	require.NoError(t, err)

	var ov core.MonthOverview
	require.NoError(t, json.Unmarshal([]byte(out), &ov))
	assert.Equal(t, 2024, ov.Year)
	assert.Equal(t, 3, ov.Month)
	require.Len(t, ov.Transactions, 3)
	assert.Equal(t, "salary", ov.Transactions[0].RecordID)
	assert.Equal(t, "dinner", ov.Transactions[2].RecordID)
	require.NotEmpty(t, ov.ByCategory)
	assert.Equal(t, "Casa", ov.ByCategory[0].Name)

	out, err = run(t, &opener{}, "month", "-y", "2024", "-m", "3")
	require.NoError(t, err)
	assert.Less(t, bytes.Index([]byte(out), []byte("Cena")), bytes.Index([]byte(out), []byte("Alquiler")))

	_, err = run(t, &opener{}, "month", "--order", "sideways")
	assert.Error(t, err)
}

func TestDayCommand(t *testing.T) {
	out, err := run(t, &opener{}, "day", "--date", "2024-03-18")
	require.NoError(t, err)
	assert.Contains(t, out, "Cena")
	assert.Contains(t, out, "45.50")

	out, err = run(t, &opener{}, "day", "--json")
	require.NoError(t, err)
	var rows []core.Transaction
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Empty(t, rows, "nothing fires on the 15th")
}

func TestCalendarCommand(t *testing.T) {
	out, err := run(t, &opener{}, "calendar", "--year", "2024", "--month", "2", "--json")
	require.NoError(t, err)

	var marks []core.DayMark
	require.NoError(t, json.Unmarshal([]byte(out), &marks))
	require.Len(t, marks, 29)
	assert.True(t, marks[0].Income)
	assert.False(t, marks[0].Expense)
	assert.True(t, marks[4].Expense)
}

func TestPeriodCommand(t *testing.T) {
	o := &opener{}
	out, err := run(t, o, "period", "--date", "2024-03-18", "--policy", "half-month", "--json")
	require.NoError(t, err)
	assert.Equal(t, []string{"half-month"}, o.policies)

	var p core.PeriodSummary
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "half-month", p.Policy)
	assert.Equal(t, p.CarryOver.Add(p.Totals.Net()), p.Balance)

	_, err = run(t, &opener{}, "period", "--policy", "fortnightly")
	assert.Error(t, err)
}

func TestRecordsCommand(t *testing.T) {
	out, err := run(t, &opener{}, "records", "--kind", "expense")
	require.NoError(t, err)
	assert.Contains(t, out, "rent")
	assert.Contains(t, out, "dinner")
	assert.NotContains(t, out, "salary")
}

func TestOpenErrorIsReturned(t *testing.T) {
	failing := func(context.Context, string) (*services.LedgerService, func() error, error) {
		return nil, nil, errors.New("backend down")
	}
	root := newRootCmdWithClock(failing, func() time.Time { return fixedNow })
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"calendar"})
	assert.EqualError(t, root.Execute(), "backend down")
}
