package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"finanzas/internal/core"
	"finanzas/internal/period"
	"finanzas/internal/recurrence"
	"finanzas/internal/services"
)

// ledgerOpener returns a ledger using the named period policy (empty for
// the configured one) and a func releasing its store.
type ledgerOpener func(ctx context.Context, policy string) (*services.LedgerService, func() error, error)

type app struct {
	open   ledgerOpener
	now    func() time.Time
	asJSON bool
}

func newRootCmd(open ledgerOpener) *cobra.Command {
	return newRootCmdWithClock(open, time.Now)
}

func newRootCmdWithClock(open ledgerOpener, now func() time.Time) *cobra.Command {
	a := &app{open: open, now: now}
	root := &cobra.Command{
		Use:          "finctl",
		Short:        "Query recurring income, expenses and savings",
		Long:         `finctl expands recurring records and sums them over dates, months and budgeting periods.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print results as JSON")

	root.AddCommand(a.sumCmd(), a.monthCmd(), a.dayCmd(), a.calendarCmd(), a.periodCmd(), a.recordsCmd())
	return root
}

// with opens the ledger for the duration of fn.
func (a *app) with(cmd *cobra.Command, policy string, fn func(ctx context.Context, l *services.LedgerService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ledger, closeFn, err := a.open(ctx, policy)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()
	return fn(ctx, ledger)
}

func (a *app) print(w io.Writer, v any, text func(tw *tabwriter.Writer)) error {
	if a.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func parseDateFlag(name, value string, fallback core.Date) (core.Date, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := core.ParseDate(value)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD", name, value)
	}
	return d, nil
}

func (a *app) monthFlags(cmd *cobra.Command, year, month *int) {
	now := a.now()
	cmd.Flags().IntVarP(year, "year", "y", now.Year(), "Year")
	cmd.Flags().IntVarP(month, "month", "m", int(now.Month()), "Month (1-12)")
}

func (a *app) sumCmd() *cobra.Command {
	var kind, from, to string
	cmd := &cobra.Command{
		Use:   "sum",
		Short: "Sum occurrences over an inclusive date range",
		Long:  `Sum every occurrence between --from and --to, per kind or for a single --kind. A reversed range sums to zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			start, err := parseDateFlag("from", from, core.NewDate(now.Year(), int(now.Month()), 1))
			if err != nil {
				return err
			}
			end, err := parseDateFlag("to", to, core.NewDate(now.Year(), int(now.Month()), core.DaysIn(now.Year(), int(now.Month()))))
			if err != nil {
				return err
			}
			k := core.RecordKind(strings.ToLower(kind))
			if k != "" && !k.IsValid() {
				return fmt.Errorf("invalid --kind %q: want one of income, expense, saving", kind)
			}
			return a.with(cmd, "", func(ctx context.Context, l *services.LedgerService) error {
				t, err := l.Summary(ctx, start.Time, end.Time)
				if err != nil {
					return err
				}
				if k != "" {
					total := kindTotal(t, k)
					return a.print(cmd.OutOrStdout(), map[string]any{"kind": k, "start": start, "end": end, "total": total},
						func(tw *tabwriter.Writer) {
							fmt.Fprintf(tw, "%s\t%s..%s\t%s\n", k, start, end, total)
						})
				}
				return a.print(cmd.OutOrStdout(), map[string]any{"start": start, "end": end, "totals": t, "net": t.Net()},
					func(tw *tabwriter.Writer) {
						fmt.Fprintf(tw, "range\t%s..%s\n", start, end)
						writeTotals(tw, t)
					})
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Record kind: income, expense or saving (default: all)")
	cmd.Flags().StringVar(&from, "from", "", "First day, YYYY-MM-DD (default: first of this month)")
	cmd.Flags().StringVar(&to, "to", "", "Last day, YYYY-MM-DD (default: end of this month)")
	return cmd
}

func kindTotal(t core.Totals, k core.RecordKind) core.Money {
	switch k {
	case core.Income:
		return t.Income
	case core.Expense:
		return t.Expense
	default:
		return t.Saving
	}
}

func writeTotals(tw *tabwriter.Writer, t core.Totals) {
	fmt.Fprintf(tw, "income\t%s\n", t.Income)
	fmt.Fprintf(tw, "expense\t%s\n", t.Expense)
	fmt.Fprintf(tw, "saving\t%s\n", t.Saving)
	fmt.Fprintf(tw, "net\t%s\n", t.Net())
}

func writeRows(tw *tabwriter.Writer, rows []core.Transaction) {
	for _, tx := range rows {
		name := tx.Name
		if tx.Group != "" {
			name = tx.Group + " / " + tx.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", tx.Date, tx.Kind, tx.Category, name, tx.Amount)
	}
}

func (a *app) monthCmd() *cobra.Command {
	var year, month int
	var order string
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Expand every record over a calendar month",
		RunE: func(cmd *cobra.Command, args []string) error {
			asc := strings.EqualFold(order, "asc")
			if !asc && !strings.EqualFold(order, "desc") {
				return fmt.Errorf("invalid --order %q: want asc or desc", order)
			}
			return a.with(cmd, "", func(ctx context.Context, l *services.LedgerService) error {
				ov, err := l.Month(ctx, year, month, asc)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), ov, func(tw *tabwriter.Writer) {
					writeRows(tw, ov.Transactions)
					fmt.Fprintln(tw)
					writeTotals(tw, ov.Totals)
					if len(ov.ByCategory) > 0 {
						fmt.Fprintln(tw)
						for _, c := range ov.ByCategory {
							fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Amount)
						}
					}
				})
			})
		},
	}
	a.monthFlags(cmd, &year, &month)
	cmd.Flags().StringVar(&order, "order", "desc", "Row order: asc or desc")
	return cmd
}

func (a *app) dayCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "day",
		Short: "List what fires on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDateFlag("date", date, core.DateOf(a.now()))
			if err != nil {
				return err
			}
			return a.with(cmd, "", func(ctx context.Context, l *services.LedgerService) error {
				rows, err := l.Day(ctx, day)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), rows, func(tw *tabwriter.Writer) {
					writeRows(tw, rows)
					fmt.Fprintf(tw, "total\t%s\n", recurrence.TotalOf(rows))
				})
			})
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "Day, YYYY-MM-DD (default: today)")
	return cmd
}

func (a *app) calendarCmd() *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show which kinds fire on each day of a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, "", func(ctx context.Context, l *services.LedgerService) error {
				marks, err := l.Calendar(ctx, year, month)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), marks, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "day\tincome\texpense\tsaving")
					for _, m := range marks {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.Day, mark(m.Income), mark(m.Expense), mark(m.Saving))
					}
				})
			})
		},
	}
	a.monthFlags(cmd, &year, &month)
	return cmd
}

func mark(b bool) string {
	if b {
		return "x"
	}
	return "."
}

func (a *app) periodCmd() *cobra.Command {
	var date, policy string
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Summarize the budgeting period containing a date",
		Long: fmt.Sprintf(`Summarize the budgeting period containing --date, with the balance carried over
from every earlier day. Policies: %s.`, strings.Join(period.Names(), ", ")),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseDateFlag("date", date, core.DateOf(a.now()))
			if err != nil {
				return err
			}
			return a.with(cmd, policy, func(ctx context.Context, l *services.LedgerService) error {
				p, err := l.Period(ctx, ref)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), p, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "policy\t%s\n", p.Policy)
					fmt.Fprintf(tw, "period\t%s..%s\n", core.DateOf(p.Start), core.DateOf(p.End))
					writeTotals(tw, p.Totals)
					fmt.Fprintf(tw, "carry-over\t%s\n", p.CarryOver)
					fmt.Fprintf(tw, "balance\t%s\n", p.Balance)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "Any day in the period, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVarP(&policy, "policy", "p", "", "Period policy (default: PERIOD_POLICY)")
	return cmd
}

func (a *app) recordsCmd() *cobra.Command {
	var kind string
	var archived bool
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, "", func(ctx context.Context, l *services.LedgerService) error {
				var (
					rs  []core.Record
					err error
				)
				if archived {
					rs, err = l.ListArchived(ctx)
				} else {
					rs, err = l.ListRecords(ctx, core.RecordKind(strings.ToLower(kind)))
				}
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), rs, func(tw *tabwriter.Writer) {
					for _, r := range rs {
						when := r.Date.String()
						if r.Recurrence != nil {
							when = string(r.Recurrence.Kind)
						}
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Kind, r.Name, when, r.Amount)
					}
				})
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Record kind (default: all)")
	cmd.Flags().BoolVar(&archived, "archived", false, "List archived records instead")
	return cmd
}
