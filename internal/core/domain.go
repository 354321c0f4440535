package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Daily    RecurrenceKind = "daily"
	Weekly   RecurrenceKind = "weekly"
	Biweekly RecurrenceKind = "biweekly"
	Monthly  RecurrenceKind = "monthly"
)

const (
	OneTime   OccurrenceType = "one-time"
	Recurring OccurrenceType = "recurring"
)

const (
	Income  RecordKind = "income"
	Expense RecordKind = "expense"
	Saving  RecordKind = "saving"
)

// DefaultCategory labels records that carry no category (or income source).
const DefaultCategory = "General"

type (
	RecurrenceKind string
	OccurrenceType string

	// RecordKind discriminates the three record collections.
	RecordKind string

	RecurrenceRule struct {
		Kind        RecurrenceKind `json:"kind" yaml:"kind"`
		DayOfWeek   string         `json:"dayOfWeek,omitempty" yaml:"dayOfWeek,omitempty"`
		DaysOfMonth []int          `json:"daysOfMonth,omitempty" yaml:"daysOfMonth,omitempty"`
	}

	// Installments describes a bounded payment plan. The zero value is an
	// open-ended plan that never completes.
	Installments struct {
		IsInfinite       bool  `json:"isInfinite,omitempty" yaml:"isInfinite,omitempty"`
		TotalAmount      Money `json:"totalAmount,omitempty" yaml:"totalAmount,omitempty"`
		DurationInMonths int   `json:"durationInMonths,omitempty" yaml:"durationInMonths,omitempty"`
		InstallmentsPaid int   `json:"installmentsPaid,omitempty" yaml:"installmentsPaid,omitempty"`
	}

	SubItem struct {
		Name         string          `json:"name" yaml:"name"`
		Amount       Money           `json:"amount" yaml:"amount"`
		Date         Date            `json:"date,omitempty" yaml:"date,omitempty"`
		Recurrence   *RecurrenceRule `json:"recurrence,omitempty" yaml:"recurrence,omitempty"`
		Installments `yaml:",inline"`
	}

	// Record is an income, expense or saving entry. Amount is the total of a
	// one-time record and the per-occurrence value of a recurring one.
	Record struct {
		ID             string          `json:"id" yaml:"id"`
		Kind           RecordKind      `json:"kind" yaml:"kind"`
		Name           string          `json:"name" yaml:"name"`
		Category       string          `json:"category,omitempty" yaml:"category,omitempty"`
		Source         string          `json:"source,omitempty" yaml:"source,omitempty"` // income only
		OccurrenceType OccurrenceType  `json:"occurrenceType" yaml:"occurrenceType"`
		Amount         Money           `json:"amount" yaml:"amount"`
		Date           Date            `json:"date,omitempty" yaml:"date,omitempty"`
		Recurrence     *RecurrenceRule `json:"recurrence,omitempty" yaml:"recurrence,omitempty"`
		Installments   `yaml:",inline"`
		IsGroup        bool      `json:"isGroup,omitempty" yaml:"isGroup,omitempty"` // expense only
		Items          []SubItem `json:"items,omitempty" yaml:"items,omitempty"`
		Archived       bool      `json:"archived,omitempty" yaml:"archived,omitempty"`
		CreatedAt      time.Time `json:"createdAt" yaml:"createdAt"`
	}

	// Snapshot holds the live record collections a computation runs over.
	Snapshot struct {
		Income   []Record
		Expenses []Record
		Savings  []Record
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidKind        = errors.New("invalid record kind")
	ErrInvalidOccurrence  = errors.New("invalid occurrence type")
	ErrInvalidRecurrence  = errors.New("invalid recurrence")
	ErrMissingDate        = errors.New("one-time entry requires a date")
	ErrMissingRecurrence  = errors.New("recurring entry requires a recurrence")
	ErrDateAndRecurrence  = errors.New("entry cannot have both a date and a recurrence")
	ErrGroupWithoutItems  = errors.New("group requires at least one item")
	ErrGroupNotExpense    = errors.New("only expenses can be grouped")
	ErrInvalidInstallment = errors.New("invalid installment plan")
	ErrDuplicateItem      = errors.New("duplicate item name in group")
)

// Kinds lists every record kind in display order.
func Kinds() []RecordKind {
	return []RecordKind{Income, Expense, Saving}
}

func (k RecordKind) IsValid() bool {
	switch k {
	case Income, Expense, Saving:
		return true
	default:
		return false
	}
}

func (k RecurrenceKind) IsValid() bool {
	switch k {
	case Daily, Weekly, Biweekly, Monthly:
		return true
	default:
		return false
	}
}

// Of returns the collection of the given kind.
func (s Snapshot) Of(kind RecordKind) []Record {
	switch kind {
	case Income:
		return s.Income
	case Expense:
		return s.Expenses
	case Saving:
		return s.Savings
	default:
		return nil
	}
}

// All returns every record in the snapshot, income first.
func (s Snapshot) All() []Record {
	out := make([]Record, 0, len(s.Income)+len(s.Expenses)+len(s.Savings))
	out = append(out, s.Income...)
	out = append(out, s.Expenses...)
	return append(out, s.Savings...)
}

// Validate checks the rule shape for writers. Evaluation never calls it.
func (r RecurrenceRule) Validate(weekdays WeekdayTable) error {
	switch r.Kind {
	case Daily:
		if r.DayOfWeek != "" || len(r.DaysOfMonth) > 0 {
			return fmt.Errorf("%w: daily takes no day fields", ErrInvalidRecurrence)
		}
	case Weekly:
		if len(r.DaysOfMonth) > 0 {
			return fmt.Errorf("%w: weekly takes no days of month", ErrInvalidRecurrence)
		}
		if _, ok := weekdays.Lookup(r.DayOfWeek); !ok {
			return fmt.Errorf("%w: unknown day of week %q", ErrInvalidRecurrence, r.DayOfWeek)
		}
	case Biweekly, Monthly:
		if r.DayOfWeek != "" {
			return fmt.Errorf("%w: %s takes no day of week", ErrInvalidRecurrence, r.Kind)
		}
		if len(r.DaysOfMonth) == 0 {
			return fmt.Errorf("%w: %s requires days of month", ErrInvalidRecurrence, r.Kind)
		}
		for _, d := range r.DaysOfMonth {
			if d < 1 || d > 31 {
				return fmt.Errorf("%w: %d", ErrInvalidDay, d)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRecurrence, r.Kind)
	}
	return nil
}

func (i Installments) Validate() error {
	if i.DurationInMonths < 0 || i.InstallmentsPaid < 0 {
		return ErrInvalidInstallment
	}
	if i.TotalAmount.Cents < 0 {
		return ErrInvalidInstallment
	}
	return nil
}

func (it SubItem) Validate(weekdays WeekdayTable) error {
	if strings.TrimSpace(it.Name) == "" {
		return ErrEmptyName
	}
	if err := it.Amount.Validate(); err != nil {
		return err
	}
	switch {
	case it.Recurrence != nil && !it.Date.IsZero():
		return ErrDateAndRecurrence
	case it.Recurrence != nil:
		if err := it.Recurrence.Validate(weekdays); err != nil {
			return err
		}
		return it.Installments.Validate()
	case it.Date.IsZero():
		return ErrMissingDate
	}
	return it.Date.Validate()
}

func (r Record) Validate(weekdays WeekdayTable) error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, r.Kind)
	}
	if len(strings.TrimSpace(r.Name)) == 0 {
		return ErrEmptyName
	}
	if len(r.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}

	if r.IsGroup {
		if r.Kind != Expense {
			return ErrGroupNotExpense
		}
		if len(r.Items) == 0 {
			return ErrGroupWithoutItems
		}
		seen := make(map[string]bool, len(r.Items))
		for i, it := range r.Items {
			if err := it.Validate(weekdays); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			// Items are addressed by name when paying installments.
			key := strings.ToLower(strings.TrimSpace(it.Name))
			if seen[key] {
				return fmt.Errorf("item %d: %w: %q", i, ErrDuplicateItem, it.Name)
			}
			seen[key] = true
		}
		return nil
	}

	if err := r.Amount.Validate(); err != nil {
		return err
	}
	switch r.OccurrenceType {
	case OneTime:
		if r.Recurrence != nil {
			return ErrDateAndRecurrence
		}
		if r.Date.IsZero() {
			return ErrMissingDate
		}
		return r.Date.Validate()
	case Recurring:
		if !r.Date.IsZero() {
			return ErrDateAndRecurrence
		}
		if r.Recurrence == nil {
			return ErrMissingRecurrence
		}
		if err := r.Recurrence.Validate(weekdays); err != nil {
			return err
		}
		return r.Installments.Validate()
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOccurrence, r.OccurrenceType)
	}
}

// RecomputeGroupAmount refreshes the cached total of a group from its items.
func (r *Record) RecomputeGroupAmount() {
	if !r.IsGroup {
		return
	}
	var total Money
	for _, it := range r.Items {
		total = total.Add(it.Amount)
	}
	r.Amount = total
}

// Label returns the category a record reports under: the income source for
// income, the group name for expense groups and the category otherwise.
func (r Record) Label() string {
	var label string
	switch r.Kind {
	case Income:
		label = r.Source
	case Expense:
		if r.IsGroup {
			label = r.Name
		} else {
			label = r.Category
		}
	case Saving:
		label = r.Category
	}
	if strings.TrimSpace(label) == "" {
		return DefaultCategory
	}
	return label
}

// Clone returns a deep copy, so stores can hand out records without sharing
// rule or item storage.
func (r Record) Clone() Record {
	out := r
	out.Recurrence = r.Recurrence.clone()
	if r.Items != nil {
		out.Items = make([]SubItem, len(r.Items))
		for i, it := range r.Items {
			it.Recurrence = it.Recurrence.clone()
			out.Items[i] = it
		}
	}
	return out
}

func (r *RecurrenceRule) clone() *RecurrenceRule {
	if r == nil {
		return nil
	}
	out := *r
	out.DaysOfMonth = append([]int(nil), r.DaysOfMonth...)
	return &out
}
