package recurrence

import "finanzas/internal/core"

// Source is one independently evaluated occurrence source: a plain record or
// one item of a group.
type Source struct {
	RecordID string
	Kind     core.RecordKind
	Name     string
	Group    string // parent record name, set for group items only
	Item     int    // 1-based position within the group, 0 for plain records
	Category string
	Amount   core.Money

	// Type is empty when the source is malformed (no date and no rule, both,
	// or a type that disagrees with the fields present). Such sources never
	// contribute.
	Type       core.OccurrenceType
	Date       core.Date
	Recurrence *core.RecurrenceRule
	core.Installments
}

// Completed reports whether the source has paid out its installment plan.
func (s Source) Completed() bool {
	return IsCompleted(s.Installments)
}

// IsCompleted reports whether a bounded plan is finished: it is not infinite,
// has a positive duration and at least that many installments paid. Callers
// apply it to recurring sources only.
func IsCompleted(i core.Installments) bool {
	if i.IsInfinite || i.DurationInMonths <= 0 {
		return false
	}
	return i.InstallmentsPaid >= i.DurationInMonths
}

// ExpandSources flattens a record into its occurrence sources. A group yields
// its items, in order, labelled with the group; anything else yields itself.
// Dates are not evaluated here.
func ExpandSources(r core.Record) []Source {
	if !r.IsGroup {
		return []Source{{
			RecordID:     r.ID,
			Kind:         r.Kind,
			Name:         r.Name,
			Category:     r.Label(),
			Amount:       r.Amount,
			Type:         recordType(r),
			Date:         r.Date,
			Recurrence:   r.Recurrence,
			Installments: r.Installments,
		}}
	}

	label := r.Label()
	out := make([]Source, 0, len(r.Items))
	for i, it := range r.Items {
		out = append(out, Source{
			RecordID:     r.ID,
			Kind:         r.Kind,
			Name:         it.Name,
			Group:        r.Name,
			Item:         i + 1,
			Category:     label,
			Amount:       it.Amount,
			Type:         itemType(it),
			Date:         it.Date,
			Recurrence:   it.Recurrence,
			Installments: it.Installments,
		})
	}
	return out
}

func recordType(r core.Record) core.OccurrenceType {
	switch r.OccurrenceType {
	case core.OneTime:
		if !r.Date.IsZero() {
			return core.OneTime
		}
	case core.Recurring:
		if r.Recurrence != nil {
			return core.Recurring
		}
	}
	return ""
}

func itemType(it core.SubItem) core.OccurrenceType {
	switch {
	case it.Recurrence != nil && it.Date.IsZero():
		return core.Recurring
	case it.Recurrence == nil && !it.Date.IsZero():
		return core.OneTime
	default:
		return ""
	}
}
