package google

import (
	"fmt"
	"strconv"
	"strings"

	"finanzas/internal/core"
)

// Column order of the export sheet.
var header = []any{"Fecha", "Tipo", "Categoría", "Grupo", "Concepto", "Importe"}

// rowFor renders one transaction as [date, kind, category, group, name, amount].
// The amount goes out as a plain decimal so USER_ENTERED stores a number.
func rowFor(tx core.Transaction) []any {
	return []any{
		tx.Date.String(),
		string(tx.Kind),
		tx.Category,
		tx.Group,
		tx.Name,
		tx.Amount.String(),
	}
}

// parseRow is the inverse of rowFor. Header and malformed rows return false.
func parseRow(row []any) (core.Transaction, bool) {
	cols := toStrings(row)
	if len(cols) < 6 {
		return core.Transaction{}, false
	}
	d, err := core.ParseDate(cols[0])
	if err != nil {
		return core.Transaction{}, false
	}
	kind := core.RecordKind(strings.ToLower(cols[1]))
	if !kind.IsValid() {
		return core.Transaction{}, false
	}
	cents, ok := parseEurosToCents(cols[5])
	if !ok {
		return core.Transaction{}, false
	}
	return core.Transaction{
		Date:     d,
		Kind:     kind,
		Category: cols[2],
		Group:    cols[3],
		Name:     cols[4],
		Amount:   core.Money{Cents: cents},
	}, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// parseEurosToCents accepts what Sheets hands back for a money cell:
// "12.99", "12,99" or a formatted "€ 1.234,50".
func parseEurosToCents(s string) (int64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "€"))
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		// Thousands dots, decimal comma.
		s = strings.ReplaceAll(s, ".", "")
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return 0, false
	}
	return cents, true
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
