package allocation

import (
	"strconv"

	"github.com/iliyamo/retreat-allocation/internal/model"
)

// ChowkyPrefix marks column labels of the special (chowky) sub-pool.
const ChowkyPrefix = "CW-"

// Layout bounds.  Counts beyond them are treated as malformed input.
const (
	MaxColumns = 702 // A..ZZ
	MaxRows    = 999
)

// columnLabel converts a zero-based index to a column label: A..Z, then
// AA, AB, ... like spreadsheet columns.
func columnLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26
		res = append(res, rune('A'+rem))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// ColumnLabels returns the first n column letters in reverse order, which
// is the innermost-to-outermost seating order ("C", "B", "A" for n = 3).
// n <= 0 or n > MaxColumns yields an empty sequence.
func ColumnLabels(n int) []string {
	if n <= 0 || n > MaxColumns {
		return []string{}
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = columnLabel(i)
	}
	return out
}

// ChowkyLabels is ColumnLabels with every label prefixed by "CW-".
func ChowkyLabels(n int) []string {
	cols := ColumnLabels(n)
	for i, c := range cols {
		cols[i] = ChowkyPrefix + c
	}
	return cols
}

// SeatSequence emits column+row for rows 1..rows, walking the columns in
// the order given within each row.  rows <= 0 or rows > MaxRows yields an
// empty sequence.
func SeatSequence(columns []string, rows int) []string {
	if rows <= 0 || rows > MaxRows || len(columns) == 0 {
		return []string{}
	}
	out := make([]string, 0, rows*len(columns))
	for row := 1; row <= rows; row++ {
		suffix := strconv.Itoa(row)
		for _, col := range columns {
			out = append(out, col+suffix)
		}
	}
	return out
}

// WingLayout holds the two generated sequences of one wing.
type WingLayout struct {
	Standard []string `json:"standard"`
	Special  []string `json:"special"`
}

// All returns the special sequence followed by the standard one.
func (l WingLayout) All() []string {
	out := make([]string, 0, len(l.Special)+len(l.Standard))
	out = append(out, l.Special...)
	return append(out, l.Standard...)
}

// LayoutFor generates the standard and special sequences of a wing.
// Negative or zero counts degrade to empty sequences instead of failing.
func LayoutFor(w model.WingSeating) WingLayout {
	layout := WingLayout{
		Standard: SeatSequence(ColumnLabels(w.Columns), w.Rows),
		Special:  SeatSequence(ChowkyLabels(w.ChowkyColumns), w.Rows),
	}
	if w.Prefix != "" {
		for i := range layout.Standard {
			layout.Standard[i] = w.Prefix + layout.Standard[i]
		}
		for i := range layout.Special {
			layout.Special[i] = w.Prefix + layout.Special[i]
		}
	}
	return layout
}

// HallLayout generates the layouts of both wings.
func HallLayout(cfg model.SeatingConfig) map[model.Gender]WingLayout {
	return map[model.Gender]WingLayout{
		model.GenderMale:   LayoutFor(cfg.Male),
		model.GenderFemale: LayoutFor(cfg.Female),
	}
}

// SharedLabels returns the labels, in male wing order, that both wings of
// cfg generate after normalization.  Hall seat labels form one namespace
// per course, so a usable configuration has none; distinct wing prefixes
// are the usual way to get there.
func SharedLabels(cfg model.SeatingConfig) []string {
	female := make(map[string]struct{})
	for _, l := range LayoutFor(cfg.Female).All() {
		female[NormalizeLabel(l)] = struct{}{}
	}
	var out []string
	for _, l := range LayoutFor(cfg.Male).All() {
		if _, ok := female[NormalizeLabel(l)]; ok {
			out = append(out, l)
		}
	}
	return out
}
