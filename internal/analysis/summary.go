package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/trendteller/internal/table"
)

// EmptyDataset is the entire summary of a table without rows.
const EmptyDataset = "The dataset is empty."

// Report is the statistical description of a table that Text renders.
type Report struct {
	Rows int
	Cols []ColumnSummary
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    table.Kind
	NonNull int
	// Numeric stats, set only for numeric columns with values.
	Stats *NumSummary
}

// NumSummary holds statistics over a numeric column's non-null values. Std is
// the sample (n-1) standard deviation and is meaningful only when HasStd is set.
//
// For all-integer columns MinInt and MaxInt hold the exact extremes, since
// float64 cannot represent every int64 above 2^53.
type NumSummary struct {
	Count          int
	Min, Max, Mean float64
	Std            float64
	HasStd         bool

	Integral       bool
	MinInt, MaxInt int64
}

// Analyze computes the report for t. It performs no I/O.
func Analyze(t *table.Table) *Report {
	rep := &Report{Rows: t.Len(), Cols: make([]ColumnSummary, 0, len(t.Columns))}
	for _, c := range t.Columns {
		s := ColumnSummary{Name: c.Name, Kind: c.Kind, NonNull: t.NonNull(c.Name)}
		if c.Kind == table.KindNumeric {
			s.Stats = describe(t.Floats(c.Name))
			if ints, ok := t.Ints(c.Name); ok && s.Stats != nil {
				s.Stats.Integral = true
				s.Stats.MinInt, s.Stats.MaxInt = intRange(ints)
			}
		}
		rep.Cols = append(rep.Cols, s)
	}
	return rep
}

func describe(xs []float64) *NumSummary {
	if len(xs) == 0 {
		return nil
	}
	ns := &NumSummary{
		Count: len(xs),
		Min:   floats.Min(xs),
		Max:   floats.Max(xs),
		Mean:  stat.Mean(xs, nil),
	}
	if len(xs) > 1 {
		ns.Std = stat.StdDev(xs, nil)
		ns.HasStd = true
	}
	return ns
}

func intRange(xs []int64) (lo, hi int64) {
	lo, hi = xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	return lo, hi
}

// Summarize renders the textual report for t.
func Summarize(t *table.Table) string {
	return Analyze(t).Text()
}

// Text renders the report line by line: shape, column names, per-column kind and
// non-null count, then statistics for numeric columns.
func (r *Report) Text() string {
	if r.Rows == 0 {
		return EmptyDataset
	}
	names := make([]string, len(r.Cols))
	for i, c := range r.Cols {
		names[i] = c.Name
	}
	lines := []string{
		fmt.Sprintf("Rows: %d, Columns: %d.", r.Rows, len(r.Cols)),
		"Columns: " + strings.Join(names, ", "),
		"Column types and non-null counts:",
	}
	for _, c := range r.Cols {
		lines = append(lines, fmt.Sprintf(" - %s: %s, non-null: %d", c.Name, c.Kind, c.NonNull))
	}

	var stats []string
	for _, c := range r.Cols {
		if c.Kind != table.KindNumeric || c.Stats == nil {
			continue
		}
		s := c.Stats
		std := "undefined"
		if s.HasStd {
			std = fmt.Sprintf("%.2f", s.Std)
		}
		lo, hi := table.FormatNumber(s.Min), table.FormatNumber(s.Max)
		if s.Integral {
			lo, hi = strconv.FormatInt(s.MinInt, 10), strconv.FormatInt(s.MaxInt, 10)
		}
		stats = append(stats, fmt.Sprintf(" - %s: mean=%.2f, min=%s, max=%s, std=%s",
			c.Name, s.Mean, lo, hi, std))
	}
	if len(stats) > 0 {
		lines = append(lines, "Basic statistics for numeric columns:")
		lines = append(lines, stats...)
	}
	return strings.Join(lines, "\n")
}
