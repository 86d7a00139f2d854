package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"idealista-pricing/models"
	"idealista-pricing/utils"
)

// NullAnalyzer reports which columns of a table still have missing values.
type NullAnalyzer struct {
	logger *utils.Logger
}

func NewNullAnalyzer(logger *utils.Logger) *NullAnalyzer {
	return &NullAnalyzer{logger: logger}
}

// Analyze counts missing values per column. Only columns with at least one
// missing value are reported, most missing first; ties keep schema order.
func (s *NullAnalyzer) Analyze(t *models.Table) *models.NullReport {
	report := &models.NullReport{Rows: t.Len()}
	if t.Len() == 0 {
		return report
	}

	for _, c := range t.Columns {
		n := 0
		for _, r := range t.Rows {
			if models.IsMissing(r[c]) {
				n++
			}
		}
		if n == 0 {
			continue
		}
		report.Columns = append(report.Columns, models.NullColumn{
			Column:  c,
			Nulls:   n,
			Percent: round2(100 * float64(n) / float64(t.Len())),
		})
	}

	sort.SliceStable(report.Columns, func(i, j int) bool {
		return report.Columns[i].Nulls > report.Columns[j].Nulls
	})
	return report
}

// Print writes the report as a table.
func (s *NullAnalyzer) Print(w io.Writer, r *models.NullReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  MISSING VALUES (%d rows)\033[0m\n", r.Rows)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	if len(r.Columns) == 0 {
		fmt.Fprintf(w, "  No missing values\n")
		fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
		return
	}

	fmt.Fprintf(w, "  %-32s %8s %10s\n", "Column", "Nulls", "Percent")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, c := range r.Columns {
		fmt.Fprintf(w, "  %-32s %8d %9.2f%%\n", truncate(c.Column, 32), c.Nulls, c.Percent)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
