package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"idealista-pricing/models"
	"idealista-pricing/utils"
)

// CorrelationAnalyzer computes Pearson correlations between the numeric
// columns of a table.
type CorrelationAnalyzer struct {
	logger *utils.Logger
}

func NewCorrelationAnalyzer(logger *utils.Logger) *CorrelationAnalyzer {
	return &CorrelationAnalyzer{logger: logger}
}

// Analyze builds the correlation matrix of every numeric column of t, in
// schema order. A column is numeric when it has at least one value and all
// its values are numbers or bools (counted as 1/0). Each pair uses only the
// rows where both values are present.
func (a *CorrelationAnalyzer) Analyze(t *models.Table) *models.CorrelationMatrix {
	var (
		columns []string
		series  [][]float64
	)
	for _, c := range t.Columns {
		if s, ok := numericSeries(t, c); ok {
			columns = append(columns, c)
			series = append(series, s)
		}
	}

	m := &models.CorrelationMatrix{Columns: columns, Values: make([][]float64, len(columns))}
	for i := range columns {
		m.Values[i] = make([]float64, len(columns))
	}
	for i := range columns {
		for j := 0; j <= i; j++ {
			r := pearson(series[i], series[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}

	a.logger.Debug("[correlation] %d numeric columns of %d", len(columns), len(t.Columns))
	return m
}

// numericSeries returns the column as floats, NaN for missing values.
func numericSeries(t *models.Table, column string) ([]float64, bool) {
	out := make([]float64, t.Len())
	present := 0
	for i, r := range t.Rows {
		v := r[column]
		if models.IsMissing(v) {
			out[i] = math.NaN()
			continue
		}
		if b, ok := v.(bool); ok {
			if b {
				out[i] = 1
			}
			present++
			continue
		}
		f, ok := models.ToFloat(v)
		if !ok {
			return nil, false
		}
		out[i] = f
		present++
	}
	return out, present > 0
}

func pearson(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// CorrelationPair is one off-diagonal cell of a correlation matrix.
type CorrelationPair struct {
	A, B string
	R    float64
}

// Strongest returns the defined off-diagonal pairs ordered by |r|, strongest
// first, at most limit of them (all when limit <= 0).
func Strongest(m *models.CorrelationMatrix, limit int) []CorrelationPair {
	var pairs []CorrelationPair
	for i := range m.Columns {
		for j := 0; j < i; j++ {
			r := m.Values[i][j]
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, CorrelationPair{A: m.Columns[j], B: m.Columns[i], R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// Print writes the strongest pairs of m as a table.
func (a *CorrelationAnalyzer) Print(w io.Writer, m *models.CorrelationMatrix, limit int) {
	sep := strings.Repeat("═", 66)
	thin := strings.Repeat("─", 66)

	fmt.Fprintf(w, "\n\033[1;36m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;36m  CORRELATIONS (%d numeric columns)\033[0m\n", len(m.Columns))
	fmt.Fprintf(w, "\033[1;36m%s\033[0m\n\n", sep)

	pairs := Strongest(m, limit)
	if len(pairs) == 0 {
		fmt.Fprintf(w, "  No defined correlations\n")
		fmt.Fprintf(w, "\n\033[1;36m%s\033[0m\n\n", sep)
		return
	}

	fmt.Fprintf(w, "  %-28s %-28s %7s\n", "Column", "Column", "r")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, p := range pairs {
		fmt.Fprintf(w, "  %-28s %-28s %7.3f\n", truncate(p.A, 28), truncate(p.B, 28), p.R)
	}

	fmt.Fprintf(w, "\n\033[1;36m%s\033[0m\n\n", sep)
}
