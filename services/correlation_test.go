package services

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idealista-pricing/models"
)

func correlationTable() *models.Table {
	t := models.NewTable("price", "size", "floor", "hasLift", "district", "constant")
	t.AppendRow(models.Row{"price": 100.0, "size": 50.0, "floor": 4.0, "hasLift": true, "district": "Centro", "constant": 1.0})
	t.AppendRow(models.Row{"price": 200.0, "size": 100.0, "floor": 3.0, "hasLift": false, "district": "Retiro", "constant": 1.0})
	t.AppendRow(models.Row{"price": 300.0, "size": 150.0, "floor": nil, "hasLift": nil, "district": "Centro", "constant": 1.0})
	t.AppendRow(models.Row{"price": 400.0, "size": 200.0, "floor": 1.0, "hasLift": true, "district": nil, "constant": 1.0})
	return t
}

func TestCorrelationNumericColumnsOnly(t *testing.T) {
	m := NewCorrelationAnalyzer(newTestLogger()).Analyze(correlationTable())
	assert.Equal(t, []string{"price", "size", "floor", "hasLift", "constant"}, m.Columns)
	require.Len(t, m.Values, 5)
	for _, row := range m.Values {
		assert.Len(t, row, 5)
	}
}

func TestCorrelationValues(t *testing.T) {
	m := NewCorrelationAnalyzer(newTestLogger()).Analyze(correlationTable())

	r, ok := m.At("price", "size")
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)

	r, _ = m.At("price", "price")
	assert.InDelta(t, 1.0, r, 1e-9)

	// Only rows 0, 1 and 3 have a floor: price 100,200,400 against 4,3,1.
	r, _ = m.At("price", "floor")
	assert.InDelta(t, -1.0, r, 1e-9)

	// hasLift 1,0,1 against size 50,100,200.
	r, _ = m.At("size", "hasLift")
	assert.InDelta(t, 0.1890, r, 1e-3)
	r2, _ := m.At("floor", "price")
	assert.Equal(t, r, r2)

	r, _ = m.At("price", "constant")
	assert.True(t, math.IsNaN(r), "a constant column has no correlation")

	_, ok = m.At("price", "district")
	assert.False(t, ok)
}

func TestCorrelationTooFewRows(t *testing.T) {
	tbl := models.NewTable("a", "b")
	tbl.AppendRow(models.Row{"a": 1.0, "b": 2.0})
	m := NewCorrelationAnalyzer(newTestLogger()).Analyze(tbl)
	r, _ := m.At("a", "b")
	assert.True(t, math.IsNaN(r))
	assert.Empty(t, Strongest(m, 0))
}

func TestStrongestOrdersByMagnitude(t *testing.T) {
	m := &models.CorrelationMatrix{
		Columns: []string{"a", "b", "c"},
		Values: [][]float64{
			{1, 0.2, -0.9},
			{0.2, 1, math.NaN()},
			{-0.9, math.NaN(), 1},
		},
	}
	pairs := Strongest(m, 0)
	assert.Equal(t, []CorrelationPair{{A: "a", B: "c", R: -0.9}, {A: "a", B: "b", R: 0.2}}, pairs)
	assert.Len(t, Strongest(m, 1), 1)
}

func TestCorrelationPrint(t *testing.T) {
	a := NewCorrelationAnalyzer(newTestLogger())
	var buf bytes.Buffer
	a.Print(&buf, a.Analyze(correlationTable()), 3)
	out := buf.String()
	assert.Contains(t, out, "CORRELATIONS (5 numeric columns)")
	assert.Contains(t, out, "1.000")

	buf.Reset()
	a.Print(&buf, &models.CorrelationMatrix{}, 0)
	assert.Contains(t, buf.String(), "No defined correlations")
}
