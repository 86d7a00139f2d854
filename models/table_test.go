package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendRowKeepsSchemaUniform(t *testing.T) {
	tbl := NewTable()
	tbl.AppendRow(Row{"zeta": 1.0, ColPrice: 10.0, ColPropertyCode: "a"})
	tbl.AppendRow(Row{ColPropertyCode: "b", ColFloor: "bj"})

	// Known columns follow the API order, unknown ones sort after them.
	assert.Equal(t, []string{ColPropertyCode, ColPrice, "zeta", ColFloor}, tbl.Columns)
	for _, r := range tbl.Rows {
		assert.Len(t, r, len(tbl.Columns))
	}
	assert.Nil(t, tbl.Rows[0][ColFloor])
	assert.Nil(t, tbl.Rows[1][ColPrice])
}

func TestSetAndDropColumns(t *testing.T) {
	tbl := NewTable("a", "b")
	tbl.AppendRow(Row{"a": 1.0, "b": 2.0})

	tbl.SetColumn("c", func(r Row) any { return r["a"].(float64) + r["b"].(float64) })
	assert.Equal(t, []any{3.0}, tbl.Column("c"))

	tbl.DropColumns("a", "missing")
	assert.Equal(t, []string{"b", "c"}, tbl.Columns)
	_, present := tbl.Rows[0]["a"]
	assert.False(t, present)
}

func TestIsMissing(t *testing.T) {
	assert.True(t, IsMissing(nil))
	assert.True(t, IsMissing(math.NaN()))
	assert.False(t, IsMissing(""))
	assert.False(t, IsMissing(false))
	assert.False(t, IsMissing(0.0))
}

func TestToFloat(t *testing.T) {
	for _, v := range []any{2.0, 2, int64(2), json.Number("2")} {
		f, ok := ToFloat(v)
		require.True(t, ok, "%T", v)
		assert.Equal(t, 2.0, f)
	}
	for _, v := range []any{nil, "2", true, math.NaN()} {
		_, ok := ToFloat(v)
		assert.False(t, ok, "%v", v)
	}
}

func TestParseNestedObjects(t *testing.T) {
	dt, ok := ParseDetailedType(map[string]any{"typology": "flat"})
	require.True(t, ok)
	assert.Equal(t, "", dt.SubTypology)

	_, ok = ParseDetailedType(nil)
	assert.False(t, ok)

	ps, ok := ParseParkingSpace(map[string]any{"hasParkingSpace": true})
	require.True(t, ok)
	assert.Equal(t, true, ps.HasParkingSpace)
	assert.Nil(t, ps.IsParkingSpaceIncludedInPrice)

	_, ok = ParseParkingSpace(math.NaN())
	assert.False(t, ok)
}
