package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"idealista-pricing/models"
	"idealista-pricing/utils"
)

// floorCodes maps the portal's floor abbreviations to floor numbers:
// bajo, entresuelo, semisótano and sótano.
var floorCodes = map[string]float64{
	"bj": 0,
	"en": 0,
	"ss": -1,
	"st": -1,
}

// FloorToNumber converts a floor value to a number. Known abbreviations map
// to their floor, other strings are parsed as decimals, and non-string values
// (including missing ones) are returned unchanged.
func FloorToNumber(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	s = strings.TrimSpace(s)
	if n, known := floorCodes[s]; known {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("floor %q: %w", s, ErrNonNumeric)
	}
	return f, nil
}

// FeaturePreparer converts a cleaned table into numeric model features.
type FeaturePreparer struct {
	logger *utils.Logger
}

// NewFeaturePreparer creates a FeaturePreparer with the given logger.
func NewFeaturePreparer(logger *utils.Logger) *FeaturePreparer {
	return &FeaturePreparer{logger: logger}
}

// FloorColumnToNumber applies FloorToNumber to every value of the floor
// column. The first unparseable value aborts the conversion and the table is
// left untouched.
func (p *FeaturePreparer) FloorColumnToNumber(t *models.Table) error {
	if !t.HasColumn(models.ColFloor) {
		return fmt.Errorf("features: %q: %w", models.ColFloor, ErrUnknownColumn)
	}

	converted := make([]any, t.Len())
	for i, r := range t.Rows {
		v, err := FloorToNumber(r[models.ColFloor])
		if err != nil {
			return fmt.Errorf("features: row %d: %w", i, err)
		}
		converted[i] = v
	}
	for i, r := range t.Rows {
		r[models.ColFloor] = converted[i]
	}
	return nil
}

// BoolsToNumbers replaces true/false with 1/0 in every boolean column and
// returns the converted column names. A column counts as boolean only when
// all of its values are bools; columns with missing values are left alone.
func (p *FeaturePreparer) BoolsToNumbers(t *models.Table) []string {
	var converted []string
	for _, c := range t.Columns {
		if !isBoolColumn(t, c) {
			continue
		}
		for _, r := range t.Rows {
			if r[c].(bool) {
				r[c] = 1.0
			} else {
				r[c] = 0.0
			}
		}
		converted = append(converted, c)
	}
	p.logger.Debug("[features] Converted %d boolean columns: %s", len(converted), strings.Join(converted, ", "))
	return converted
}

func isBoolColumn(t *models.Table, column string) bool {
	if t.Len() == 0 {
		return false
	}
	for _, r := range t.Rows {
		if _, ok := r[column].(bool); !ok {
			return false
		}
	}
	return true
}

// OneHot adds one 0/1 column per distinct value of column, named
// "<prefix>_<value>" and ordered by value. Rows with a missing value get 0
// everywhere. The source column is kept.
func (p *FeaturePreparer) OneHot(t *models.Table, column, prefix string) ([]string, error) {
	if !t.HasColumn(column) {
		return nil, fmt.Errorf("features: %q: %w", column, ErrUnknownColumn)
	}

	seen := make(map[string]struct{})
	for _, v := range t.Column(column) {
		if !models.IsMissing(v) {
			seen[fmt.Sprint(v)] = struct{}{}
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)

	names := make([]string, len(values))
	for i, v := range values {
		value := v
		names[i] = prefix + "_" + value
		t.SetColumn(names[i], func(r models.Row) any {
			if !models.IsMissing(r[column]) && fmt.Sprint(r[column]) == value {
				return 1.0
			}
			return 0.0
		})
	}
	return names, nil
}

// HashColumn feature-hashes the values of column into nFeatures columns
// named "<prefix>_1".."<prefix>_N" and appends them to t. Each value is one
// token; missing values hash to all zeros.
func (p *FeaturePreparer) HashColumn(t *models.Table, column string, nFeatures int, prefix string) error {
	if !t.HasColumn(column) {
		return fmt.Errorf("features: %q: %w", column, ErrUnknownColumn)
	}

	samples := make([][]string, t.Len())
	for i, v := range t.Column(column) {
		if !models.IsMissing(v) {
			samples[i] = []string{tokenString(v)}
		}
	}

	hashed, err := HashColumns(samples, nFeatures, prefix)
	if err != nil {
		return fmt.Errorf("features: hash %q: %w", column, err)
	}
	for _, c := range hashed.Columns {
		t.SetColumn(c, func(r models.Row) any { return nil })
	}
	for i, r := range t.Rows {
		for _, c := range hashed.Columns {
			r[c] = hashed.Rows[i][c]
		}
	}
	return nil
}

// tokenString renders whole-number floats without a decimal part so numeric
// codes hash the same whether they were decoded as 7 or 7.0.
func tokenString(v any) string {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprint(v)
}
