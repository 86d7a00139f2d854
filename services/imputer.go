package services

import (
	"errors"
	"fmt"

	"idealista-pricing/models"
	"idealista-pricing/utils"
)

var (
	// ErrUnknownColumn is returned when a required column is not in the table.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNoDonors is returned when an aggregate is requested over zero values.
	ErrNoDonors = errors.New("no donor values")
	// ErrNonNumeric is returned when a mean is requested over a non-numeric value.
	ErrNonNumeric = errors.New("non-numeric value")
)

// Aggregation selects how donor values are combined into a fill value.
type Aggregation int

const (
	// Mean is the arithmetic mean, for continuous columns such as floor.
	Mean Aggregation = iota
	// Mode is the most frequent value; ties go to the value seen first.
	Mode
)

func (a Aggregation) String() string {
	switch a {
	case Mean:
		return "mean"
	case Mode:
		return "mode"
	}
	return fmt.Sprintf("Aggregation(%d)", int(a))
}

// Scope is a geographic fallback tier, from narrowest to widest.
type Scope int

const (
	ScopeNeighborhood Scope = iota
	ScopeDistrict
	ScopeCity
)

func (s Scope) String() string {
	switch s {
	case ScopeNeighborhood:
		return "neighborhood"
	case ScopeDistrict:
		return "district"
	case ScopeCity:
		return "city"
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

// ImputeResult reports how the missing values of one column were filled.
type ImputeResult struct {
	Column  string
	Missing int
	Filled  map[Scope]int
	// Unresolved holds the positions of rows left missing because their
	// property type has no donor anywhere in the table.
	Unresolved []int
}

// FilledTotal returns the number of rows that received a value.
func (r *ImputeResult) FilledTotal() int {
	n := 0
	for _, c := range r.Filled {
		n += c
	}
	return n
}

// Imputer fills missing values from donor rows of the same property type,
// widening the geography from neighborhood to district to the whole city.
type Imputer struct {
	logger             *utils.Logger
	neighborhoodColumn string
	districtColumn     string
	typeColumn         string
}

// NewImputer creates an Imputer grouping by the given neighborhood and
// district code columns. Empty names select codbarrio and coddistrit.
func NewImputer(logger *utils.Logger, neighborhoodColumn, districtColumn string) *Imputer {
	if neighborhoodColumn == "" {
		neighborhoodColumn = models.ColNeighborhoodCode
	}
	if districtColumn == "" {
		districtColumn = models.ColDistrictCode
	}
	return &Imputer{
		logger:             logger,
		neighborhoodColumn: neighborhoodColumn,
		districtColumn:     districtColumn,
		typeColumn:         models.ColPropertyType,
	}
}

// FillFloor fills missing floors with the mean floor of the nearest donors.
func (im *Imputer) FillFloor(t *models.Table) (*ImputeResult, error) {
	return im.Impute(t, models.ColFloor, Mean)
}

// FillHasLift fills missing lift flags with the most common flag of the
// nearest donors.
func (im *Imputer) FillHasLift(t *models.Table) (*ImputeResult, error) {
	return im.Impute(t, models.ColHasLift, Mode)
}

type fill struct {
	row   int
	value any
	scope Scope
}

// Impute fills the missing values of column in place. Donors are read from a
// snapshot taken before any row is written, so fills never feed each other.
// Rows whose property type has no donor at any tier stay missing and are
// listed in the result.
func (im *Imputer) Impute(t *models.Table, column string, agg Aggregation) (*ImputeResult, error) {
	for _, c := range []string{column, im.typeColumn, im.neighborhoodColumn, im.districtColumn} {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("imputer: %q: %w", c, ErrUnknownColumn)
		}
	}

	idx, err := im.indexDonors(t, column, agg)
	if err != nil {
		return nil, err
	}

	res := &ImputeResult{Column: column, Filled: make(map[Scope]int)}
	var fills []fill
	for i, r := range t.Rows {
		if !models.IsMissing(r[column]) {
			continue
		}
		res.Missing++

		value, scope, err := idx.lookup(im.keys(r))
		if errors.Is(err, ErrNoDonors) {
			res.Unresolved = append(res.Unresolved, i)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("imputer: row %d: %w", i, err)
		}
		fills = append(fills, fill{row: i, value: value, scope: scope})
	}

	for _, f := range fills {
		t.Rows[f.row][column] = f.value
		res.Filled[f.scope]++
	}

	im.logger.Info("[imputer] %s: %d missing, filled %d (neighborhood %d, district %d, city %d) by %s",
		column, res.Missing, res.FilledTotal(),
		res.Filled[ScopeNeighborhood], res.Filled[ScopeDistrict], res.Filled[ScopeCity], agg)
	if len(res.Unresolved) > 0 {
		im.logger.Warn("[imputer] %s: %d rows left missing, no donor of the same property type",
			column, len(res.Unresolved))
	}
	return res, nil
}

// keys returns the group key of r for each scope; "" means the row cannot
// match at that scope.
func (im *Imputer) keys(r models.Row) [3]string {
	var k [3]string
	pt := r[im.typeColumn]
	if models.IsMissing(pt) {
		return k
	}
	if code := r[im.neighborhoodColumn]; !models.IsMissing(code) {
		k[ScopeNeighborhood] = groupKey(pt, code)
	}
	if code := r[im.districtColumn]; !models.IsMissing(code) {
		k[ScopeDistrict] = groupKey(pt, code)
	}
	k[ScopeCity] = groupKey(pt)
	return k
}

func groupKey(parts ...any) string {
	key := ""
	for _, p := range parts {
		key += fmt.Sprintf("%v\x00", p)
	}
	return key
}

// donorIndex groups donor values per scope and caches the aggregate of each group.
type donorIndex struct {
	agg    Aggregation
	groups [3]map[string][]any
	cache  [3]map[string]any
}

func (im *Imputer) indexDonors(t *models.Table, column string, agg Aggregation) (*donorIndex, error) {
	idx := &donorIndex{agg: agg}
	for s := range idx.groups {
		idx.groups[s] = make(map[string][]any)
		idx.cache[s] = make(map[string]any)
	}

	for i, r := range t.Rows {
		v := r[column]
		if models.IsMissing(v) {
			continue
		}
		if agg == Mean {
			if _, ok := models.ToFloat(v); !ok {
				return nil, fmt.Errorf("imputer: %s row %d value %v: %w", column, i, v, ErrNonNumeric)
			}
		}
		for s, key := range im.keys(r) {
			if key != "" {
				idx.groups[s][key] = append(idx.groups[s][key], v)
			}
		}
	}
	return idx, nil
}

func (idx *donorIndex) lookup(keys [3]string) (any, Scope, error) {
	for _, s := range []Scope{ScopeNeighborhood, ScopeDistrict, ScopeCity} {
		key := keys[s]
		if key == "" {
			continue
		}
		if v, ok := idx.cache[s][key]; ok {
			return v, s, nil
		}
		donors := idx.groups[s][key]
		if len(donors) == 0 {
			continue
		}
		v, err := aggregate(idx.agg, donors)
		if err != nil {
			return nil, s, err
		}
		idx.cache[s][key] = v
		return v, s, nil
	}
	return nil, ScopeCity, ErrNoDonors
}

func aggregate(agg Aggregation, values []any) (any, error) {
	switch agg {
	case Mean:
		return MeanOf(values)
	case Mode:
		return ModeOf(values)
	}
	return nil, fmt.Errorf("imputer: unsupported aggregation %s", agg)
}

// MeanOf returns the arithmetic mean of values.
func MeanOf(values []any) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoDonors
	}
	var sum float64
	for _, v := range values {
		f, ok := models.ToFloat(v)
		if !ok {
			return 0, fmt.Errorf("%v: %w", v, ErrNonNumeric)
		}
		sum += f
	}
	return sum / float64(len(values)), nil
}

// ModeOf returns the most frequent of values. When several values share the
// highest count, the one appearing first in values wins.
func ModeOf(values []any) (any, error) {
	if len(values) == 0 {
		return nil, ErrNoDonors
	}
	counts := make(map[any]int, len(values))
	best := 0
	for _, v := range values {
		k := modeKey(v)
		counts[k]++
		if counts[k] > best {
			best = counts[k]
		}
	}
	for _, v := range values {
		if counts[modeKey(v)] == best {
			return v, nil
		}
	}
	return nil, ErrNoDonors
}

func modeKey(v any) any {
	switch v.(type) {
	case bool, string, float64, float32, int, int32, int64:
		return v
	}
	return fmt.Sprintf("%T:%v", v, v)
}
