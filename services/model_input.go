package services

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"idealista-pricing/models"
)

// ErrMissingField is returned when an attribute required by the model is absent.
var ErrMissingField = errors.New("missing model input field")

// ModelInputColumns is the ordered feature schema of the price model.
var ModelInputColumns = []string{
	"price",
	"exterior",
	"distance",
	"size",
	"rooms",
	"priceByArea",
	"propertyType_flat",
	"latitude",
	"coddistrit_1",
	"bathrooms",
	"coddistrit_2",
	"propertyType_chalet",
	"codbar_3",
	"codbar_5",
	"hasParkingSpace",
}

// ModelInput is one listing laid out in ModelInputColumns order.
type ModelInput struct {
	Values [15]float64
}

// BuildModelInput picks the model's attributes out of attrs in schema order.
// Booleans become 1/0 and missing values NaN. Every column must be present
// as a key; absent keys are reported together.
func BuildModelInput(attrs map[string]any) (*ModelInput, error) {
	var absent []string
	for _, c := range ModelInputColumns {
		if _, ok := attrs[c]; !ok {
			absent = append(absent, c)
		}
	}
	if len(absent) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(absent, ", "))
	}

	in := &ModelInput{}
	for i, c := range ModelInputColumns {
		v := attrs[c]
		switch x := v.(type) {
		case bool:
			if x {
				in.Values[i] = 1
			}
		default:
			if models.IsMissing(v) {
				in.Values[i] = math.NaN()
				continue
			}
			f, ok := models.ToFloat(v)
			if !ok {
				return nil, fmt.Errorf("model input %s=%v: %w", c, v, ErrNonNumeric)
			}
			in.Values[i] = f
		}
	}
	return in, nil
}

// Row returns the values keyed by column name.
func (m *ModelInput) Row() models.Row {
	r := make(models.Row, len(ModelInputColumns))
	for i, c := range ModelInputColumns {
		r[c] = m.Values[i]
	}
	return r
}

// ModelInputTable builds the model input of every row of t. It fails on the
// first row lacking a required column.
func ModelInputTable(t *models.Table) (*models.Table, error) {
	out := models.NewTable(ModelInputColumns...)
	for i, r := range t.Rows {
		in, err := BuildModelInput(r)
		if err != nil {
			return nil, fmt.Errorf("features: row %d: %w", i, err)
		}
		out.AppendRow(in.Row())
	}
	return out, nil
}
