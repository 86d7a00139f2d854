package services

import (
	"idealista-pricing/models"
	"idealista-pricing/utils"
)

// DatasetBuilder turns raw elementList collections into one flat table.
type DatasetBuilder struct {
	logger *utils.Logger
}

// NewDatasetBuilder creates a DatasetBuilder with the given logger.
func NewDatasetBuilder(logger *utils.Logger) *DatasetBuilder {
	return &DatasetBuilder{logger: logger}
}

// FlattenResult describes what Flatten did to a table.
type FlattenResult struct {
	// Flattened is false when the table had neither nested column, i.e. it
	// was already flat and only the derived columns were ensured.
	Flattened bool
	Rows      int
}

// Build merges the collections and flattens the result.
func (b *DatasetBuilder) Build(collections ...[]map[string]any) *models.Table {
	t := b.Merge(collections...)
	b.Flatten(t)
	return t
}

// Merge concatenates the collections in order into a single table. Row
// positions in the result are dense, starting at 0.
func (b *DatasetBuilder) Merge(collections ...[]map[string]any) *models.Table {
	t := models.NewTable()
	for _, records := range collections {
		for _, rec := range records {
			t.AppendRow(models.Row(rec))
		}
	}

	b.logger.Info("[builder] Merged %d collections into %d rows, %d columns",
		len(collections), t.Len(), len(t.Columns))
	return t
}

// FromScraped builds a table from extracted listing pages.
func (b *DatasetBuilder) FromScraped(listings []*models.ScrapedListing) *models.Table {
	t := models.NewTable()
	for _, l := range listings {
		t.AppendRow(l.Row())
	}
	return t
}

// Flatten decomposes the nested detailedType and parkingSpace columns into
// scalar columns and drops them. A missing nested object yields missing
// derived values; an object without a key yields "" for subTypology and a
// missing value for the parking fields. Running Flatten on an already flat
// table leaves existing values alone.
func (b *DatasetBuilder) Flatten(t *models.Table) FlattenResult {
	res := FlattenResult{Rows: t.Len()}

	if t.HasColumn(models.ColDetailedType) {
		res.Flattened = true
		t.SetColumn(models.ColSubTypology, func(r models.Row) any {
			dt, ok := models.ParseDetailedType(r[models.ColDetailedType])
			if !ok {
				return nil
			}
			return dt.SubTypology
		})
	} else {
		ensureColumn(t, models.ColSubTypology)
	}

	if t.HasColumn(models.ColParkingSpace) {
		res.Flattened = true
		parking := func(r models.Row) models.ParkingSpace {
			ps, _ := models.ParseParkingSpace(r[models.ColParkingSpace])
			return ps
		}
		t.SetColumn(models.ColHasParking, func(r models.Row) any {
			return parking(r).HasParkingSpace
		})
		t.SetColumn(models.ColParkingIncluded, func(r models.Row) any {
			return parking(r).IsParkingSpaceIncludedInPrice
		})
		t.SetColumn(models.ColParkingPrice, func(r models.Row) any {
			return parking(r).ParkingSpacePrice
		})
	} else {
		ensureColumn(t, models.ColHasParking)
		ensureColumn(t, models.ColParkingIncluded)
		ensureColumn(t, models.ColParkingPrice)
	}

	t.DropColumns(models.ColDetailedType, models.ColParkingSpace)

	if res.Flattened {
		b.logger.Debug("[builder] Flattened %d rows", res.Rows)
	} else {
		b.logger.Debug("[builder] Table already flat, nothing to decompose")
	}
	return res
}

func ensureColumn(t *models.Table, name string) {
	if !t.HasColumn(name) {
		t.SetColumn(name, func(models.Row) any { return nil })
	}
}
