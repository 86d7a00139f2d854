package models

import (
	"fmt"
	"strconv"
	"time"
)

// Column names used across the pipeline.
const (
	ColPropertyCode    = "propertyCode"
	ColPrice           = "price"
	ColSize            = "size"
	ColRooms           = "rooms"
	ColBathrooms       = "bathrooms"
	ColPriceByArea     = "priceByArea"
	ColFloor           = "floor"
	ColHasLift         = "hasLift"
	ColPropertyType    = "propertyType"
	ColExterior        = "exterior"
	ColLatitude        = "latitude"
	ColLongitude       = "longitude"
	ColDistance        = "distance"
	ColNeighborhood    = "neighborhood"
	ColDistrict        = "district"
	ColDetailedType    = "detailedType"
	ColParkingSpace    = "parkingSpace"
	ColSubTypology     = "subTypology"
	ColHasParking      = "hasParkingSpace"
	ColParkingIncluded = "isParkingSpaceIncludedInPrice"
	ColParkingPrice    = "parkingSpacePrice"

	// Geography codes joined onto listings before imputation.
	ColNeighborhoodCode = "codbarrio"
	ColDistrictCode     = "coddistrit"
)

// ElementColumns is the column order of an elementList record as the search
// API returns it. Unknown keys sort after these.
var ElementColumns = []string{
	ColPropertyCode, "thumbnail", "externalReference", "numPhotos", ColFloor,
	ColPrice, ColPropertyType, "operation", ColSize, ColExterior, ColRooms,
	ColBathrooms, "address", "province", "municipality", ColDistrict, "country",
	ColNeighborhood, ColLatitude, ColLongitude, "showAddress", "url", ColDistance,
	"hasVideo", "status", "newDevelopment", ColHasLift, ColPriceByArea,
	ColDetailedType, "suggestedTexts", "hasPlan", "has3DTour", "has360",
	"hasStaging", "topNewDevelopment", ColParkingSpace,
	ColNeighborhoodCode, ColDistrictCode,
}

// DetailedType is the nested "detailedType" object of a raw listing.
type DetailedType struct {
	Typology    string
	SubTypology string // "" when the key is absent
}

// ParseDetailedType reads a raw detailedType value. ok is false when the
// value is missing or not an object.
func ParseDetailedType(v any) (dt DetailedType, ok bool) {
	m, isMap := v.(map[string]any)
	if !isMap {
		return DetailedType{}, false
	}
	dt.Typology, _ = m["typology"].(string)
	dt.SubTypology, _ = m["subTypology"].(string)
	return dt, true
}

// ParkingSpace is the nested "parkingSpace" object of a raw listing. Each
// field is nil when its key is absent.
type ParkingSpace struct {
	HasParkingSpace               any
	IsParkingSpaceIncludedInPrice any
	ParkingSpacePrice             any
}

// ParseParkingSpace reads a raw parkingSpace value. ok is false when the
// value is missing or not an object.
func ParseParkingSpace(v any) (ps ParkingSpace, ok bool) {
	m, isMap := v.(map[string]any)
	if !isMap {
		return ParkingSpace{}, false
	}
	return ParkingSpace{
		HasParkingSpace:               m[ColHasParking],
		IsParkingSpaceIncludedInPrice: m[ColParkingIncluded],
		ParkingSpacePrice:             m[ColParkingPrice],
	}, true
}

// SearchResult is one page of the listing search API.
type SearchResult struct {
	Total        int              `json:"total"`
	TotalPages   int              `json:"totalPages"`
	ActualPage   int              `json:"actualPage"`
	ItemsPerPage int              `json:"itemsPerPage"`
	ElementList  []map[string]any `json:"elementList"`
}

// SearchSummary holds the paging counters of a SearchResult.
type SearchSummary struct {
	Total        int
	TotalPages   int
	ActualPage   int
	ItemsPerPage int
}

// ScrapedListing is the flat record extracted from one listing page.
type ScrapedListing struct {
	URL          string
	Price        float64
	Size         float64
	Rooms        int
	Bathrooms    int
	PriceByArea  float64
	Neighborhood string
	District     string
	ScrapedAt    time.Time
}

// Row converts the scraped record into a table row using the API's column names.
func (s *ScrapedListing) Row() Row {
	return Row{
		"url":           s.URL,
		ColPrice:        s.Price,
		ColSize:         s.Size,
		ColRooms:        float64(s.Rooms),
		ColBathrooms:    float64(s.Bathrooms),
		ColPriceByArea:  s.PriceByArea,
		ColNeighborhood: s.Neighborhood,
		ColDistrict:     s.District,
	}
}

// Listing is a prepared listing ready for PostgreSQL storage. Pointer fields
// are NULL when the value is missing.
type Listing struct {
	ID               int64
	PropertyCode     string
	PropertyType     string
	SubTypology      string
	Price            *float64
	Size             *float64
	Rooms            *float64
	Bathrooms        *float64
	PriceByArea      *float64
	Floor            *float64
	HasLift          *float64
	Exterior         *float64
	HasParkingSpace  *float64
	ParkingIncluded  *float64
	Latitude         *float64
	Longitude        *float64
	NeighborhoodCode string
	DistrictCode     string
	CreatedAt        time.Time
}

// NullColumn is the null count of one column.
type NullColumn struct {
	Column  string
	Nulls   int
	Percent float64
}

// NullReport lists the columns of a table that contain missing values,
// most incomplete first.
type NullReport struct {
	Rows    int
	Columns []NullColumn
}

// ListingFromRow maps a prepared table row onto a Listing. Absent or
// non-numeric values become NULL; booleans are stored as 1/0.
func ListingFromRow(r Row, neighborhoodColumn, districtColumn string) *Listing {
	return &Listing{
		PropertyCode:     optString(r[ColPropertyCode]),
		PropertyType:     optString(r[ColPropertyType]),
		SubTypology:      optString(r[ColSubTypology]),
		Price:            optFloat(r[ColPrice]),
		Size:             optFloat(r[ColSize]),
		Rooms:            optFloat(r[ColRooms]),
		Bathrooms:        optFloat(r[ColBathrooms]),
		PriceByArea:      optFloat(r[ColPriceByArea]),
		Floor:            optFloat(r[ColFloor]),
		HasLift:          optFloat(r[ColHasLift]),
		Exterior:         optFloat(r[ColExterior]),
		HasParkingSpace:  optFloat(r[ColHasParking]),
		ParkingIncluded:  optFloat(r[ColParkingIncluded]),
		Latitude:         optFloat(r[ColLatitude]),
		Longitude:        optFloat(r[ColLongitude]),
		NeighborhoodCode: optString(r[neighborhoodColumn]),
		DistrictCode:     optString(r[districtColumn]),
	}
}

func optFloat(v any) *float64 {
	if b, ok := v.(bool); ok {
		f := 0.0
		if b {
			f = 1
		}
		return &f
	}
	f, ok := ToFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func optString(v any) string {
	if IsMissing(v) {
		return ""
	}
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprint(v)
}

// CorrelationMatrix holds pairwise Pearson coefficients between numeric
// columns. Values[i][j] is NaN when the pair has fewer than two complete
// observations or a constant side.
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64
}

// At returns the coefficient of columns a and b.
func (m *CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}
