package idealista

import (
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile("testdata/listing.html")
	require.NoError(t, err)
	return string(b)
}

func TestExtract(t *testing.T) {
	got, err := ExtractHTML(strings.NewReader(loadFixture(t)), 0)
	require.NoError(t, err)

	assert.Equal(t, "https://www.idealista.com/inmueble/93487123/", got.URL)
	assert.Equal(t, 425000.0, got.Price)
	assert.Equal(t, 85.0, got.Size)
	assert.Equal(t, 2, got.Rooms)
	assert.Equal(t, 1, got.Bathrooms)
	assert.Equal(t, 5000.0, got.PriceByArea)
	assert.Equal(t, "Justicia", got.Neighborhood)
	assert.Equal(t, "Centro", got.District)
}

func TestExtractLayoutDriftFailsLoudly(t *testing.T) {
	page := loadFixture(t)

	tests := []struct {
		name   string
		mutate func(*goquery.Document)
		field  string
	}{
		{"price selector renamed", func(d *goquery.Document) { d.Find(".info-data-price").Remove() }, "price"},
		{"feature strip shortened", func(d *goquery.Document) { d.Find(".info-features > span").Remove() }, "size"},
		{"no bathroom item", func(d *goquery.Document) { d.Find(".details-property_features li").Remove() }, "bathrooms"},
		{"no price per area", func(d *goquery.Document) { d.Find(".squaredmeterprice").Remove() }, "priceByArea"},
		{"no district", func(d *goquery.Document) {
			d.Find("#headerMap li").Each(func(_ int, s *goquery.Selection) {
				if strings.HasPrefix(s.Text(), "Distrito") {
					s.Remove()
				}
			})
		}, "district"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
			require.NoError(t, err)
			tt.mutate(doc)

			_, err = Extract(doc, 0)
			require.ErrorIs(t, err, ErrExtraction)

			var exErr *ExtractionError
			require.ErrorAs(t, err, &exErr)
			assert.Equal(t, tt.field, exErr.Field)
		})
	}
}

func TestExtractSizeFieldIndexOutOfRange(t *testing.T) {
	_, err := ExtractHTML(strings.NewReader(loadFixture(t)), 2)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"1.250.000 €", 1250000},
		{"85 m²", 85},
		{"85,5 m²", 85.5},
		{"3 hab.", 3},
	}
	for _, tt := range tests {
		got, err := parseNumber(tt.raw, "f")
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := parseNumber("a consultar", "price")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestDistance(t *testing.T) {
	// Puerta del Sol to Plaza de Cibeles.
	d := Distance(-3.7038, 40.4168, -3.6931, 40.4193)
	assert.InDelta(t, 950, d, 100)

	assert.Equal(t, 0.0, Distance(-3.7, 40.4, -3.7, 40.4))
	assert.InDelta(t, Distance(1, 2, 3, 4), Distance(3, 4, 1, 2), 1e-9)
}
