package idealista

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"idealista-pricing/models"
)

// ErrExtraction is wrapped by every ExtractionError.
var ErrExtraction = errors.New("listing extraction failed")

// ExtractionError reports which field of a listing page did not match the
// expected layout.
type ExtractionError struct {
	Field  string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Field, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return ErrExtraction }

func fieldError(field, format string, args ...any) error {
	return &ExtractionError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Selectors of the listing detail page.
const (
	selPrice       = ".info-data-price .txt-bold"
	selFeatures    = ".info-features > span"
	selDetails     = ".details-property_features li"
	selPriceByArea = ".squaredmeterprice .flex-feature-details"
	selHeaderMap   = "#headerMap li"
)

var (
	// numberRegexp matches a Spanish formatted number: "1.250.000" or "85,5".
	numberRegexp    = regexp.MustCompile(`\d[\d.]*(?:,\d+)?`)
	bathroomsRegexp = regexp.MustCompile(`(?i)(\d+)\s*baños?`)
)

// Extract reads a listing detail page. sizeFieldIndex is the position of the
// built area within the feature strip; rooms follow it. Any selector that
// does not match, or matches something unparsable, fails the whole page.
func Extract(doc *goquery.Document, sizeFieldIndex int) (*models.ScrapedListing, error) {
	out := &models.ScrapedListing{ScrapedAt: time.Now()}
	var err error

	if out.Price, err = numberAt(doc, selPrice, "price"); err != nil {
		return nil, err
	}

	features := doc.Find(selFeatures)
	if sizeFieldIndex < 0 || features.Length() < sizeFieldIndex+2 {
		return nil, fieldError("size", "feature strip has %d items, need index %d and %d",
			features.Length(), sizeFieldIndex, sizeFieldIndex+1)
	}
	if out.Size, err = parseNumber(features.Eq(sizeFieldIndex).Text(), "size"); err != nil {
		return nil, err
	}
	rooms, err := parseNumber(features.Eq(sizeFieldIndex+1).Text(), "rooms")
	if err != nil {
		return nil, err
	}
	out.Rooms = int(rooms)

	if out.Bathrooms, err = bathrooms(doc); err != nil {
		return nil, err
	}

	if out.PriceByArea, err = numberAt(doc, selPriceByArea, "priceByArea"); err != nil {
		return nil, err
	}

	if out.Neighborhood, out.District, err = location(doc); err != nil {
		return nil, err
	}

	if url, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		out.URL = url
	}
	return out, nil
}

// ExtractHTML parses r as HTML and extracts the listing.
func ExtractHTML(r io.Reader, sizeFieldIndex int) (*models.ScrapedListing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}
	return Extract(doc, sizeFieldIndex)
}

func numberAt(doc *goquery.Document, selector, field string) (float64, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return 0, fieldError(field, "selector %q matched nothing", selector)
	}
	return parseNumber(sel.Text(), field)
}

// parseNumber reads the first Spanish formatted number in s.
func parseNumber(s, field string) (float64, error) {
	match := numberRegexp.FindString(s)
	if match == "" {
		return 0, fieldError(field, "no number in %q", strings.TrimSpace(s))
	}
	match = strings.ReplaceAll(match, ".", "")
	match = strings.ReplaceAll(match, ",", ".")
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fieldError(field, "parse %q: %v", match, err)
	}
	return f, nil
}

func bathrooms(doc *goquery.Document) (int, error) {
	found := -1
	doc.Find(selDetails).EachWithBreak(func(_ int, li *goquery.Selection) bool {
		m := bathroomsRegexp.FindStringSubmatch(li.Text())
		if m == nil {
			return true
		}
		n, err := strconv.Atoi(m[1])
		if err == nil {
			found = n
		}
		return false
	})
	if found < 0 {
		return 0, fieldError("bathrooms", "no %q item mentions baños", selDetails)
	}
	return found, nil
}

// location reads neighborhood and district from the address breadcrumb,
// whose items are prefixed "Barrio " and "Distrito ".
func location(doc *goquery.Document) (neighborhood, district string, err error) {
	doc.Find(selHeaderMap).Each(func(_ int, li *goquery.Selection) {
		text := strings.Join(strings.Fields(li.Text()), " ")
		switch {
		case strings.HasPrefix(text, "Barrio "):
			neighborhood = strings.TrimPrefix(text, "Barrio ")
		case strings.HasPrefix(text, "Distrito "):
			district = strings.TrimPrefix(text, "Distrito ")
		}
	})
	if neighborhood == "" {
		return "", "", fieldError("neighborhood", "no Barrio item in %q", selHeaderMap)
	}
	if district == "" {
		return "", "", fieldError("district", "no Distrito item in %q", selHeaderMap)
	}
	return neighborhood, district, nil
}
