package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"idealista-pricing/models"
)

const listingColumns = 17

// PostgresWriter persists prepared listings to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id                SERIAL PRIMARY KEY,
			property_code     TEXT         UNIQUE NOT NULL,
			property_type     TEXT         NOT NULL DEFAULT '',
			sub_typology      TEXT         NOT NULL DEFAULT '',
			price             NUMERIC(12,2),
			size              NUMERIC(10,2),
			rooms             NUMERIC(4,0),
			bathrooms         NUMERIC(4,0),
			price_by_area     NUMERIC(10,2),
			floor             NUMERIC(6,2),
			has_lift          NUMERIC(3,2),
			exterior          NUMERIC(3,2),
			has_parking_space NUMERIC(3,2),
			parking_included  NUMERIC(3,2),
			latitude          DOUBLE PRECISION,
			longitude         DOUBLE PRECISION,
			codbarrio         TEXT         NOT NULL DEFAULT '',
			coddistrit        TEXT         NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_price      ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_listings_codbarrio  ON listings(codbarrio);
		CREATE INDEX IF NOT EXISTS idx_listings_coddistrit ON listings(coddistrit);
	`)
	return err
}

// Write replaces the stored listings with the given ones in a single
// transaction; on any error the previous contents are kept. Listings without
// a property code are skipped.
func (pw *PostgresWriter) Write(ctx context.Context, listings []*models.Listing) (err error) {
	keyed := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if l != nil && l.PropertyCode != "" {
			keyed = append(keyed, l)
		}
	}
	if len(keyed) == 0 {
		return nil
	}

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM listings"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(keyed); i += batchSize {
		end := i + batchSize
		if end > len(keyed) {
			end = len(keyed)
		}
		query, args := insertStatement(keyed[i:end])
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch at %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// insertStatement builds one multi-row INSERT for the batch.
func insertStatement(batch []*models.Listing) (string, []interface{}) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*listingColumns)

	for idx, l := range batch {
		base := idx * listingColumns
		ph := make([]string, listingColumns)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs,
			l.PropertyCode, l.PropertyType, l.SubTypology,
			l.Price, l.Size, l.Rooms, l.Bathrooms, l.PriceByArea,
			l.Floor, l.HasLift, l.Exterior, l.HasParkingSpace, l.ParkingIncluded,
			l.Latitude, l.Longitude, l.NeighborhoodCode, l.DistrictCode)
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (property_code, property_type, sub_typology,
			price, size, rooms, bathrooms, price_by_area,
			floor, has_lift, exterior, has_parking_space, parking_included,
			latitude, longitude, codbarrio, coddistrit)
		VALUES %s
		ON CONFLICT (property_code) DO NOTHING
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored listings in insertion order.
func (pw *PostgresWriter) FetchAll(ctx context.Context) ([]*models.Listing, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT id, property_code, property_type, sub_typology,
			price, size, rooms, bathrooms, price_by_area,
			floor, has_lift, exterior, has_parking_space, parking_included,
			latitude, longitude, codbarrio, coddistrit, created_at
		FROM listings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		if err := rows.Scan(
			&l.ID, &l.PropertyCode, &l.PropertyType, &l.SubTypology,
			&l.Price, &l.Size, &l.Rooms, &l.Bathrooms, &l.PriceByArea,
			&l.Floor, &l.HasLift, &l.Exterior, &l.HasParkingSpace, &l.ParkingIncluded,
			&l.Latitude, &l.Longitude, &l.NeighborhoodCode, &l.DistrictCode, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// ListingsFromTable converts every row of a prepared table into a Listing.
func ListingsFromTable(t *models.Table, neighborhoodColumn, districtColumn string) []*models.Listing {
	out := make([]*models.Listing, 0, t.Len())
	for _, r := range t.Rows {
		out = append(out, models.ListingFromRow(r, neighborhoodColumn, districtColumn))
	}
	return out
}
