package storage

import (
	"context"

	"idealista-pricing/models"
)

// TableWriter is the interface any tabular export must satisfy.
type TableWriter interface {
	WriteTable(t *models.Table) error
	Close() error
}

// ListingWriter is the interface for persisting prepared listings.
type ListingWriter interface {
	Write(ctx context.Context, listings []*models.Listing) error
	Close() error
}
