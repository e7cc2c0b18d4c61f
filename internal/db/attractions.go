package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"attractions-crawler/internal/models"
)

var (
	// ErrNotFound is returned when no attraction matches the requested ID
	ErrNotFound = errors.New("attraction not found")
	// ErrUnknownColumn is returned for column lookups outside the allow-list
	ErrUnknownColumn = errors.New("unknown attraction column")
)

// columns that may be fetched individually through GetAttractionColumn
var allowedColumns = map[string]bool{
	"title":       true,
	"location":    true,
	"address":     true,
	"phone":       true,
	"description": true,
}

const attractionColumns = `
	id, title, location,
	COALESCE(detail_link, '') as detail_link,
	COALESCE(page, 0) as page,
	COALESCE(address, '') as address,
	COALESCE(phone, '') as phone,
	COALESCE(description, '') as description
`

// LastScrapedPage returns the highest page number stored, or 0 for an empty table
func (db *DB) LastScrapedPage(ctx context.Context) (int, error) {
	var page sql.NullInt64
	if err := db.GetContext(ctx, &page, "SELECT MAX(page) FROM attractions"); err != nil {
		return 0, fmt.Errorf("failed to read last scraped page: %w", err)
	}
	if !page.Valid {
		return 0, nil
	}
	return int(page.Int64), nil
}

// SaveAttraction inserts the attraction unless a row with the same detail
// link already exists. Existing rows are never modified.
func (db *DB) SaveAttraction(ctx context.Context, a *models.Attraction) (models.SaveOutcome, error) {
	var outcome models.SaveOutcome

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		var existing int64
		err := tx.GetContext(ctx, &existing, "SELECT id FROM attractions WHERE detail_link = ?", a.DetailLink)
		switch {
		case err == nil:
			outcome = models.SkippedDuplicate
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to look up detail link: %w", err)
		}

		var image interface{}
		if a.HasImage() {
			image = a.Image
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO attractions (title, location, image, detail_link, page, address, phone, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			a.Title, a.Location, image, a.DetailLink, a.Page,
			a.Address, a.Phone, a.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to insert attraction: %w", err)
		}

		if id, err := res.LastInsertId(); err == nil {
			a.ID = id
		}
		outcome = models.Inserted
		return nil
	})
	if err != nil {
		return 0, err
	}

	return outcome, nil
}

// ListAttractions returns every stored attraction without image bytes
func (db *DB) ListAttractions(ctx context.Context) ([]models.Attraction, error) {
	attractions := []models.Attraction{}
	query := "SELECT " + attractionColumns + " FROM attractions ORDER BY id"
	if err := db.SelectContext(ctx, &attractions, query); err != nil {
		return nil, fmt.Errorf("failed to list attractions: %w", err)
	}
	return attractions, nil
}

// GetAttraction returns a single attraction by ID without image bytes
func (db *DB) GetAttraction(ctx context.Context, id int64) (*models.Attraction, error) {
	var a models.Attraction
	query := "SELECT " + attractionColumns + " FROM attractions WHERE id = ?"
	if err := db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get attraction: %w", err)
	}
	return &a, nil
}

// GetAttractionImage returns the stored image bytes, nil when the row has none
func (db *DB) GetAttractionImage(ctx context.Context, id int64) ([]byte, error) {
	var image []byte
	if err := db.GetContext(ctx, &image, "SELECT image FROM attractions WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get attraction image: %w", err)
	}
	return image, nil
}

// SearchAttractions matches q against title, location and description
func (db *DB) SearchAttractions(ctx context.Context, q string) ([]models.Attraction, error) {
	pattern := "%" + q + "%"
	attractions := []models.Attraction{}
	query := "SELECT " + attractionColumns + `
		FROM attractions
		WHERE title LIKE ? OR location LIKE ? OR description LIKE ?
		ORDER BY id`
	if err := db.SelectContext(ctx, &attractions, query, pattern, pattern, pattern); err != nil {
		return nil, fmt.Errorf("failed to search attractions: %w", err)
	}
	return attractions, nil
}

// GetAttractionColumn returns one text column of an attraction
func (db *DB) GetAttractionColumn(ctx context.Context, id int64, column string) (string, error) {
	if !allowedColumns[column] {
		return "", fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}

	var value string
	query := fmt.Sprintf("SELECT COALESCE(%s, '') FROM attractions WHERE id = ?", column)
	if err := db.GetContext(ctx, &value, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get attraction %s: %w", column, err)
	}
	return value, nil
}

// CountAttractions returns total number of attractions
func (db *DB) CountAttractions(ctx context.Context) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM attractions")
	return count, err
}
