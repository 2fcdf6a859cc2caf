package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/bricabrac/listings-api/internal/database"
)

var (
	ErrNotFound  = errors.New("listing not found")
	ErrForbidden = errors.New("not the listing owner")
)

// Repository is the narrow persistence boundary the service depends on.
type Repository interface {
	Insert(ctx context.Context, l *Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	UpdateByID(ctx context.Context, l *Listing) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]Listing, error)
}

// PostgresRepository handles listing persistence
type PostgresRepository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert persists a new listing
func (r *PostgresRepository) Insert(ctx context.Context, l *Listing) error {
	dbListing := mapModelToDBListing(l)

	_, err := r.db.NewInsert().
		Model(dbListing).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}

	l.CreatedAt = dbListing.CreatedAt
	l.UpdatedAt = dbListing.UpdatedAt
	return nil
}

// FindByID retrieves a listing by id
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	dbListing := new(database.Listing)
	err := r.db.NewSelect().
		Model(dbListing).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing by id: %w", err)
	}

	return mapDBListingToModel(dbListing), nil
}

// UpdateByID writes the mutable fields of a listing. Owner and id are
// never part of the update set.
func (r *PostgresRepository) UpdateByID(ctx context.Context, l *Listing) error {
	result, err := r.db.NewUpdate().
		Model((*database.Listing)(nil)).
		Set("title = ?", l.Title).
		Set("description = ?", l.Description).
		Set("price = ?", l.Price).
		Set("image_url = ?", l.ImageURL).
		Set("updated_at = NOW()").
		Where("id = ?", l.ID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteByID removes a listing record
func (r *PostgresRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Listing)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns all listings, oldest first for a stable order.
func (r *PostgresRepository) List(ctx context.Context) ([]Listing, error) {
	var dbListings []database.Listing
	err := r.db.NewSelect().
		Model(&dbListings).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}

	listings := make([]Listing, 0, len(dbListings))
	for i := range dbListings {
		listings = append(listings, *mapDBListingToModel(&dbListings[i]))
	}

	return listings, nil
}

func mapDBListingToModel(dbl *database.Listing) *Listing {
	return &Listing{
		ID:          dbl.ID,
		OwnerID:     dbl.OwnerID,
		Title:       dbl.Title,
		Description: dbl.Description,
		Price:       dbl.Price,
		ImageURL:    dbl.ImageURL,
		CreatedAt:   dbl.CreatedAt,
		UpdatedAt:   dbl.UpdatedAt,
	}
}

func mapModelToDBListing(l *Listing) *database.Listing {
	return &database.Listing{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		ImageURL:    l.ImageURL,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}
