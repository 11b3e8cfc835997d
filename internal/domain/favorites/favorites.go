package favorites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodiehub/internal/domain/restaurants"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAlreadyFavorite = errors.New("restaurant already favorited")

// Favorite represents a user's favorite restaurant record.
type Favorite struct {
	UserID       int64     `json:"user_id"`
	RestaurantID int64     `json:"restaurant_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type Store interface {
	Add(ctx context.Context, userID, restaurantID int64) error
	Remove(ctx context.Context, userID, restaurantID int64) error
	ListByUser(ctx context.Context, userID int64) ([]restaurants.Restaurant, error)
	IDsByUser(ctx context.Context, userID int64) (map[int64]struct{}, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

// Add inserts a record into the favorites table. A second attempt for the
// same pair reports ErrAlreadyFavorite.
func (r *Repository) Add(ctx context.Context, userID, restaurantID int64) error {
	query := `
		INSERT INTO favorites (user_id, restaurant_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, userID, restaurantID)
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyFavorite
	}
	return nil
}

// Remove deletes a record from the favorites table.
func (r *Repository) Remove(ctx context.Context, userID, restaurantID int64) error {
	query := `
		DELETE FROM favorites
		WHERE user_id = $1 AND restaurant_id = $2
	`
	_, err := r.db.Exec(ctx, query, userID, restaurantID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// ListByUser returns all restaurants a user has favorited, most recently
// favorited first. Soft-deleted restaurants drop out of the join.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]restaurants.Restaurant, error) {
	query := `
		SELECT rst.id, rst.name, rst.cuisine, rst.location, rst.address,
		       rst.price_range, rst.average_rating, rst.review_count,
		       rst.image_urls, rst.created_at, rst.updated_at
		FROM restaurants rst
		JOIN favorites f ON rst.id = f.restaurant_id
		WHERE f.user_id = $1 AND rst.deleted_at IS NULL
		ORDER BY f.created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get favorites: %w", err)
	}
	defer rows.Close()

	var list []restaurants.Restaurant
	for rows.Next() {
		var rst restaurants.Restaurant
		if err := rows.Scan(
			&rst.ID, &rst.Name, &rst.Cuisine, &rst.Location, &rst.Address,
			&rst.PriceRange, &rst.AverageRating, &rst.ReviewCount,
			&rst.ImageURLs, &rst.CreatedAt, &rst.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan favorite row: %w", err)
		}
		list = append(list, rst)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// IDsByUser returns the set of restaurant ids the user has favorited, for
// decorating listings.
func (r *Repository) IDsByUser(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	rows, err := r.db.Query(ctx,
		`SELECT restaurant_id FROM favorites WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get favorite ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}
