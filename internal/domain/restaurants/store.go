package restaurants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

const restaurantColumns = `
	r.id, r.name, r.cuisine, r.location, r.address, r.phone, r.description,
	r.price_range, r.opening_hours, r.latitude, r.longitude, r.is_active,
	r.owner_id, r.average_rating, r.review_count, r.rating_breakdown,
	r.image_urls, r.created_at, r.updated_at`

func scanRestaurant(row pgx.Row, restaurant *Restaurant) error {
	var openingHours, breakdown []byte

	err := row.Scan(
		&restaurant.ID,
		&restaurant.Name,
		&restaurant.Cuisine,
		&restaurant.Location,
		&restaurant.Address,
		&restaurant.Phone,
		&restaurant.Description,
		&restaurant.PriceRange,
		&openingHours,
		&restaurant.Latitude,
		&restaurant.Longitude,
		&restaurant.IsActive,
		&restaurant.OwnerID,
		&restaurant.AverageRating,
		&restaurant.ReviewCount,
		&breakdown,
		&restaurant.ImageURLs,
		&restaurant.CreatedAt,
		&restaurant.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if len(openingHours) > 0 {
		if err := json.Unmarshal(openingHours, &restaurant.OpeningHours); err != nil {
			return fmt.Errorf("unmarshal opening_hours: %w", err)
		}
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &restaurant.RatingBreakdown); err != nil {
			return fmt.Errorf("unmarshal rating_breakdown: %w", err)
		}
	}

	return nil
}

func (r *Repository) Create(ctx context.Context, restaurant *Restaurant) error {
	openingHours, err := json.Marshal(restaurant.OpeningHours)
	if err != nil {
		return fmt.Errorf("marshal opening_hours: %w", err)
	}

	query := `
		INSERT INTO restaurants (
			name, cuisine, location, address, phone, description,
			price_range, opening_hours, latitude, longitude, owner_id, image_urls
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, is_active, average_rating, review_count, created_at, updated_at
	`
	err = r.db.QueryRow(ctx, query,
		restaurant.Name,
		restaurant.Cuisine,
		restaurant.Location,
		restaurant.Address,
		restaurant.Phone,
		restaurant.Description,
		restaurant.PriceRange,
		openingHours,
		restaurant.Latitude,
		restaurant.Longitude,
		restaurant.OwnerID,
		restaurant.ImageURLs,
	).Scan(
		&restaurant.ID,
		&restaurant.IsActive,
		&restaurant.AverageRating,
		&restaurant.ReviewCount,
		&restaurant.CreatedAt,
		&restaurant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert restaurant: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, restaurantID int64) (*Restaurant, error) {
	query := `
		SELECT ` + restaurantColumns + `
		FROM restaurants r
		WHERE r.id = $1 AND r.deleted_at IS NULL
	`
	var restaurant Restaurant
	if err := scanRestaurant(r.db.QueryRow(ctx, query, restaurantID), &restaurant); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &restaurant, nil
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Restaurant, int, error) {
	where := []string{"r.deleted_at IS NULL", "r.is_active = true"}
	args := []any{}
	argCounter := 1

	add := func(clause string, value any) {
		where = append(where, fmt.Sprintf(clause, argCounter))
		args = append(args, value)
		argCounter++
	}

	if filter.Cuisine != nil {
		add("r.cuisine = $%d", *filter.Cuisine)
	}
	if filter.PriceRange != nil {
		add("r.price_range = $%d", *filter.PriceRange)
	}
	if filter.MinRating != nil {
		add("r.average_rating >= $%d", *filter.MinRating)
	}
	if filter.Search != nil {
		pattern := "%" + *filter.Search + "%"
		where = append(where, fmt.Sprintf(
			"(r.name ILIKE $%d OR r.cuisine ILIKE $%d OR r.location ILIKE $%d)",
			argCounter, argCounter, argCounter,
		))
		args = append(args, pattern)
		argCounter++
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM restaurants r WHERE " + whereClause
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count restaurants: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM restaurants r
		WHERE %s
		ORDER BY r.average_rating DESC, r.review_count DESC, r.name ASC
		LIMIT $%d OFFSET $%d
	`, restaurantColumns, whereClause, argCounter, argCounter+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list restaurants: %w", err)
	}
	defer rows.Close()

	var list []Restaurant
	for rows.Next() {
		var restaurant Restaurant
		if err := scanRestaurant(rows, &restaurant); err != nil {
			return nil, 0, fmt.Errorf("scan restaurant row: %w", err)
		}
		list = append(list, restaurant)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

// Update patches a restaurant from a key/value map. Derived rating fields
// are not accepted here; they belong to the recompute alone.
func (r *Repository) Update(ctx context.Context, restaurantID int64, updateData map[string]interface{}) error {
	set := []string{}
	args := []any{}
	argCounter := 1

	for key, value := range updateData {
		switch key {
		case "name", "cuisine", "location", "address", "phone", "description", "price_range":
			set = append(set, fmt.Sprintf("%s = $%d", key, argCounter))
			args = append(args, value)
			argCounter++
		case "is_active":
			active, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid is_active value")
			}
			set = append(set, fmt.Sprintf("is_active = $%d", argCounter))
			args = append(args, active)
			argCounter++
		case "owner_id":
			set = append(set, fmt.Sprintf("owner_id = $%d", argCounter))
			args = append(args, value)
			argCounter++
		case "opening_hours":
			encoded, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("invalid opening_hours: %w", err)
			}
			set = append(set, fmt.Sprintf("opening_hours = $%d", argCounter))
			args = append(args, encoded)
			argCounter++
		case "latitude", "longitude":
			set = append(set, fmt.Sprintf("%s = $%d", key, argCounter))
			args = append(args, value)
			argCounter++
		default:
			return fmt.Errorf("unknown restaurant field: %s", key)
		}
	}

	if len(set) == 0 {
		return fmt.Errorf("no fields to update")
	}

	set = append(set, "updated_at = now()")

	query := fmt.Sprintf(
		"UPDATE restaurants SET %s WHERE id = $%d AND deleted_at IS NULL",
		strings.Join(set, ", "), argCounter,
	)
	args = append(args, restaurantID)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update restaurant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, restaurantID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE restaurants
		SET deleted_at = now(), is_active = false, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, restaurantID)
	if err != nil {
		return fmt.Errorf("delete restaurant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) IsOwner(ctx context.Context, restaurantID, userID int64) (bool, error) {
	var ownerID *int64
	err := r.db.QueryRow(ctx,
		`SELECT owner_id FROM restaurants WHERE id = $1 AND deleted_at IS NULL`,
		restaurantID,
	).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	return ownerID != nil && *ownerID == userID, nil
}

func (r *Repository) IsActive(ctx context.Context, restaurantID int64) (bool, error) {
	var active bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
		  SELECT 1 FROM restaurants
		  WHERE id = $1 AND is_active = true AND deleted_at IS NULL
		)
	`, restaurantID).Scan(&active)
	return active, err
}

// AddPhotoURL appends a photo URL to the restaurant's image_urls array
func (r *Repository) AddPhotoURL(ctx context.Context, restaurantID int64, photoURL string) error {
	query := `
		UPDATE restaurants
		SET image_urls = array_append(image_urls, $1)
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, photoURL, restaurantID)
	if err != nil {
		return fmt.Errorf("failed to add photo URL: %w", err)
	}
	return nil
}

// RemovePhotoURL removes a specific photo URL from the restaurant's image_urls array
func (r *Repository) RemovePhotoURL(ctx context.Context, restaurantID int64, photoURL string) error {
	query := `
		UPDATE restaurants
		SET image_urls = array_remove(image_urls, $1)
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, photoURL, restaurantID)
	if err != nil {
		return fmt.Errorf("failed to remove photo URL: %w", err)
	}
	return nil
}
