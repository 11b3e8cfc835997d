package restaurants

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("restaurant not found")

// Restaurant as stored. average_rating, review_count and rating_breakdown
// are derived state: only the rating recompute ever writes them.
type Restaurant struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	Cuisine         string            `json:"cuisine"`
	Location        string            `json:"location"`
	Address         string            `json:"address"`
	Phone           *string           `json:"phone,omitempty"`
	Description     *string           `json:"description,omitempty"`
	PriceRange      string            `json:"price_range"` // $ .. $$$$
	OpeningHours    map[string]string `json:"opening_hours,omitempty"`
	Latitude        *float64          `json:"latitude,omitempty"`
	Longitude       *float64          `json:"longitude,omitempty"`
	IsActive        bool              `json:"is_active"`
	OwnerID         *int64            `json:"owner_id,omitempty"`
	AverageRating   float64           `json:"average_rating"`
	ReviewCount     int               `json:"review_count"`
	RatingBreakdown map[int]int       `json:"rating_breakdown,omitempty"`
	ImageURLs       []string          `json:"image_urls,omitempty"`
	// IsFavorite is set per caller on signed-in listings; it is never
	// persisted.
	IsFavorite *bool `json:"is_favorite,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type Filter struct {
	Cuisine    *string
	PriceRange *string
	MinRating  *float64
	Search     *string
	Limit      int
	Offset     int
}

type Store interface {
	Create(ctx context.Context, restaurant *Restaurant) error
	GetByID(ctx context.Context, restaurantID int64) (*Restaurant, error)
	List(ctx context.Context, filter Filter) ([]Restaurant, int, error)
	Update(ctx context.Context, restaurantID int64, updateData map[string]interface{}) error
	// Delete is a soft delete: the row keeps its reviews but drops out of
	// every listing and rejects new reviews.
	Delete(ctx context.Context, restaurantID int64) error
	IsOwner(ctx context.Context, restaurantID, userID int64) (bool, error)
	// IsActive reports whether the restaurant exists, is active, and is
	// not soft-deleted.
	IsActive(ctx context.Context, restaurantID int64) (bool, error)
	AddPhotoURL(ctx context.Context, restaurantID int64, photoURL string) error
	RemovePhotoURL(ctx context.Context, restaurantID int64, photoURL string) error
}
