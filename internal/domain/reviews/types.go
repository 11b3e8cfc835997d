package reviews

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("review not found")
	ErrDuplicateReview = errors.New("you have already reviewed this restaurant")
)

// Review moderation statuses. Every review starts out pending; only an
// admin moves it to approved or rejected, and only approved reviews count
// toward a restaurant's cached rating.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Review struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	RestaurantID   int64      `json:"restaurant_id"`
	OverallRating  int        `json:"overall_rating"` // 1-5
	FoodRating     *int       `json:"food_rating,omitempty"`
	ServiceRating  *int       `json:"service_rating,omitempty"`
	AmbianceRating *int       `json:"ambiance_rating,omitempty"`
	ValueRating    *int       `json:"value_rating,omitempty"`
	Title          *string    `json:"title,omitempty"`
	Comment        string     `json:"comment"`
	VisitDate      *time.Time `json:"visit_date,omitempty"`
	Recommend      *bool      `json:"recommend,omitempty"`
	Photos         []string   `json:"photos,omitempty"` // max 5 URLs
	Status         Status     `json:"status"`
	RejectReason   *string    `json:"reject_reason,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	RejectedAt     *time.Time `json:"rejected_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Joined fields
	UserName       string  `json:"user_name,omitempty"`
	UserAvatarURL  *string `json:"user_avatar_url,omitempty"`
	RestaurantName string  `json:"restaurant_name,omitempty"`
}

// UpdateFields carries the "only what was supplied" semantics of a review
// edit: a nil pointer means the field is left untouched.
type UpdateFields struct {
	OverallRating  *int
	FoodRating     *int
	ServiceRating  *int
	AmbianceRating *int
	ValueRating    *int
	Title          *string
	Comment        *string
	VisitDate      *time.Time
	Recommend      *bool
	Photos         *[]string
}

// Empty reports whether the update would change nothing.
func (f UpdateFields) Empty() bool {
	return f.OverallRating == nil && f.FoodRating == nil && f.ServiceRating == nil &&
		f.AmbianceRating == nil && f.ValueRating == nil && f.Title == nil &&
		f.Comment == nil && f.VisitDate == nil && f.Recommend == nil && f.Photos == nil
}

type SortOrder string

const (
	SortNewest  SortOrder = "newest"
	SortOldest  SortOrder = "oldest"
	SortHighest SortOrder = "highest"
	SortLowest  SortOrder = "lowest"
)

type Filter struct {
	RestaurantID *int64
	UserID       *int64
	Rating       *int
	MinRating    *int
	Status       *Status // admin-only; nil on public listings
	Search       *string // admin-only free text
	SortBy       SortOrder
	Limit        int
	Offset       int
}

type Store interface {
	// Create inserts a pending review and recomputes the restaurant's
	// rating inside the same transaction.
	Create(ctx context.Context, review *Review) error
	GetByID(ctx context.Context, reviewID int64) (*Review, error)
	// Update applies the supplied fields and recomputes in the same
	// transaction. Returns the updated review.
	Update(ctx context.Context, reviewID int64, fields UpdateFields) (*Review, error)
	// Delete removes the review and recomputes for the restaurant it
	// belonged to, in the same transaction.
	Delete(ctx context.Context, reviewID int64) error
	List(ctx context.Context, filter Filter) ([]Review, int, error)
	// Approve and Reject are the moderation transitions. Both are
	// idempotent: repeating one reasserts the timestamp and recomputes.
	Approve(ctx context.Context, reviewID int64) (*Review, error)
	Reject(ctx context.Context, reviewID int64, reason *string) (*Review, error)
	// RecomputeRating rebuilds the restaurant's cached aggregate from its
	// approved reviews.
	RecomputeRating(ctx context.Context, restaurantID int64) error
	HasReview(ctx context.Context, restaurantID, userID int64) (bool, error)
}
