package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"foodiehub/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

const reviewColumns = `
	vr.id, vr.user_id, vr.restaurant_id, vr.overall_rating,
	vr.food_rating, vr.service_rating, vr.ambiance_rating, vr.value_rating,
	vr.title, vr.comment, vr.visit_date, vr.recommend, vr.photos,
	vr.status, vr.reject_reason, vr.approved_at, vr.rejected_at,
	vr.created_at, vr.updated_at,
	u.first_name || ' ' || u.last_name AS user_name, u.avatar_url,
	rest.name AS restaurant_name`

func scanReview(row pgx.Row, review *Review) error {
	return row.Scan(
		&review.ID,
		&review.UserID,
		&review.RestaurantID,
		&review.OverallRating,
		&review.FoodRating,
		&review.ServiceRating,
		&review.AmbianceRating,
		&review.ValueRating,
		&review.Title,
		&review.Comment,
		&review.VisitDate,
		&review.Recommend,
		&review.Photos,
		&review.Status,
		&review.RejectReason,
		&review.ApprovedAt,
		&review.RejectedAt,
		&review.CreatedAt,
		&review.UpdatedAt,
		&review.UserName,
		&review.UserAvatarURL,
		&review.RestaurantName,
	)
}

// Create inserts the review (status defaults to pending in the schema) and
// recomputes the restaurant's aggregate before committing. A concurrent
// duplicate slipping past the handler's pre-check lands on the unique
// (user_id, restaurant_id) index and comes back as ErrDuplicateReview.
func (r *Repository) Create(ctx context.Context, review *Review) error {
	return dbx.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO reviews (
				user_id, restaurant_id, overall_rating,
				food_rating, service_rating, ambiance_rating, value_rating,
				title, comment, visit_date, recommend, photos
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, status, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query,
			review.UserID,
			review.RestaurantID,
			review.OverallRating,
			review.FoodRating,
			review.ServiceRating,
			review.AmbianceRating,
			review.ValueRating,
			review.Title,
			review.Comment,
			review.VisitDate,
			review.Recommend,
			review.Photos,
		).Scan(&review.ID, &review.Status, &review.CreatedAt, &review.UpdatedAt)
		if err != nil {
			if dbx.IsUniqueViolation(err, "reviews_user_id_restaurant_id_key") {
				return ErrDuplicateReview
			}
			return fmt.Errorf("insert review: %w", err)
		}

		return r.recompute(ctx, tx, review.RestaurantID)
	})
}

func (r *Repository) GetByID(ctx context.Context, reviewID int64) (*Review, error) {
	return r.getByID(ctx, r.db, reviewID)
}

func (r *Repository) getByID(ctx context.Context, q dbx.Querier, reviewID int64) (*Review, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews vr
		JOIN users u ON u.id = vr.user_id
		JOIN restaurants rest ON rest.id = vr.restaurant_id
		WHERE vr.id = $1
	`
	var review Review
	if err := scanReview(q.QueryRow(ctx, query, reviewID), &review); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &review, nil
}

// Update applies only the supplied fields, then recomputes. The recompute
// runs even for content-only edits; it is cheap and keeps the call site
// from having to know which fields feed the aggregate.
func (r *Repository) Update(ctx context.Context, reviewID int64, fields UpdateFields) (*Review, error) {
	var updated *Review

	err := dbx.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		set := []string{}
		args := []any{}
		argCounter := 1

		add := func(column string, value any) {
			set = append(set, fmt.Sprintf("%s = $%d", column, argCounter))
			args = append(args, value)
			argCounter++
		}

		if fields.OverallRating != nil {
			add("overall_rating", *fields.OverallRating)
		}
		if fields.FoodRating != nil {
			add("food_rating", *fields.FoodRating)
		}
		if fields.ServiceRating != nil {
			add("service_rating", *fields.ServiceRating)
		}
		if fields.AmbianceRating != nil {
			add("ambiance_rating", *fields.AmbianceRating)
		}
		if fields.ValueRating != nil {
			add("value_rating", *fields.ValueRating)
		}
		if fields.Title != nil {
			add("title", *fields.Title)
		}
		if fields.Comment != nil {
			add("comment", *fields.Comment)
		}
		if fields.VisitDate != nil {
			add("visit_date", *fields.VisitDate)
		}
		if fields.Recommend != nil {
			add("recommend", *fields.Recommend)
		}
		if fields.Photos != nil {
			add("photos", *fields.Photos)
		}

		set = append(set, "updated_at = now()")

		query := fmt.Sprintf(
			"UPDATE reviews SET %s WHERE id = $%d RETURNING restaurant_id",
			strings.Join(set, ", "), argCounter,
		)
		args = append(args, reviewID)

		var restaurantID int64
		if err := tx.QueryRow(ctx, query, args...).Scan(&restaurantID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("update review: %w", err)
		}

		if err := r.recompute(ctx, tx, restaurantID); err != nil {
			return err
		}

		review, err := r.getByID(ctx, tx, reviewID)
		if err != nil {
			return err
		}
		updated = review
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the review and recomputes for the restaurant it belonged
// to, using the restaurant id captured by the RETURNING clause.
func (r *Repository) Delete(ctx context.Context, reviewID int64) error {
	return dbx.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		var restaurantID int64
		err := tx.QueryRow(ctx,
			`DELETE FROM reviews WHERE id = $1 RETURNING restaurant_id`,
			reviewID,
		).Scan(&restaurantID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("delete review: %w", err)
		}

		return r.recompute(ctx, tx, restaurantID)
	})
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Review, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argCounter := 1

	add := func(clause string, value any) {
		where = append(where, fmt.Sprintf(clause, argCounter))
		args = append(args, value)
		argCounter++
	}

	if filter.RestaurantID != nil {
		add("vr.restaurant_id = $%d", *filter.RestaurantID)
	}
	if filter.UserID != nil {
		add("vr.user_id = $%d", *filter.UserID)
	}
	if filter.Rating != nil {
		add("vr.overall_rating = $%d", *filter.Rating)
	}
	if filter.MinRating != nil {
		add("vr.overall_rating >= $%d", *filter.MinRating)
	}
	if filter.Status != nil {
		add("vr.status = $%d", *filter.Status)
	}
	if filter.Search != nil {
		pattern := "%" + *filter.Search + "%"
		where = append(where, fmt.Sprintf(
			`(vr.comment ILIKE $%d OR vr.title ILIKE $%d
			  OR u.first_name ILIKE $%d OR u.last_name ILIKE $%d
			  OR u.email ILIKE $%d OR rest.name ILIKE $%d)`,
			argCounter, argCounter, argCounter, argCounter, argCounter, argCounter,
		))
		args = append(args, pattern)
		argCounter++
	}

	var orderBy string
	switch filter.SortBy {
	case SortOldest:
		orderBy = "vr.created_at ASC"
	case SortHighest:
		orderBy = "vr.overall_rating DESC, vr.created_at DESC"
	case SortLowest:
		orderBy = "vr.overall_rating ASC, vr.created_at DESC"
	default:
		orderBy = "vr.created_at DESC"
	}

	fromClause := `
		FROM reviews vr
		JOIN users u ON u.id = vr.user_id
		JOIN restaurants rest ON rest.id = vr.restaurant_id
		WHERE ` + strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*)" + fromClause
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT %s %s ORDER BY %s LIMIT $%d OFFSET $%d",
		reviewColumns, fromClause, orderBy, argCounter, argCounter+1,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var list []Review
	for rows.Next() {
		var review Review
		if err := scanReview(rows, &review); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		list = append(list, review)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *Repository) Approve(ctx context.Context, reviewID int64) (*Review, error) {
	return r.transition(ctx, reviewID, `
		UPDATE reviews
		SET status = 'approved', approved_at = now(),
		    rejected_at = NULL, reject_reason = NULL, updated_at = now()
		WHERE id = $1
		RETURNING restaurant_id
	`)
}

func (r *Repository) Reject(ctx context.Context, reviewID int64, reason *string) (*Review, error) {
	return r.transition(ctx, reviewID, `
		UPDATE reviews
		SET status = 'rejected', rejected_at = now(),
		    approved_at = NULL, reject_reason = $2, updated_at = now()
		WHERE id = $1
		RETURNING restaurant_id
	`, reason)
}

// transition runs a moderation status update, then recomputes. The review
// may be crossing the counted-set boundary in either direction; a
// transition that does not (re-reject, re-approve) still recomputes, which
// is a numeric no-op.
func (r *Repository) transition(ctx context.Context, reviewID int64, query string, extra ...any) (*Review, error) {
	var updated *Review

	err := dbx.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		args := append([]any{reviewID}, extra...)

		var restaurantID int64
		if err := tx.QueryRow(ctx, query, args...).Scan(&restaurantID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("update review status: %w", err)
		}

		if err := r.recompute(ctx, tx, restaurantID); err != nil {
			return err
		}

		review, err := r.getByID(ctx, tx, reviewID)
		if err != nil {
			return err
		}
		updated = review
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repository) RecomputeRating(ctx context.Context, restaurantID int64) error {
	return dbx.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		return r.recompute(ctx, tx, restaurantID)
	})
}

// recompute rebuilds the restaurant's cached aggregate from scratch over
// the approved reviews. Only approved reviews are counted; pending and
// rejected ones never contribute.
func (r *Repository) recompute(ctx context.Context, q dbx.Querier, restaurantID int64) error {
	rows, err := q.Query(ctx, `
		SELECT overall_rating FROM reviews
		WHERE restaurant_id = $1 AND status = 'approved'
	`, restaurantID)
	if err != nil {
		return fmt.Errorf("load counted ratings: %w", err)
	}

	var ratings []int
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			rows.Close()
			return fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	snap := AggregateRatings(ratings)

	breakdown, err := json.Marshal(snap.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal rating breakdown: %w", err)
	}

	tag, err := q.Exec(ctx, `
		UPDATE restaurants
		SET average_rating = $2, review_count = $3, rating_breakdown = $4, updated_at = now()
		WHERE id = $1
	`, restaurantID, snap.Average, snap.Count, breakdown)
	if err != nil {
		return fmt.Errorf("persist rating snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("restaurant %d missing during rating recompute", restaurantID)
	}

	return nil
}

// HasReview returns true if a review by this user on this restaurant
// already exists.
func (r *Repository) HasReview(ctx context.Context, restaurantID, userID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
		  SELECT 1 FROM reviews
		  WHERE restaurant_id = $1 AND user_id = $2
		)
	`
	err := r.db.QueryRow(ctx, query, restaurantID, userID).Scan(&exists)
	return exists, err
}
