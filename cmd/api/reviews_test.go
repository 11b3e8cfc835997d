package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"foodiehub/internal/domain/restaurants"
	"foodiehub/internal/domain/reviews"
	"foodiehub/internal/mailer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, mux http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return executeRequest(mux, req)
}

func decodeData[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	return envelope.Data
}

func createReviewBody(restaurantID int64, rating int) map[string]any {
	return map[string]any{
		"restaurant_id":  restaurantID,
		"overall_rating": rating,
		"comment":        longComment(),
	}
}

func TestCreateReview(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		rr := postJSON(t, mux, "/v1/reviews", "", createReviewBody(1, 5))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("creates a pending review that does not count yet", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		user := seedUser(t, app, "diner@example.com", false)
		rst := seedRestaurant(t, app, "Trattoria")

		rr := postJSON(t, mux, "/v1/reviews", bearerToken(t, app, user), createReviewBody(rst.ID, 5))
		require.Equal(t, http.StatusCreated, rr.Code)

		created := decodeData[reviews.Review](t, rr)
		assert.Equal(t, reviews.StatusPending, created.Status)
		assert.Equal(t, rst.Name, created.RestaurantName)

		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/restaurants/%d", rst.ID), nil)
		rr = executeRequest(mux, req)
		require.Equal(t, http.StatusOK, rr.Code)

		fetched := decodeData[restaurants.Restaurant](t, rr)
		assert.Equal(t, 0.0, fetched.AverageRating)
		assert.Equal(t, 0, fetched.ReviewCount)
	})

	t.Run("rejects a second review for the same restaurant", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		user := seedUser(t, app, "diner@example.com", false)
		rst := seedRestaurant(t, app, "Trattoria")
		token := bearerToken(t, app, user)

		rr := postJSON(t, mux, "/v1/reviews", token, createReviewBody(rst.ID, 5))
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = postJSON(t, mux, "/v1/reviews", token, createReviewBody(rst.ID, 3))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("rejects a short comment", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		user := seedUser(t, app, "diner@example.com", false)
		rst := seedRestaurant(t, app, "Trattoria")

		body := createReviewBody(rst.ID, 4)
		body["comment"] = "too short"

		rr := postJSON(t, mux, "/v1/reviews", bearerToken(t, app, user), body)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		var envelope struct {
			Errors map[string]string `json:"errors"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
		assert.Contains(t, envelope.Errors, "comment")
	})

	t.Run("rejects an inactive restaurant", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		user := seedUser(t, app, "diner@example.com", false)

		rr := postJSON(t, mux, "/v1/reviews", bearerToken(t, app, user), createReviewBody(999, 4))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("rejects a future visit date", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		user := seedUser(t, app, "diner@example.com", false)
		rst := seedRestaurant(t, app, "Trattoria")

		body := createReviewBody(rst.ID, 4)
		body["visit_date"] = "2999-01-01"

		rr := postJSON(t, mux, "/v1/reviews", bearerToken(t, app, user), body)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

func TestUpdateReview(t *testing.T) {
	t.Run("only the author may edit", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		author := seedUser(t, app, "author@example.com", false)
		other := seedUser(t, app, "other@example.com", false)
		admin := seedUser(t, app, "admin@example.com", true)
		rst := seedRestaurant(t, app, "Trattoria")

		rr := postJSON(t, mux, "/v1/reviews", bearerToken(t, app, author), createReviewBody(rst.ID, 5))
		require.Equal(t, http.StatusCreated, rr.Code)
		created := decodeData[reviews.Review](t, rr)

		update := map[string]any{"overall_rating": 3}
		for _, u := range []struct {
			token string
			want  int
		}{
			{bearerToken(t, app, other), http.StatusForbidden},
			{bearerToken(t, app, admin), http.StatusForbidden}, // admins moderate, they don't edit
			{bearerToken(t, app, author), http.StatusOK},
		} {
			buf, err := json.Marshal(update)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/v1/reviews/%d", created.ID), bytes.NewReader(buf))
			req.Header.Set("Authorization", u.token)
			rr = executeRequest(mux, req)
			assert.Equal(t, u.want, rr.Code)
		}
	})

	t.Run("empty payload is a bad request", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		author := seedUser(t, app, "author@example.com", false)
		rst := seedRestaurant(t, app, "Trattoria")

		rr := postJSON(t, mux, "/v1/reviews", bearerToken(t, app, author), createReviewBody(rst.ID, 5))
		require.Equal(t, http.StatusCreated, rr.Code)
		created := decodeData[reviews.Review](t, rr)

		req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/v1/reviews/%d", created.ID), bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Authorization", bearerToken(t, app, author))
		rr = executeRequest(mux, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDeleteReview(t *testing.T) {
	t.Run("admin may delete another user's review", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		author := seedUser(t, app, "author@example.com", false)
		admin := seedUser(t, app, "admin@example.com", true)
		rst := seedRestaurant(t, app, "Trattoria")

		rr := postJSON(t, mux, "/v1/reviews", bearerToken(t, app, author), createReviewBody(rst.ID, 5))
		require.Equal(t, http.StatusCreated, rr.Code)
		created := decodeData[reviews.Review](t, rr)

		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/reviews/%d", created.ID), nil)
		req.Header.Set("Authorization", bearerToken(t, app, admin))
		rr = executeRequest(mux, req)
		assert.Equal(t, http.StatusOK, rr.Code)

		req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/reviews/%d", created.ID), nil)
		req.Header.Set("Authorization", bearerToken(t, app, admin))
		rr = executeRequest(mux, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestListReviews(t *testing.T) {
	t.Run("public listing only ever shows approved reviews", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		alice := seedUser(t, app, "alice@example.com", false)
		bob := seedUser(t, app, "bob@example.com", false)
		admin := seedUser(t, app, "admin@example.com", true)
		rst := seedRestaurant(t, app, "Trattoria")

		rr := postJSON(t, mux, "/v1/reviews", bearerToken(t, app, alice), createReviewBody(rst.ID, 5))
		require.Equal(t, http.StatusCreated, rr.Code)
		approved := decodeData[reviews.Review](t, rr)

		rr = postJSON(t, mux, "/v1/reviews", bearerToken(t, app, bob), createReviewBody(rst.ID, 2))
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = postJSON(t, mux, fmt.Sprintf("/v1/admin/reviews/%d/approve", approved.ID), bearerToken(t, app, admin), nil)
		require.Equal(t, http.StatusOK, rr.Code)

		// status in the query string must not leak pending reviews
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/reviews?restaurant_id=%d&status=pending", rst.ID), nil)
		rr = executeRequest(mux, req)
		require.Equal(t, http.StatusOK, rr.Code)

		list := decodeData[[]reviews.Review](t, rr)
		require.Len(t, list, 1)
		assert.Equal(t, approved.ID, list[0].ID)
		assert.Equal(t, reviews.StatusApproved, list[0].Status)
	})
}

// The full moderation lifecycle: every transition in and out of the
// approved state is reflected in the restaurant's cached aggregate.
func TestRatingAggregateLifecycle(t *testing.T) {
	app, _ := newTestApplication(t)
	mux := app.mount()

	alice := seedUser(t, app, "alice@example.com", false)
	bob := seedUser(t, app, "bob@example.com", false)
	admin := seedUser(t, app, "admin@example.com", true)
	rst := seedRestaurant(t, app, "Trattoria")
	adminToken := bearerToken(t, app, admin)

	fetchAggregate := func() restaurants.Restaurant {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/restaurants/%d", rst.ID), nil)
		rr := executeRequest(mux, req)
		require.Equal(t, http.StatusOK, rr.Code)
		return decodeData[restaurants.Restaurant](t, rr)
	}

	// Two pending reviews: aggregate stays empty.
	rr := postJSON(t, mux, "/v1/reviews", bearerToken(t, app, alice), createReviewBody(rst.ID, 5))
	require.Equal(t, http.StatusCreated, rr.Code)
	first := decodeData[reviews.Review](t, rr)

	rr = postJSON(t, mux, "/v1/reviews", bearerToken(t, app, bob), createReviewBody(rst.ID, 2))
	require.Equal(t, http.StatusCreated, rr.Code)
	second := decodeData[reviews.Review](t, rr)

	agg := fetchAggregate()
	assert.Equal(t, 0.0, agg.AverageRating)
	assert.Equal(t, 0, agg.ReviewCount)

	// Approve the first: it enters the counted set.
	rr = postJSON(t, mux, fmt.Sprintf("/v1/admin/reviews/%d/approve", first.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	agg = fetchAggregate()
	assert.Equal(t, 5.0, agg.AverageRating)
	assert.Equal(t, 1, agg.ReviewCount)
	assert.Equal(t, 1, agg.RatingBreakdown[5])

	// Approve the second: (5+2)/2 = 3.5.
	rr = postJSON(t, mux, fmt.Sprintf("/v1/admin/reviews/%d/approve", second.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	agg = fetchAggregate()
	assert.Equal(t, 3.5, agg.AverageRating)
	assert.Equal(t, 2, agg.ReviewCount)

	// Reject the first: it leaves the counted set again.
	rr = postJSON(t, mux, fmt.Sprintf("/v1/admin/reviews/%d/reject", first.ID), adminToken,
		map[string]any{"reason": "spam"})
	require.Equal(t, http.StatusOK, rr.Code)

	rejected := decodeData[reviews.Review](t, rr)
	assert.Equal(t, reviews.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectReason)
	assert.Equal(t, "spam", *rejected.RejectReason)

	agg = fetchAggregate()
	assert.Equal(t, 2.0, agg.AverageRating)
	assert.Equal(t, 1, agg.ReviewCount)

	// Delete the second: back to zero.
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/reviews/%d", second.ID), nil)
	req.Header.Set("Authorization", bearerToken(t, app, bob))
	rr = executeRequest(mux, req)
	require.Equal(t, http.StatusOK, rr.Code)

	agg = fetchAggregate()
	assert.Equal(t, 0.0, agg.AverageRating)
	assert.Equal(t, 0, agg.ReviewCount)
	assert.Equal(t, 0, agg.RatingBreakdown[5])
}

func TestEditApprovedReviewMovesAggregate(t *testing.T) {
	app, _ := newTestApplication(t)
	mux := app.mount()

	alice := seedUser(t, app, "alice@example.com", false)
	admin := seedUser(t, app, "admin@example.com", true)
	rst := seedRestaurant(t, app, "Trattoria")
	adminToken := bearerToken(t, app, admin)
	aliceToken := bearerToken(t, app, alice)

	fetchAggregate := func() restaurants.Restaurant {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/restaurants/%d", rst.ID), nil)
		rr := executeRequest(mux, req)
		require.Equal(t, http.StatusOK, rr.Code)
		return decodeData[restaurants.Restaurant](t, rr)
	}

	rr := postJSON(t, mux, "/v1/reviews", aliceToken, createReviewBody(rst.ID, 5))
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeData[reviews.Review](t, rr)

	rr = postJSON(t, mux, fmt.Sprintf("/v1/admin/reviews/%d/approve", created.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	agg := fetchAggregate()
	require.Equal(t, 5.0, agg.AverageRating)
	require.Equal(t, 1, agg.ReviewCount)

	// Editing the rating of a counted review moves the aggregate with it.
	buf, err := json.Marshal(map[string]any{"overall_rating": 2})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/v1/reviews/%d", created.ID), bytes.NewReader(buf))
	req.Header.Set("Authorization", aliceToken)
	rr = executeRequest(mux, req)
	require.Equal(t, http.StatusOK, rr.Code)

	agg = fetchAggregate()
	assert.Equal(t, 2.0, agg.AverageRating)
	assert.Equal(t, 1, agg.ReviewCount)
	assert.Equal(t, 1, agg.RatingBreakdown[2])
	assert.Equal(t, 0, agg.RatingBreakdown[5])

	// Repeating a transition reasserts it without disturbing the aggregate.
	rr = postJSON(t, mux, fmt.Sprintf("/v1/admin/reviews/%d/approve", created.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	agg = fetchAggregate()
	assert.Equal(t, 2.0, agg.AverageRating)
	assert.Equal(t, 1, agg.ReviewCount)

	for i := 0; i < 2; i++ {
		rr = postJSON(t, mux, fmt.Sprintf("/v1/admin/reviews/%d/reject", created.ID), adminToken, nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	agg = fetchAggregate()
	assert.Equal(t, 0.0, agg.AverageRating)
	assert.Equal(t, 0, agg.ReviewCount)
	assert.Equal(t, 0, agg.RatingBreakdown[2])
}

func TestModerationEmail(t *testing.T) {
	app, data := newTestApplication(t)
	mux := app.mount()

	alice := seedUser(t, app, "alice@example.com", false)
	admin := seedUser(t, app, "admin@example.com", true)
	rst := seedRestaurant(t, app, "Trattoria")

	data.mu.Lock()
	data.users[alice.ID].EmailNotifications = true
	data.mu.Unlock()

	rr := postJSON(t, mux, "/v1/reviews", bearerToken(t, app, alice), createReviewBody(rst.ID, 5))
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeData[reviews.Review](t, rr)

	rr = postJSON(t, mux, fmt.Sprintf("/v1/admin/reviews/%d/approve", created.ID), bearerToken(t, app, admin), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	// The notification is sent from a goroutine; poll for it.
	fm := app.mailer.(*fakeMailer)
	var sent []string
	for i := 0; i < 20; i++ {
		time.Sleep(10 * time.Millisecond)
		fm.mu.Lock()
		sent = append([]string(nil), fm.sent...)
		fm.mu.Unlock()
		if len(sent) > 0 {
			break
		}
	}
	require.NotEmpty(t, sent, "approval email was not sent")
	assert.Equal(t, mailer.ReviewApprovedTemplate, sent[len(sent)-1])
}

func TestAdminListReviews(t *testing.T) {
	t.Run("forbidden for regular users", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		user := seedUser(t, app, "diner@example.com", false)

		req := httptest.NewRequest(http.MethodGet, "/v1/admin/reviews", nil)
		req.Header.Set("Authorization", bearerToken(t, app, user))
		rr := executeRequest(mux, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("filters by status", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		alice := seedUser(t, app, "alice@example.com", false)
		bob := seedUser(t, app, "bob@example.com", false)
		admin := seedUser(t, app, "admin@example.com", true)
		rst := seedRestaurant(t, app, "Trattoria")

		rr := postJSON(t, mux, "/v1/reviews", bearerToken(t, app, alice), createReviewBody(rst.ID, 5))
		require.Equal(t, http.StatusCreated, rr.Code)
		first := decodeData[reviews.Review](t, rr)

		rr = postJSON(t, mux, "/v1/reviews", bearerToken(t, app, bob), createReviewBody(rst.ID, 3))
		require.Equal(t, http.StatusCreated, rr.Code)

		adminToken := bearerToken(t, app, admin)
		rr = postJSON(t, mux, fmt.Sprintf("/v1/admin/reviews/%d/approve", first.ID), adminToken, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		req := httptest.NewRequest(http.MethodGet, "/v1/admin/reviews?status=pending", nil)
		req.Header.Set("Authorization", adminToken)
		rr = executeRequest(mux, req)
		require.Equal(t, http.StatusOK, rr.Code)

		list := decodeData[[]reviews.Review](t, rr)
		require.Len(t, list, 1)
		assert.Equal(t, reviews.StatusPending, list[0].Status)

		req = httptest.NewRequest(http.MethodGet, "/v1/admin/reviews?status=bogus", nil)
		req.Header.Set("Authorization", adminToken)
		rr = executeRequest(mux, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
