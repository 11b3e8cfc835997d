package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"foodiehub/internal/auth"
	"foodiehub/internal/domain/favorites"
	"foodiehub/internal/domain/restaurants"
	"foodiehub/internal/domain/reviews"
	"foodiehub/internal/domain/storage"
	"foodiehub/internal/domain/users"
	"foodiehub/internal/ratelimiter"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeData is the shared in-memory backing for all fake stores. Review
// mutations recompute the restaurant aggregate with the same function the
// real store uses.
type fakeData struct {
	mu          sync.Mutex
	users       map[int64]*users.User
	restaurants map[int64]*restaurants.Restaurant
	reviews     map[int64]*reviews.Review
	favorites   map[int64]map[int64]time.Time // userID -> restaurantID -> favorited at
	nextID      int64
}

func newFakeData() *fakeData {
	return &fakeData{
		users:       make(map[int64]*users.User),
		restaurants: make(map[int64]*restaurants.Restaurant),
		reviews:     make(map[int64]*reviews.Review),
		favorites:   make(map[int64]map[int64]time.Time),
	}
}

func (d *fakeData) id() int64 {
	d.nextID++
	return d.nextID
}

// recompute mirrors the SQL store: rebuild the cached aggregate from the
// approved reviews only.
func (d *fakeData) recompute(restaurantID int64) {
	rst, ok := d.restaurants[restaurantID]
	if !ok {
		return
	}

	var ratings []int
	for _, rv := range d.reviews {
		if rv.RestaurantID == restaurantID && rv.Status == reviews.StatusApproved {
			ratings = append(ratings, rv.OverallRating)
		}
	}

	snap := reviews.AggregateRatings(ratings)
	rst.AverageRating = snap.Average
	rst.ReviewCount = snap.Count
	rst.RatingBreakdown = snap.Breakdown
}

type fakeUsersStore struct{ d *fakeData }

func (s *fakeUsersStore) Create(_ context.Context, u *users.User) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, existing := range s.d.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return users.ErrDuplicateEmail
		}
	}

	u.ID = s.d.id()
	u.IsActive = true
	u.EmailNotifications = false
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.d.users[u.ID] = u
	return nil
}

func (s *fakeUsersStore) GetByID(_ context.Context, userID int64) (*users.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[userID]
	if !ok {
		return nil, users.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUsersStore) GetByEmail(_ context.Context, email string) (*users.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, u := range s.d.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, users.ErrNotFound
}

func (s *fakeUsersStore) Update(_ context.Context, userID int64, updateData map[string]interface{}) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[userID]
	if !ok {
		return users.ErrNotFound
	}
	for k, v := range updateData {
		switch k {
		case "first_name":
			u.FirstName = v.(string)
		case "last_name":
			u.LastName = v.(string)
		case "bio":
			b := v.(string)
			u.Bio = &b
		case "location":
			l := v.(string)
			u.Location = &l
		case "is_public":
			u.IsPublic = v.(bool)
		case "email_notifications":
			u.EmailNotifications = v.(bool)
		}
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (s *fakeUsersStore) SetAvatar(_ context.Context, userID int64, avatarURL string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[userID]
	if !ok {
		return users.ErrNotFound
	}
	u.AvatarURL = &avatarURL
	return nil
}

func (s *fakeUsersStore) SaveRefreshToken(_ context.Context, userID int64, refreshToken string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[userID]
	if !ok {
		return users.ErrNotFound
	}
	u.RefreshToken = refreshToken
	return nil
}

func (s *fakeUsersStore) GetRefreshToken(_ context.Context, userID int64) (string, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[userID]
	if !ok {
		return "", users.ErrNotFound
	}
	return u.RefreshToken, nil
}

func (s *fakeUsersStore) DeleteRefreshToken(_ context.Context, userID int64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[userID]
	if !ok {
		return users.ErrNotFound
	}
	u.RefreshToken = ""
	return nil
}

func (s *fakeUsersStore) RecordLogin(_ context.Context, userID int64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[userID]
	if !ok {
		return users.ErrNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

func (s *fakeUsersStore) Ban(_ context.Context, userID int64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[userID]
	if !ok {
		return users.ErrNotFound
	}
	now := time.Now()
	u.BannedAt = &now
	u.RefreshToken = ""
	return nil
}

func (s *fakeUsersStore) Unban(_ context.Context, userID int64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[userID]
	if !ok {
		return users.ErrNotFound
	}
	u.BannedAt = nil
	return nil
}

func (s *fakeUsersStore) Delete(_ context.Context, userID int64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	if _, ok := s.d.users[userID]; !ok {
		return users.ErrNotFound
	}
	delete(s.d.users, userID)
	return nil
}

func (s *fakeUsersStore) ListAdmin(_ context.Context, filters users.AdminListFilters, limit, offset int) ([]users.User, int, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var list []users.User
	for _, u := range s.d.users {
		if filters.IsAdmin != nil && u.IsAdmin != *filters.IsAdmin {
			continue
		}
		if filters.IsActive != nil && u.IsActive != *filters.IsActive {
			continue
		}
		if filters.Search != nil {
			needle := strings.ToLower(*filters.Search)
			hay := strings.ToLower(u.FirstName + " " + u.LastName + " " + u.Email)
			if !strings.Contains(hay, needle) {
				continue
			}
		}
		list = append(list, *u)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	total := len(list)
	return page(list, limit, offset), total, nil
}

type fakeRestaurantsStore struct{ d *fakeData }

func (s *fakeRestaurantsStore) Create(_ context.Context, rst *restaurants.Restaurant) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	rst.ID = s.d.id()
	rst.RatingBreakdown = map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	rst.CreatedAt = time.Now()
	rst.UpdatedAt = rst.CreatedAt
	cp := *rst
	s.d.restaurants[rst.ID] = &cp
	return nil
}

func (s *fakeRestaurantsStore) GetByID(_ context.Context, restaurantID int64) (*restaurants.Restaurant, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	rst, ok := s.d.restaurants[restaurantID]
	if !ok {
		return nil, restaurants.ErrNotFound
	}
	cp := *rst
	return &cp, nil
}

func (s *fakeRestaurantsStore) List(_ context.Context, filter restaurants.Filter) ([]restaurants.Restaurant, int, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var list []restaurants.Restaurant
	for _, rst := range s.d.restaurants {
		if !rst.IsActive {
			continue
		}
		if filter.Cuisine != nil && !strings.EqualFold(rst.Cuisine, *filter.Cuisine) {
			continue
		}
		if filter.PriceRange != nil && rst.PriceRange != *filter.PriceRange {
			continue
		}
		if filter.MinRating != nil && rst.AverageRating < *filter.MinRating {
			continue
		}
		list = append(list, *rst)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].AverageRating > list[j].AverageRating })

	total := len(list)
	return page(list, filter.Limit, filter.Offset), total, nil
}

func (s *fakeRestaurantsStore) Update(_ context.Context, restaurantID int64, updateData map[string]interface{}) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	rst, ok := s.d.restaurants[restaurantID]
	if !ok {
		return restaurants.ErrNotFound
	}
	for k, v := range updateData {
		switch k {
		case "name":
			rst.Name = v.(string)
		case "cuisine":
			rst.Cuisine = v.(string)
		case "is_active":
			rst.IsActive = v.(bool)
		}
	}
	rst.UpdatedAt = time.Now()
	return nil
}

func (s *fakeRestaurantsStore) Delete(_ context.Context, restaurantID int64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	rst, ok := s.d.restaurants[restaurantID]
	if !ok {
		return restaurants.ErrNotFound
	}
	rst.IsActive = false
	return nil
}

func (s *fakeRestaurantsStore) IsOwner(_ context.Context, restaurantID, userID int64) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	rst, ok := s.d.restaurants[restaurantID]
	if !ok {
		return false, nil
	}
	return rst.OwnerID != nil && *rst.OwnerID == userID, nil
}

func (s *fakeRestaurantsStore) IsActive(_ context.Context, restaurantID int64) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	rst, ok := s.d.restaurants[restaurantID]
	return ok && rst.IsActive, nil
}

func (s *fakeRestaurantsStore) AddPhotoURL(_ context.Context, restaurantID int64, photoURL string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	rst, ok := s.d.restaurants[restaurantID]
	if !ok {
		return restaurants.ErrNotFound
	}
	rst.ImageURLs = append(rst.ImageURLs, photoURL)
	return nil
}

func (s *fakeRestaurantsStore) RemovePhotoURL(_ context.Context, restaurantID int64, photoURL string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	rst, ok := s.d.restaurants[restaurantID]
	if !ok {
		return restaurants.ErrNotFound
	}
	kept := rst.ImageURLs[:0]
	for _, u := range rst.ImageURLs {
		if u != photoURL {
			kept = append(kept, u)
		}
	}
	rst.ImageURLs = kept
	return nil
}

type fakeReviewsStore struct{ d *fakeData }

func (s *fakeReviewsStore) Create(_ context.Context, rv *reviews.Review) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, existing := range s.d.reviews {
		if existing.UserID == rv.UserID && existing.RestaurantID == rv.RestaurantID {
			return reviews.ErrDuplicateReview
		}
	}

	rv.ID = s.d.id()
	rv.Status = reviews.StatusPending
	rv.CreatedAt = time.Now()
	rv.UpdatedAt = rv.CreatedAt
	cp := *rv
	s.d.reviews[rv.ID] = &cp

	s.d.recompute(rv.RestaurantID)
	return nil
}

func (s *fakeReviewsStore) GetByID(_ context.Context, reviewID int64) (*reviews.Review, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return s.getLocked(reviewID)
}

func (s *fakeReviewsStore) getLocked(reviewID int64) (*reviews.Review, error) {
	rv, ok := s.d.reviews[reviewID]
	if !ok {
		return nil, reviews.ErrNotFound
	}
	cp := *rv
	if u, ok := s.d.users[rv.UserID]; ok {
		cp.UserName = u.FirstName + " " + u.LastName
	}
	if rst, ok := s.d.restaurants[rv.RestaurantID]; ok {
		cp.RestaurantName = rst.Name
	}
	return &cp, nil
}

func (s *fakeReviewsStore) Update(_ context.Context, reviewID int64, fields reviews.UpdateFields) (*reviews.Review, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	rv, ok := s.d.reviews[reviewID]
	if !ok {
		return nil, reviews.ErrNotFound
	}

	if fields.OverallRating != nil {
		rv.OverallRating = *fields.OverallRating
	}
	if fields.FoodRating != nil {
		rv.FoodRating = fields.FoodRating
	}
	if fields.ServiceRating != nil {
		rv.ServiceRating = fields.ServiceRating
	}
	if fields.AmbianceRating != nil {
		rv.AmbianceRating = fields.AmbianceRating
	}
	if fields.ValueRating != nil {
		rv.ValueRating = fields.ValueRating
	}
	if fields.Title != nil {
		rv.Title = fields.Title
	}
	if fields.Comment != nil {
		rv.Comment = *fields.Comment
	}
	if fields.VisitDate != nil {
		rv.VisitDate = fields.VisitDate
	}
	if fields.Recommend != nil {
		rv.Recommend = fields.Recommend
	}
	if fields.Photos != nil {
		rv.Photos = *fields.Photos
	}
	rv.UpdatedAt = time.Now()

	s.d.recompute(rv.RestaurantID)
	return s.getLocked(reviewID)
}

func (s *fakeReviewsStore) Delete(_ context.Context, reviewID int64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	rv, ok := s.d.reviews[reviewID]
	if !ok {
		return reviews.ErrNotFound
	}
	delete(s.d.reviews, reviewID)
	s.d.recompute(rv.RestaurantID)
	return nil
}

func (s *fakeReviewsStore) List(_ context.Context, filter reviews.Filter) ([]reviews.Review, int, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var list []reviews.Review
	for id := range s.d.reviews {
		rv, _ := s.getLocked(id)
		if filter.RestaurantID != nil && rv.RestaurantID != *filter.RestaurantID {
			continue
		}
		if filter.UserID != nil && rv.UserID != *filter.UserID {
			continue
		}
		if filter.Rating != nil && rv.OverallRating != *filter.Rating {
			continue
		}
		if filter.MinRating != nil && rv.OverallRating < *filter.MinRating {
			continue
		}
		if filter.Status != nil && rv.Status != *filter.Status {
			continue
		}
		if filter.Search != nil {
			needle := strings.ToLower(*filter.Search)
			hay := strings.ToLower(rv.Comment + " " + rv.UserName + " " + rv.RestaurantName)
			if rv.Title != nil {
				hay += " " + strings.ToLower(*rv.Title)
			}
			if !strings.Contains(hay, needle) {
				continue
			}
		}
		list = append(list, *rv)
	}

	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch filter.SortBy {
		case reviews.SortOldest:
			return a.CreatedAt.Before(b.CreatedAt)
		case reviews.SortHighest:
			return a.OverallRating > b.OverallRating
		case reviews.SortLowest:
			return a.OverallRating < b.OverallRating
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})

	total := len(list)
	return page(list, filter.Limit, filter.Offset), total, nil
}

func (s *fakeReviewsStore) Approve(_ context.Context, reviewID int64) (*reviews.Review, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	rv, ok := s.d.reviews[reviewID]
	if !ok {
		return nil, reviews.ErrNotFound
	}
	now := time.Now()
	rv.Status = reviews.StatusApproved
	rv.ApprovedAt = &now
	rv.RejectedAt = nil
	rv.RejectReason = nil

	s.d.recompute(rv.RestaurantID)
	return s.getLocked(reviewID)
}

func (s *fakeReviewsStore) Reject(_ context.Context, reviewID int64, reason *string) (*reviews.Review, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	rv, ok := s.d.reviews[reviewID]
	if !ok {
		return nil, reviews.ErrNotFound
	}
	now := time.Now()
	rv.Status = reviews.StatusRejected
	rv.RejectedAt = &now
	rv.RejectReason = reason
	rv.ApprovedAt = nil

	s.d.recompute(rv.RestaurantID)
	return s.getLocked(reviewID)
}

func (s *fakeReviewsStore) RecomputeRating(_ context.Context, restaurantID int64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.recompute(restaurantID)
	return nil
}

func (s *fakeReviewsStore) HasReview(_ context.Context, restaurantID, userID int64) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, rv := range s.d.reviews {
		if rv.RestaurantID == restaurantID && rv.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeFavoritesStore struct{ d *fakeData }

func (s *fakeFavoritesStore) Add(_ context.Context, userID, restaurantID int64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	if s.d.favorites[userID] == nil {
		s.d.favorites[userID] = make(map[int64]time.Time)
	}
	if _, ok := s.d.favorites[userID][restaurantID]; ok {
		return favorites.ErrAlreadyFavorite
	}
	s.d.favorites[userID][restaurantID] = time.Now()
	return nil
}

func (s *fakeFavoritesStore) Remove(_ context.Context, userID, restaurantID int64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	delete(s.d.favorites[userID], restaurantID)
	return nil
}

func (s *fakeFavoritesStore) ListByUser(_ context.Context, userID int64) ([]restaurants.Restaurant, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var list []restaurants.Restaurant
	for restaurantID := range s.d.favorites[userID] {
		if rst, ok := s.d.restaurants[restaurantID]; ok {
			list = append(list, *rst)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *fakeFavoritesStore) IDsByUser(_ context.Context, userID int64) (map[int64]struct{}, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	ids := make(map[int64]struct{})
	for restaurantID := range s.d.favorites[userID] {
		ids[restaurantID] = struct{}{}
	}
	return ids, nil
}

func page[T any](list []T, limit, offset int) []T {
	if limit <= 0 {
		return list
	}
	if offset >= len(list) {
		return nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string // template names, in order
}

func (m *fakeMailer) Send(templateFile, username, email string, data any) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, templateFile)
	return http.StatusOK, nil
}

func newTestApplication(t *testing.T) (*application, *fakeData) {
	t.Helper()

	data := newFakeData()

	app := &application{
		config: config{
			addr: ":0",
			env:  "test",
			auth: authConfig{
				basic: basicConfig{user: "admin", pass: "admin"},
			},
		},
		store: &storage.Container{
			Users:       &fakeUsersStore{d: data},
			Restaurants: &fakeRestaurantsStore{d: data},
			Reviews:     &fakeReviewsStore{d: data},
			Favorites:   &fakeFavoritesStore{d: data},
		},
		logger:        zap.NewNop().Sugar(),
		mailer:        &fakeMailer{},
		authenticator: auth.NewJWTAuthenticator("test-secret", "test-refresh-secret", "foodiehub", "foodiehub", time.Hour, 24*time.Hour),
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(1000, time.Minute),
	}

	return app, data
}

func seedUser(t *testing.T, app *application, email string, isAdmin bool) *users.User {
	t.Helper()

	u := &users.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		IsAdmin:   isAdmin,
	}
	require.NoError(t, u.Password.Set("password123"))
	require.NoError(t, app.store.Users.Create(context.Background(), u))
	return u
}

func seedRestaurant(t *testing.T, app *application, name string) *restaurants.Restaurant {
	t.Helper()

	rst := &restaurants.Restaurant{
		Name:       name,
		Cuisine:    "Italian",
		Location:   "Downtown",
		Address:    "1 Main Street",
		PriceRange: "$$",
		IsActive:   true,
	}
	require.NoError(t, app.store.Restaurants.Create(context.Background(), rst))
	return rst
}

func bearerToken(t *testing.T, app *application, u *users.User) string {
	t.Helper()

	access, _, err := app.authenticator.GenerateTokens(u.ID, roleOf(u))
	require.NoError(t, err)
	return "Bearer " + access
}

func executeRequest(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func longComment() string {
	return fmt.Sprintf("The pasta was outstanding and the service was quick; %s", strings.Repeat("would eat here again. ", 3))
}
