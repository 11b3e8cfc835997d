package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"foodiehub/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminListUsers(t *testing.T) {
	app, _ := newTestApplication(t)
	mux := app.mount()

	admin := seedUser(t, app, "admin@example.com", true)
	seedUser(t, app, "alice@example.com", false)
	seedUser(t, app, "bob@example.com", false)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/users?search=alice", nil)
	req.Header.Set("Authorization", bearerToken(t, app, admin))
	rr := executeRequest(mux, req)
	require.Equal(t, http.StatusOK, rr.Code)

	list := decodeData[[]users.User](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, "alice@example.com", list[0].Email)
}

func TestBanUser(t *testing.T) {
	t.Run("ban and unban", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		admin := seedUser(t, app, "admin@example.com", true)
		target := seedUser(t, app, "target@example.com", false)
		adminToken := bearerToken(t, app, admin)

		rr := postJSON(t, mux, fmt.Sprintf("/v1/admin/users/%d/ban", target.ID), adminToken, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		banned, err := app.store.Users.GetByID(context.Background(), target.ID)
		require.NoError(t, err)
		assert.NotNil(t, banned.BannedAt)
		assert.Empty(t, banned.RefreshToken)

		rr = postJSON(t, mux, fmt.Sprintf("/v1/admin/users/%d/unban", target.ID), adminToken, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		unbanned, err := app.store.Users.GetByID(context.Background(), target.ID)
		require.NoError(t, err)
		assert.Nil(t, unbanned.BannedAt)
	})

	t.Run("admins cannot ban themselves", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		admin := seedUser(t, app, "admin@example.com", true)

		rr := postJSON(t, mux, fmt.Sprintf("/v1/admin/users/%d/ban", admin.ID), bearerToken(t, app, admin), nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		app, _ := newTestApplication(t)
		mux := app.mount()

		admin := seedUser(t, app, "admin@example.com", true)

		rr := postJSON(t, mux, "/v1/admin/users/999/ban", bearerToken(t, app, admin), nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	app, _ := newTestApplication(t)
	mux := app.mount()

	admin := seedUser(t, app, "admin@example.com", true)
	target := seedUser(t, app, "target@example.com", false)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/admin/users/%d", target.ID), nil)
	req.Header.Set("Authorization", bearerToken(t, app, admin))
	rr := executeRequest(mux, req)
	require.Equal(t, http.StatusOK, rr.Code)

	_, err := app.store.Users.GetByID(context.Background(), target.ID)
	assert.ErrorIs(t, err, users.ErrNotFound)
}
