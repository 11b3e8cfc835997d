package storage

import (
	"foodiehub/internal/domain/favorites"
	"foodiehub/internal/domain/restaurants"
	"foodiehub/internal/domain/reviews"
	"foodiehub/internal/domain/users"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	Users       users.Store
	Restaurants restaurants.Store
	Reviews     reviews.Store
	Favorites   favorites.Store
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		Users:       users.NewRepository(db),
		Restaurants: restaurants.NewRepository(db),
		Reviews:     reviews.NewRepository(db),
		Favorites:   favorites.NewRepository(db),
	}
}
