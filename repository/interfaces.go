// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/country-gdp-service/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CountryRepository defines operations for mirrored countries
type CountryRepository interface {
	Repository[models.Country, models.CountryFilter]
	ByName(ctx context.Context, name string) (*models.Country, error)
	Update(ctx context.Context, country *models.Country) error
	DeleteByName(ctx context.Context, name string) (bool, error)
	TopByGDP(ctx context.Context, limit int) ([]*models.Country, error)
	LatestRefreshedAt(ctx context.Context) (*time.Time, error)
}
