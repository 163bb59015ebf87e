package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/country-gdp-service/models"
	"gorm.io/gorm"
)

// CountryRepositoryImpl implements CountryRepository interface
type CountryRepositoryImpl struct {
	*BaseRepository[models.Country, models.CountryFilter]
}

// NewCountryRepository creates a new country repository
func NewCountryRepository(db *gorm.DB) CountryRepository {
	return &CountryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Country, models.CountryFilter](db),
	}
}

// ByName retrieves a country by name, ignoring case
func (r *CountryRepositoryImpl) ByName(ctx context.Context, name string) (*models.Country, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	rows, err := r.ByFilter(ctx, models.CountryFilter{Name: &name}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// applyFilter applies filter criteria to a GORM query
func (r *CountryRepositoryImpl) applyFilter(query *gorm.DB, filter models.CountryFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name_key = ?", models.NameKey(*filter.Name))
	}
	if filter.Region != nil {
		query = query.Where("LOWER(region) = LOWER(?)", *filter.Region)
	}
	if filter.CurrencyCode != nil {
		query = query.Where("LOWER(currency_code) = LOWER(?)", *filter.CurrencyCode)
	}
	return query
}

// ByFilter retrieves countries based on filter criteria
func (r *CountryRepositoryImpl) ByFilter(ctx context.Context, filter models.CountryFilter, orderBy string, limit, offset int) ([]*models.Country, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Country{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = models.CountryOrderDefault
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Country
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	return rows, nil
}

// Count returns number of countries matching filter
func (r *CountryRepositoryImpl) Count(ctx context.Context, filter models.CountryFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Country{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count countries: %w", err)
	}
	return count, nil
}

// Exists checks if any country matches the filter
func (r *CountryRepositoryImpl) Exists(ctx context.Context, filter models.CountryFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// Update writes every mutable field of an existing country by ID, nil values included
func (r *CountryRepositoryImpl) Update(ctx context.Context, country *models.Country) error {
	if country == nil {
		return errors.New("country payload is nil")
	}
	if country.ID == 0 {
		return errors.New("country ID is required for update")
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	country.NameKey = models.NameKey(country.Name)
	updates := map[string]any{
		"name":              country.Name,
		"name_key":          country.NameKey,
		"capital":           country.Capital,
		"region":            country.Region,
		"population":        country.Population,
		"currency_code":     country.CurrencyCode,
		"exchange_rate":     country.ExchangeRate,
		"estimated_gdp":     country.EstimatedGDP,
		"flag_url":          country.FlagURL,
		"last_refreshed_at": country.LastRefreshedAt.UTC(),
	}

	res := db.Model(&models.Country{}).Where("id = ?", country.ID).Updates(updates)
	if res.Error != nil {
		err = fmt.Errorf("failed to update country %d: %w", country.ID, res.Error)
	} else if res.RowsAffected == 0 {
		err = fmt.Errorf("failed to update country %d: %w", country.ID, gorm.ErrRecordNotFound)
	}

	return finishWrite(db, shouldCommit, err)
}

// DeleteByName removes a country by name, ignoring case; reports whether a row was deleted
func (r *CountryRepositoryImpl) DeleteByName(ctx context.Context, name string) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}

	res := db.Where("name_key = ?", models.NameKey(name)).Delete(&models.Country{})
	if res.Error != nil {
		err = fmt.Errorf("failed to delete country %q: %w", name, res.Error)
	}

	if err = finishWrite(db, shouldCommit, err); err != nil {
		return false, err
	}
	return res.RowsAffected > 0, nil
}

// TopByGDP returns the countries with the highest estimated GDP; unknown GDP sorts last
func (r *CountryRepositoryImpl) TopByGDP(ctx context.Context, limit int) ([]*models.Country, error) {
	return r.ByFilter(ctx, models.CountryFilter{}, models.CountryOrderGDPDesc, limit, 0)
}

// LatestRefreshedAt returns the most recent refresh timestamp, or nil when the table is empty
func (r *CountryRepositoryImpl) LatestRefreshedAt(ctx context.Context) (*time.Time, error) {
	rows, err := r.ByFilter(ctx, models.CountryFilter{}, "last_refreshed_at DESC, id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	ts := rows[0].LastRefreshedAt.UTC()
	return &ts, nil
}
