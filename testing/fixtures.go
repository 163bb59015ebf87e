// Package testing provides test utilities and database setup for the country store
package testing

import (
	"fmt"
	"time"

	"github.com/amirphl/country-gdp-service/models"
	"github.com/amirphl/country-gdp-service/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CountryOption customizes a fixture country before it is inserted
type CountryOption func(*models.Country)

func WithRegion(region string) CountryOption {
	return func(c *models.Country) { c.Region = &region }
}

func WithCurrency(code string, rate float64) CountryOption {
	return func(c *models.Country) {
		c.CurrencyCode = &code
		c.ExchangeRate = &rate
	}
}

func WithGDP(gdp *float64) CountryOption {
	return func(c *models.Country) { c.EstimatedGDP = gdp }
}

func WithPopulation(population int64) CountryOption {
	return func(c *models.Country) { c.Population = population }
}

func WithRefreshedAt(ts time.Time) CountryOption {
	return func(c *models.Country) { c.LastRefreshedAt = ts.UTC() }
}

// CreateTestCountry inserts a country with sensible defaults
func (tf *TestFixtures) CreateTestCountry(name string, opts ...CountryOption) (*models.Country, error) {
	country := &models.Country{
		Name:            name,
		Capital:         utils.ToPtr(name + " City"),
		Region:          utils.ToPtr("Africa"),
		Population:      1_000_000,
		CurrencyCode:    utils.ToPtr("NGN"),
		ExchangeRate:    utils.ToPtr(1600.0),
		EstimatedGDP:    utils.ToPtr(1_000_000.0),
		FlagURL:         utils.ToPtr("https://flagcdn.com/" + name + ".svg"),
		LastRefreshedAt: utils.UTCNow(),
	}
	for _, opt := range opts {
		opt(country)
	}

	if err := tf.DB.DB.Create(country).Error; err != nil {
		return nil, fmt.Errorf("failed to create test country %s: %w", name, err)
	}
	return country, nil
}

// CreateTestCountries inserts one default country per name
func (tf *TestFixtures) CreateTestCountries(names ...string) ([]*models.Country, error) {
	countries := make([]*models.Country, 0, len(names))
	for _, name := range names {
		c, err := tf.CreateTestCountry(name)
		if err != nil {
			return nil, err
		}
		countries = append(countries, c)
	}
	return countries, nil
}
