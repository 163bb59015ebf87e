// Package models contains the persistent domain entities and their filter types
package models

import (
	"strings"
	"time"

	"github.com/amirphl/country-gdp-service/utils"
	"gorm.io/gorm"
)

// Country is a mirrored country record enriched with a USD exchange rate and an estimated GDP
// Table: countries
// Indices: name_key unique (created by migrations), region, currency_code
// Name is the only external identity key
// ExchangeRate and EstimatedGDP are nil when unknown
type Country struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	NameKey         string    `gorm:"column:name_key;type:varchar(255);not null" json:"-"`
	Capital         *string   `gorm:"type:varchar(255)" json:"capital"`
	Region          *string   `gorm:"type:varchar(255);index:idx_countries_region" json:"region"`
	Population      int64     `gorm:"not null;default:0" json:"population"`
	CurrencyCode    *string   `gorm:"type:varchar(10);index:idx_countries_currency_code" json:"currency_code"`
	ExchangeRate    *float64  `json:"exchange_rate"`
	EstimatedGDP    *float64  `gorm:"column:estimated_gdp" json:"estimated_gdp"`
	FlagURL         *string   `gorm:"type:text" json:"flag_url"`
	LastRefreshedAt time.Time `gorm:"not null" json:"last_refreshed_at"`
}

func (Country) TableName() string { return "countries" }

// NameKey folds a country name for case-insensitive matching
// Folding happens in Go because SQLite's LOWER only handles ASCII
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BeforeCreate derives the name key and normalizes the refresh timestamp to UTC
func (c *Country) BeforeCreate(tx *gorm.DB) error {
	c.NameKey = NameKey(c.Name)
	if c.LastRefreshedAt.IsZero() {
		c.LastRefreshedAt = utils.UTCNow()
	}
	c.LastRefreshedAt = c.LastRefreshedAt.UTC()
	return nil
}

// CountryFilter represents filter criteria for country queries
// Name, Region and CurrencyCode match case-insensitively
type CountryFilter struct {
	ID           *uint   `json:"id,omitempty"`
	Name         *string `json:"name,omitempty"`
	Region       *string `json:"region,omitempty"`
	CurrencyCode *string `json:"currency_code,omitempty"`
}

// Country list orderings
const (
	CountryOrderDefault = "id ASC"
	CountryOrderGDPAsc  = "estimated_gdp ASC NULLS FIRST, id ASC"
	CountryOrderGDPDesc = "estimated_gdp DESC NULLS LAST, id ASC"
)
