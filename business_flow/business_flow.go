// Package businessflow contains the business logic for the application.
package businessflow

import (
	"cmp"
	"context"
	"fmt"

	"github.com/amirphl/country-gdp-service/app/dto"
	"github.com/amirphl/country-gdp-service/models"
	"github.com/amirphl/country-gdp-service/utils"
)

// ClientMetadata holds client information attached to write operations for logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// logFields renders the request id and endpoint from ctx plus the client details for log lines
func logFields(ctx context.Context, cm *ClientMetadata) string {
	ip, ua := "-", "-"
	if cm != nil {
		ip = cmp.Or(cm.IPAddress, ip)
		ua = cmp.Or(cm.UserAgent, ua)
	}
	return fmt.Sprintf("request_id=%s endpoint=%s ip=%s user_agent=%q",
		utils.RequestIDFromContext(ctx), utils.EndpointFromContext(ctx), ip, ua)
}

// ToCountryDTO converts a country model to its API representation
func ToCountryDTO(country models.Country) dto.CountryDTO {
	return dto.CountryDTO{
		ID:              country.ID,
		Name:            country.Name,
		Capital:         country.Capital,
		Region:          country.Region,
		Population:      country.Population,
		CurrencyCode:    country.CurrencyCode,
		ExchangeRate:    country.ExchangeRate,
		EstimatedGDP:    country.EstimatedGDP,
		FlagURL:         country.FlagURL,
		LastRefreshedAt: utils.FormatISO(country.LastRefreshedAt),
	}
}

// ToCountryExportRow converts a country model to an export line
func ToCountryExportRow(country models.Country) dto.CountryExportRow {
	return dto.CountryExportRow{
		ID:              country.ID,
		Name:            country.Name,
		Capital:         country.Capital,
		Region:          country.Region,
		Population:      country.Population,
		CurrencyCode:    country.CurrencyCode,
		ExchangeRate:    country.ExchangeRate,
		EstimatedGDP:    country.EstimatedGDP,
		FlagURL:         country.FlagURL,
		LastRefreshedAt: utils.FormatISO(country.LastRefreshedAt),
	}
}
