package dto

// CountryDTO is the public representation of a stored country
// LastRefreshedAt is RFC3339 in UTC with microseconds
type CountryDTO struct {
	ID              uint     `json:"id"`
	Name            string   `json:"name"`
	Capital         *string  `json:"capital"`
	Region          *string  `json:"region"`
	Population      int64    `json:"population"`
	CurrencyCode    *string  `json:"currency_code"`
	ExchangeRate    *float64 `json:"exchange_rate"`
	EstimatedGDP    *float64 `json:"estimated_gdp"`
	FlagURL         *string  `json:"flag_url"`
	LastRefreshedAt string   `json:"last_refreshed_at"`
}

// Supported list orderings
const (
	SortGDPAsc  = "gdp_asc"
	SortGDPDesc = "gdp_desc"
)

// ListCountriesRequest filters a country listing
// Region and Currency match case-insensitively; unknown Sort values keep insertion order
type ListCountriesRequest struct {
	Region   *string `query:"region" json:"region,omitempty"`
	Currency *string `query:"currency" json:"currency,omitempty"`
	Sort     string  `query:"sort" json:"sort,omitempty"`
}

// Supported export formats
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
)

// ExportCountriesRequest selects countries like a listing and picks the file format (csv by default)
type ExportCountriesRequest struct {
	ListCountriesRequest
	Format string `query:"format" json:"format,omitempty"`
}

// CountryExportRow is one exported line; nil values become empty cells
type CountryExportRow struct {
	ID              uint     `csv:"id"`
	Name            string   `csv:"name"`
	Capital         *string  `csv:"capital,omitempty"`
	Region          *string  `csv:"region,omitempty"`
	Population      int64    `csv:"population"`
	CurrencyCode    *string  `csv:"currency_code,omitempty"`
	ExchangeRate    *float64 `csv:"exchange_rate,omitempty"`
	EstimatedGDP    *float64 `csv:"estimated_gdp,omitempty"`
	FlagURL         *string  `csv:"flag_url,omitempty"`
	LastRefreshedAt string   `csv:"last_refreshed_at"`
}

// CreateCountryRequest creates a country outside of a refresh
type CreateCountryRequest struct {
	Name         string   `json:"name" validate:"required,notblank,max=255"`
	Capital      *string  `json:"capital,omitempty" validate:"omitempty,max=255"`
	Region       *string  `json:"region,omitempty" validate:"omitempty,max=255"`
	Population   *int64   `json:"population" validate:"required,gte=0"`
	CurrencyCode string   `json:"currency_code" validate:"required,notblank,max=10"`
	ExchangeRate *float64 `json:"exchange_rate,omitempty" validate:"omitempty,gt=0"`
	EstimatedGDP *float64 `json:"estimated_gdp,omitempty" validate:"omitempty,gte=0"`
	FlagURL      *string  `json:"flag_url,omitempty" validate:"omitempty,url"`
}

// UpdateCountryRequest replaces the provided fields of a country; Population is always required
// A non-nil Name renames the country
type UpdateCountryRequest struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	Capital      *string  `json:"capital,omitempty" validate:"omitempty,max=255"`
	Region       *string  `json:"region,omitempty" validate:"omitempty,max=255"`
	Population   *int64   `json:"population" validate:"required,gte=0"`
	CurrencyCode *string  `json:"currency_code,omitempty" validate:"omitempty,notblank,max=10"`
	ExchangeRate *float64 `json:"exchange_rate,omitempty" validate:"omitempty,gt=0"`
	EstimatedGDP *float64 `json:"estimated_gdp,omitempty" validate:"omitempty,gte=0"`
	FlagURL      *string  `json:"flag_url,omitempty" validate:"omitempty,url"`
}

// RefreshCountriesResponse summarizes a completed refresh
type RefreshCountriesResponse struct {
	Message         string `json:"message"`
	TotalCountries  int64  `json:"total_countries"`
	LastRefreshedAt string `json:"last_refreshed_at"`
}

// StatusResponse reports how many countries are stored and when they were last refreshed
type StatusResponse struct {
	TotalCountries  int64   `json:"total_countries"`
	LastRefreshedAt *string `json:"last_refreshed_at"`
}
