package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/amirphl/country-gdp-service/app/dto"
	"github.com/amirphl/country-gdp-service/app/services"
	"github.com/amirphl/country-gdp-service/models"
	"github.com/amirphl/country-gdp-service/repository"
	"github.com/amirphl/country-gdp-service/utils"
	"github.com/jszwec/csvutil"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// CountryFlow provides the read, write and export use cases over stored countries
type CountryFlow interface {
	ListCountries(ctx context.Context, req dto.ListCountriesRequest) ([]dto.CountryDTO, error)
	GetCountry(ctx context.Context, name string) (*dto.CountryDTO, error)
	CreateCountry(ctx context.Context, req *dto.CreateCountryRequest, metadata *ClientMetadata) (*dto.CountryDTO, error)
	UpdateCountry(ctx context.Context, name string, req *dto.UpdateCountryRequest, metadata *ClientMetadata) (*dto.CountryDTO, error)
	DeleteCountry(ctx context.Context, name string, metadata *ClientMetadata) error
	Status(ctx context.Context) (*dto.StatusResponse, error)
	SummaryImage(ctx context.Context) ([]byte, error)
	ExportCountries(ctx context.Context, req dto.ExportCountriesRequest) (string, []byte, error)
}

type CountryFlowImpl struct {
	countryRepo repository.CountryRepository
	renderer    *services.SummaryRenderer
	imageCache  *SummaryImageCache
	db          *gorm.DB
}

func NewCountryFlow(
	countryRepo repository.CountryRepository,
	renderer *services.SummaryRenderer,
	imageCache *SummaryImageCache,
	db *gorm.DB,
) CountryFlow {
	return &CountryFlowImpl{
		countryRepo: countryRepo,
		renderer:    renderer,
		imageCache:  imageCache,
		db:          db,
	}
}

// ListCountries returns every country matching the filters in the requested order
func (f *CountryFlowImpl) ListCountries(ctx context.Context, req dto.ListCountriesRequest) ([]dto.CountryDTO, error) {
	rows, err := f.list(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CountryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToCountryDTO(*row))
	}
	return out, nil
}

func (f *CountryFlowImpl) list(ctx context.Context, req dto.ListCountriesRequest) ([]*models.Country, error) {
	filter := models.CountryFilter{
		Region:       utils.NilIfEmpty(req.Region),
		CurrencyCode: utils.NilIfEmpty(req.Currency),
	}
	rows, err := f.countryRepo.ByFilter(ctx, filter, orderForSort(req.Sort), 0, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_COUNTRIES_FAILED", "Failed to list countries", err)
	}
	return rows, nil
}

// orderForSort maps the public sort key to a store ordering; unknown keys keep insertion order
func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case dto.SortGDPAsc:
		return models.CountryOrderGDPAsc
	case dto.SortGDPDesc:
		return models.CountryOrderGDPDesc
	default:
		return models.CountryOrderDefault
	}
}

// GetCountry looks a country up by name, ignoring case
func (f *CountryFlowImpl) GetCountry(ctx context.Context, name string) (*dto.CountryDTO, error) {
	country, err := f.byName(ctx, name)
	if err != nil {
		return nil, err
	}
	out := ToCountryDTO(*country)
	return &out, nil
}

func (f *CountryFlowImpl) byName(ctx context.Context, name string) (*models.Country, error) {
	country, err := f.countryRepo.ByName(ctx, name)
	if err != nil {
		return nil, NewBusinessError("GET_COUNTRY_FAILED", "Failed to get country", err)
	}
	if country == nil {
		return nil, NewBusinessErrorf("COUNTRY_NOT_FOUND", "Country %q not found", ErrCountryNotFound, name)
	}
	return country, nil
}

// CreateCountry stores a country outside of a refresh; names must be unique ignoring case
func (f *CountryFlowImpl) CreateCountry(ctx context.Context, req *dto.CreateCountryRequest, metadata *ClientMetadata) (*dto.CountryDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "Request is required", nil)
	}

	ve := NewValidationError()
	if strings.TrimSpace(req.Name) == "" {
		ve.Add("name", "is required")
	}
	if utils.NilIfEmpty(&req.CurrencyCode) == nil {
		ve.Add("currency_code", "is required")
	}
	if req.Population == nil {
		ve.Add("population", "is required")
	}
	if ve.HasErrors() {
		return nil, ve
	}

	country := &models.Country{
		Name:            strings.TrimSpace(req.Name),
		Capital:         req.Capital,
		Region:          req.Region,
		Population:      utils.Deref(req.Population),
		CurrencyCode:    utils.NilIfEmpty(&req.CurrencyCode),
		ExchangeRate:    req.ExchangeRate,
		EstimatedGDP:    req.EstimatedGDP,
		FlagURL:         req.FlagURL,
		LastRefreshedAt: utils.UTCNow().Truncate(time.Microsecond),
	}

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		existing, err := f.countryRepo.ByName(txCtx, country.Name)
		if err != nil {
			return NewBusinessError("CREATE_COUNTRY_FAILED", "Failed to create country", err)
		}
		if existing != nil {
			return duplicateNameError()
		}
		if err := f.countryRepo.Save(txCtx, country); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return duplicateNameError()
			}
			return NewBusinessError("CREATE_COUNTRY_FAILED", "Failed to create country", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.trackStored(ctx)
	log.Printf("country created name=%q id=%d %s", country.Name, country.ID, logFields(ctx, metadata))

	out := ToCountryDTO(*country)
	return &out, nil
}

// UpdateCountry replaces the provided fields; last_refreshed_at is left as stored
func (f *CountryFlowImpl) UpdateCountry(ctx context.Context, name string, req *dto.UpdateCountryRequest, metadata *ClientMetadata) (*dto.CountryDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "Request is required", nil)
	}
	ve := NewValidationError()
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		ve.Add("name", "must not be blank")
	}
	if req.CurrencyCode != nil && utils.NilIfEmpty(req.CurrencyCode) == nil {
		ve.Add("currency_code", "must not be blank")
	}
	if req.Population == nil {
		ve.Add("population", "is required")
	}
	if ve.HasErrors() {
		return nil, ve
	}

	var updated *models.Country
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		country, err := f.byName(txCtx, name)
		if err != nil {
			return err
		}

		if req.Name != nil {
			newName := strings.TrimSpace(*req.Name)
			if !strings.EqualFold(newName, country.Name) {
				clash, err := f.countryRepo.ByName(txCtx, newName)
				if err != nil {
					return NewBusinessError("UPDATE_COUNTRY_FAILED", "Failed to update country", err)
				}
				if clash != nil {
					return duplicateNameError()
				}
			}
			country.Name = newName
		}
		if req.Capital != nil {
			country.Capital = req.Capital
		}
		if req.Region != nil {
			country.Region = req.Region
		}
		country.Population = utils.Deref(req.Population)
		if req.CurrencyCode != nil {
			country.CurrencyCode = utils.NilIfEmpty(req.CurrencyCode)
		}
		if req.ExchangeRate != nil {
			country.ExchangeRate = req.ExchangeRate
		}
		if req.EstimatedGDP != nil {
			country.EstimatedGDP = req.EstimatedGDP
		}
		if req.FlagURL != nil {
			country.FlagURL = req.FlagURL
		}

		if err := f.countryRepo.Update(txCtx, country); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return duplicateNameError()
			}
			return NewBusinessError("UPDATE_COUNTRY_FAILED", "Failed to update country", err)
		}
		updated = country
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("country updated name=%q id=%d %s", updated.Name, updated.ID, logFields(ctx, metadata))

	out := ToCountryDTO(*updated)
	return &out, nil
}

// DeleteCountry removes a country by name, ignoring case
func (f *CountryFlowImpl) DeleteCountry(ctx context.Context, name string, metadata *ClientMetadata) error {
	deleted, err := f.countryRepo.DeleteByName(ctx, name)
	if err != nil {
		return NewBusinessError("DELETE_COUNTRY_FAILED", "Failed to delete country", err)
	}
	if !deleted {
		return NewBusinessErrorf("COUNTRY_NOT_FOUND", "Country %q not found", ErrCountryNotFound, name)
	}

	f.trackStored(ctx)
	log.Printf("country deleted name=%q %s", name, logFields(ctx, metadata))
	return nil
}

// Status reports the stored count and the newest refresh timestamp (nil when empty)
func (f *CountryFlowImpl) Status(ctx context.Context) (*dto.StatusResponse, error) {
	total, err := f.countryRepo.Count(ctx, models.CountryFilter{})
	if err != nil {
		return nil, NewBusinessError("STATUS_FAILED", "Failed to count countries", err)
	}
	latest, err := f.countryRepo.LatestRefreshedAt(ctx)
	if err != nil {
		return nil, NewBusinessError("STATUS_FAILED", "Failed to read last refresh time", err)
	}
	return &dto.StatusResponse{
		TotalCountries:  total,
		LastRefreshedAt: utils.FormatISOPtr(latest),
	}, nil
}

// SummaryImage returns the published PNG, served from cache when available
func (f *CountryFlowImpl) SummaryImage(ctx context.Context) ([]byte, error) {
	if data := f.imageCache.Get(ctx); data != nil {
		return data, nil
	}

	data, err := f.renderer.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewBusinessError("SUMMARY_IMAGE_NOT_FOUND", "Summary image not found", ErrSummaryImageNotFound)
		}
		return nil, NewBusinessError("SUMMARY_IMAGE_READ_FAILED", "Failed to read summary image", err)
	}

	f.imageCache.Set(ctx, data)
	return data, nil
}

// ExportCountries renders a listing as CSV (default) or XLSX and returns the file name and content
func (f *CountryFlowImpl) ExportCountries(ctx context.Context, req dto.ExportCountriesRequest) (string, []byte, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = dto.ExportFormatCSV
	}
	if format != dto.ExportFormatCSV && format != dto.ExportFormatXLSX {
		ve := NewValidationError()
		ve.Add("format", fmt.Sprintf("must be one of: %s, %s", dto.ExportFormatCSV, dto.ExportFormatXLSX))
		return "", nil, ve
	}

	rows, err := f.list(ctx, req.ListCountriesRequest)
	if err != nil {
		return "", nil, err
	}
	exportRows := make([]dto.CountryExportRow, 0, len(rows))
	for _, row := range rows {
		exportRows = append(exportRows, ToCountryExportRow(*row))
	}

	if format == dto.ExportFormatXLSX {
		data, err := writeCountriesExcel(exportRows)
		if err != nil {
			return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
		}
		return "countries.xlsx", data, nil
	}

	data, err := writeCountriesCSV(exportRows)
	if err != nil {
		return "", nil, NewBusinessError("CSV_WRITE_ERROR", "Failed to write CSV file", err)
	}
	return "countries.csv", data, nil
}

func writeCountriesCSV(rows []dto.CountryExportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(dto.CountryExportRow{}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var exportColumns = []any{
	"id", "name", "capital", "region", "population", "currency_code",
	"exchange_rate", "estimated_gdp", "flag_url", "last_refreshed_at",
}

func writeCountriesExcel(rows []dto.CountryExportRow) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	const sheet = "Countries"
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	if err := xl.SetSheetRow(sheet, "A1", &exportColumns); err != nil {
		return nil, err
	}

	for i, r := range rows {
		record := []any{
			r.ID,
			r.Name,
			cellValue(r.Capital),
			cellValue(r.Region),
			r.Population,
			cellValue(r.CurrencyCode),
			cellValue(r.ExchangeRate),
			cellValue(r.EstimatedGDP),
			cellValue(r.FlagURL),
			r.LastRefreshedAt,
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return nil, err
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cellValue leaves unknown values as blank cells
func cellValue[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func duplicateNameError() *ValidationError {
	ve := NewValidationError()
	ve.Add("name", "country with this name already exists")
	return ve
}

// trackStored keeps the countries_stored gauge current after direct writes
func (f *CountryFlowImpl) trackStored(ctx context.Context) {
	if total, err := f.countryRepo.Count(ctx, models.CountryFilter{}); err == nil {
		countriesStored.Set(float64(total))
	}
}
