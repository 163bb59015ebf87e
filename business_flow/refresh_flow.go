package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/amirphl/country-gdp-service/app/dto"
	"github.com/amirphl/country-gdp-service/app/services"
	"github.com/amirphl/country-gdp-service/models"
	"github.com/amirphl/country-gdp-service/repository"
	"github.com/amirphl/country-gdp-service/utils"
	"gorm.io/gorm"
)

// MultiplierSource yields the GDP multiplier applied to one country
type MultiplierSource func() int

// RandomMultiplier draws uniformly from [MinGDPMultiplier, MaxGDPMultiplier]
func RandomMultiplier() int {
	return rand.IntN(utils.MaxGDPMultiplier-utils.MinGDPMultiplier+1) + utils.MinGDPMultiplier
}

// EstimateGDP computes population * multiplier / rate; a non-finite result is 0
func EstimateGDP(population int64, multiplier int, rate float64) float64 {
	gdp := float64(population) * float64(multiplier) / rate
	if math.IsNaN(gdp) || math.IsInf(gdp, 0) {
		return 0
	}
	return gdp
}

// RefreshFlow mirrors the upstream catalog and rates into the store and republishes the summary image
type RefreshFlow interface {
	Refresh(ctx context.Context, metadata *ClientMetadata) (*dto.RefreshCountriesResponse, error)
}

// SummaryStager renders a summary into an artifact that can be published or rolled back
type SummaryStager interface {
	Stage(summary services.Summary) (*services.SummaryArtifact, error)
}

// RefreshFlowImpl runs fetch, join, upsert and render as one all-or-nothing unit
type RefreshFlowImpl struct {
	countryRepo repository.CountryRepository
	source      services.CountrySource
	renderer    SummaryStager
	imageCache  *SummaryImageCache
	db          *gorm.DB
	multiplier  MultiplierSource
}

func NewRefreshFlow(
	countryRepo repository.CountryRepository,
	source services.CountrySource,
	renderer SummaryStager,
	imageCache *SummaryImageCache,
	db *gorm.DB,
	multiplier MultiplierSource,
) RefreshFlow {
	if multiplier == nil {
		multiplier = RandomMultiplier
	}
	return &RefreshFlowImpl{
		countryRepo: countryRepo,
		source:      source,
		renderer:    renderer,
		imageCache:  imageCache,
		db:          db,
		multiplier:  multiplier,
	}
}

// Refresh fetches both datasets before touching the store; any failure leaves records and image unchanged
func (f *RefreshFlowImpl) Refresh(ctx context.Context, metadata *ClientMetadata) (*dto.RefreshCountriesResponse, error) {
	start := time.Now()
	resp, err := f.refresh(ctx, metadata)
	observeRefresh(err, time.Since(start))
	if err != nil {
		log.Printf("country refresh failed %s: %v", logFields(ctx, metadata), err)
		return nil, err
	}
	log.Printf("country refresh completed %s total=%d elapsed=%s",
		logFields(ctx, metadata), resp.TotalCountries, time.Since(start))
	return resp, nil
}

func (f *RefreshFlowImpl) refresh(ctx context.Context, metadata *ClientMetadata) (*dto.RefreshCountriesResponse, error) {
	records, err := f.source.FetchCountries(ctx)
	if err != nil {
		return nil, NewBusinessError("COUNTRIES_SOURCE_UNAVAILABLE", "External data source unavailable",
			fmt.Errorf("%w: %w", ErrCountriesSourceUnavailable, err))
	}
	rates, err := f.source.FetchRates(ctx)
	if err != nil {
		return nil, NewBusinessError("RATES_SOURCE_UNAVAILABLE", "External data source unavailable",
			fmt.Errorf("%w: %w", ErrRatesSourceUnavailable, err))
	}

	// One timestamp for the whole run, at the precision the store keeps
	now := utils.UTCNow().Truncate(time.Microsecond)

	var (
		artifact *services.SummaryArtifact
		total    int64
		skipped  int
	)
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		for _, rec := range records {
			if rec.Name == "" {
				skipped++
				continue
			}
			if err := f.upsert(txCtx, rec, rates, now); err != nil {
				return err
			}
		}

		var err error
		total, err = f.countryRepo.Count(txCtx, models.CountryFilter{})
		if err != nil {
			return NewBusinessError("COUNT_COUNTRIES_FAILED", "Failed to count countries", err)
		}
		top, err := f.countryRepo.TopByGDP(txCtx, utils.SummaryTopN)
		if err != nil {
			return NewBusinessError("TOP_COUNTRIES_FAILED", "Failed to read top countries", err)
		}

		artifact, err = f.renderer.Stage(buildSummary(total, now, top))
		if err != nil {
			return NewBusinessError("SUMMARY_RENDER_FAILED", "Failed to render summary image", err)
		}
		// Publishing is the last step so a failure here still rolls the records back
		if err := artifact.Publish(); err != nil {
			return NewBusinessError("SUMMARY_PUBLISH_FAILED", "Failed to publish summary image", err)
		}
		return nil
	})
	if err != nil {
		if artifact != nil {
			if rbErr := artifact.Rollback(); rbErr != nil {
				log.Printf("summary image rollback failed %s: %v", logFields(ctx, metadata), rbErr)
			}
		}
		var be *BusinessError
		if errors.As(err, &be) {
			return nil, err
		}
		return nil, NewBusinessError("REFRESH_FAILED", "Failed to refresh countries", err)
	}

	if err := artifact.Finalize(); err != nil {
		log.Printf("summary image finalize failed %s: %v", logFields(ctx, metadata), err)
	}
	f.imageCache.Set(ctx, artifact.Data)
	countriesStored.Set(float64(total))

	if skipped > 0 {
		log.Printf("country refresh skipped %d records without a name %s", skipped, logFields(ctx, metadata))
	}

	return &dto.RefreshCountriesResponse{
		Message:         "Refresh successful",
		TotalCountries:  total,
		LastRefreshedAt: utils.FormatISO(now),
	}, nil
}

// upsert matches by name ignoring case; an existing row keeps its stored spelling
func (f *RefreshFlowImpl) upsert(ctx context.Context, rec services.CountryRecord, rates map[string]float64, now time.Time) error {
	population := max(utils.Deref(rec.Population), 0)
	currencyCode, exchangeRate, gdp := f.deriveEconomics(rec.CurrencyCode, population, rates)

	existing, err := f.countryRepo.ByName(ctx, rec.Name)
	if err != nil {
		return NewBusinessErrorf("UPSERT_COUNTRY_FAILED", "Failed to look up country %q", err, rec.Name)
	}

	country := existing
	if country == nil {
		country = &models.Country{Name: rec.Name}
	}
	country.Capital = rec.Capital
	country.Region = rec.Region
	country.Population = population
	country.FlagURL = rec.FlagURL
	country.CurrencyCode = currencyCode
	country.ExchangeRate = exchangeRate
	country.EstimatedGDP = gdp
	country.LastRefreshedAt = now

	if existing != nil {
		err = f.countryRepo.Update(ctx, country)
	} else {
		err = f.countryRepo.Save(ctx, country)
	}
	if err != nil {
		return NewBusinessErrorf("UPSERT_COUNTRY_FAILED", "Failed to store country %q", err, rec.Name)
	}
	return nil
}

// deriveEconomics joins a record with the rate table
// No usable currency code gives GDP 0; a code without a non-zero rate gives unknown rate and unknown GDP
func (f *RefreshFlowImpl) deriveEconomics(currencyCode *string, population int64, rates map[string]float64) (*string, *float64, *float64) {
	if currencyCode == nil {
		return nil, nil, utils.ToPtr(0.0)
	}

	rate, ok := rates[*currencyCode]
	if !ok || rate == 0 {
		return currencyCode, nil, nil
	}

	gdp := EstimateGDP(population, f.multiplier(), rate)
	return currencyCode, &rate, &gdp
}

func buildSummary(total int64, refreshedAt time.Time, top []*models.Country) services.Summary {
	entries := make([]services.SummaryEntry, 0, len(top))
	for _, c := range top {
		entries = append(entries, services.SummaryEntry{
			Name:         c.Name,
			EstimatedGDP: c.EstimatedGDP,
			CurrencyCode: c.CurrencyCode,
		})
	}
	return services.Summary{
		TotalCountries:  total,
		LastRefreshedAt: refreshedAt,
		Top:             entries,
	}
}
