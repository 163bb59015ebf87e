package businessflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amirphl/country-gdp-service/app/services"
	businessflow "github.com/amirphl/country-gdp-service/business_flow"
	"github.com/amirphl/country-gdp-service/models"
	"github.com/amirphl/country-gdp-service/repository"
	testingutil "github.com/amirphl/country-gdp-service/testing"
	"github.com/amirphl/country-gdp-service/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	countries    []services.CountryRecord
	rates        map[string]float64
	countriesErr error
	ratesErr     error
}

func (s *fakeSource) FetchCountries(ctx context.Context) ([]services.CountryRecord, error) {
	if s.countriesErr != nil {
		return nil, s.countriesErr
	}
	return s.countries, nil
}

func (s *fakeSource) FetchRates(ctx context.Context) (map[string]float64, error) {
	if s.ratesErr != nil {
		return nil, s.ratesErr
	}
	return s.rates, nil
}

func fixedMultiplier() int { return 1500 }

func record(name string, population int64, currency *string) services.CountryRecord {
	return services.CountryRecord{
		Name:         name,
		Capital:      utils.ToPtr(name + " City"),
		Region:       utils.ToPtr("Africa"),
		Population:   &population,
		FlagURL:      utils.ToPtr("https://flagcdn.com/" + name + ".svg"),
		CurrencyCode: currency,
	}
}

type refreshEnv struct {
	testDB   *testingutil.TestDB
	repo     repository.CountryRepository
	renderer *services.SummaryRenderer
	source   *fakeSource
	flow     businessflow.RefreshFlow
}

func newRefreshEnv(t *testing.T, testDB *testingutil.TestDB) *refreshEnv {
	t.Helper()
	require.NoError(t, testDB.ClearAllTables())

	renderer, err := services.NewSummaryRenderer(filepath.Join(t.TempDir(), "cache", "summary.png"))
	require.NoError(t, err)

	repo := repository.NewCountryRepository(testDB.DB)
	source := &fakeSource{
		countries: []services.CountryRecord{record("Nigeria", 1_000_000, utils.ToPtr("NGN"))},
		rates:     map[string]float64{"NGN": 2.0},
	}
	cache := businessflow.NewSummaryImageCache(nil, "test:", time.Minute)
	flow := businessflow.NewRefreshFlow(repo, source, renderer, cache, testDB.DB, fixedMultiplier)

	return &refreshEnv{testDB: testDB, repo: repo, renderer: renderer, source: source, flow: flow}
}

func TestEstimateGDP(t *testing.T) {
	assert.Equal(t, 750_000_000.0, businessflow.EstimateGDP(1_000_000, 1500, 2.0))
	assert.Equal(t, 0.0, businessflow.EstimateGDP(1_000_000, 1500, 0))
}

func TestRandomMultiplierRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		m := businessflow.RandomMultiplier()
		assert.GreaterOrEqual(t, m, 1000)
		assert.LessOrEqual(t, m, 2000)
	}
}

// cancellingStager cancels the refresh context once the image is staged, so the commit fails after Publish
type cancellingStager struct {
	inner  *services.SummaryRenderer
	cancel context.CancelFunc
	staged bool
}

func (s *cancellingStager) Stage(summary services.Summary) (*services.SummaryArtifact, error) {
	artifact, err := s.inner.Stage(summary)
	s.staged = true
	s.cancel()
	return artifact, err
}

func snapshotCountries(t *testing.T, repo repository.CountryRepository) []models.Country {
	t.Helper()
	rows, err := repo.ByFilter(context.Background(), models.CountryFilter{}, "", 0, 0)
	require.NoError(t, err)
	out := make([]models.Country, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out
}

// seedAndChangeSource runs one good refresh, then points the source at different data
func seedAndChangeSource(t *testing.T, env *refreshEnv, metadata *businessflow.ClientMetadata) ([]models.Country, []byte) {
	t.Helper()
	env.source.countries = []services.CountryRecord{
		record("Nigeria", 1_000_000, utils.ToPtr("NGN")),
		record("Ghana", 500_000, utils.ToPtr("GHS")),
	}
	env.source.rates = map[string]float64{"NGN": 2.0, "GHS": 12.0}
	_, err := env.flow.Refresh(context.Background(), metadata)
	require.NoError(t, err)

	rows := snapshotCountries(t, env.repo)
	require.Len(t, rows, 2)
	image, err := env.renderer.Read()
	require.NoError(t, err)

	env.source.countries = []services.CountryRecord{
		record("Nigeria", 9_999, utils.ToPtr("NGN")),
		record("Kenya", 1, utils.ToPtr("KES")),
	}
	env.source.rates = map[string]float64{"NGN": 3.0, "KES": 100.0}
	// a leaked write would carry a newer timestamp
	time.Sleep(2 * time.Millisecond)
	return rows, image
}

func TestRefreshFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test")

		t.Run("ComputesGDP", func(t *testing.T) {
			env := newRefreshEnv(t, testDB)

			resp, err := env.flow.Refresh(ctx, metadata)
			require.NoError(t, err)
			assert.Equal(t, "Refresh successful", resp.Message)
			assert.Equal(t, int64(1), resp.TotalCountries)

			country, err := env.repo.ByName(ctx, "nigeria")
			require.NoError(t, err)
			require.NotNil(t, country)
			require.NotNil(t, country.EstimatedGDP)
			assert.InDelta(t, 750_000_000.0, *country.EstimatedGDP, 0.0001)
			require.NotNil(t, country.ExchangeRate)
			assert.Equal(t, 2.0, *country.ExchangeRate)
			assert.Equal(t, resp.LastRefreshedAt, utils.FormatISO(country.LastRefreshedAt))
		})

		t.Run("IdempotentUpsertAdvancesTimestamp", func(t *testing.T) {
			env := newRefreshEnv(t, testDB)

			first, err := env.flow.Refresh(ctx, metadata)
			require.NoError(t, err)
			before, err := env.repo.ByName(ctx, "Nigeria")
			require.NoError(t, err)

			time.Sleep(5 * time.Millisecond)

			second, err := env.flow.Refresh(ctx, metadata)
			require.NoError(t, err)
			assert.Equal(t, first.TotalCountries, second.TotalCountries)

			after, err := env.repo.ByName(ctx, "Nigeria")
			require.NoError(t, err)
			assert.Equal(t, before.ID, after.ID)
			assert.True(t, after.LastRefreshedAt.After(before.LastRefreshedAt))
		})

		t.Run("MatchesExistingNameIgnoringCase", func(t *testing.T) {
			env := newRefreshEnv(t, testDB)
			fixtures := testingutil.NewTestFixtures(testDB)
			existing, err := fixtures.CreateTestCountry("Nigeria")
			require.NoError(t, err)

			env.source.countries = []services.CountryRecord{record("NIGERIA", 5, utils.ToPtr("NGN"))}
			resp, err := env.flow.Refresh(ctx, metadata)
			require.NoError(t, err)
			assert.Equal(t, int64(1), resp.TotalCountries)

			country, err := env.repo.ByID(ctx, existing.ID)
			require.NoError(t, err)
			require.NotNil(t, country)
			assert.Equal(t, "Nigeria", country.Name)
			assert.Equal(t, int64(5), country.Population)
		})

		t.Run("CurrencyBranches", func(t *testing.T) {
			env := newRefreshEnv(t, testDB)
			env.source.countries = []services.CountryRecord{
				record("NoCurrency", 100, nil),
				record("UnknownRate", 100, utils.ToPtr("XYZ")),
				record("ZeroRate", 100, utils.ToPtr("ZZZ")),
				record("", 100, utils.ToPtr("NGN")),
			}
			env.source.rates = map[string]float64{"ZZZ": 0}

			resp, err := env.flow.Refresh(ctx, metadata)
			require.NoError(t, err)
			assert.Equal(t, int64(3), resp.TotalCountries)

			noCurrency, err := env.repo.ByName(ctx, "NoCurrency")
			require.NoError(t, err)
			assert.Nil(t, noCurrency.CurrencyCode)
			assert.Nil(t, noCurrency.ExchangeRate)
			require.NotNil(t, noCurrency.EstimatedGDP)
			assert.Equal(t, 0.0, *noCurrency.EstimatedGDP)

			unknown, err := env.repo.ByName(ctx, "UnknownRate")
			require.NoError(t, err)
			require.NotNil(t, unknown.CurrencyCode)
			assert.Equal(t, "XYZ", *unknown.CurrencyCode)
			assert.Nil(t, unknown.ExchangeRate)
			assert.Nil(t, unknown.EstimatedGDP)

			zero, err := env.repo.ByName(ctx, "ZeroRate")
			require.NoError(t, err)
			assert.Nil(t, zero.ExchangeRate)
			assert.Nil(t, zero.EstimatedGDP)
		})

		t.Run("CountriesSourceFailureWritesNothing", func(t *testing.T) {
			env := newRefreshEnv(t, testDB)
			env.source.countriesErr = &services.GatewayError{URL: "http://countries", StatusCode: 502}

			_, err := env.flow.Refresh(ctx, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsCountriesSourceUnavailable(err))
			assert.False(t, businessflow.IsRatesSourceUnavailable(err))

			var gwErr *services.GatewayError
			assert.True(t, errors.As(err, &gwErr))

			count, err := env.repo.Count(ctx, models.CountryFilter{})
			require.NoError(t, err)
			assert.Zero(t, count)

			_, err = env.renderer.Read()
			assert.True(t, errors.Is(err, os.ErrNotExist))
		})

		t.Run("RatesSourceFailureWritesNothing", func(t *testing.T) {
			env := newRefreshEnv(t, testDB)
			env.source.ratesErr = &services.GatewayError{URL: "http://rates", Err: context.DeadlineExceeded}

			_, err := env.flow.Refresh(ctx, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsRatesSourceUnavailable(err))

			count, err := env.repo.Count(ctx, models.CountryFilter{})
			require.NoError(t, err)
			assert.Zero(t, count)

			_, err = env.renderer.Read()
			assert.True(t, errors.Is(err, os.ErrNotExist))
		})

		t.Run("RenderFailureRollsBack", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			dir := t.TempDir()
			blocker := filepath.Join(dir, "blocker")
			require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

			renderer, err := services.NewSummaryRenderer(filepath.Join(blocker, "summary.png"))
			require.NoError(t, err)
			repo := repository.NewCountryRepository(testDB.DB)
			source := &fakeSource{
				countries: []services.CountryRecord{record("Ghana", 10, utils.ToPtr("GHS"))},
				rates:     map[string]float64{"GHS": 12},
			}
			flow := businessflow.NewRefreshFlow(repo, source, renderer, nil, testDB.DB, fixedMultiplier)

			_, err = flow.Refresh(ctx, metadata)
			require.Error(t, err)
			assert.False(t, businessflow.IsSourceUnavailable(err))

			count, err := repo.Count(ctx, models.CountryFilter{})
			require.NoError(t, err)
			assert.Zero(t, count)
		})

		t.Run("FailuresKeepPreviousState", func(t *testing.T) {
			cases := []struct {
				name    string
				breakIt func(env *refreshEnv) func()
				check   func(t *testing.T, err error)
			}{
				{
					name: "CountriesSource",
					breakIt: func(env *refreshEnv) func() {
						env.source.countriesErr = &services.GatewayError{URL: "http://countries", StatusCode: 503}
						return func() { env.source.countriesErr = nil }
					},
					check: func(t *testing.T, err error) {
						assert.True(t, businessflow.IsCountriesSourceUnavailable(err))
					},
				},
				{
					name: "RatesSource",
					breakIt: func(env *refreshEnv) func() {
						env.source.ratesErr = &services.GatewayError{URL: "http://rates", Err: context.DeadlineExceeded}
						return func() { env.source.ratesErr = nil }
					},
					check: func(t *testing.T, err error) {
						assert.True(t, businessflow.IsRatesSourceUnavailable(err))
					},
				},
				{
					name: "Publish",
					breakIt: func(env *refreshEnv) func() {
						// a non-empty directory where the backup goes makes Publish fail
						backup := env.renderer.ImagePath + ".bak"
						require.NoError(t, os.MkdirAll(filepath.Join(backup, "occupied"), 0o755))
						return func() { require.NoError(t, os.RemoveAll(backup)) }
					},
					check: func(t *testing.T, err error) {
						assert.False(t, businessflow.IsSourceUnavailable(err))
						var be *businessflow.BusinessError
						require.True(t, errors.As(err, &be))
						assert.Equal(t, "SUMMARY_PUBLISH_FAILED", be.Code)
					},
				},
			}

			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					env := newRefreshEnv(t, testDB)
					rows, image := seedAndChangeSource(t, env, metadata)

					restore := tc.breakIt(env)
					_, err := env.flow.Refresh(ctx, metadata)
					restore()
					require.Error(t, err)
					tc.check(t, err)

					assert.Equal(t, rows, snapshotCountries(t, env.repo))
					after, err := env.renderer.Read()
					require.NoError(t, err)
					assert.Equal(t, image, after)
				})
			}
		})

		t.Run("CommitFailureRestoresPreviousImage", func(t *testing.T) {
			env := newRefreshEnv(t, testDB)
			rows, image := seedAndChangeSource(t, env, metadata)

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			stager := &cancellingStager{inner: env.renderer, cancel: cancel}
			flow := businessflow.NewRefreshFlow(env.repo, env.source, stager, nil, testDB.DB, fixedMultiplier)

			_, err := flow.Refresh(runCtx, metadata)
			require.Error(t, err)
			assert.True(t, stager.staged)

			after, err := env.renderer.Read()
			require.NoError(t, err)
			assert.Equal(t, image, after)
			_, err = os.Stat(env.renderer.ImagePath + ".bak")
			assert.True(t, os.IsNotExist(err))

			assert.Equal(t, rows, snapshotCountries(t, env.repo))
		})

		t.Run("NegativePopulationClampedBeforeGDP", func(t *testing.T) {
			env := newRefreshEnv(t, testDB)
			env.source.countries = []services.CountryRecord{record("Nigeria", -500, utils.ToPtr("NGN"))}

			_, err := env.flow.Refresh(ctx, metadata)
			require.NoError(t, err)

			country, err := env.repo.ByName(ctx, "Nigeria")
			require.NoError(t, err)
			require.NotNil(t, country)
			assert.Zero(t, country.Population)
			require.NotNil(t, country.EstimatedGDP)
			assert.Equal(t, 0.0, *country.EstimatedGDP)
		})

		t.Run("PublishesImage", func(t *testing.T) {
			env := newRefreshEnv(t, testDB)

			_, err := env.flow.Refresh(ctx, metadata)
			require.NoError(t, err)

			data, err := env.renderer.Read()
			require.NoError(t, err)
			assert.NotEmpty(t, data)

			_, err = os.Stat(env.renderer.ImagePath + ".bak")
			assert.True(t, os.IsNotExist(err))
		})

		return nil
	})
	require.NoError(t, err)
}
