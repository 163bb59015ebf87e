package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/country-gdp-service/models"
	"github.com/amirphl/country-gdp-service/repository"
	testingutil "github.com/amirphl/country-gdp-service/testing"
	"github.com/amirphl/country-gdp-service/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountryRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCountryRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("SaveAndByID", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			country := &models.Country{Name: "Ghana", Population: 31072940, LastRefreshedAt: utils.UTCNow()}
			require.NoError(t, repo.Save(ctx, country))
			assert.NotZero(t, country.ID)

			found, err := repo.ByID(ctx, country.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, "Ghana", found.Name)
			assert.Nil(t, found.EstimatedGDP)
		})

		t.Run("ByNameIgnoresCase", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			_, err := fixtures.CreateTestCountry("Nigeria")
			require.NoError(t, err)

			for _, name := range []string{"nigeria", "NIGERIA", "Nigeria"} {
				found, err := repo.ByName(ctx, name)
				require.NoError(t, err)
				require.NotNil(t, found, name)
				assert.Equal(t, "Nigeria", found.Name)
			}

			missing, err := repo.ByName(ctx, "Atlantis")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("DuplicateNameDifferentCaseRejected", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			_, err := fixtures.CreateTestCountry("Kenya")
			require.NoError(t, err)

			err = repo.Save(ctx, &models.Country{Name: "KENYA", LastRefreshedAt: utils.UTCNow()})
			assert.Error(t, err)
		})

		t.Run("NonASCIINamesIgnoreCase", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			_, err := fixtures.CreateTestCountry("Åland Islands")
			require.NoError(t, err)
			_, err = fixtures.CreateTestCountry("Côte d'Ivoire")
			require.NoError(t, err)

			for _, name := range []string{"åland islands", "ÅLAND ISLANDS", " Åland Islands "} {
				found, err := repo.ByName(ctx, name)
				require.NoError(t, err)
				require.NotNil(t, found, name)
				assert.Equal(t, "Åland Islands", found.Name)
			}

			found, err := repo.ByName(ctx, "CÔTE D'IVOIRE")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, "côte d'ivoire", found.NameKey)

			err = repo.Save(ctx, &models.Country{Name: "åland islands", LastRefreshedAt: utils.UTCNow()})
			assert.Error(t, err)

			deleted, err := repo.DeleteByName(ctx, "CÔTE D'IVOIRE")
			require.NoError(t, err)
			assert.True(t, deleted)
		})

		t.Run("UpdateRefreshesNameKey", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			country, err := fixtures.CreateTestCountry("Curacao")
			require.NoError(t, err)

			country.Name = "Curaçao"
			require.NoError(t, repo.Update(ctx, country))

			found, err := repo.ByName(ctx, "CURAÇAO")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, "Curaçao", found.Name)

			old, err := repo.ByName(ctx, "curacao")
			require.NoError(t, err)
			assert.Nil(t, old)
		})

		t.Run("ByFilterRegionAndCurrency", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			_, err := fixtures.CreateTestCountry("Nigeria", testingutil.WithRegion("Africa"), testingutil.WithCurrency("NGN", 1600))
			require.NoError(t, err)
			_, err = fixtures.CreateTestCountry("France", testingutil.WithRegion("Europe"), testingutil.WithCurrency("EUR", 0.92))
			require.NoError(t, err)
			_, err = fixtures.CreateTestCountry("Germany", testingutil.WithRegion("Europe"), testingutil.WithCurrency("EUR", 0.92))
			require.NoError(t, err)

			rows, err := repo.ByFilter(ctx, models.CountryFilter{Region: utils.ToPtr("europe")}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "France", rows[0].Name)
			assert.Equal(t, "Germany", rows[1].Name)

			rows, err = repo.ByFilter(ctx, models.CountryFilter{CurrencyCode: utils.ToPtr("ngn")}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "Nigeria", rows[0].Name)

			count, err := repo.Count(ctx, models.CountryFilter{Region: utils.ToPtr("Europe")})
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			exists, err := repo.Exists(ctx, models.CountryFilter{Region: utils.ToPtr("Oceania")})
			require.NoError(t, err)
			assert.False(t, exists)
		})

		t.Run("GDPOrdering", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			_, err := fixtures.CreateTestCountry("Low", testingutil.WithGDP(utils.ToPtr(10.0)))
			require.NoError(t, err)
			_, err = fixtures.CreateTestCountry("Unknown", testingutil.WithGDP(nil))
			require.NoError(t, err)
			_, err = fixtures.CreateTestCountry("High", testingutil.WithGDP(utils.ToPtr(1000.0)))
			require.NoError(t, err)

			rows, err := repo.ByFilter(ctx, models.CountryFilter{}, models.CountryOrderGDPDesc, 0, 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"High", "Low", "Unknown"}, names(rows))

			rows, err = repo.ByFilter(ctx, models.CountryFilter{}, models.CountryOrderGDPAsc, 0, 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"Unknown", "Low", "High"}, names(rows))

			rows, err = repo.ByFilter(ctx, models.CountryFilter{}, "", 0, 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"Low", "Unknown", "High"}, names(rows))

			top, err := repo.TopByGDP(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"High", "Low"}, names(top))
		})

		t.Run("UpdateWritesNilFields", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			country, err := fixtures.CreateTestCountry("Chad")
			require.NoError(t, err)

			country.CurrencyCode = nil
			country.ExchangeRate = nil
			country.EstimatedGDP = utils.ToPtr(0.0)
			country.Population = 42
			require.NoError(t, repo.Update(ctx, country))

			found, err := repo.ByName(ctx, "chad")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Nil(t, found.CurrencyCode)
			assert.Nil(t, found.ExchangeRate)
			require.NotNil(t, found.EstimatedGDP)
			assert.Equal(t, 0.0, *found.EstimatedGDP)
			assert.Equal(t, int64(42), found.Population)
		})

		t.Run("UpdateMissingRow", func(t *testing.T) {
			err := repo.Update(ctx, &models.Country{ID: 99999, Name: "Ghost"})
			assert.Error(t, err)
		})

		t.Run("DeleteByName", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			_, err := fixtures.CreateTestCountry("Togo")
			require.NoError(t, err)

			deleted, err := repo.DeleteByName(ctx, "TOGO")
			require.NoError(t, err)
			assert.True(t, deleted)

			deleted, err = repo.DeleteByName(ctx, "togo")
			require.NoError(t, err)
			assert.False(t, deleted)
		})

		t.Run("LatestRefreshedAt", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			latest, err := repo.LatestRefreshedAt(ctx)
			require.NoError(t, err)
			assert.Nil(t, latest)

			older := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
			newer := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
			_, err = fixtures.CreateTestCountry("Benin", testingutil.WithRefreshedAt(newer))
			require.NoError(t, err)
			_, err = fixtures.CreateTestCountry("Mali", testingutil.WithRefreshedAt(older))
			require.NoError(t, err)

			latest, err = repo.LatestRefreshedAt(ctx)
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.True(t, newer.Equal(*latest))
		})

		t.Run("TransactionRollback", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			boom := errors.New("boom")

			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				if err := repo.Save(txCtx, &models.Country{Name: "Niger", LastRefreshedAt: utils.UTCNow()}); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			count, err := repo.Count(ctx, models.CountryFilter{})
			require.NoError(t, err)
			assert.Equal(t, int64(0), count)
		})

		return nil
	})
	require.NoError(t, err)
}

func names(rows []*models.Country) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}
