package models_test

import (
	"testing"
	"time"

	"github.com/amirphl/country-gdp-service/models"
	testingutil "github.com/amirphl/country-gdp-service/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountry(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		t.Run("TableName", func(t *testing.T) {
			assert.Equal(t, "countries", models.Country{}.TableName())
		})

		t.Run("BeforeCreateDefaultsTimestamp", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			before := time.Now().UTC().Add(-time.Second)

			country := &models.Country{Name: "Peru", Population: 34_000_000}
			require.NoError(t, testDB.DB.Create(country).Error)

			assert.NotZero(t, country.ID)
			assert.Equal(t, "peru", country.NameKey)
			assert.Equal(t, time.UTC, country.LastRefreshedAt.Location())
			assert.True(t, country.LastRefreshedAt.After(before))
		})

		t.Run("BeforeCreateNormalizesToUTC", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			tehran := time.FixedZone("IRST", 3*3600+1800)
			local := time.Date(2025, 6, 1, 12, 0, 0, 0, tehran)

			country := &models.Country{Name: "Iran", LastRefreshedAt: local}
			require.NoError(t, testDB.DB.Create(country).Error)

			assert.Equal(t, time.UTC, country.LastRefreshedAt.Location())
			assert.True(t, local.Equal(country.LastRefreshedAt))
		})

		t.Run("NullableEconomics", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			country := &models.Country{Name: "Antarctica"}
			require.NoError(t, testDB.DB.Create(country).Error)

			var stored models.Country
			require.NoError(t, testDB.DB.First(&stored, country.ID).Error)
			assert.Nil(t, stored.CurrencyCode)
			assert.Nil(t, stored.ExchangeRate)
			assert.Nil(t, stored.EstimatedGDP)
			assert.Zero(t, stored.Population)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, "åland islands", models.NameKey(" ÅLAND Islands "))
	assert.Equal(t, "côte d'ivoire", models.NameKey("CÔTE D'IVOIRE"))
	assert.Empty(t, models.NameKey("   "))
}
