package services

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amirphl/country-gdp-service/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) *SummaryRenderer {
	t.Helper()
	r, err := NewSummaryRenderer(filepath.Join(t.TempDir(), "cache", "summary.png"))
	require.NoError(t, err)
	return r
}

func testSummary() Summary {
	return Summary{
		TotalCountries:  2,
		LastRefreshedAt: time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC),
		Top: []SummaryEntry{
			{Name: "Nigeria", EstimatedGDP: utils.ToPtr(750000000.0), CurrencyCode: utils.ToPtr("NGN")},
			{Name: "Atlantis"},
		},
	}
}

func TestSummaryLine(t *testing.T) {
	r := newTestRenderer(t)

	assert.Equal(t, "1. Nigeria — 750,000,000.00 NGN",
		r.SummaryLine(1, SummaryEntry{Name: "Nigeria", EstimatedGDP: utils.ToPtr(750000000.0), CurrencyCode: utils.ToPtr("NGN")}))
	assert.Equal(t, "2. Atlantis — 0.00", r.SummaryLine(2, SummaryEntry{Name: "Atlantis"}))
}

func TestRenderProducesPNG(t *testing.T) {
	r := newTestRenderer(t)

	data, err := r.Render(testSummary())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 800, img.Bounds().Dy())
}

func TestReadBeforePublish(t *testing.T) {
	r := newTestRenderer(t)

	_, err := r.Read()
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStagePublishFinalize(t *testing.T) {
	r := newTestRenderer(t)

	artifact, err := r.Stage(testSummary())
	require.NoError(t, err)

	_, err = r.Read()
	assert.True(t, errors.Is(err, os.ErrNotExist), "staged image must not be visible")

	require.NoError(t, artifact.Publish())
	require.NoError(t, artifact.Finalize())

	data, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, artifact.Data, data)

	_, err = os.Stat(r.ImagePath + ".bak")
	assert.True(t, os.IsNotExist(err))
}

func TestRollbackRestoresPreviousImage(t *testing.T) {
	r := newTestRenderer(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(r.ImagePath), 0o755))
	require.NoError(t, os.WriteFile(r.ImagePath, []byte("previous"), 0o644))

	artifact, err := r.Stage(testSummary())
	require.NoError(t, err)
	require.NoError(t, artifact.Publish())

	data, err := r.Read()
	require.NoError(t, err)
	assert.NotEqual(t, []byte("previous"), data)

	require.NoError(t, artifact.Rollback())

	data, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("previous"), data)
}

func TestRollbackWithoutPreviousImage(t *testing.T) {
	r := newTestRenderer(t)

	artifact, err := r.Stage(testSummary())
	require.NoError(t, err)
	require.NoError(t, artifact.Rollback())

	_, err = r.Read()
	assert.True(t, errors.Is(err, os.ErrNotExist))

	entries, err := os.ReadDir(filepath.Dir(r.ImagePath))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
