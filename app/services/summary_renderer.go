package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/country-gdp-service/utils"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	summaryWidth  = 1200
	summaryHeight = 800

	summaryTitleSize = 28
	summaryBodySize  = 18

	summaryEntryX    = 60
	summaryEntryY    = 220
	summaryEntryStep = 36
)

// SummaryEntry is one line of the top-by-GDP ranking
type SummaryEntry struct {
	Name         string
	EstimatedGDP *float64
	CurrencyCode *string
}

// Summary holds what the summary image shows
type Summary struct {
	TotalCountries  int64
	LastRefreshedAt time.Time
	Top             []SummaryEntry
}

// SummaryRenderer draws the summary PNG and manages its file on disk
type SummaryRenderer struct {
	ImagePath string
	font      *opentype.Font
	printer   *message.Printer
}

func NewSummaryRenderer(imagePath string) (*SummaryRenderer, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary font: %w", err)
	}
	return &SummaryRenderer{
		ImagePath: imagePath,
		font:      f,
		printer:   message.NewPrinter(language.English),
	}, nil
}

// SummaryLine formats a ranked entry; unknown GDP renders as 0.00
func (r *SummaryRenderer) SummaryLine(rank int, entry SummaryEntry) string {
	gdp := r.printer.Sprintf("%.2f", utils.Deref(entry.EstimatedGDP))
	line := strconv.Itoa(rank) + ". " + entry.Name + " — " + gdp + " " + utils.Deref(entry.CurrencyCode)
	return strings.TrimRight(line, " ")
}

// Render draws the summary and returns PNG bytes
func (r *SummaryRenderer) Render(summary Summary) ([]byte, error) {
	// Faces are not safe for concurrent use, so each render builds its own
	titleFace, err := opentype.NewFace(r.font, &opentype.FaceOptions{Size: summaryTitleSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("failed to create title face: %w", err)
	}
	defer titleFace.Close()
	bodyFace, err := opentype.NewFace(r.font, &opentype.FaceOptions{Size: summaryBodySize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("failed to create body face: %w", err)
	}
	defer bodyFace.Close()

	img := image.NewRGBA(image.Rect(0, 0, summaryWidth, summaryHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	drawText(img, titleFace, 40, 40, "Countries Summary")
	drawText(img, bodyFace, 40, 90, fmt.Sprintf("Total countries: %d", summary.TotalCountries))
	drawText(img, bodyFace, 40, 120, "Last refreshed: "+utils.FormatISO(summary.LastRefreshedAt))
	drawText(img, bodyFace, 40, 180, fmt.Sprintf("Top %d by estimated GDP:", utils.SummaryTopN))

	y := summaryEntryY
	for i, entry := range summary.Top {
		drawText(img, bodyFace, summaryEntryX, y, r.SummaryLine(i+1, entry))
		y += summaryEntryStep
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode summary image: %w", err)
	}
	return buf.Bytes(), nil
}

// drawText places text with its top-left corner at (x, y)
func drawText(dst draw.Image, face font.Face, x, y int, text string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + face.Metrics().Ascent},
	}
	d.DrawString(text)
}

// Stage renders the summary into a temporary file next to ImagePath; nothing is visible until Publish
func (r *SummaryRenderer) Stage(summary Summary) (*SummaryArtifact, error) {
	data, err := r.Render(summary)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(r.ImagePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create summary directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".summary-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp summary file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write temp summary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to close temp summary file: %w", err)
	}

	return &SummaryArtifact{
		Data:       data,
		path:       r.ImagePath,
		tmpPath:    tmp.Name(),
		backupPath: r.ImagePath + ".bak",
	}, nil
}

// Read returns the published image; os.ErrNotExist when there is none
func (r *SummaryRenderer) Read() ([]byte, error) {
	data, err := os.ReadFile(r.ImagePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("failed to read summary image: %w", err)
	}
	return data, nil
}

// SummaryArtifact is a rendered image waiting to replace the published one
type SummaryArtifact struct {
	Data []byte

	path        string
	tmpPath     string
	backupPath  string
	published   bool
	hadPrevious bool
}

// Publish moves the previous image aside and renames the staged file into place
func (a *SummaryArtifact) Publish() error {
	if _, err := os.Stat(a.path); err == nil {
		if err := os.Rename(a.path, a.backupPath); err != nil {
			return fmt.Errorf("failed to back up previous summary image: %w", err)
		}
		a.hadPrevious = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat summary image: %w", err)
	}

	if err := os.Rename(a.tmpPath, a.path); err != nil {
		return fmt.Errorf("failed to publish summary image: %w", err)
	}
	a.published = true
	return nil
}

// Rollback discards the staged file and restores the previous image if Publish ran
func (a *SummaryArtifact) Rollback() error {
	var errs []error
	if err := os.Remove(a.tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	if a.published {
		if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
		a.published = false
	}
	if a.hadPrevious {
		if err := os.Rename(a.backupPath, a.path); err != nil {
			errs = append(errs, err)
		}
		a.hadPrevious = false
	}
	return errors.Join(errs...)
}

// Finalize drops the backup of the previous image
func (a *SummaryArtifact) Finalize() error {
	if !a.hadPrevious {
		return nil
	}
	if err := os.Remove(a.backupPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove summary backup: %w", err)
	}
	a.hadPrevious = false
	return nil
}
