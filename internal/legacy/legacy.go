package legacy

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/scangallery/internal/metrics"
	"github.com/lehigh-university-libraries/scangallery/internal/models"
	"github.com/ncruces/zenity"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxBytes limits a single imported file to 10MB
const DefaultMaxBytes = 10 * 1024 * 1024

var (
	ErrTooLarge = errors.New("file too large")
	ErrNotImage = errors.New("file is not a supported image")
	ErrNoFile   = errors.New("no file selected")
)

// FilePicker asks the user for files on the local disk
type FilePicker interface {
	SelectFiles(ctx context.Context) ([]string, error)
}

// Importer turns a selected file into a data URL image source
type Importer struct {
	MaxBytes int64
	Picker   FilePicker
	metrics  *metrics.Metrics
}

func NewImporter(maxBytes int64, picker FilePicker, m *metrics.Metrics) *Importer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Importer{
		MaxBytes: maxBytes,
		Picker:   picker,
		metrics:  m,
	}
}

// Import reads r and calls onImages exactly once with one data URL.
// Nothing is appended when the file is too large, not an image, or unreadable.
func (i *Importer) Import(name string, r io.Reader, onImages func([]models.ImageSource)) error {
	// read one byte past the limit to tell "exactly at the limit" from "over"
	fileData, err := io.ReadAll(io.LimitReader(r, i.MaxBytes+1))
	if err != nil {
		i.metrics.Outcome(models.OriginLegacy, metrics.OutcomeError)
		return fmt.Errorf("failed to read file contents: %w", err)
	}
	if int64(len(fileData)) > i.MaxBytes {
		i.metrics.Outcome(models.OriginLegacy, metrics.OutcomeRejected)
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, name, i.MaxBytes)
	}

	src, err := DataURL(fileData)
	if err != nil {
		i.metrics.Outcome(models.OriginLegacy, metrics.OutcomeRejected)
		return fmt.Errorf("%s: %w", name, err)
	}

	slog.Info("Image imported", "filename", name, "bytes", len(fileData))
	i.metrics.Outcome(models.OriginLegacy, metrics.OutcomeSuccess)
	i.metrics.ImagesAcquired(models.OriginLegacy, 1)
	onImages([]models.ImageSource{src})
	return nil
}

// ImportFile imports a file from the local disk
func (i *Importer) ImportFile(path string, onImages func([]models.ImageSource)) error {
	file, err := os.Open(path)
	if err != nil {
		i.metrics.Outcome(models.OriginLegacy, metrics.OutcomeError)
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return i.Import(filepath.Base(path), file, onImages)
}

// Pick opens the file picker and imports the first selected file.
// A cancelled picker imports nothing and is not an error.
func (i *Importer) Pick(ctx context.Context, onImages func([]models.ImageSource)) error {
	if i.Picker == nil {
		return fmt.Errorf("no file picker configured")
	}

	paths, err := i.Picker.SelectFiles(ctx)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			slog.Info("File selection cancelled")
			i.metrics.Outcome(models.OriginLegacy, metrics.OutcomeCancelled)
			return nil
		}
		return fmt.Errorf("file picker failed: %w", err)
	}
	if len(paths) == 0 {
		return ErrNoFile
	}

	return i.ImportFile(paths[0], onImages)
}

// DataURL validates that data is a decodable image and encodes it inline
func DataURL(data []byte) (models.ImageSource, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrNotImage)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	mimeType := mimeTypes[format]
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	return models.ImageSource("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)), nil
}

var mimeTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

// DialogPicker opens the native OS file dialog
type DialogPicker struct{}

func (DialogPicker) SelectFiles(ctx context.Context) ([]string, error) {
	path, err := zenity.SelectFile(
		zenity.Context(ctx),
		zenity.Title("Select an image"),
		zenity.FileFilters{
			{
				Name:     "Images",
				Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.bmp", "*.tif", "*.tiff", "*.webp"},
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}
