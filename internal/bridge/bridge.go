package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/scangallery/internal/metrics"
	"github.com/lehigh-university-libraries/scangallery/internal/models"
)

// Result is what the bridge reports once a scan operation completes.
// A nil Message means the bridge sent none.
type Result struct {
	Successful bool            `json:"successful"`
	Message    *string         `json:"message"`
	Response   json.RawMessage `json:"response"`
}

// ScannedImage is a single image extracted from a bridge response
type ScannedImage struct {
	Src       string `json:"src"`
	MIMEType  string `json:"mimeType,omitempty"`
	Thumbnail bool   `json:"thumbnail,omitempty"`
}

// ScanBridge is the scanner bridge the adapter drives
type ScanBridge interface {
	Scan(ctx context.Context, req models.ScanRequest) (Result, error)
	ScannedImages(response json.RawMessage, includeOriginals, includeThumbnails bool) ([]ScannedImage, error)
}

// Adapter issues the fixed scan request and normalizes the result
type Adapter struct {
	bridge  ScanBridge
	request models.ScanRequest
	metrics *metrics.Metrics
}

func NewAdapter(bridge ScanBridge, m *metrics.Metrics) *Adapter {
	return &Adapter{
		bridge:  bridge,
		request: models.DefaultScanRequest(),
		metrics: m,
	}
}

// Scan runs one scan and calls onImages at most once, only when the bridge
// produced at least one image. Failures are logged, never returned.
func (a *Adapter) Scan(ctx context.Context, onImages func([]models.ImageSource)) {
	result, err := a.bridge.Scan(ctx, a.request)
	if err != nil {
		msg := err.Error()
		result = Result{Successful: false, Message: &msg}
	}
	slog.Debug("Bridge scan response", "successful", result.Successful, "message", messageOf(result), "response_bytes", len(result.Response))

	if !result.Successful {
		slog.Warn("Failed: " + messageOf(result))
		a.metrics.Outcome(models.OriginBridge, metrics.OutcomeFailed)
		return
	}

	if isUserCancel(result.Message) {
		slog.Info("User cancelled")
		a.metrics.Outcome(models.OriginBridge, metrics.OutcomeCancelled)
		return
	}

	scanned, err := a.bridge.ScannedImages(result.Response, true, false)
	if err != nil {
		slog.Error("Unable to extract scanned images", "err", err)
		a.metrics.Outcome(models.OriginBridge, metrics.OutcomeError)
		return
	}
	if len(scanned) == 0 {
		a.metrics.Outcome(models.OriginBridge, metrics.OutcomeEmpty)
		return
	}

	images := make([]models.ImageSource, 0, len(scanned))
	for _, img := range scanned {
		images = append(images, models.ImageSource(img.Src))
	}

	a.metrics.Outcome(models.OriginBridge, metrics.OutcomeSuccess)
	a.metrics.ImagesAcquired(models.OriginBridge, len(images))
	onImages(images)
}

func isUserCancel(message *string) bool {
	return message != nil && strings.Contains(strings.ToLower(*message), "user cancel")
}

func messageOf(r Result) string {
	if r.Message == nil {
		return ""
	}
	return *r.Message
}
