package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/scangallery/internal/models"
)

// HTTPBridge talks to a local scanner bridge app over HTTP
type HTTPBridge struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPBridge creates a bridge client. Scans wait on a person at the
// scanner, so the timeout is generous.
func NewHTTPBridge(baseURL string) *HTTPBridge {
	return &HTTPBridge{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

type scanResponse struct {
	Images []ScannedImage `json:"images"`
}

// Scan posts the request descriptor to <base>/scan and decodes the result
func (b *HTTPBridge) Scan(ctx context.Context, scanReq models.ScanRequest) (Result, error) {
	requestBody, err := json.Marshal(scanReq)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", b.BaseURL+"/scan", bytes.NewBuffer(requestBody))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to reach scanner bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("scanner bridge returned status %d: %s", resp.StatusCode, string(body))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("failed to decode scanner bridge response: %w", err)
	}

	return result, nil
}

// ScannedImages extracts images from a scan response, keeping originals
// and/or thumbnails as requested.
func (b *HTTPBridge) ScannedImages(response json.RawMessage, includeOriginals, includeThumbnails bool) ([]ScannedImage, error) {
	if len(response) == 0 || string(response) == "null" {
		return nil, nil
	}

	var parsed scanResponse
	if err := json.Unmarshal(response, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse scan response: %w", err)
	}

	var images []ScannedImage
	for _, img := range parsed.Images {
		if img.Src == "" {
			continue
		}
		if img.Thumbnail && !includeThumbnails {
			continue
		}
		if !img.Thumbnail && !includeOriginals {
			continue
		}
		images = append(images, img)
	}

	return images, nil
}
