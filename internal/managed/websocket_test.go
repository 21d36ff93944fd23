package managed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lehigh-university-libraries/scangallery/internal/models"
)

// fakeScanManager speaks the scan manager protocol for one scanner that
// returns two pages per job.
func fakeScanManager(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req struct {
				Type        string `json:"type"`
				ID          string `json:"id"`
				ScannerName string `json:"scannerName"`
				Resolution  int    `json:"resolution"`
			}
			if err := json.Unmarshal(data, &req); err != nil {
				return
			}

			switch req.Type {
			case "getScanners":
				_ = conn.WriteJSON(map[string]any{"type": "scanners", "id": req.ID, "devices": []string{"Scanner A", "Scanner B"}})
			case "scan":
				_ = conn.WriteJSON(map[string]any{"type": "submitted", "id": req.ID, "data": "accepted"})
				_ = conn.WriteJSON(map[string]any{"type": "update", "id": req.ID, "data": "scanning " + req.ScannerName})
				_ = conn.WriteMessage(websocket.BinaryMessage, []byte("page-1"))
				_ = conn.WriteMessage(websocket.BinaryMessage, []byte{})
				_ = conn.WriteMessage(websocket.BinaryMessage, []byte("page-2"))
				_ = conn.WriteJSON(map[string]any{"type": "update", "id": req.ID, "data": "done", "last": true})
			}
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func waitForStatus(t *testing.T, ch <-chan models.Readiness, want models.Readiness) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("Timed out waiting for status %s", want)
		}
	}
}

func statusChannel(s *WSService) <-chan models.Readiness {
	ch := make(chan models.Readiness, 16)
	s.OnStatusChanged(func(r models.Readiness) {
		select {
		case ch <- r:
		default:
		}
	})
	return ch
}

func TestWSServiceScannersAndJob(t *testing.T) {
	server := fakeScanManager(t)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewWSService(wsURL(server.URL), "http://localhost:8888", 50*time.Millisecond)
	statuses := statusChannel(svc)
	if err := svc.Start(ctx, true); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.Start(ctx, true); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}
	waitForStatus(t, statuses, models.ReadinessOpen)

	devices, err := svc.Scanners(ctx)
	if err != nil {
		t.Fatalf("Scanners failed: %v", err)
	}
	if len(devices) != 2 || devices[0] != "Scanner A" {
		t.Errorf("Expected two scanners starting with Scanner A, got %v", devices)
	}

	stream, err := svc.Submit(ctx, &models.ScanJob{
		ScannerName: devices[0],
		PixelMode:   models.PixelModeColor,
		Resolution:  models.DefaultResolution,
		ImageFormat: models.ImageFormatJPG,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	defer stream.Close()

	var pages []string
	var texts []string
	for {
		ev, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if ev.Binary {
			pages = append(pages, string(ev.Data))
		} else {
			texts = append(texts, ev.Text)
		}
	}

	if len(pages) != 3 || pages[0] != "page-1" || pages[1] != "" || pages[2] != "page-2" {
		t.Errorf("Expected pages [page-1, empty, page-2], got %q", pages)
	}
	if len(texts) != 2 || texts[1] != "done" {
		t.Errorf("Expected status texts ending in done, got %q", texts)
	}

	if _, err := stream.Next(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("Expected finished stream to stay at EOF, got %v", err)
	}
}

func TestWSServiceAdapterEndToEnd(t *testing.T) {
	server := fakeScanManager(t)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewWSService(wsURL(server.URL), "", 50*time.Millisecond)
	blobs := &countingBlobs{}
	adapter := NewAdapter(svc, nil, blobs, nil, nil)
	if err := adapter.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-adapter.Discovered():
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for device discovery")
	}
	if got := adapter.State().Device(); got != "Scanner A" {
		t.Fatalf("Expected Scanner A, got %q", got)
	}

	calls := 0
	adapter.Scan(ctx, func(images []models.ImageSource) {
		calls++
	})
	if calls != 2 {
		t.Errorf("Expected one append per non-empty page, got %d", calls)
	}
	if blobs.n != 2 {
		t.Errorf("Expected 2 stored pages, got %d", blobs.n)
	}
}

type countingBlobs struct {
	n int
}

func (c *countingBlobs) CreateObjectURL(data []byte, mimeType string) models.ImageSource {
	c.n++
	return models.ImageSource(models.ObjectURLPrefix + string(data))
}

func TestWSServiceBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewWSService(wsURL(server.URL), "http://evil.example", time.Hour)
	statuses := statusChannel(svc)
	if err := svc.Start(ctx, false); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForStatus(t, statuses, models.ReadinessBlocked)

	if _, err := svc.Submit(ctx, &models.ScanJob{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected while blocked, got %v", err)
	}
}

func TestWSServiceClosed(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server.URL)
	server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewWSService(url, "", time.Hour)
	statuses := statusChannel(svc)
	if err := svc.Start(ctx, false); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForStatus(t, statuses, models.ReadinessClosed)

	if _, err := svc.Scanners(ctx); err == nil {
		t.Error("Expected Scanners to fail while closed")
	}
}

func TestWSServiceConnectionLostMidJob(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// accept one job, send one page, then hang up
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("page-1"))
		conn.Close()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewWSService(wsURL(server.URL), "", time.Hour)
	statuses := statusChannel(svc)
	if err := svc.Start(ctx, false); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForStatus(t, statuses, models.ReadinessOpen)

	stream, err := svc.Submit(ctx, &models.ScanJob{ScannerName: "Scanner A"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	defer stream.Close()

	var sawPage, sawCritical bool
	for {
		ev, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if ev.Binary {
			sawPage = true
		}
		if ev.Error && ev.Critical {
			sawCritical = true
		}
	}
	if !sawPage || !sawCritical {
		t.Errorf("Expected a page then a critical error, got page=%v critical=%v", sawPage, sawCritical)
	}
}
