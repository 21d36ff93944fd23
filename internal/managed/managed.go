package managed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/scangallery/internal/metrics"
	"github.com/lehigh-university-libraries/scangallery/internal/models"
	"github.com/lehigh-university-libraries/scangallery/internal/notify"
)

const (
	notRunningMessage = "JSPrintManager (JSPM) is not installed or not running! Download JSPM Client App from https://neodynamic.com/downloads/jspm"
	blockedMessage    = "JSPM has blocked this website!"
)

// Event is a single item of a scan job stream
type Event struct {
	// Binary is true for page payloads; Data then holds the page bytes.
	Binary bool
	Data   []byte
	// Text is the payload of status and error events.
	Text     string
	Last     bool
	Error    bool
	Critical bool
}

// Stream yields the events of one submitted job. Next returns io.EOF once the
// last event or a critical error has been delivered. Streams cannot restart.
type Stream interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// Service is the external scan manager reached over a local channel
type Service interface {
	Start(ctx context.Context, autoReconnect bool) error
	Status() models.Readiness
	OnStatusChanged(fn func(models.Readiness))
	Scanners(ctx context.Context) ([]models.DeviceHandle, error)
	Submit(ctx context.Context, job *models.ScanJob) (Stream, error)
}

// State is the adapter's cached device. It is owned by one adapter and only
// written by that adapter's status reaction.
type State struct {
	mu     sync.RWMutex
	device models.DeviceHandle
}

func (s *State) Device() models.DeviceHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device
}

func (s *State) setDevice(d models.DeviceHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = d
}

// Adapter turns managed scan jobs into image sources
type Adapter struct {
	svc     Service
	state   *State
	blobs   ObjectURLs
	alerter notify.Alerter
	metrics *metrics.Metrics

	ctx        context.Context
	discovered chan struct{}
}

// ObjectURLs stores page bytes behind displayable object URLs
type ObjectURLs interface {
	CreateObjectURL(data []byte, mimeType string) models.ImageSource
}

func NewAdapter(svc Service, state *State, blobs ObjectURLs, alerter notify.Alerter, m *metrics.Metrics) *Adapter {
	if state == nil {
		state = &State{}
	}
	if alerter == nil {
		alerter = notify.LogAlerter{}
	}
	return &Adapter{
		svc:        svc,
		state:      state,
		blobs:      blobs,
		alerter:    alerter,
		metrics:    m,
		ctx:        context.Background(),
		discovered: make(chan struct{}, 1),
	}
}

// Start registers the status reaction and asks the service to connect with
// auto-reconnect enabled.
func (a *Adapter) Start(ctx context.Context) error {
	a.ctx = ctx
	a.svc.OnStatusChanged(a.onStatusChanged)
	return a.svc.Start(ctx, true)
}

func (a *Adapter) State() *State {
	return a.state
}

// Discovered signals (without blocking the sender) each completed device discovery
func (a *Adapter) Discovered() <-chan struct{} {
	return a.discovered
}

func (a *Adapter) onStatusChanged(status models.Readiness) {
	slog.Info("Scan manager status changed", "status", status)
	a.metrics.Readiness(status)
	if status != models.ReadinessOpen {
		return
	}
	// status callbacks run on the service's read goroutine; enumerating
	// from it would wait on itself.
	go a.discoverDevice(a.ctx)
}

func (a *Adapter) discoverDevice(ctx context.Context) {
	defer func() {
		select {
		case a.discovered <- struct{}{}:
		default:
		}
	}()

	devices, err := a.svc.Scanners(ctx)
	if err != nil {
		slog.Error("Unable to list scanners", "err", err)
		return
	}
	if len(devices) == 0 {
		slog.Warn("Scan manager reported no scanners")
		return
	}
	a.state.setDevice(devices[0])
	slog.Info("Scanner selected", "device", devices[0], "available", len(devices))
}

// Scan submits one job when the service is open. onImages is called once per
// non-empty page, so a multi-page job appends several times.
func (a *Adapter) Scan(ctx context.Context, onImages func([]models.ImageSource)) {
	switch status := a.svc.Status(); status {
	case models.ReadinessOpen:
	case models.ReadinessClosed:
		slog.Warn(notRunningMessage)
		a.metrics.Outcome(models.OriginManaged, metrics.OutcomeUnavailable)
		return
	case models.ReadinessBlocked:
		a.alerter.Alert(blockedMessage)
		a.metrics.Outcome(models.OriginManaged, metrics.OutcomeBlocked)
		return
	default:
		slog.Debug("Scan manager not ready", "status", status)
		a.metrics.Outcome(models.OriginManaged, metrics.OutcomeUnavailable)
		return
	}

	pages := 0
	job := &models.ScanJob{
		ScannerName: a.state.Device(),
		PixelMode:   models.PixelModeColor,
		Resolution:  models.DefaultResolution,
		ImageFormat: models.ImageFormatJPG,
	}
	job.OnUpdate = func(data any, last bool) {
		page, ok := data.([]byte)
		if !ok {
			slog.Info("Scan job update", "data", data, "last", last)
			return
		}
		if len(page) == 0 {
			return
		}
		src := a.blobs.CreateObjectURL(page, "image/jpeg")
		pages++
		a.metrics.ImagesAcquired(models.OriginManaged, 1)
		onImages([]models.ImageSource{src})
	}
	job.OnError = func(data any, critical bool) {
		slog.Error("Scan job error", "data", data, "critical", critical)
	}

	stream, err := a.svc.Submit(ctx, job)
	if err != nil {
		slog.Error("Unable to submit scan job", "device", job.ScannerName, "err", err)
		a.metrics.Outcome(models.OriginManaged, metrics.OutcomeError)
		return
	}
	defer stream.Close()

	failed := consume(ctx, stream, job)

	outcome := metrics.OutcomeSuccess
	switch {
	case failed:
		outcome = metrics.OutcomeError
	case pages == 0:
		outcome = metrics.OutcomeEmpty
	}
	a.metrics.Outcome(models.OriginManaged, outcome)
	slog.Info("Scan job finished", "device", job.ScannerName, "pages", pages, "outcome", outcome)
}

// consume dispatches stream events to the job's callback slots until the
// stream ends. It reports whether any error was seen.
func consume(ctx context.Context, stream Stream, job *models.ScanJob) bool {
	failed := false
	for {
		ev, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return failed
		}
		if err != nil {
			job.OnError(err.Error(), true)
			return true
		}

		switch {
		case ev.Error:
			failed = true
			job.OnError(ev.Text, ev.Critical)
		case ev.Binary:
			job.OnUpdate(ev.Data, ev.Last)
		default:
			job.OnUpdate(ev.Text, ev.Last)
		}
	}
}
