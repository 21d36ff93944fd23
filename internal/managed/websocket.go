package managed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lehigh-university-libraries/scangallery/internal/models"
)

// DefaultServiceURL is where the scan manager client app listens locally
const DefaultServiceURL = "ws://localhost:25443/scan"

var (
	ErrNotConnected   = errors.New("scan manager not connected")
	ErrAlreadyStarted = errors.New("scan manager connection already started")
)

// message is the JSON envelope of every text frame
type message struct {
	Type     string                `json:"type"`
	ID       string                `json:"id,omitempty"`
	Devices  []models.DeviceHandle `json:"devices,omitempty"`
	Data     string                `json:"data,omitempty"`
	Last     bool                  `json:"last,omitempty"`
	Critical bool                  `json:"critical,omitempty"`
}

type scanRequest struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	*models.ScanJob
}

// WSService connects to the scan manager over a WebSocket. Binary frames are
// pages of the job in flight; only one job runs per connection.
type WSService struct {
	URL               string
	Origin            string
	ReconnectInterval time.Duration
	Dialer            *websocket.Dialer

	status   atomic.Int32
	started  atomic.Bool
	handlers []func(models.Readiness)
	hmu      sync.RWMutex

	conn    *websocket.Conn
	connMu  sync.Mutex
	writeMu sync.Mutex

	pending   map[string]chan message
	pendingMu sync.Mutex

	job     *wsStream
	jobMu   sync.Mutex
	jobSlot chan struct{}
}

func NewWSService(url, origin string, reconnectInterval time.Duration) *WSService {
	if url == "" {
		url = DefaultServiceURL
	}
	if reconnectInterval <= 0 {
		reconnectInterval = 5 * time.Second
	}
	return &WSService{
		URL:               url,
		Origin:            origin,
		ReconnectInterval: reconnectInterval,
		Dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		pending: make(map[string]chan message),
		jobSlot: make(chan struct{}, 1),
	}
}

func (s *WSService) Status() models.Readiness {
	return models.Readiness(s.status.Load())
}

// OnStatusChanged registers fn for every readiness transition. Callbacks run
// on the connection goroutine and must not block on the service.
func (s *WSService) OnStatusChanged(fn func(models.Readiness)) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.handlers = append(s.handlers, fn)
}

func (s *WSService) setStatus(status models.Readiness) {
	if models.Readiness(s.status.Swap(int32(status))) == status {
		return
	}

	s.hmu.RLock()
	handlers := append([]func(models.Readiness){}, s.handlers...)
	s.hmu.RUnlock()

	for _, fn := range handlers {
		fn(status)
	}
}

// Start begins the handshake in the background. With autoReconnect the
// service keeps redialing until ctx is done.
func (s *WSService) Start(ctx context.Context, autoReconnect bool) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go s.run(ctx, autoReconnect)
	return nil
}

func (s *WSService) run(ctx context.Context, autoReconnect bool) {
	for {
		err := s.connect(ctx)
		if ctx.Err() != nil {
			s.setStatus(models.ReadinessClosed)
			return
		}
		slog.Debug("Scan manager connection ended", "url", s.URL, "err", err)
		if !autoReconnect {
			return
		}

		select {
		case <-ctx.Done():
			s.setStatus(models.ReadinessClosed)
			return
		case <-time.After(s.ReconnectInterval):
		}
	}
}

func (s *WSService) connect(ctx context.Context) error {
	header := http.Header{}
	if s.Origin != "" {
		header.Set("Origin", s.Origin)
	}

	conn, resp, err := s.Dialer.DialContext(ctx, s.URL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusForbidden {
			s.setStatus(models.ReadinessBlocked)
		} else {
			s.setStatus(models.ReadinessClosed)
		}
		return fmt.Errorf("failed to connect to scan manager: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	slog.Info("Connected to scan manager", "url", s.URL)
	s.setStatus(models.ReadinessOpen)

	err = s.readLoop(conn)

	s.connMu.Lock()
	s.conn = nil
	s.connMu.Unlock()
	conn.Close()

	s.failInFlight()
	s.setStatus(models.ReadinessClosed)
	return err
}

func (s *WSService) readLoop(conn *websocket.Conn) error {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.deliver("", Event{Binary: true, Data: data})
		case websocket.TextMessage:
			var msg message
			if err := json.Unmarshal(data, &msg); err != nil {
				slog.Warn("Ignoring malformed scan manager message", "err", err)
				continue
			}
			s.dispatch(msg)
		}
	}
}

func (s *WSService) dispatch(msg message) {
	switch msg.Type {
	case "scanners":
		s.pendingMu.Lock()
		if ch, ok := s.pending[msg.ID]; ok {
			ch <- msg
			delete(s.pending, msg.ID)
		}
		s.pendingMu.Unlock()
	case "submitted":
		slog.Info("Scan job submitted", "id", msg.ID, "data", msg.Data)
	case "update":
		s.deliver(msg.ID, Event{Text: msg.Data, Last: msg.Last})
	case "error":
		s.deliver(msg.ID, Event{Error: true, Text: msg.Data, Critical: msg.Critical})
	default:
		slog.Debug("Unhandled scan manager message", "type", msg.Type)
	}
}

// deliver hands ev to the job in flight. An empty id matches any job.
func (s *WSService) deliver(id string, ev Event) {
	s.jobMu.Lock()
	st := s.job
	if st == nil || (id != "" && id != st.id) {
		s.jobMu.Unlock()
		slog.Debug("Dropping event for unknown scan job", "id", id)
		return
	}
	if ev.Last || (ev.Error && ev.Critical) {
		s.job = nil
	}
	s.jobMu.Unlock()

	st.push(ev)
}

// failInFlight ends pending requests and the job in flight after a disconnect
func (s *WSService) failInFlight() {
	s.pendingMu.Lock()
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
	s.pendingMu.Unlock()

	s.jobMu.Lock()
	st := s.job
	s.job = nil
	s.jobMu.Unlock()

	if st != nil {
		st.push(Event{Error: true, Critical: true, Text: "connection to scan manager lost"})
	}
}

func (s *WSService) send(v any) error {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// Scanners asks the scan manager for the devices it can drive
func (s *WSService) Scanners(ctx context.Context) ([]models.DeviceHandle, error) {
	id := uuid.New().String()
	ch := make(chan message, 1)

	s.pendingMu.Lock()
	s.pending[id] = ch
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}()

	if err := s.send(message{Type: "getScanners", ID: id}); err != nil {
		return nil, fmt.Errorf("failed to request scanners: %w", err)
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, ErrNotConnected
		}
		return msg.Devices, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Submit sends job and returns its event stream. A second job waits until
// the first stream is closed.
func (s *WSService) Submit(ctx context.Context, job *models.ScanJob) (Stream, error) {
	if s.Status() != models.ReadinessOpen {
		return nil, ErrNotConnected
	}

	select {
	case s.jobSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	st := newStream(uuid.New().String(), func(st *wsStream) {
		s.jobMu.Lock()
		if s.job == st {
			s.job = nil
		}
		s.jobMu.Unlock()
		<-s.jobSlot
	})

	s.jobMu.Lock()
	s.job = st
	s.jobMu.Unlock()

	if err := s.send(scanRequest{Type: "scan", ID: st.id, ScanJob: job}); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to send scan job: %w", err)
	}

	slog.Debug("Scan job sent", "id", st.id, "device", job.ScannerName)
	return st, nil
}

type wsStream struct {
	id       string
	events   chan Event
	done     chan struct{}
	once     sync.Once
	release  func(*wsStream)
	finished bool
}

func newStream(id string, release func(*wsStream)) *wsStream {
	return &wsStream{
		id:      id,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		release: release,
	}
}

// push blocks while the buffer is full unless the stream has been closed
func (st *wsStream) push(ev Event) {
	select {
	case st.events <- ev:
	case <-st.done:
	}
}

func (st *wsStream) Next(ctx context.Context) (Event, error) {
	if st.finished {
		return Event{}, io.EOF
	}

	select {
	case ev := <-st.events:
		if ev.Last || (ev.Error && ev.Critical) {
			st.finished = true
		}
		return ev, nil
	case <-st.done:
		return Event{}, io.EOF
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (st *wsStream) Close() error {
	st.once.Do(func() {
		close(st.done)
		st.release(st)
	})
	return nil
}
