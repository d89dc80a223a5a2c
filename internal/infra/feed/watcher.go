package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"service_market/internal/event"
	"service_market/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	maxRetries  = 10
	readTimeout = 90 * time.Second
)

// Watcher follows the ops event feed and delivers decoded events to inbox.
// It reconnects with exponential backoff until stopped.
type Watcher struct {
	url       string
	inbox     chan<- event.Event
	conn      *websocket.Conn
	mu        sync.RWMutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastSeq   uint64
}

// NewWatcher creates a watcher for a ws:// feed URL.
func NewWatcher(url string, inbox chan<- event.Event) *Watcher {
	return &Watcher{url: url, inbox: inbox}
}

// Connect starts the connection loop in the background.
func (w *Watcher) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

// Disconnect stops the loop and waits for it to exit.
func (w *Watcher) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}

// IsConnected reports whether a feed connection is open.
func (w *Watcher) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *Watcher) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("Feed connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			w.readLoop(ctx)
		}
	}
}

func (w *Watcher) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	slog.Info("Feed connected", slog.String("url", w.url))
	return nil
}

func (w *Watcher) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connected = false
}

func (w *Watcher) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			w.closeConnection()
			return
		}
		w.handleMessage(ctx, msg)
	}
}

func (w *Watcher) handleMessage(ctx context.Context, msg []byte) {
	ev, err := event.Unmarshal(msg)
	if err != nil {
		slog.Warn("Skipping undecodable feed message", slog.Any("error", err))
		return
	}
	// drop duplicates across reconnects
	if ev.GetSeq() <= w.lastSeq {
		return
	}
	w.lastSeq = ev.GetSeq()

	select {
	case w.inbox <- ev:
	case <-ctx.Done():
	}
}
