package sink

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-roulette/internal/log"
	"github.com/teslashibe/go-roulette/pkg/session"
)

// WebSocket forwards cycles as JSON text messages to a remote endpoint.
// A broken connection is redialed on a later Publish, no more often than
// every RetryInterval.
type WebSocket struct {
	url           string
	header        http.Header
	dialer        websocket.Dialer
	writeTimeout  time.Duration
	retryInterval time.Duration
	onlyPredict   bool
	logger        *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	lastDial time.Time
}

// WebSocketOption customizes a WebSocket sink.
type WebSocketOption func(*WebSocket)

// WithHeader sets handshake headers, e.g. Authorization.
func WithHeader(h http.Header) WebSocketOption {
	return func(w *WebSocket) { w.header = h }
}

// PredictionsOnly skips cycles without a prediction.
func PredictionsOnly() WebSocketOption {
	return func(w *WebSocket) { w.onlyPredict = true }
}

// NewWebSocket creates a forwarder. The first dial happens on Publish.
func NewWebSocket(url string, opts ...WebSocketOption) *WebSocket {
	w := &WebSocket{
		url:           url,
		dialer:        websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		writeTimeout:  2 * time.Second,
		retryInterval: 2 * time.Second,
		logger:        log.Component("ws-sink"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Publish sends c, dialing first if needed.
func (w *WebSocket) Publish(c session.Cycle) {
	if w.onlyPredict && c.Prediction == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensureConn(); err != nil {
		w.logger.Debug("websocket unavailable", "url", w.url, "error", err)
		return
	}

	w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	if err := w.conn.WriteJSON(c); err != nil {
		w.logger.Warn("websocket write failed, will redial", "url", w.url, "error", err)
		w.conn.Close()
		w.conn = nil
	}
}

func (w *WebSocket) ensureConn() error {
	if w.conn != nil {
		return nil
	}
	if !w.lastDial.IsZero() && time.Since(w.lastDial) < w.retryInterval {
		return fmt.Errorf("sink: backing off redial")
	}
	w.lastDial = time.Now()

	conn, _, err := w.dialer.Dial(w.url, w.header)
	if err != nil {
		return fmt.Errorf("sink: dial %s: %w", w.url, err)
	}
	w.logger.Info("websocket connected", "url", w.url)
	w.conn = conn
	return nil
}

// Close sends a close frame and drops the connection.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := w.conn.Close()
	w.conn = nil
	return err
}
