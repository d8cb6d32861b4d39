package backtester

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"strategy-graph-lab/internal/domain"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// HandshakeTimeout is the dial timeout.
	HandshakeTimeout time.Duration
	// ReadTimeout is timeout for reading a frame. The engine streams
	// progress frames, so this bounds engine silence, not run length.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// ProgressFunc receives streamed progress, percent in [0, 100].
type ProgressFunc func(percent float64)

// WSClient implements Backtester over a WebSocket session per run. The
// engine streams progress frames while the run executes and finishes with a
// report or error frame.
type WSClient struct {
	endpoint   string
	config     WSClientConfig
	onProgress ProgressFunc
}

// NewWSClient creates a WebSocket backtest client. onProgress may be nil.
func NewWSClient(endpoint string, config *WSClientConfig, onProgress ProgressFunc) *WSClient {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	return &WSClient{
		endpoint:   endpoint,
		config:     cfg,
		onProgress: onProgress,
	}
}

// Compile-time interface check.
var _ Backtester = (*WSClient)(nil)

// wsFrame is a frame streamed by the engine during a run.
type wsFrame struct {
	Type    string                 `json:"type"` // "progress", "report", "error"
	Percent float64                `json:"percent,omitempty"`
	Report  *domain.BacktestReport `json:"report,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Run opens a session, submits the request and consumes frames until the
// engine delivers a report or an error.
func (c *WSClient) Run(ctx context.Context, req *domain.BacktestRequest) (*domain.BacktestReport, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	// Unblock reads when the caller cancels.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	for {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}

		switch frame.Type {
		case "progress":
			if c.onProgress != nil {
				c.onProgress(frame.Percent)
			}
		case "report":
			if frame.Report == nil {
				return nil, fmt.Errorf("%w: empty report", ErrBacktestFailed)
			}
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return frame.Report, nil
		case "error":
			return nil, fmt.Errorf("%w: %s", ErrBacktestFailed, frame.Error)
		default:
			return nil, fmt.Errorf("unexpected frame type %q", frame.Type)
		}
	}
}
