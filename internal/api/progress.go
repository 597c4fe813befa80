package api

import (
	"context"
	"sync"

	"github.com/codescope/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ProgressEvent is one server-pushed progress frame.
type ProgressEvent struct {
	Type     string  `json:"type"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// ProgressChannel is a live push channel for job progress. It invokes
// the event callback for every progress frame and the error callback
// at most once, on transport failure, after which the channel is
// closed and the caller is expected to fall back to polling.
type ProgressChannel struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	done      chan struct{}
	logger    *zap.Logger
}

// OpenProgressChannel dials the backend's progress endpoint for the
// given job. Callbacks run on the channel's read goroutine; after
// Close returns no further callbacks are invoked.
func (c *Client) OpenProgressChannel(ctx context.Context, jobID string, onEvent func(ProgressEvent), onError func(error)) (*ProgressChannel, error) {
	url := c.config.WSBaseURL + "/api/progress/" + jobID

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, domain.WrapError("progress_dial", domain.ErrTransport, false)
	}

	ch := &ProgressChannel{
		conn:   conn,
		done:   make(chan struct{}),
		logger: c.logger.Named("progress_channel").With(zap.String("job_id", jobID)),
	}

	go ch.readLoop(onEvent, onError)

	// A cancelled context tears the channel down even if the caller
	// never calls Close explicitly.
	go func() {
		select {
		case <-ctx.Done():
			ch.Close()
		case <-ch.done:
		}
	}()

	ch.logger.Debug("progress channel opened")
	return ch, nil
}

// readLoop decodes frames until the connection breaks or the channel
// is closed.
func (ch *ProgressChannel) readLoop(onEvent func(ProgressEvent), onError func(error)) {
	for {
		var event ProgressEvent
		if err := ch.conn.ReadJSON(&event); err != nil {
			select {
			case <-ch.done:
				// Deliberate close, not a transport failure.
			default:
				ch.logger.Debug("progress channel read failed", zap.Error(err))
				ch.Close()
				if onError != nil {
					onError(domain.WrapError("progress_read", domain.ErrTransport, false))
				}
			}
			return
		}

		if event.Type != "progress" {
			continue
		}

		select {
		case <-ch.done:
			return
		default:
			if onEvent != nil {
				onEvent(event)
			}
		}
	}
}

// Close shuts the channel down. It is idempotent and unconditional:
// the underlying connection is released and no event callback is
// invoked once done is observed closed.
func (ch *ProgressChannel) Close() {
	ch.closeOnce.Do(func() {
		close(ch.done)
		_ = ch.conn.Close()
		ch.logger.Debug("progress channel closed")
	})
}
