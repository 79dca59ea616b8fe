// Package broadcast fans a camera's frame mailbox out to any number of
// MJPEG HTTP subscribers, and pushes light/emergency state changes to
// websocket subscribers, both without ever blocking the publisher on a
// slow reader.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// FrameSource is the subset of camera.Mailbox a broadcaster needs,
// kept as an interface so broadcast doesn't import camera.
type FrameSource interface {
	Take(done <-chan struct{}) ([]byte, bool)
}

// MJPEG streams one camera's frames to an io.Writer as a
// multipart/x-mixed-replace response. Each call to Serve is
// independent: a slow writer only affects its own goroutine, it never
// blocks the camera worker or other subscribers, because frames are
// always pulled fresh from the mailbox rather than queued per
// subscriber.
type MJPEG struct {
	source FrameSource

	subscribers atomic.Int64
	dropped     atomic.Uint64
}

// NewMJPEG wraps source for broadcasting.
func NewMJPEG(source FrameSource) *MJPEG {
	return &MJPEG{source: source}
}

const boundary = "frame"

// ContentType is the value callers should set as the HTTP response's
// Content-Type before calling Serve.
const ContentType = "multipart/x-mixed-replace; boundary=" + boundary

// Subscribers returns the current number of active Serve calls.
func (m *MJPEG) Subscribers() int64 { return m.subscribers.Load() }

// Dropped returns how many writes were skipped because a write
// deadline was exceeded (a slow subscriber falling behind).
func (m *MJPEG) Dropped() uint64 { return m.dropped.Load() }

// flushWriter is satisfied by http.ResponseWriter; kept narrow so
// tests can pass a bare io.Writer without flush support.
type flushWriter interface {
	io.Writer
	Flush()
}

// Serve writes frames to w until ctx is cancelled or a write fails.
// writeTimeout bounds how long a single frame write may take, enforced
// via http.ResponseController's write deadline when w is a real HTTP
// response; a subscriber that can't keep up has that frame dropped
// rather than stalling the camera's mailbox reader. When w doesn't
// support deadlines (e.g. in tests), writes are attempted without one.
func (m *MJPEG) Serve(ctx context.Context, w io.Writer, writeTimeout time.Duration) error {
	m.subscribers.Add(1)
	defer m.subscribers.Add(-1)

	fw, canFlush := w.(flushWriter)
	rc, hasDeadline := deadlineController(w)

	done := ctx.Done()
	for {
		frame, ok := m.source.Take(done)
		if !ok {
			return ctx.Err()
		}

		if hasDeadline {
			_ = rc.SetWriteDeadline(time.Now().Add(writeTimeout))
		}
		if err := writeFrame(w, frame); err != nil {
			if hasDeadline && isDeadlineExceeded(err) {
				m.dropped.Add(1)
				continue
			}
			return err
		}
		if canFlush {
			fw.Flush()
		}
	}
}

func deadlineController(w io.Writer) (*http.ResponseController, bool) {
	rw, ok := w.(http.ResponseWriter)
	if !ok {
		return nil, false
	}
	return http.NewResponseController(rw), true
}

func isDeadlineExceeded(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func writeFrame(w io.Writer, frame []byte) error {
	header := fmt.Sprintf("--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(frame))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
