package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/shelfscan/internal/capture"
)

// frameInterval paces the preview at roughly 15 FPS.
const frameInterval = 66 * time.Millisecond

// StreamHandler serves MJPEG frames from the sink of the running scan.
type StreamHandler struct {
	sink func() *capture.Sink
}

// NewStreamHandler creates a StreamHandler reading from whatever sink
// source returns at request time.
func NewStreamHandler(source func() *capture.Sink) *StreamHandler {
	return &StreamHandler{sink: source}
}

// ServeHTTP streams MJPEG frames until the scan releases the camera or the
// client disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sink := h.sink()
	if sink == nil || sink.Closed() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"No active scan"}` + "\n"))
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sink.Done():
			return
		case <-ticker.C:
		}

		frame, err := sink.ReadFrame()
		if err != nil {
			if sink.Closed() {
				return
			}
			continue
		}

		buf, err := gocv.IMEncode(".jpg", *frame)
		frame.Close()
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		_, werr := w.Write(buf.GetBytes())
		buf.Close()
		if werr != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
