package events

import (
	"net/http"
	"strings"
	"time"
)

// keepalivePeriod is the interval between SSE keepalive comments
const keepalivePeriod = 30 * time.Second

// Encoder turns a value into an SSE event name and data payload.
// Returning ok=false skips the value for this stream.
type Encoder[T any] func(value T) (event, data string, ok bool)

// ServeSSE streams broker values to the client until it disconnects or the
// broker closes.
func ServeSSE[T any](w http.ResponseWriter, r *http.Request, broker *Broker[T], name string, encode Encoder[T]) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub, unsubscribe := broker.Subscribe(name)
	defer unsubscribe()

	_, _ = w.Write(FormatSSE("connected", `{"status":"connected"}`))
	flusher.Flush()

	ticker := time.NewTicker(keepalivePeriod)
	defer ticker.Stop()

	for {
		select {
		case value, ok := <-sub.C:
			if !ok {
				return
			}
			event, data, keep := encode(value)
			if !keep {
				continue
			}
			if _, err := w.Write(FormatSSE(event, data)); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// FormatSSE formats an SSE message. Each data line gets its own "data: " prefix.
func FormatSSE(event, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteByte('\n')
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// splitLines splits on \n, dropping \r and a trailing empty line
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
