package stream

import (
	"io"
	"strings"
	"sync"
)

// WriterHandler adapts an io.Writer to the Handler interface. Because deltas
// carry the whole text so far, it writes only the part not yet written.
type WriterHandler struct {
	writer  io.Writer
	mu      sync.Mutex
	written string
	err     error
}

// NewWriterHandler creates a new handler that writes to an io.Writer
func NewWriterHandler(w io.Writer) *WriterHandler {
	return &WriterHandler{writer: w}
}

// OnDelta writes the new suffix of text
func (w *WriterHandler) OnDelta(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.write(text)
}

// OnComplete writes whatever the last delta did not cover
func (w *WriterHandler) OnComplete(fullText string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.write(fullText)
}

// OnError records the transport failure
func (w *WriterHandler) OnError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

// Content returns everything written so far
func (w *WriterHandler) Content() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Err returns the transport failure reported to the handler, if any
func (w *WriterHandler) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *WriterHandler) write(text string) {
	suffix, ok := strings.CutPrefix(text, w.written)
	if !ok || suffix == "" {
		return
	}
	if _, err := io.WriteString(w.writer, suffix); err != nil {
		w.err = err
		return
	}
	w.written = text
}

var _ Handler = (*WriterHandler)(nil)
