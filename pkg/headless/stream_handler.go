package headless

import (
	"io"

	"github.com/killallgit/webbuilder/pkg/stream"
	"github.com/killallgit/webbuilder/pkg/workspace"
)

// progressPrinter echoes the streaming text of workspace states as it
// grows.
type progressPrinter struct {
	writer *stream.WriterHandler
	done   chan struct{}
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{
		writer: stream.NewWriterHandler(w),
		done:   make(chan struct{}),
	}
}

// follow prints until states is closed.
func (p *progressPrinter) follow(states <-chan workspace.State) {
	defer close(p.done)
	for s := range states {
		if s.StreamingText != "" {
			p.writer.OnDelta(s.StreamingText)
		}
	}
}

// finish prints whatever part of the final reply was not seen while
// streaming.
func (p *progressPrinter) finish(final string) {
	<-p.done
	p.writer.OnComplete(final)
}
