package headless

import (
	"fmt"
	"io"

	"github.com/killallgit/webbuilder/pkg/logger"
)

// Output writes the visible parts of a headless run.
type Output struct {
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates an output writing results to out and problems to errOut.
func NewOutput(out, errOut io.Writer) *Output {
	return &Output{out: out, errOut: errOut}
}

// Transcript prints the rendered conversation.
func (o *Output) Transcript(rendered string) {
	fmt.Fprintln(o.out, rendered)
}

// Saved reports where the preview document went.
func (o *Output) Saved(path string, revision uint64) {
	fmt.Fprintf(o.errOut, "[Preview document revision %d written to %s]\n", revision, path)
}

// Summary prints stream counters.
func (o *Output) Summary(deltas, skipped int, chars int) {
	fmt.Fprintf(o.errOut, "\n[Deltas: %d, Skipped frames: %d, Characters: %d]\n", deltas, skipped, chars)
}

// Tokens prints token usage. Estimated counts are marked.
func (o *Output) Tokens(prompt, reply int, exact bool) {
	mark := ""
	if !exact {
		mark = "~"
	}
	fmt.Fprintf(o.errOut, "[Tokens: prompt %s%d, reply %s%d]\n", mark, prompt, mark, reply)
}

// Error prints an error message and logs it.
func (o *Output) Error(msg string) {
	logger.Error("%s", msg)
	fmt.Fprintln(o.errOut, msg)
}
