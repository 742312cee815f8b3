package headless

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/killallgit/webbuilder/pkg/tokens"
	"github.com/killallgit/webbuilder/pkg/transcript"
	"github.com/killallgit/webbuilder/pkg/workspace"
)

// ErrGenerationFailed is returned when the endpoint or the stream failed.
var ErrGenerationFailed = errors.New("generation failed")

// Options configure a headless run.
type Options struct {
	// Out receives streaming progress and the final transcript.
	Out io.Writer
	// ErrOut receives status lines and errors.
	ErrOut io.Writer
	// OutputFile, when set, receives the final preview document.
	OutputFile string
	// Quiet suppresses streaming progress.
	Quiet bool
	// Formatter renders the final transcript. Nil skips it.
	Formatter *transcript.Formatter
	// Counter reports token usage after the run. Nil skips it.
	Counter *tokens.Counter
}

// Result is what a headless run produced.
type Result struct {
	Reply    string
	Markup   string
	Document string
	Revision uint64

	PromptTokens int
	ReplyTokens  int
}

// Run sends prompt through ws, streams the reply to opts.Out and writes the
// resulting preview document to opts.OutputFile.
func Run(ctx context.Context, ws *workspace.Workspace, prompt string, opts Options) (Result, error) {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.ErrOut == nil {
		opts.ErrOut = io.Discard
	}

	r := newRunner(ws, opts)
	res, err := r.run(ctx, prompt)
	if err != nil {
		return res, fmt.Errorf("failed to execute prompt: %w", err)
	}
	return res, nil
}
