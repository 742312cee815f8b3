package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/killallgit/webbuilder/pkg/chat"
	"github.com/killallgit/webbuilder/pkg/logger"
	"github.com/killallgit/webbuilder/pkg/stream"
	"github.com/killallgit/webbuilder/pkg/workspace"
)

// runner drives one prompt through a workspace
type runner struct {
	ws     *workspace.Workspace
	opts   Options
	output *Output
	log    *logger.ComponentLogger
}

func newRunner(ws *workspace.Workspace, opts Options) *runner {
	return &runner{
		ws:     ws,
		opts:   opts,
		output: NewOutput(opts.Out, opts.ErrOut),
		log:    logger.WithComponent("headless"),
	}
}

func (r *runner) run(ctx context.Context, prompt string) (Result, error) {
	progressOut := r.opts.Out
	if r.opts.Quiet || r.opts.Formatter != nil {
		progressOut = io.Discard
	}
	progress := newProgressPrinter(progressOut)

	states, unsubscribe := r.ws.Subscribe()
	go progress.follow(states)

	session, err := r.ws.Submit(ctx, prompt)
	if err != nil {
		unsubscribe()
		return Result{}, err
	}
	r.log.Debug("generation started", "session", session.ID)

	stats, streamErr := session.Wait()
	unsubscribe()

	state := r.ws.Snapshot()
	reply, _ := state.LastAssistantMessage()
	progress.finish(reply.Content)

	switch {
	case errors.Is(streamErr, stream.ErrCancelled):
		return Result{}, streamErr
	case streamErr != nil:
		r.output.Error(fmt.Sprintf("Generation error: %v", streamErr))
		return Result{Reply: reply.Content}, fmt.Errorf("%w: %v", ErrGenerationFailed, streamErr)
	}

	if r.opts.Formatter != nil {
		r.output.Transcript(r.opts.Formatter.Format(state.Messages))
	} else if !r.opts.Quiet {
		fmt.Fprintln(r.opts.Out)
	}
	r.output.Summary(stats.Deltas, stats.Skipped, len(reply.Content))

	doc := r.ws.Bridge().Current()
	res := Result{
		Reply:    reply.Content,
		Markup:   state.GeneratedDocument,
		Document: doc.HTML,
		Revision: doc.Revision,
	}
	if r.opts.Counter != nil {
		conv := chat.Conversation{Messages: state.Messages}
		res.PromptTokens = r.opts.Counter.CountMessages(state.Messages[:chat.GetMessageCount(conv)-1])
		res.ReplyTokens = r.opts.Counter.Count(reply.Content)
		r.output.Tokens(res.PromptTokens, res.ReplyTokens, r.opts.Counter.Exact())
	}

	if r.opts.OutputFile != "" {
		if err := writeDocument(r.opts.OutputFile, doc.HTML); err != nil {
			return res, err
		}
		r.output.Saved(r.opts.OutputFile, doc.Revision)
	}
	return res, nil
}

func writeDocument(path, html string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write preview document: %w", err)
	}
	return nil
}
