// Package workspace holds the application state behind the builder UI: the
// conversation, the selected model, the active generation and the preview.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/killallgit/webbuilder/pkg/chat"
	"github.com/killallgit/webbuilder/pkg/codeblock"
	"github.com/killallgit/webbuilder/pkg/logger"
	"github.com/killallgit/webbuilder/pkg/preview"
	"github.com/killallgit/webbuilder/pkg/prompt"
	"github.com/killallgit/webbuilder/pkg/stream"
)

// ErrEmptyInput is returned by Submit for blank input.
var ErrEmptyInput = errors.New("message content cannot be empty")

// Options configure a Workspace.
type Options struct {
	Opener  chat.StreamOpener
	Prompts *prompt.Builder
	Models  chat.Catalogue
	// Bridge defaults to a bridge with the default stylesheet.
	Bridge *preview.Bridge

	Temperature float32
	MaxTokens   int
	// SelectionContext quotes the selected element's markup in the
	// suggested follow-up.
	SelectionContext bool
}

// Workspace is safe for concurrent use.
type Workspace struct {
	opener  chat.StreamOpener
	prompts *prompt.Builder
	bridge  *preview.Bridge
	manager *stream.Manager
	log     *logger.ComponentLogger
	opts    Options

	// submitMu orders Submit and Cancel so the newest generation is always
	// the one the manager runs. Callbacks never take it.
	submitMu sync.Mutex
	// mu is never held while calling into the stream manager.
	mu           sync.Mutex
	conversation chat.Conversation
	active       *generation
	seq          uint64
	streaming    string
	generated    string
	suggested    string
	lastErr      string
	subscribers  map[int]chan State
	nextSubID    int
}

// generation identifies one Submit. Callbacks of a superseded generation
// are dropped.
type generation struct {
	seq uint64
}

// New creates a workspace with an empty conversation on the default model.
func New(opts Options) (*Workspace, error) {
	if opts.Opener == nil {
		return nil, fmt.Errorf("workspace needs a stream opener")
	}
	if opts.Prompts == nil {
		return nil, fmt.Errorf("workspace needs a prompt builder")
	}
	model, ok := opts.Models.Default()
	if !ok {
		return nil, fmt.Errorf("workspace needs at least one model")
	}
	if opts.Bridge == nil {
		opts.Bridge = preview.NewBridge(nil)
	}
	if _, _, err := opts.Bridge.Update("", false); err != nil {
		return nil, fmt.Errorf("failed to render empty preview: %w", err)
	}

	w := &Workspace{
		opener:       opts.Opener,
		prompts:      opts.Prompts,
		bridge:       opts.Bridge,
		manager:      stream.NewManager(),
		log:          logger.WithComponent("workspace"),
		opts:         opts,
		conversation: chat.NewConversation(model.ID),
		subscribers:  make(map[int]chan State),
	}
	w.bridge.OnSelectionEvent(w.onSelection)
	return w, nil
}

// Bridge returns the preview bridge.
func (w *Workspace) Bridge() *preview.Bridge {
	return w.bridge
}

// Submit sends input as the next user turn and starts streaming the reply.
// Any generation still running is cancelled first. ctx bounds the lifetime
// of the stream, not just the call.
func (w *Workspace) Submit(ctx context.Context, input string) (*stream.Session, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, ErrEmptyInput
	}
	system, err := w.prompts.System()
	if err != nil {
		return nil, err
	}

	w.submitMu.Lock()
	defer w.submitMu.Unlock()

	w.mu.Lock()
	w.seq++
	gen := &generation{seq: w.seq}
	req := chat.CreateStreamingChatRequest(w.conversation, text, chat.RequestOptions{
		SystemPrompt: system,
		Temperature:  w.opts.Temperature,
		MaxTokens:    w.opts.MaxTokens,
	})
	w.conversation = chat.AddMessage(w.conversation, chat.NewUserMessage(text))
	w.active = gen
	w.streaming = ""
	w.suggested = ""
	w.lastErr = ""
	w.bridge.ClearSelection()
	w.publishLocked()
	w.mu.Unlock()

	w.log.Info("submitting", "generation", gen.seq, "model", req.Model, "messages", len(req.Messages))

	open := func(ctx context.Context) (io.ReadCloser, error) {
		return w.opener.Open(ctx, req)
	}
	session := w.manager.Start(ctx, open, stream.HandlerFunc{
		DeltaFunc:    func(text string) { w.onDelta(gen, text) },
		CompleteFunc: func(full string) { w.onComplete(gen, full) },
		ErrorFunc:    func(err error) { w.onError(gen, err) },
	})
	go w.watch(gen, session)
	return session, nil
}

// watch clears the generating flag of a session that ended without a
// terminal callback, which only happens when it was cancelled.
func (w *Workspace) watch(gen *generation, s *stream.Session) {
	<-s.Done()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active != gen {
		return
	}
	w.active = nil
	w.streaming = ""
	w.publishLocked()
}

func (w *Workspace) onDelta(gen *generation, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active != gen {
		return
	}
	w.streaming = text
	w.setGeneratedLocked(codeblock.Latest(text, w.generated))
	w.publishLocked()
}

func (w *Workspace) onComplete(gen *generation, full string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active != gen {
		return
	}
	w.conversation = chat.AddMessage(w.conversation, chat.NewAssistantMessage(full))
	w.active = nil
	w.streaming = ""
	w.setGeneratedLocked(codeblock.Latest(full, w.generated))
	w.publishLocked()
}

func (w *Workspace) onError(gen *generation, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active != gen {
		return
	}
	w.log.Error("generation failed", "generation", gen.seq, "error", err)
	w.conversation = chat.AddMessage(w.conversation, chat.NewGenerationFailedMessage())
	w.active = nil
	w.streaming = ""
	w.lastErr = err.Error()
	w.publishLocked()
}

func (w *Workspace) setGeneratedLocked(markup string) {
	if markup == w.generated {
		return
	}
	w.generated = markup
	if _, _, err := w.bridge.SetMarkup(markup); err != nil {
		w.log.Error("failed to render preview", "error", err)
	}
}

// Cancel stops the running generation without touching the conversation.
// It reports whether one was running.
func (w *Workspace) Cancel() bool {
	w.submitMu.Lock()
	defer w.submitMu.Unlock()

	w.mu.Lock()
	gen := w.active
	w.mu.Unlock()

	cancelled := w.manager.Cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != nil && w.active == gen {
		w.active = nil
		w.streaming = ""
		w.publishLocked()
	}
	return cancelled
}

// SetSelecting switches selecting mode. Turning it off clears the selected
// element.
func (w *Workspace) SetSelecting(on bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.bridge.SetSelecting(on); err != nil {
		return err
	}
	w.publishLocked()
	return nil
}

// ToggleSelecting flips selecting mode and returns the new mode.
func (w *Workspace) ToggleSelecting() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	on := !w.bridge.Selection().IsSelecting
	if _, err := w.bridge.SetSelecting(on); err != nil {
		return !on, err
	}
	w.publishLocked()
	return on, nil
}

// SelectModel switches the model used by later submissions.
func (w *Workspace) SelectModel(id string) error {
	model, err := w.opts.Models.Find(id)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conversation = chat.WithModel(w.conversation, model.ID)
	w.publishLocked()
	return nil
}

// SetSuggestedInput replaces the suggested input, e.g. after the user
// edited it.
func (w *Workspace) SetSuggestedInput(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.suggested = s
	w.publishLocked()
}

func (w *Workspace) onSelection(sel preview.Selection) {
	p := prompt.Selection{TagName: sel.TagName, Selector: sel.Selector}
	if w.opts.SelectionContext {
		p.OuterHTML = sel.OuterHTML
	}
	suggestion, err := w.prompts.FollowUp(p)
	if err != nil {
		w.log.Error("failed to build follow-up", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.suggested = suggestion
	w.publishLocked()
}

// Snapshot returns the current state.
func (w *Workspace) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() State {
	return State{
		Messages:          chat.GetMessages(w.conversation),
		Models:            w.opts.Models,
		SelectedModel:     w.conversation.Model,
		IsGenerating:      w.active != nil,
		StreamingText:     w.streaming,
		GeneratedDocument: w.generated,
		Selection:         w.bridge.Selection(),
		SuggestedInput:    w.suggested,
		DocumentRevision:  w.bridge.Current().Revision,
		LastError:         w.lastErr,
	}
}

// Subscribe returns a channel of state changes. Slow readers only see the
// latest state. The returned func unsubscribes.
func (w *Workspace) Subscribe() (<-chan State, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextSubID
	w.nextSubID++
	ch := make(chan State, 1)
	w.subscribers[id] = ch
	ch <- w.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subscribers, id)
			close(ch)
		})
	}
}

func (w *Workspace) publishLocked() {
	if len(w.subscribers) == 0 {
		return
	}
	state := w.snapshotLocked()
	for _, ch := range w.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}
