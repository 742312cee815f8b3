// Package preview renders the sandboxed preview document and bridges the
// selection protocol between the host and the interaction script.
package preview

import (
	"errors"
	"fmt"
	"sync"

	"github.com/killallgit/webbuilder/pkg/logger"
	"github.com/killallgit/webbuilder/pkg/sandbox"
	"github.com/killallgit/webbuilder/pkg/selector"
)

// ErrStaleSelection is returned for selection events sent by a document that
// has since been replaced.
var ErrStaleSelection = errors.New("selection event from a replaced document")

// Selection is a validated selection event.
type Selection struct {
	Selector  string
	TagName   string
	Revision  uint64
	OuterHTML string
}

// SelectionState is the host's view of selecting mode.
type SelectionState struct {
	IsSelecting      bool   `json:"isSelecting"`
	SelectedSelector string `json:"selectedSelector,omitempty"`
}

// SelectionHandler is called after a selection event was accepted.
type SelectionHandler func(Selection)

// Bridge is the only writer of the sandbox document. Every change of markup
// or mode produces a new document with a higher revision.
type Bridge struct {
	renderer *Renderer
	log      *logger.ComponentLogger

	mu          sync.Mutex
	current     Document
	rendered    bool
	selection   SelectionState
	handlers    []SelectionHandler
	subscribers map[int]chan Document
	nextSubID   int
}

// NewBridge creates a bridge rendering with r.
func NewBridge(r *Renderer) *Bridge {
	if r == nil {
		r = NewRenderer("")
	}
	return &Bridge{
		renderer:    r,
		log:         logger.WithComponent("preview"),
		subscribers: make(map[int]chan Document),
	}
}

// Update renders a new document when markup or isSelecting differ from the
// current one. It reports whether a new document was published.
func (b *Bridge) Update(markup string, isSelecting bool) (Document, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updateLocked(markup, isSelecting)
}

func (b *Bridge) updateLocked(markup string, isSelecting bool) (Document, bool, error) {
	if b.rendered && b.current.Markup == markup && b.current.IsSelecting == isSelecting {
		return b.current, false, nil
	}

	doc, err := b.renderer.Render(markup, isSelecting, b.current.Revision+1)
	if err != nil {
		return b.current, false, err
	}

	b.current = doc
	b.rendered = true
	b.selection.IsSelecting = isSelecting
	b.publishLocked(doc)
	b.log.Debug("document replaced", "revision", doc.Revision, "selecting", isSelecting, "bytes", len(doc.HTML))
	return doc, true, nil
}

// SetMarkup replaces the markup and keeps the current mode.
func (b *Bridge) SetMarkup(markup string) (Document, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updateLocked(markup, b.selection.IsSelecting)
}

// SetSelecting switches selecting mode for the current markup. Turning it off
// also clears the selected selector.
func (b *Bridge) SetSelecting(on bool) (Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !on {
		b.selection.SelectedSelector = ""
	}
	doc, _, err := b.updateLocked(b.current.Markup, on)
	return doc, err
}

// ClearSelection forgets the selected selector without touching the mode.
func (b *Bridge) ClearSelection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selection.SelectedSelector = ""
}

// Current returns the latest document.
func (b *Bridge) Current() Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Selection returns the current selection state.
func (b *Bridge) Selection() SelectionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selection
}

// Subscribe returns a channel carrying every new document. Slow readers only
// see the latest one. The returned func unsubscribes.
func (b *Bridge) Subscribe() (<-chan Document, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++
	ch := make(chan Document, 1)
	b.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, id)
			close(ch)
		})
	}
}

func (b *Bridge) publishLocked(doc Document) {
	for _, ch := range b.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- doc
	}
}

// OnSelectionEvent registers a handler for accepted selection events.
func (b *Bridge) OnSelectionEvent(h SelectionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// HandleMessage processes one raw message from the sandbox. Messages of any
// other type are ignored. A well-formed selection event from the current
// document ends selecting mode and is passed to the handlers. The selector
// comes from the live DOM, which scripts in the markup may have changed, so
// OuterHTML is only filled in when it also resolves in the markup.
func (b *Bridge) HandleMessage(raw []byte) error {
	typ, err := sandbox.MessageType(raw)
	if err != nil {
		return err
	}
	if typ != sandbox.TypeElementSelected {
		b.log.Debug("ignoring sandbox message", "type", typ)
		return nil
	}

	msg, err := sandbox.DecodeSelection(raw)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if msg.Revision != 0 && msg.Revision != b.current.Revision {
		current := b.current.Revision
		b.mu.Unlock()
		b.log.Debug("dropping stale selection", "revision", msg.Revision, "current", current)
		return fmt.Errorf("%w: revision %d, current %d", ErrStaleSelection, msg.Revision, current)
	}

	outer, err := resolve(b.current.Markup, msg.Selector)
	if err != nil {
		b.log.Debug("selection not in generated markup", "selector", msg.Selector, "error", err)
	}

	b.selection.SelectedSelector = msg.Selector
	if _, _, err := b.updateLocked(b.current.Markup, false); err != nil {
		b.mu.Unlock()
		return err
	}
	handlers := append([]SelectionHandler(nil), b.handlers...)
	b.mu.Unlock()

	sel := Selection{
		Selector:  msg.Selector,
		TagName:   msg.TagName,
		Revision:  msg.Revision,
		OuterHTML: outer,
	}
	b.log.Info("element selected", "selector", sel.Selector, "tag", sel.TagName)
	for _, h := range handlers {
		h(sel)
	}
	return nil
}

func resolve(markup, sel string) (string, error) {
	body, err := selector.ParseBody(markup)
	if err != nil {
		return "", err
	}
	node, err := selector.Resolve(body, sel)
	if err != nil {
		return "", err
	}
	return selector.OuterHTML(node)
}
