// Package sandbox holds the interaction script injected into the preview
// document and the schema of the messages it exchanges with the host.
//
// The script runs inside the sandboxed iframe. It has two modes, idle and
// selecting, switched only by ModeMessage values from the host. Its
// listeners are registered once at document level in the capture phase and
// check the mode on every event.
package sandbox

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

const (
	// TypeUpdateSelectionMode tags host to sandbox mode toggles.
	TypeUpdateSelectionMode = "updateSelectionMode"
	// TypeElementSelected tags sandbox to host selection events.
	TypeElementSelected = "elementSelected"

	// HoverClass marks the element under the pointer while selecting.
	HoverClass = "hover-highlight"
	// SelectedClass marks the last clicked element.
	SelectedClass = "selected-element"
)

// ErrUnexpectedMessage is returned for inbound traffic that is not a
// well-formed selection event.
var ErrUnexpectedMessage = errors.New("unexpected sandbox message")

//go:embed interaction.js
var interactionSource string

var interactionTemplate = template.Must(template.New("interaction.js").Parse(interactionSource))

// Options are baked into a rendered script.
type Options struct {
	IsSelecting bool
	// Revision identifies the document the script belongs to and is echoed
	// back in every selection event.
	Revision uint64
}

// Script renders the interaction script with its initial mode.
func Script(opts Options) (string, error) {
	data := struct {
		Options
		HoverClass    string
		SelectedClass string
		SelectionType string
		ModeType      string
	}{
		Options:       opts,
		HoverClass:    HoverClass,
		SelectedClass: SelectedClass,
		SelectionType: TypeElementSelected,
		ModeType:      TypeUpdateSelectionMode,
	}

	var b strings.Builder
	if err := interactionTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render interaction script: %w", err)
	}
	return b.String(), nil
}

// ModeMessage toggles selecting mode inside the sandbox.
type ModeMessage struct {
	Type        string `json:"type"`
	IsSelecting bool   `json:"isSelecting"`
}

// NewModeMessage builds a mode toggle.
func NewModeMessage(isSelecting bool) ModeMessage {
	return ModeMessage{Type: TypeUpdateSelectionMode, IsSelecting: isSelecting}
}

// SelectionMessage reports the element clicked in selecting mode.
type SelectionMessage struct {
	Type     string `json:"type"`
	Selector string `json:"selector"`
	TagName  string `json:"tagName"`
	Revision uint64 `json:"revision,omitempty"`
}

// MessageType returns the declared type of a raw message.
func MessageType(raw []byte) (string, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedMessage, err)
	}
	return envelope.Type, nil
}

// DecodeSelection parses and validates a selection event.
func DecodeSelection(raw []byte) (SelectionMessage, error) {
	var msg SelectionMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return SelectionMessage{}, fmt.Errorf("%w: %v", ErrUnexpectedMessage, err)
	}
	switch {
	case msg.Type != TypeElementSelected:
		return SelectionMessage{}, fmt.Errorf("%w: type %q", ErrUnexpectedMessage, msg.Type)
	case strings.TrimSpace(msg.Selector) == "":
		return SelectionMessage{}, fmt.Errorf("%w: empty selector", ErrUnexpectedMessage)
	case strings.TrimSpace(msg.TagName) == "":
		return SelectionMessage{}, fmt.Errorf("%w: empty tag name", ErrUnexpectedMessage)
	}
	return msg, nil
}
