package prompt

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// SystemTemplate names the instruction sent ahead of every conversation.
	SystemTemplate = "system"
	// FollowUpTemplate names the input suggested after an element is selected.
	FollowUpTemplate = "follow_up"

	// MaxContextRunes bounds the element markup quoted in a follow-up.
	MaxContextRunes = 800
)

const followUpText = `Modify the {{.tag}} element with selector: {{.selector}}` +
	`{{if .context}}` + "\n\nCurrent markup of that element:\n" + `{{.context}}{{end}}`

// Selection describes the element picked in the preview.
type Selection struct {
	TagName  string
	Selector string
	// OuterHTML is the element's markup; empty leaves it out of the prompt.
	OuterHTML string
}

// Builder renders the prompts of a workspace.
type Builder struct {
	registry Registry
}

func nonEmpty(value any) error {
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return errors.New("must be a non-empty string")
	}
	return nil
}

// NewBuilder registers the system and follow-up templates. systemPrompt is
// bound as a partial of the system template.
func NewBuilder(systemPrompt string) (*Builder, error) {
	system, err := NewPromptTemplateWithOptions("{{.instructions}}", []string{"instructions"},
		WithVariableMetadata(&Variable{Name: "instructions", Required: true, Validator: nonEmpty}),
	)
	if err != nil {
		return nil, err
	}

	followUp, err := NewPromptTemplateWithOptions(followUpText, []string{"tag", "selector", "context"},
		WithVariableMetadata(
			&Variable{Name: "tag", Required: true, Validator: nonEmpty},
			&Variable{Name: "selector", Required: true, Validator: nonEmpty},
			&Variable{Name: "context", Default: ""},
		),
	)
	if err != nil {
		return nil, err
	}

	r := NewRegistry()
	if err := r.Register(SystemTemplate, system.WithPartialVariables(map[string]any{"instructions": systemPrompt})); err != nil {
		return nil, err
	}
	if err := r.Register(FollowUpTemplate, followUp); err != nil {
		return nil, err
	}
	return &Builder{registry: r}, nil
}

// Registry exposes the templates so callers can override them.
func (b *Builder) Registry() Registry {
	return b.registry
}

// System renders the system instruction.
func (b *Builder) System() (string, error) {
	t, err := b.registry.Get(SystemTemplate)
	if err != nil {
		return "", err
	}
	out, err := t.Format(map[string]any{})
	if err != nil {
		return "", fmt.Errorf("failed to render system prompt: %w", err)
	}
	return out, nil
}

// FollowUp renders the suggested input for a selected element.
func (b *Builder) FollowUp(sel Selection) (string, error) {
	t, err := b.registry.Get(FollowUpTemplate)
	if err != nil {
		return "", err
	}
	out, err := t.Format(map[string]any{
		"tag":      strings.ToLower(sel.TagName),
		"selector": sel.Selector,
		"context":  truncate(strings.TrimSpace(sel.OuterHTML), MaxContextRunes),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render follow-up prompt: %w", err)
	}
	return out, nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}
