package server

import (
	"time"

	"github.com/killallgit/webbuilder/pkg/chat"
	"github.com/killallgit/webbuilder/pkg/codeblock"
	"github.com/killallgit/webbuilder/pkg/preview"
	"github.com/killallgit/webbuilder/pkg/workspace"
)

// messageView is a transcript entry split into narration and code.
type messageView struct {
	Role      string    `json:"role"`
	Before    string    `json:"before"`
	Code      string    `json:"code,omitempty"`
	HasCode   bool      `json:"hasCode"`
	After     string    `json:"after,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newMessageView(msg chat.Message) messageView {
	res := codeblock.Extract(msg.Content)
	return messageView{
		Role:      msg.Role,
		Before:    res.Before,
		Code:      res.Code,
		HasCode:   res.HasCode,
		After:     res.After,
		Timestamp: msg.Timestamp,
	}
}

// stateView is the JSON shape of workspace.State sent to the page.
type stateView struct {
	Messages         []messageView          `json:"messages"`
	Streaming        *messageView           `json:"streaming,omitempty"`
	Models           chat.Catalogue         `json:"models"`
	SelectedModel    string                 `json:"selectedModel"`
	IsGenerating     bool                   `json:"isGenerating"`
	Selection        preview.SelectionState `json:"selection"`
	SuggestedInput   string                 `json:"suggestedInput,omitempty"`
	DocumentRevision uint64                 `json:"documentRevision"`
	LastError        string                 `json:"lastError,omitempty"`
}

func newStateView(s workspace.State) stateView {
	v := stateView{
		Messages:         make([]messageView, 0, len(s.Messages)),
		Models:           s.Models,
		SelectedModel:    s.SelectedModel,
		IsGenerating:     s.IsGenerating,
		Selection:        s.Selection,
		SuggestedInput:   s.SuggestedInput,
		DocumentRevision: s.DocumentRevision,
		LastError:        s.LastError,
	}
	for _, m := range s.Messages {
		v.Messages = append(v.Messages, newMessageView(m))
	}
	if s.IsGenerating && s.StreamingText != "" {
		streaming := newMessageView(chat.NewAssistantMessage(s.StreamingText))
		v.Streaming = &streaming
	}
	return v
}
