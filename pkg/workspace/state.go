package workspace

import (
	"github.com/killallgit/webbuilder/pkg/chat"
	"github.com/killallgit/webbuilder/pkg/preview"
)

// State is a snapshot of everything the UI shows.
type State struct {
	Messages          []chat.Message         `json:"messages"`
	Models            chat.Catalogue         `json:"models"`
	SelectedModel     string                 `json:"selectedModel"`
	IsGenerating      bool                   `json:"isGenerating"`
	StreamingText     string                 `json:"streamingText"`
	GeneratedDocument string                 `json:"generatedDocument"`
	Selection         preview.SelectionState `json:"selection"`
	SuggestedInput    string                 `json:"suggestedInput,omitempty"`
	DocumentRevision  uint64                 `json:"documentRevision"`
	LastError         string                 `json:"lastError,omitempty"`
}

// LastAssistantMessage returns the newest assistant message of the snapshot.
func (s State) LastAssistantMessage() (chat.Message, bool) {
	return chat.GetLastAssistantMessage(chat.Conversation{Messages: s.Messages})
}
