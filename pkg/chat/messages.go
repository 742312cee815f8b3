package chat

import (
	"strings"
	"time"
)

// Message is one turn of the conversation. Messages are values and are never
// modified once created.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// GenerationFailedText is shown in place of a response when the request or
// its stream fails.
const GenerationFailedText = "Sorry, I encountered an error while generating the response."

func NewUserMessage(content string) Message {
	return Message{
		Role:      RoleUser,
		Content:   strings.TrimSpace(content),
		Timestamp: time.Now(),
	}
}

func NewAssistantMessage(content string) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewSystemMessage(content string) Message {
	return Message{
		Role:      RoleSystem,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewGenerationFailedMessage is the synthetic assistant reply for transport
// failures.
func NewGenerationFailedMessage() Message {
	return NewAssistantMessage(GenerationFailedText)
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

func (m Message) IsSystem() bool {
	return m.Role == RoleSystem
}
