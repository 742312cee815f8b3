package chat

// RequestMessage is a message as the completions endpoint expects it.
type RequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a chat completions call.
type ChatRequest struct {
	Model       string           `json:"model"`
	Messages    []RequestMessage `json:"messages"`
	Temperature float32          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
	Stream      bool             `json:"stream"`
}

// RequestOptions carry the generation settings of a request.
type RequestOptions struct {
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// CreateStreamingChatRequest builds a streaming request from the system
// instruction, the prior turns of conversation and the new user input.
// System messages already in the conversation are not repeated.
func CreateStreamingChatRequest(conversation Conversation, userMessage string, opts RequestOptions) ChatRequest {
	messages := make([]RequestMessage, 0, len(conversation.Messages)+2)
	if opts.SystemPrompt != "" {
		system := NewSystemMessage(opts.SystemPrompt)
		messages = append(messages, RequestMessage{Role: system.Role, Content: system.Content})
	}
	for _, msg := range conversation.Messages {
		if msg.IsSystem() {
			continue
		}
		messages = append(messages, RequestMessage{Role: msg.Role, Content: msg.Content})
	}
	user := NewUserMessage(userMessage)
	messages = append(messages, RequestMessage{Role: user.Role, Content: user.Content})

	return ChatRequest{
		Model:       conversation.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	}
}
