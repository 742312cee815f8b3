// Package tokens counts prompt and reply tokens for generation reports.
package tokens

import (
	"strings"
	"sync"

	"github.com/killallgit/webbuilder/pkg/chat"
	"github.com/killallgit/webbuilder/pkg/logger"
	"github.com/pkoukk/tiktoken-go"
)

// messageOverhead approximates the role markers wrapped around each message.
const messageOverhead = 4

// Counter counts tokens with a BPE encoding, or estimates them when no
// encoding could be loaded.
type Counter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.Mutex
}

// NewCounter loads the encoding that best fits model. Loading may need the
// network; when it fails the counter estimates instead.
func NewCounter(model string) *Counter {
	encoder, err := tiktoken.GetEncoding(encodingFor(model))
	if err != nil {
		logger.WithComponent("tokens").Debug("encoding unavailable, estimating", "model", model, "error", err)
		return NewEstimator()
	}
	return &Counter{encoder: encoder}
}

// NewEstimator returns a counter that never loads an encoding.
func NewEstimator() *Counter {
	return &Counter{}
}

// Exact reports whether counts come from a real encoding.
func (c *Counter) Exact() bool {
	return c.encoder != nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if c.encoder == nil {
		return estimate(text)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoder.Encode(text, nil, nil))
}

// CountMessages returns the tokens a request carrying messages would use,
// including the priming of the assistant reply.
func (c *Counter) CountMessages(messages []chat.Message) int {
	total := 3
	for _, m := range messages {
		total += c.Count(m.Role) + c.Count(m.Content) + messageOverhead
	}
	return total
}

func encodingFor(model string) string {
	lower := strings.ToLower(model)
	if strings.Contains(lower, "davinci") || strings.Contains(lower, "curie") {
		return "p50k_base"
	}
	return "cl100k_base"
}

// estimate takes the larger of the word count and a quarter of the length.
func estimate(text string) int {
	words := len(strings.Fields(text))
	chars := len(text) / 4
	if words > chars {
		return words
	}
	return chars
}
