package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
)

// DataPrefix marks the lines of an event stream that carry a payload.
const DataPrefix = "data: "

// DoneSentinel is the payload some servers send after the last delta.
const DoneSentinel = "[DONE]"

// ErrCancelled is returned by Consume when its context is cancelled.
var ErrCancelled = errors.New("stream cancelled")

// chunk is the part of a chat completion chunk Consume reads.
type chunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// ParseFrame decodes one event stream line. It reports false for lines that
// are not data frames, for the done sentinel and for payloads without a
// non-empty content delta.
func ParseFrame(line []byte) (string, bool) {
	line = bytes.TrimRight(line, "\r\n")
	payload, ok := bytes.CutPrefix(line, []byte(DataPrefix))
	if !ok {
		return "", false
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || string(payload) == DoneSentinel {
		return "", false
	}

	var c chunk
	if err := json.Unmarshal(payload, &c); err != nil {
		return "", false
	}
	if len(c.Choices) == 0 || c.Choices[0].Delta.Content == nil || *c.Choices[0].Delta.Content == "" {
		return "", false
	}
	return *c.Choices[0].Delta.Content, true
}

// Consume reads an event stream from r until end of data, delivering the
// accumulated text to h after every delta. Frames that do not parse are
// skipped. OnComplete fires once at end of data; read failures go to OnError.
// A cancelled ctx stops delivery and returns ErrCancelled without calling h.
func Consume(ctx context.Context, r io.Reader, h Handler) (Stats, error) {
	acc := NewAccumulator()
	reader := bufio.NewReader(r)

	for {
		line, readErr := reader.ReadBytes('\n')
		if ctx.Err() != nil {
			return acc.Stats(), ErrCancelled
		}

		if len(bytes.TrimSpace(line)) > 0 {
			if delta, ok := ParseFrame(line); ok {
				h.OnDelta(acc.Add(delta))
			} else if bytes.HasPrefix(line, []byte(DataPrefix)) {
				acc.Skip()
			}
		}

		switch {
		case readErr == nil:
			continue
		case errors.Is(readErr, io.EOF):
			h.OnComplete(acc.Content())
			return acc.Stats(), nil
		default:
			if ctx.Err() != nil {
				return acc.Stats(), ErrCancelled
			}
			h.OnError(readErr)
			return acc.Stats(), readErr
		}
	}
}
