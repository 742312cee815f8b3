// Package testutil provides fake generation endpoints for tests.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/killallgit/webbuilder/pkg/chat"
)

// Frame renders one chat completion chunk as an event stream frame.
func Frame(content string) string {
	payload := map[string]any{
		"object":  "chat.completion.chunk",
		"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"content": content}}},
	}
	data, _ := json.Marshal(payload)
	return "data: " + string(data) + "\n\n"
}

// Frames splits response into chunks of size runes and renders the stream,
// terminated by the done sentinel.
func Frames(response string, size int) string {
	var b strings.Builder
	for _, chunk := range Chunk(response, size) {
		b.WriteString(Frame(chunk))
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

// Chunk splits s into pieces of at most size runes.
func Chunk(s string, size int) []string {
	if size <= 0 {
		size = 1
	}
	runes := []rune(s)
	var chunks []string
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// FakeStreamOpener implements chat.StreamOpener by streaming canned
// responses in chunks. Responses are used in order; the last one repeats.
type FakeStreamOpener struct {
	mu           sync.Mutex
	responses    []string
	calls        int
	requests     []chat.ChatRequest
	chunkDelay   time.Duration
	chunkSize    int
	failAfter    int
	errorMessage string
	openErr      error
	hold         chan struct{}
}

// NewFakeStreamOpener creates a fake with the given responses
func NewFakeStreamOpener(responses ...string) *FakeStreamOpener {
	return &FakeStreamOpener{
		responses: responses,
		chunkSize: 5,
	}
}

// Open implements chat.StreamOpener
func (f *FakeStreamOpener) Open(ctx context.Context, req chat.ChatRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	if f.openErr != nil {
		err := f.openErr
		f.mu.Unlock()
		return nil, err
	}
	response := ""
	if len(f.responses) > 0 {
		response = f.responses[min(f.calls, len(f.responses)-1)]
	}
	f.calls++
	chunks := Chunk(response, f.chunkSize)
	delay, failAfter, errMsg, hold := f.chunkDelay, f.failAfter, f.errorMessage, f.hold
	f.mu.Unlock()

	pr, pw := io.Pipe()
	go func() {
		wait := func() error {
			if hold != nil {
				select {
				case <-hold:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		}

		for i, chunk := range chunks {
			if failAfter > 0 && i >= failAfter {
				if errMsg == "" {
					errMsg = "simulated streaming error"
				}
				pw.CloseWithError(errors.New(errMsg))
				return
			}
			if err := wait(); err != nil {
				pw.CloseWithError(err)
				return
			}
			if _, err := io.WriteString(pw, Frame(chunk)); err != nil {
				return
			}
		}
		io.WriteString(pw, "data: [DONE]\n\n")
		pw.Close()
	}()
	return pr, nil
}

// SetChunkDelay sets the delay between chunks
func (f *FakeStreamOpener) SetChunkDelay(delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkDelay = delay
}

// SetChunkSize sets the number of characters per chunk
func (f *FakeStreamOpener) SetChunkSize(size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkSize = size
}

// SetFailAfter makes the stream fail after n chunks
func (f *FakeStreamOpener) SetFailAfter(n int, errorMessage string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAfter = n
	f.errorMessage = errorMessage
}

// SetOpenError makes Open fail outright
func (f *FakeStreamOpener) SetOpenError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
}

// Hold makes every chunk of later streams wait for a value on the returned
// channel (or for it to be closed).
func (f *FakeStreamOpener) Hold() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = make(chan struct{})
	return f.hold
}

// Requests returns the requests seen so far
func (f *FakeStreamOpener) Requests() []chat.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chat.ChatRequest(nil), f.requests...)
}

// LastRequest returns the most recent request
func (f *FakeStreamOpener) LastRequest() (chat.ChatRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return chat.ChatRequest{}, fmt.Errorf("no requests recorded")
	}
	return f.requests[len(f.requests)-1], nil
}

var _ chat.StreamOpener = (*FakeStreamOpener)(nil)
