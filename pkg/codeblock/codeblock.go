// Package codeblock separates the first fenced code block of a model reply
// from the narration around it.
package codeblock

import (
	"regexp"
	"strings"
)

// Fence delimits a code block.
const Fence = "```"

// languageTagRegexp matches an info string such as "html" or "c++" that
// occupies the whole first line of a fenced block.
var languageTagRegexp = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_+\-.#]*[ \t]*\r?$`)

// Result is the outcome of Extract.
type Result struct {
	// Before is all text preceding the opening fence, or the whole input
	// when no fenced block is present.
	Before string
	// Code is the trimmed interior of the block, language tag removed.
	Code string
	// HasCode reports whether a complete fence pair was found.
	HasCode bool
	// After is all text following the closing fence.
	After string
}

// Extract locates the first opening fence and the first closing fence after
// it. Only the first block is surfaced; any later blocks stay in After.
func Extract(text string) Result {
	open := strings.Index(text, Fence)
	if open < 0 {
		return Result{Before: text}
	}
	rest := text[open+len(Fence):]
	closeIdx := strings.Index(rest, Fence)
	if closeIdx < 0 {
		return Result{Before: text}
	}

	return Result{
		Before:  text[:open],
		Code:    strings.TrimSpace(stripLanguageTag(rest[:closeIdx])),
		HasCode: true,
		After:   rest[closeIdx+len(Fence):],
	}
}

// stripLanguageTag drops an info string on its own first line. An "html"
// tag written flush against the code is dropped as well.
func stripLanguageTag(interior string) string {
	if nl := strings.IndexByte(interior, '\n'); nl >= 0 && languageTagRegexp.MatchString(interior[:nl]) {
		return interior[nl+1:]
	}
	return strings.TrimPrefix(interior, "html")
}

// Fenced rebuilds text that Extract splits back into the same Result.
func (r Result) Fenced() string {
	if !r.HasCode {
		return r.Before
	}
	return r.Before + Fence + "\n" + r.Code + "\n" + Fence + r.After
}

// Latest returns the code block of text, or previous when text holds no
// complete block yet.
func Latest(text, previous string) string {
	if res := Extract(text); res.HasCode {
		return res.Code
	}
	return previous
}
