// Package transcript renders a conversation for the terminal. Narration is
// styled with lipgloss and the generated markup is syntax highlighted.
package transcript

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/killallgit/webbuilder/pkg/chat"
	"github.com/killallgit/webbuilder/pkg/codeblock"
	"github.com/killallgit/webbuilder/pkg/logger"
)

const minCodeWidth = 30

// Formatter renders messages. A plain formatter emits no escape sequences.
type Formatter struct {
	width int
	plain bool

	chromaFormatter chroma.Formatter
	chromaStyle     *chroma.Style

	userStyle      lipgloss.Style
	assistantStyle lipgloss.Style
	systemStyle    lipgloss.Style
	labelStyle     lipgloss.Style
	codeBlockStyle lipgloss.Style
}

// NewFormatter creates a formatter wrapping at width.
func NewFormatter(width int, plain bool) *Formatter {
	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	return &Formatter{
		width:           width,
		plain:           plain,
		chromaFormatter: formatter,
		chromaStyle:     styles.Get("monokai"),

		userStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000")),
		assistantStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF87")),
		systemStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF80")).Italic(true),
		labelStyle:     lipgloss.NewStyle().Bold(true),

		codeBlockStyle: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#FFD700")).
			Padding(0, 1).
			Margin(0, 1),
	}
}

// Format renders a whole conversation, one message per block.
func (f *Formatter) Format(messages []chat.Message) string {
	blocks := make([]string, 0, len(messages))
	for _, m := range messages {
		blocks = append(blocks, f.FormatMessage(m))
	}
	return strings.Join(blocks, "\n\n")
}

// FormatMessage renders the role label, the narration around the first
// code block and the block itself.
func (f *Formatter) FormatMessage(msg chat.Message) string {
	res := codeblock.Extract(msg.Content)

	parts := []string{f.label(msg.Role)}
	if text := strings.TrimSpace(res.Before); text != "" {
		parts = append(parts, f.narration(msg.Role, text))
	}
	if res.HasCode {
		parts = append(parts, f.FormatCode(res.Code))
	}
	if text := strings.TrimSpace(res.After); text != "" {
		parts = append(parts, f.narration(msg.Role, text))
	}
	return strings.Join(parts, "\n")
}

// FormatCode highlights markup and boxes it.
func (f *Formatter) FormatCode(code string) string {
	if code == "" {
		return ""
	}
	if f.plain {
		return codeblock.Fence + "html\n" + code + "\n" + codeblock.Fence
	}

	highlighted := f.highlight(code)
	boxWidth := f.width - 4
	if boxWidth < minCodeWidth {
		boxWidth = minCodeWidth
	}
	return f.codeBlockStyle.Width(boxWidth).Render(highlighted)
}

func (f *Formatter) highlight(code string) string {
	log := logger.WithComponent("transcript")

	lexer := lexers.Get("html")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		log.Debug("failed to tokenize code, using plain text", "error", err)
		return code
	}

	var buf strings.Builder
	if err := f.chromaFormatter.Format(&buf, f.chromaStyle, iterator); err != nil {
		log.Debug("failed to format code, using plain text", "error", err)
		return code
	}
	return buf.String()
}

func (f *Formatter) label(role string) string {
	text := roleLabel(role)
	if f.plain {
		return text + ":"
	}
	return f.labelStyle.Inherit(f.roleStyle(role)).Render(text + ":")
}

func (f *Formatter) narration(role, text string) string {
	if f.plain {
		return text
	}
	style := f.roleStyle(role)
	if f.width > 0 {
		style = style.Width(f.width)
	}
	return style.Render(text)
}

func (f *Formatter) roleStyle(role string) lipgloss.Style {
	switch role {
	case chat.RoleUser:
		return f.userStyle
	case chat.RoleSystem:
		return f.systemStyle
	default:
		return f.assistantStyle
	}
}

func roleLabel(role string) string {
	switch role {
	case chat.RoleUser:
		return "You"
	case chat.RoleSystem:
		return "System"
	default:
		return "Assistant"
	}
}
