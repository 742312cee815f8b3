package sandbox

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/killallgit/webbuilder/pkg/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// newRuntime loads the fake DOM, mounts body and runs the rendered script.
func newRuntime(t *testing.T, body string, opts Options) *goja.Runtime {
	t.Helper()

	dom, err := os.ReadFile("testdata/fakedom.js")
	require.NoError(t, err)

	vm := goja.New()
	_, err = vm.RunString(string(dom))
	require.NoError(t, err)
	_, err = vm.RunString("var body = " + body + "; mount(body);")
	require.NoError(t, err)

	script, err := Script(opts)
	require.NoError(t, err)
	_, err = vm.RunString(script)
	require.NoError(t, err)
	return vm
}

func run(t *testing.T, vm *goja.Runtime, src string) goja.Value {
	t.Helper()
	v, err := vm.RunString(src)
	require.NoError(t, err, src)
	return v
}

const page = `el('body', el('main', el('p'), el('p'), el('span')), el('footer'))`

func TestScriptRegistersCaptureListenersOnce(t *testing.T) {
	vm := newRuntime(t, page, Options{})

	for _, typ := range []string{"mouseover", "mouseout", "click"} {
		assert.EqualValues(t, 1, run(t, vm, "listenerCount('"+typ+"')").ToInteger(), typ)
	}

	post := `post({type: 'updateSelectionMode', isSelecting: true}); post({type: 'updateSelectionMode', isSelecting: false});`
	run(t, vm, post+post)
	assert.EqualValues(t, 1, run(t, vm, "listenerCount('click')").ToInteger())
}

func TestIdleModeIgnoresPointer(t *testing.T) {
	vm := newRuntime(t, page, Options{IsSelecting: false})

	run(t, vm, "var p = body.children[0].children[1]; dispatch('mouseover', p); var ev = dispatch('click', p);")

	assert.False(t, run(t, vm, "p.classList.contains('hover-highlight')").ToBoolean())
	assert.False(t, run(t, vm, "ev.defaultPrevented").ToBoolean())
	assert.EqualValues(t, 0, run(t, vm, "window.parent.messages.length").ToInteger())
}

func TestHoverHighlight(t *testing.T) {
	vm := newRuntime(t, page, Options{IsSelecting: true})

	run(t, vm, `
		var main = body.children[0];
		var first = main.children[0];
		var second = main.children[1];
		var ev = dispatch('mouseover', first);
	`)
	assert.True(t, run(t, vm, "first.classList.contains('hover-highlight')").ToBoolean())
	assert.True(t, run(t, vm, "ev.propagationStopped").ToBoolean())

	run(t, vm, "dispatch('mouseover', second)")
	assert.False(t, run(t, vm, "first.classList.contains('hover-highlight')").ToBoolean())
	assert.True(t, run(t, vm, "second.classList.contains('hover-highlight')").ToBoolean())

	run(t, vm, "dispatch('mouseout', second)")
	assert.False(t, run(t, vm, "second.classList.contains('hover-highlight')").ToBoolean())
}

func TestToggleOffClearsHoverHighlight(t *testing.T) {
	vm := newRuntime(t, page, Options{IsSelecting: false})

	run(t, vm, "post({type: 'updateSelectionMode', isSelecting: true})")
	assert.Equal(t, "pointer", run(t, vm, "body.style.cursor").String())

	run(t, vm, "var span = body.children[0].children[2]; dispatch('mouseover', span);")
	require.True(t, run(t, vm, "span.classList.contains('hover-highlight')").ToBoolean())

	run(t, vm, "post({type: 'updateSelectionMode', isSelecting: false})")
	assert.False(t, run(t, vm, "span.classList.contains('hover-highlight')").ToBoolean())
	assert.Equal(t, "", run(t, vm, "body.style.cursor").String())

	run(t, vm, "dispatch('mouseover', span)")
	assert.False(t, run(t, vm, "span.classList.contains('hover-highlight')").ToBoolean())
}

func TestUnrelatedMessagesAreIgnored(t *testing.T) {
	vm := newRuntime(t, page, Options{IsSelecting: true})

	run(t, vm, "post({type: 'somethingElse', isSelecting: false}); post(null); post('text');")
	run(t, vm, "var p = body.children[0].children[0]; dispatch('mouseover', p);")
	assert.True(t, run(t, vm, "p.classList.contains('hover-highlight')").ToBoolean())
}

func TestClickSelectsOnce(t *testing.T) {
	vm := newRuntime(t, page, Options{IsSelecting: true, Revision: 7})

	run(t, vm, `
		var p = body.children[0].children[1];
		dispatch('mouseover', p);
		var first = dispatch('click', p);
		var second = dispatch('click', p);
	`)

	assert.True(t, run(t, vm, "first.defaultPrevented && first.propagationStopped").ToBoolean())
	assert.False(t, run(t, vm, "second.defaultPrevented").ToBoolean())
	assert.True(t, run(t, vm, "p.classList.contains('selected-element')").ToBoolean())
	assert.False(t, run(t, vm, "p.classList.contains('hover-highlight')").ToBoolean())

	require.EqualValues(t, 1, run(t, vm, "window.parent.messages.length").ToInteger())
	msg := run(t, vm, "JSON.stringify(window.parent.messages[0])").String()

	got, err := DecodeSelection([]byte(msg))
	require.NoError(t, err)
	assert.Equal(t, SelectionMessage{
		Type:     TypeElementSelected,
		Selector: "main:nth-child(1) > p:nth-child(2)",
		TagName:  "P",
		Revision: 7,
	}, got)
}

func TestClickMovesSelectedMarker(t *testing.T) {
	vm := newRuntime(t, page, Options{IsSelecting: true})

	run(t, vm, `
		var a = body.children[0].children[0];
		var b = body.children[1];
		dispatch('click', a);
		post({type: 'updateSelectionMode', isSelecting: true});
		dispatch('click', b);
	`)

	assert.False(t, run(t, vm, "a.classList.contains('selected-element')").ToBoolean())
	assert.True(t, run(t, vm, "b.classList.contains('selected-element')").ToBoolean())
	assert.Equal(t, "footer:nth-child(2)", run(t, vm, "window.parent.messages[1].selector").String())
}

func TestClickOnRootIsNotASelection(t *testing.T) {
	vm := newRuntime(t, page, Options{IsSelecting: true})

	run(t, vm, "dispatch('click', body)")
	assert.EqualValues(t, 0, run(t, vm, "window.parent.messages.length").ToInteger())

	run(t, vm, "var p = body.children[0].children[0]; dispatch('click', p);")
	assert.EqualValues(t, 1, run(t, vm, "window.parent.messages.length").ToInteger())
}

// toJS converts a parsed element tree into fake DOM constructor calls.
func toJS(n *html.Node) string {
	var b strings.Builder
	b.WriteString("el('" + n.Data + "'")
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			b.WriteString(", " + toJS(c))
		}
	}
	b.WriteString(")")
	return b.String()
}

func TestScriptMatchesServerDerivation(t *testing.T) {
	markup := `<header><nav><a>1</a><a>2</a></nav></header>
<main><section><h2>t</h2><p>x</p><ul><li>a</li><li>b</li><li>c</li></ul></section><aside><p>only</p></aside></main>
<footer><p>bye</p></footer>`

	root, err := selector.ParseBody(markup)
	require.NoError(t, err)

	vm := newRuntime(t, toJS(root), Options{})
	var nodes []*html.Node
	selector.Walk(root, func(n *html.Node) { nodes = append(nodes, n) })
	run(t, vm, "var all = elements(body);")
	require.EqualValues(t, len(nodes), run(t, vm, "all.length").ToInteger())

	for i, n := range nodes {
		idx := strconv.Itoa(i)
		run(t, vm, "post({type: 'updateSelectionMode', isSelecting: true}); dispatch('click', all["+idx+"]);")
		got := run(t, vm, "window.parent.messages[window.parent.messages.length - 1].selector").String()
		assert.Equal(t, selector.Derive(n, root), got, "element %d <%s>", i, n.Data)
	}
}

func TestScriptRendersInitialMode(t *testing.T) {
	on, err := Script(Options{IsSelecting: true, Revision: 3})
	require.NoError(t, err)
	assert.Contains(t, on, "var isSelectingMode = true;")
	assert.Contains(t, on, "var revision = 3;")

	off, err := Script(Options{})
	require.NoError(t, err)
	assert.Contains(t, off, "var isSelectingMode = false;")
}
