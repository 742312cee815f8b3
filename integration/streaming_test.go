package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/killallgit/webbuilder/pkg/chat"
	"github.com/killallgit/webbuilder/pkg/prompt"
	"github.com/killallgit/webbuilder/pkg/sandbox"
	"github.com/killallgit/webbuilder/pkg/server"
	"github.com/killallgit/webbuilder/pkg/testutil"
	"github.com/killallgit/webbuilder/pkg/workspace"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const landingPage = "Here is your page:\n```html\n<header><h1>Bakery</h1></header>\n<main><p>Fresh bread</p><p>Open daily</p></main>\n```"

var _ = Describe("Builder over HTTP", func() {
	var (
		opener   *testutil.FakeStreamOpener
		endpoint *httptest.Server
		host     *httptest.Server
		ws       *workspace.Workspace
	)

	post := func(path, body string) *http.Response {
		resp, err := http.Post(host.URL+path, "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	generating := func() bool { return ws.Snapshot().IsGenerating }

	BeforeEach(func() {
		opener = testutil.NewFakeStreamOpener(landingPage, "```html\n<main><p>Rye bread</p></main>\n```")
		opener.SetChunkSize(7)
		endpoint = testutil.NewFakeEndpoint(opener, "local-model")

		client, err := chat.NewClient(endpoint.URL+"/v1", "secret")
		Expect(err).NotTo(HaveOccurred())
		builder, err := prompt.NewBuilder("Build pages with tailwind.")
		Expect(err).NotTo(HaveOccurred())

		ws, err = workspace.New(workspace.Options{
			Opener:           client,
			Prompts:          builder,
			Models:           chat.Catalogue{{ID: "local-model", Name: "Local"}},
			Temperature:      0.7,
			MaxTokens:        -1,
			SelectionContext: true,
		})
		Expect(err).NotTo(HaveOccurred())

		srv, err := server.New(ws, server.Options{Lister: client})
		Expect(err).NotTo(HaveOccurred())
		host = httptest.NewServer(srv.Router())
	})

	AfterEach(func() {
		ws.Cancel()
		host.Close()
		endpoint.Close()
	})

	It("builds a page, selects an element and refines it", func() {
		Expect(post("/api/messages", `{"content":"a bakery landing page"}`).StatusCode).To(Equal(http.StatusAccepted))
		Eventually(generating, 2*time.Second).Should(BeFalse())

		state := ws.Snapshot()
		Expect(state.GeneratedDocument).To(ContainSubstring("<p>Open daily</p>"))

		resp, err := http.Get(host.URL + "/preview")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		doc, _ := io.ReadAll(resp.Body)
		Expect(string(doc)).To(ContainSubstring("<h1>Bakery</h1>"))
		Expect(string(doc)).To(ContainSubstring(sandbox.TypeElementSelected))

		Expect(post("/api/selection-mode", `{"isSelecting":true}`).StatusCode).To(Equal(http.StatusOK))
		revision := ws.Bridge().Current().Revision

		event, _ := json.Marshal(sandbox.SelectionMessage{
			Type:     sandbox.TypeElementSelected,
			Selector: "main:nth-child(2) > p:nth-child(2)",
			TagName:  "P",
			Revision: revision,
		})
		Expect(post("/api/sandbox", string(event)).StatusCode).To(Equal(http.StatusNoContent))

		state = ws.Snapshot()
		Expect(state.Selection.IsSelecting).To(BeFalse())
		Expect(state.SuggestedInput).To(HavePrefix("Modify the p element with selector: main:nth-child(2) > p:nth-child(2)"))
		Expect(state.SuggestedInput).To(ContainSubstring("<p>Open daily</p>"))

		Expect(post("/api/sandbox", string(event)).StatusCode).To(Equal(http.StatusConflict))

		Expect(post("/api/messages", `{"content":"make it say rye"}`).StatusCode).To(Equal(http.StatusAccepted))
		Eventually(generating, 2*time.Second).Should(BeFalse())
		Expect(ws.Snapshot().GeneratedDocument).To(Equal("<main><p>Rye bread</p></main>"))

		req, err := opener.LastRequest()
		Expect(err).NotTo(HaveOccurred())
		Expect(req.Messages).To(HaveLen(4))
		Expect(req.Messages[0].Content).To(ContainSubstring("tailwind"))
		Expect(req.Messages[2].Content).To(Equal(landingPage))
	})

	It("stops a stream in flight", func() {
		opener.SetChunkDelay(20 * time.Millisecond)

		post("/api/messages", `{"content":"a bakery landing page"}`)
		Eventually(func() string { return ws.Snapshot().StreamingText }).ShouldNot(BeEmpty())

		post("/api/cancel", "")
		Eventually(generating).Should(BeFalse())
		Consistently(func() int { return len(ws.Snapshot().Messages) }, 200*time.Millisecond).Should(Equal(1))
	})

	It("reports a broken stream in the transcript", func() {
		opener.SetFailAfter(3, "upstream went away")

		post("/api/messages", `{"content":"a bakery landing page"}`)
		Eventually(generating, 2*time.Second).Should(BeFalse())

		last, ok := ws.Snapshot().LastAssistantMessage()
		Expect(ok).To(BeTrue())
		Expect(last.Content).To(Equal(chat.GenerationFailedText))
	})

	It("reports served models", func() {
		resp, err := http.Get(host.URL + "/api/models")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		var body struct {
			Selected  string   `json:"selected"`
			Available []string `json:"available"`
		}
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		Expect(body.Selected).To(Equal("local-model"))
		Expect(body.Available).To(ConsistOf("local-model"))
	})

	It("keeps generations alive after the submitting request returns", func() {
		ctx, cancel := context.WithCancel(context.Background())
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, host.URL+"/api/messages", strings.NewReader(`{"content":"page"}`))
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		cancel()

		Eventually(generating, 2*time.Second).Should(BeFalse())
		Expect(ws.Snapshot().Messages).To(HaveLen(2))
	})
})
