package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/killallgit/webbuilder/pkg/chat"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		client  *chat.Client
		server  *httptest.Server
		handler http.HandlerFunc
	)

	BeforeEach(func() {
		handler = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))

		var err error
		client, err = chat.NewClient(server.URL+"/v1/", "secret")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewClient", func() {
		It("should reject an empty base url", func() {
			_, err := chat.NewClient("  ", "")
			Expect(errors.Is(err, chat.ErrEmptyBaseURL)).To(BeTrue())
		})

		It("should trim the trailing slash", func() {
			Expect(client.BaseURL()).To(Equal(server.URL + "/v1"))
		})
	})

	Describe("Open", func() {
		It("should post a streaming request and hand back the body", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
				Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer secret"))

				var req chat.ChatRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Stream).To(BeTrue())
				Expect(req.Model).To(Equal("mistral-7b"))
				Expect(req.Messages).To(HaveLen(2))

				w.Header().Set("Content-Type", "text/event-stream")
				io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\ndata: [DONE]\n\n")
			}

			req := chat.CreateStreamingChatRequest(chat.NewConversation("mistral-7b"), "hello", chat.RequestOptions{SystemPrompt: "sys"})
			req.Stream = false

			body, err := client.Open(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			defer body.Close()

			data, err := io.ReadAll(body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"content":"hi"`))
		})

		It("should surface the endpoint's error body", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"model not loaded"}`, http.StatusBadRequest)
			}

			_, err := client.Open(context.Background(), chat.ChatRequest{Model: "x"})

			var statusErr *chat.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(err.Error()).To(ContainSubstring("model not loaded"))
		})

		It("should fail when the endpoint is unreachable", func() {
			unreachable, err := chat.NewClient("http://127.0.0.1:1", "")
			Expect(err).NotTo(HaveOccurred())

			_, err = unreachable.Open(context.Background(), chat.ChatRequest{})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("request failed"))
		})
	})

	Describe("ListModels", func() {
		It("should decode the model listing", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.URL.Path).To(Equal("/v1/models"))
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, `{"object":"list","data":[{"id":"mistral-7b","object":"model","owned_by":"local"}]}`)
			}

			models, err := client.ListModels(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(models).To(Equal([]chat.RemoteModel{{ID: "mistral-7b", Object: "model", OwnedBy: "local"}}))
		})

		It("should report non-200 responses", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}

			_, err := client.ListModels(context.Background())
			Expect(err).To(MatchError("request failed with status 401"))
		})
	})
})
