package chat_test

import (
	"errors"

	"github.com/killallgit/webbuilder/pkg/chat"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CreateStreamingChatRequest", func() {
	It("should order system, history and the new input", func() {
		conv := chat.NewConversation("qwen")
		conv = chat.AddMessage(conv, chat.NewUserMessage("make a page"))
		conv = chat.AddMessage(conv, chat.NewAssistantMessage("```html\n<p/>\n```"))

		req := chat.CreateStreamingChatRequest(conv, "  make it blue ", chat.RequestOptions{
			SystemPrompt: "You are a web developer.",
			Temperature:  0.7,
			MaxTokens:    -1,
		})

		Expect(req.Model).To(Equal("qwen"))
		Expect(req.Stream).To(BeTrue())
		Expect(req.Temperature).To(BeNumerically("~", 0.7, 1e-6))
		Expect(req.MaxTokens).To(Equal(-1))
		Expect(req.Messages).To(Equal([]chat.RequestMessage{
			{Role: chat.RoleSystem, Content: "You are a web developer."},
			{Role: chat.RoleUser, Content: "make a page"},
			{Role: chat.RoleAssistant, Content: "```html\n<p/>\n```"},
			{Role: chat.RoleUser, Content: "make it blue"},
		}))
	})

	It("should omit an empty system prompt and stored system messages", func() {
		conv := chat.AddMessage(chat.NewConversation("m"), chat.NewSystemMessage("old rules"))

		req := chat.CreateStreamingChatRequest(conv, "hi", chat.RequestOptions{})

		Expect(req.Messages).To(Equal([]chat.RequestMessage{{Role: chat.RoleUser, Content: "hi"}}))
	})
})

var _ = Describe("Catalogue", func() {
	catalogue := chat.Catalogue{{ID: "a", Name: "Model A"}, {ID: "b", Name: "Model B"}}

	It("should default to the first model", func() {
		m, ok := catalogue.Default()
		Expect(ok).To(BeTrue())
		Expect(m.ID).To(Equal("a"))

		_, ok = chat.Catalogue{}.Default()
		Expect(ok).To(BeFalse())
	})

	It("should find models by id", func() {
		m, err := catalogue.Find("b")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Name).To(Equal("Model B"))

		_, err = catalogue.Find("zzz")
		Expect(errors.Is(err, chat.ErrUnknownModel)).To(BeTrue())
	})
})
