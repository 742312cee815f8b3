package chat_test

import (
	"github.com/killallgit/webbuilder/pkg/chat"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Conversation", func() {
	Describe("NewConversation", func() {
		It("should create an empty conversation with model", func() {
			conv := chat.NewConversation("mistral-7b")

			Expect(conv.Model).To(Equal("mistral-7b"))
			Expect(chat.GetMessages(conv)).To(BeEmpty())
			Expect(chat.GetMessageCount(conv)).To(Equal(0))
		})
	})

	Describe("AddMessage", func() {
		It("should append without touching the original", func() {
			original := chat.NewConversation("m")
			first := chat.AddMessage(original, chat.NewUserMessage("hi"))
			second := chat.AddMessage(first, chat.NewAssistantMessage("hello"))

			Expect(chat.GetMessageCount(original)).To(Equal(0))
			Expect(chat.GetMessageCount(first)).To(Equal(1))
			Expect(chat.GetMessageCount(second)).To(Equal(2))
			Expect(second.Model).To(Equal("m"))
		})

		It("should not share backing storage between branches", func() {
			base := chat.AddMessage(chat.NewConversation("m"), chat.NewUserMessage("a"))
			left := chat.AddMessage(base, chat.NewAssistantMessage("left"))
			right := chat.AddMessage(base, chat.NewAssistantMessage("right"))

			Expect(left.Messages[1].Content).To(Equal("left"))
			Expect(right.Messages[1].Content).To(Equal("right"))
		})
	})

	Describe("lookups", func() {
		var conv chat.Conversation

		BeforeEach(func() {
			conv = chat.NewConversation("m")
			conv = chat.AddMessage(conv, chat.NewUserMessage("one"))
			conv = chat.AddMessage(conv, chat.NewAssistantMessage("two"))
			conv = chat.AddMessage(conv, chat.NewUserMessage("three"))
		})

		It("should find the last assistant message", func() {
			assistant, ok := chat.GetLastAssistantMessage(conv)
			Expect(ok).To(BeTrue())
			Expect(assistant.Content).To(Equal("two"))
		})

		It("should report a miss on an empty conversation", func() {
			_, ok := chat.GetLastAssistantMessage(chat.NewConversation("m"))
			Expect(ok).To(BeFalse())
		})

		It("should switch models without dropping messages", func() {
			switched := chat.WithModel(conv, "other")
			Expect(switched.Model).To(Equal("other"))
			Expect(chat.GetMessageCount(switched)).To(Equal(3))
		})
	})
})
