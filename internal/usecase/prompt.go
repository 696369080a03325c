package usecase

import (
	"fmt"

	"voicecoder/internal/domain/model"
)

const codeAssistantPrompt = "You are an expert coding assistant. Provide clear, concise, and helpful answers about code."

// BuildCodePrompt frames a question about a code selection as a two-message
// conversation.
func BuildCodePrompt(language, code, question string) []model.Message {
	return []model.Message{
		model.SystemMessage(codeAssistantPrompt),
		model.UserMessage(fmt.Sprintf("Here is the code:\n\n```%s\n%s\n```\n\n%s", language, code, question)),
	}
}

// Markdown renders the answer as a standalone document.
func (r *AskResult) Markdown() string {
	return fmt.Sprintf("# VoiceCoder Response\n\n**Question:** %s\n\n**Answer:**\n\n%s\n\n---\n*Provider: %s | Model: %s | Cost: $%.4f*",
		r.Question, r.Response.Content, r.ProviderName, r.Response.Model, r.Cost)
}
