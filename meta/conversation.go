package meta

import (
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"medorbis-gateway/service/query"
)

const (
	// SystemInstruction is sent as the system message to every remote chat provider.
	SystemInstruction = "You are a helpful assistant for university Q&A."

	defaultPreamble  = "Answer the student's question using their academic profile and any relevant context below."
	contextSeparator = "\n---\n"
)

// JoinContexts joins retrieved snippets with the separator shared by prompts and local replies.
func JoinContexts(contexts []string) string {
	return strings.Join(contexts, contextSeparator)
}

// BuildPrompt renders the user profile, any retrieved context and the question into one prompt.
// It has no side effects, identical inputs always give an identical prompt.
func BuildPrompt(req query.ChatRequestV1, contexts []string) string {
	var b strings.Builder
	b.WriteString(defaultPreamble)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "user_type: %d\n", req.UserType)
	fmt.Fprintf(&b, "user_id: %s\n", req.UserID)
	fmt.Fprintf(&b, "session_id: %s\n", req.SessionID)
	fmt.Fprintf(&b, "Department: %s\n", req.Department)
	fmt.Fprintf(&b, "Year: %s\n", req.Year)
	fmt.Fprintf(&b, "Semester: %s\n\n", req.Semester)

	if len(contexts) > 0 {
		b.WriteString("Relevant context:\n")
		b.WriteString(JoinContexts(contexts))
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(req.UserQuestion)
	return b.String()
}

// CreateConversation wraps the system instruction and the assembled prompt into the message list
// expected by OpenAI compatible chat completion endpoints.
func CreateConversation(system, prompt string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		},
	}
}
