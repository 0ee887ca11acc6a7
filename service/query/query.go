package query

import (
	"strings"
)

const (
	Greeting   = "Hello! How can I help you?"
	echoPrefix = "You said: "
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequestV2 is the echo surface payload. Stream is accepted but ignored.
type ChatRequestV2 struct {
	Messages []ChatMessage `json:"messages"`
	Model    string        `json:"model,omitempty"`
	Stream   bool          `json:"stream,omitempty"`
}

// ChatRequestV1 is the structured RAG payload after alias resolution. A non-zero UserType skips retrieval.
type ChatRequestV1 struct {
	UserType     int    `json:"user_type"`
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
	UserQuestion string `json:"user_question"`
	Department   string `json:"Department"`
	Year         string `json:"Year"`
	Semester     string `json:"Semester"`
	Model        string `json:"model,omitempty"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type Meta struct {
	UsedVector bool `json:"used_vector"`
	Contexts   int  `json:"contexts"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
	Usage Usage  `json:"usage"`
	Meta  *Meta  `json:"meta,omitempty"`
}

// CountWords approximates tokens as whitespace delimited words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

func NewUsage(input, output string) Usage {
	in, out := CountWords(input), CountWords(output)
	return Usage{
		InputTokens:  in,
		OutputTokens: out,
		TotalTokens:  in + out,
	}
}

func EchoReply(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return Greeting
	}
	return echoPrefix + content
}

// Echo answers with the last message whose role is user. Input usage counts every message.
func Echo(req ChatRequestV2) ChatResponse {
	var userText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if strings.EqualFold(req.Messages[i].Role, "user") {
			userText = req.Messages[i].Content
			break
		}
	}

	contents := make([]string, len(req.Messages))
	for i, m := range req.Messages {
		contents[i] = m.Content
	}

	reply := EchoReply(userText)
	return ChatResponse{
		Reply: reply,
		Usage: NewUsage(strings.Join(contents, " "), reply),
	}
}

func EchoContent(content string) ChatResponse {
	content = strings.TrimSpace(content)
	reply := EchoReply(content)
	return ChatResponse{
		Reply: reply,
		Usage: NewUsage(content, reply),
	}
}

type UsageDoc struct {
	Endpoint    string `json:"endpoint"`
	Method      string `json:"method"`
	ContentType string `json:"content_type"`
	Example     any    `json:"example"`
	Note        string `json:"note,omitempty"`
}

func V2UsageDoc() UsageDoc {
	return UsageDoc{
		Endpoint:    "/api/v2/chat",
		Method:      "POST",
		ContentType: "application/json",
		Example: ChatRequestV2{
			Messages: []ChatMessage{{Role: "user", Content: "Hello"}},
		},
	}
}

func V1UsageDoc() UsageDoc {
	return UsageDoc{
		Endpoint:    "/api/v1/chat",
		Method:      "POST",
		ContentType: "application/json or multipart/form-data",
		Example: ChatRequestV1{
			UserType:     0,
			UserID:       "string",
			SessionID:    "string",
			UserQuestion: "string",
			Department:   "Nursing",
			Year:         "3",
			Semester:     "1",
		},
		Note: "You can also use user_department, user_year, user_semester as alternative field names.",
	}
}
