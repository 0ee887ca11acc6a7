package llm

import (
	"context"
	"fmt"

	"medorbis-gateway/meta"
)

// Local answers without any network call.
type Local struct{}

func (Local) Name() string {
	return StageLocal
}

func (Local) Attempt(_ context.Context, req Request) (string, error) {
	return LocalReply(req), nil
}

// LocalReply is deterministic: the retrieved snippets, if any, followed by a sentence built from
// the student's profile and question.
func LocalReply(req Request) string {
	response := fmt.Sprintf("Response: Based on your context (Department=%s, Year=%s, Semester=%s), here's a helpful response to your question: %s",
		req.Department, req.Year, req.Semester, req.Question)
	if len(req.Contexts) == 0 {
		return response
	}
	return "Relevant information:\n" + meta.JoinContexts(req.Contexts) + "\n\n" + response
}
