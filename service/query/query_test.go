package query

import (
	"encoding/json"
	"testing"
)

func TestEcho(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		req       ChatRequestV2
		wantReply string
		wantInput int
	}{
		{
			name:      "single user message",
			req:       ChatRequestV2{Messages: []ChatMessage{{Role: "user", Content: "Hello world"}}},
			wantReply: "You said: Hello world",
			wantInput: 2,
		},
		{
			name:      "no messages",
			req:       ChatRequestV2{},
			wantReply: Greeting,
			wantInput: 0,
		},
		{
			name:      "empty user content",
			req:       ChatRequestV2{Messages: []ChatMessage{{Role: "user", Content: "   "}}},
			wantReply: Greeting,
			wantInput: 0,
		},
		{
			name: "last user message wins and role is case insensitive",
			req: ChatRequestV2{Messages: []ChatMessage{
				{Role: "user", Content: "first"},
				{Role: "assistant", Content: "reply here"},
				{Role: "USER", Content: " second "},
			}},
			wantReply: "You said: second",
			wantInput: 4,
		},
		{
			name:      "assistant only",
			req:       ChatRequestV2{Messages: []ChatMessage{{Role: "assistant", Content: "hi there"}}},
			wantReply: Greeting,
			wantInput: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Echo(tt.req)
			if got.Reply != tt.wantReply {
				t.Errorf("Reply = %q, want %q", got.Reply, tt.wantReply)
			}
			if got.Usage.InputTokens != tt.wantInput {
				t.Errorf("InputTokens = %d, want %d", got.Usage.InputTokens, tt.wantInput)
			}
			if got.Usage.TotalTokens != got.Usage.InputTokens+got.Usage.OutputTokens {
				t.Errorf("TotalTokens = %d, want input+output", got.Usage.TotalTokens)
			}
			if got.Meta != nil {
				t.Errorf("Meta = %+v, want nil", got.Meta)
			}
		})
	}
}

func TestEchoContent(t *testing.T) {
	t.Parallel()

	got := EchoContent("  ")
	if got.Reply != Greeting {
		t.Fatalf("Reply = %q, want greeting", got.Reply)
	}
	if got.Usage != (Usage{InputTokens: 0, OutputTokens: 6, TotalTokens: 6}) {
		t.Fatalf("Usage = %+v", got.Usage)
	}

	got = EchoContent("how are you")
	if got.Reply != "You said: how are you" {
		t.Fatalf("Reply = %q", got.Reply)
	}
	if got.Usage != (Usage{InputTokens: 3, OutputTokens: 5, TotalTokens: 8}) {
		t.Fatalf("Usage = %+v", got.Usage)
	}
}

func TestCountWords(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"":                     0,
		"   ":                  0,
		"one":                  1,
		"one two\tthree\nfour": 4,
		"  padded  words  ":    2,
	}
	for in, want := range tests {
		if got := CountWords(in); got != want {
			t.Errorf("CountWords(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestV1UsageDocUsesCapitalisedFields(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(V1UsageDoc())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	example, ok := doc["example"].(map[string]any)
	if !ok {
		t.Fatalf("example missing: %s", b)
	}
	if example["Department"] != "Nursing" || example["Year"] != "3" || example["Semester"] != "1" {
		t.Errorf("unexpected example: %v", example)
	}
	if _, ok := example["model"]; ok {
		t.Errorf("model should be omitted from example: %v", example)
	}
}
