package llm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestMockClientDispatch(t *testing.T) {
	mock := NewMockClient()

	tests := []struct {
		name         string
		systemPrompt string
		check        func(t *testing.T, content string)
	}{
		{
			"generation prompt gets parseable batch JSON",
			"You are an expert assessment author.",
			func(t *testing.T, content string) {
				var batch struct {
					Questions []json.RawMessage `json:"questions"`
				}
				if err := json.Unmarshal([]byte(content), &batch); err != nil {
					t.Fatalf("batch does not parse: %v", err)
				}
				if len(batch.Questions) == 0 {
					t.Error("mock batch is empty")
				}
			},
		},
		{
			"rubric prompt gets score JSON",
			"You are a strict but fair teacher grading a free-form quiz answer.",
			func(t *testing.T, content string) {
				var rubric struct {
					Score     int    `json:"score"`
					Reasoning string `json:"reasoning"`
				}
				if err := json.Unmarshal([]byte(content), &rubric); err != nil {
					t.Fatalf("rubric does not parse: %v", err)
				}
				if rubric.Score < 0 || rubric.Score > 100 {
					t.Errorf("score %d out of range", rubric.Score)
				}
			},
		},
		{
			"explanation prompt gets prose with references",
			"You are a supportive tutor writing feedback.",
			func(t *testing.T, content string) {
				if !strings.Contains(content, "REFERENCES:") {
					t.Error("explanation missing reference block")
				}
			},
		},
		{
			"anything else gets a bare score",
			"Evaluate this question.",
			func(t *testing.T, content string) {
				if content != "0.9" {
					t.Errorf("content = %q, want 0.9", content)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := mock.Generate(context.Background(), tt.systemPrompt, "prompt")
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			tt.check(t, resp.Content)
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{`{"a": 1}`, `{"a": 1}`},
	}

	for _, tt := range tests {
		if got := StripCodeFences(tt.in); got != tt.want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
