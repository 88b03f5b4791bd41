package llm

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	openai "github.com/sashabaranov/go-openai"
)

// Client is the text-generation capability every scoring and quality
// component delegates to. Implementations may block and may time out;
// callers own the fallback behavior.
type Client interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*Response, error)
}

// Response holds the raw response content and token usage.
type Response struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// NewFromEnv selects a client implementation from the environment.
//
//	LLM_PROVIDER=openai    → OpenAI-compatible API (OPENAI_BASE_URL optional)
//	MOCK_LLM=true          → canned responses, no network
//	default                → Anthropic API
func NewFromEnv() (Client, string) {
	switch {
	case os.Getenv("MOCK_LLM") == "true":
		log.Println("LLM client using mock responses")
		return NewMockClient(), "mock"
	case os.Getenv("LLM_PROVIDER") == "openai":
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			model = "gpt-4o-mini"
		}
		log.Println("LLM client using OpenAI-compatible API:", model)
		return NewOpenAIClient(os.Getenv("OPENAI_BASE_URL"), os.Getenv("OPENAI_API_KEY"), model), model
	default:
		model := os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-sonnet-4-5-20250929"
		}
		log.Println("LLM client using Anthropic API:", model)
		return NewAnthropicClient(model), model
	}
}

// ── AnthropicClient ────────────────────────────────────────

type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicClient(model string) *AnthropicClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &AnthropicClient{client: &client, model: model}
}

func (c *AnthropicClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &Response{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *AnthropicClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("Retrying Anthropic API call in %v (attempt %d)", sleepDuration, attempt+1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(sleepDuration):
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── OpenAIClient — OpenAI-compatible endpoints ─────────────

type OpenAIClient struct {
	api   *openai.Client
	model string
}

func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		api:   openai.NewClientWithConfig(config),
		model: model,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*Response, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// ── MockClient — Local Development ─────────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

// Generate dispatches on the system prompt so every caller gets a
// response it can actually parse offline: the generation pipeline gets
// batch JSON, the rubric grader gets a score object, the explanation
// generator gets prose with a reference block, and the semantic
// evaluator gets a bare score.
func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*Response, error) {
	var content string
	switch {
	case strings.Contains(systemPrompt, "assessment author"):
		content = mockBatchJSON
	case strings.Contains(systemPrompt, "grading a free-form quiz answer"):
		content = `{"score": 82, "reasoning": "The answer covers most expected keywords and is clearly phrased."}`
	case strings.Contains(systemPrompt, "supportive tutor"):
		content = mockExplanation
	default:
		content = "0.9"
	}
	return &Response{
		Content:      content,
		PromptTokens: 100,
		OutputTokens: 10,
	}, nil
}

const mockBatchJSON = `{"questions": [
  {"stem": "Which data structure gives O(1) average lookup by key?", "question_type": "multiple_choice", "choices": ["Linked list", "Hash map", "Binary heap", "Stack"], "correct_answer": "Hash map", "explanation": "Hash maps index entries by a hash of the key.", "difficulty": 3, "category": "data structures"},
  {"stem": "A binary search requires the input to be sorted.", "question_type": "true_false", "correct_answer": "true", "explanation": "Binary search halves a sorted range each step.", "difficulty": 2, "category": "algorithms"},
  {"stem": "Explain what a race condition is and how to prevent one.", "question_type": "short_answer", "correct_keywords": ["shared state", "concurrent", "lock"], "explanation": "Unsynchronized concurrent access to shared state.", "difficulty": 6, "category": "concurrency"}
]}`

var mockExplanation = strings.Repeat("This mock explanation walks through the reasoning behind the correct answer step by step so local development has realistic output to render. ", 4) + `
REFERENCES:
[{"title": "Mock reference one", "url": "https://example.com/ref1"}, {"title": "Mock reference two", "url": "https://example.com/ref2"}, {"title": "Mock reference three", "url": "https://example.com/ref3"}]`

// StripCodeFences removes a surrounding markdown code fence, if present.
// LLMs routinely wrap JSON output in ```json fences despite instructions.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}
