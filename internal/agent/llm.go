package agent

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"voicedesk/internal/conversation"
)

// TextClient is the text-generation boundary. One synchronous call in,
// one completion string out; it serves both the action-dispatch step and
// the conversation-analysis step.
type TextClient interface {
	Complete(ctx context.Context, system string, history []conversation.Message, user string, temperature float64, maxTokens int64) (string, error)
}

type openAIClient struct {
	client openai.Client
	model  string
}

// NewTextClient talks to any OpenAI-compatible chat completion endpoint.
// The default configuration points it at the Gemini compatibility layer.
func NewTextClient(apiKey, baseURL, model string) TextClient {
	return &openAIClient{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
		model: model,
	}
}

func (c *openAIClient) Complete(ctx context.Context, system string, history []conversation.Message, user string, temperature float64, maxTokens int64) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	for _, m := range history {
		if m.Role == "assistant" {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	if user != "" {
		msgs = append(msgs, openai.UserMessage(user))
	}

	params := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    openai.ChatModel(c.model),
	}
	if temperature > 0 {
		params.Temperature = openai.Float(temperature)
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(maxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}
	return content, nil
}
