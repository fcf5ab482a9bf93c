package summarize

import (
	"context"
	stderrors "errors"

	openai "github.com/sashabaranov/go-openai"
)

// Completer is the generation provider used identically by the single-shot
// and chunked paths.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAICompleter(client *openai.Client, model string, temperature float32) *OpenAICompleter {
	return &OpenAICompleter{
		client:      client,
		model:       model,
		temperature: temperature,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", stderrors.New("completion response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
