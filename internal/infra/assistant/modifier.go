// Package assistant rewrites lesson code through the Anthropic Messages API.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"codelevels/internal/ports"
)

const (
	defaultModel     = "claude-3-5-sonnet-20240620"
	defaultMaxTokens = 1024

	systemPrompt = "You edit Python code for a programming lesson. Apply the learner's instruction to the code " +
		"and reply with the complete modified program in a single ```python fenced block. Do not add explanations."
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("assistant returned no code")

type messageClient interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Config configures a Modifier.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	// BaseURL overrides the API endpoint.
	BaseURL    string
	MaxRetries int
}

// Modifier implements ports.CodeModifier using Claude.
type Modifier struct {
	messages  messageClient
	model     string
	maxTokens int64
}

var _ ports.CodeModifier = (*Modifier)(nil)

// New constructs a Modifier from cfg.
func New(cfg Config) (*Modifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("assistant: api key must be provided")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	client := anthropic.NewClient(opts...)
	return newModifier(&client.Messages, cfg), nil
}

func newModifier(messages messageClient, cfg Config) *Modifier {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Modifier{
		messages:  messages,
		model:     model,
		maxTokens: maxTokens,
	}
}

// ModifyCode asks the model to apply instruction to code and returns the
// rewritten code without fences.
func (m *Modifier) ModifyCode(ctx context.Context, code, instruction string) (string, error) {
	msg, err := m.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: m.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(code, instruction))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("assistant: create message: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", ErrEmptyResponse
	}

	modified := StripCodeFences(strings.Join(parts, "\n"))
	if strings.TrimSpace(modified) == "" {
		return "", ErrEmptyResponse
	}
	return modified, nil
}

func buildPrompt(code, instruction string) string {
	var b strings.Builder
	b.WriteString("Instruction: ")
	b.WriteString(strings.TrimSpace(instruction))
	b.WriteString("\n\nCode:\n```python\n")
	b.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("```\n")
	return b.String()
}
