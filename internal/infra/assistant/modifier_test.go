package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type fakeMessages struct {
	params []anthropic.MessageNewParams
	reply  *anthropic.Message
	err    error
}

func (f *fakeMessages) New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func textReply(texts ...string) *anthropic.Message {
	msg := &anthropic.Message{}
	for _, text := range texts {
		msg.Content = append(msg.Content, anthropic.ContentBlockUnion{Type: "text", Text: text})
	}
	return msg
}

func TestModifyCodeStripsFences(t *testing.T) {
	t.Parallel()

	fake := &fakeMessages{reply: textReply("Here you go:\n```python\ndef add(a, b):\n    return a + b\n```\nDone.")}
	modifier := newModifier(fake, Config{})

	got, err := modifier.ModifyCode(context.Background(), "def add(a, b):\n    return 0", "return the sum")
	if err != nil {
		t.Fatalf("ModifyCode returned error: %v", err)
	}
	if got != "def add(a, b):\n    return a + b" {
		t.Fatalf("unexpected code %q", got)
	}

	if len(fake.params) != 1 {
		t.Fatalf("expected one API call, got %d", len(fake.params))
	}
	params := fake.params[0]
	if string(params.Model) != defaultModel {
		t.Fatalf("expected default model, got %q", params.Model)
	}
	if params.MaxTokens != defaultMaxTokens {
		t.Fatalf("expected default max tokens, got %d", params.MaxTokens)
	}
}

func TestModifyCodeWrapsGatewayErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("overloaded")
	modifier := newModifier(&fakeMessages{err: boom}, Config{Model: "custom"})

	_, err := modifier.ModifyCode(context.Background(), "x = 1", "change x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped gateway error, got %v", err)
	}
}

func TestModifyCodeRejectsEmptyReplies(t *testing.T) {
	t.Parallel()

	for _, reply := range []*anthropic.Message{textReply(), textReply("```python\n\n```")} {
		modifier := newModifier(&fakeMessages{reply: reply}, Config{})
		if _, err := modifier.ModifyCode(context.Background(), "x = 1", "noop"); !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("expected ErrEmptyResponse, got %v", err)
		}
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := New(Config{APIKey: "key"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildPromptIncludesInstructionAndCode(t *testing.T) {
	t.Parallel()

	prompt := buildPrompt("x = 1", "  make x two \n")
	if !strings.HasPrefix(prompt, "Instruction: make x two\n\n") {
		t.Fatalf("unexpected prompt prefix %q", prompt)
	}
	if !strings.Contains(prompt, "```python\nx = 1\n```") {
		t.Fatalf("expected fenced code in prompt, got %q", prompt)
	}
}

func TestStripCodeFences(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "\n\nx = 1\ny = 2\n\n", "x = 1\ny = 2"},
		{"python fence", "```python\nx = 1\n```", "x = 1"},
		{"bare fence", "```\nx = 1\n```", "x = 1"},
		{"first block wins", "```py\na = 1\n```\ntext\n```py\nb = 2\n```", "a = 1"},
		{"keeps indentation", "```python\n\n    indented()\n```", "    indented()"},
		{"crlf", "```python\r\nx = 1\r\n```", "x = 1"},
		{"dangling fence", "```python\nx = 1\ny = 2\n", "x = 1\ny = 2"},
		{"prose around block", "Here you go:\n```python\nx = 1\n```\nDone.", "x = 1"},
		{"indented closing fence", "```python\nx = 1\n  ```\n", "x = 1"},
		{
			"fence-like line inside code",
			"```python\ndef f():\n    \"\"\"\n    ```python example\n    \"\"\"\n    return 1\n```",
			"def f():\n    \"\"\"\n    ```python example\n    \"\"\"\n    return 1",
		},
		{
			"longer outer fence",
			"````python\ns = \"\"\"\n```\n\"\"\"\n````",
			"s = \"\"\"\n```\n\"\"\"",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := StripCodeFences(tc.in); got != tc.want {
				t.Fatalf("StripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
