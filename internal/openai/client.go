package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client wraps the OpenAI SDK and provides utility helpers.
type Client struct {
	apiKey string
	client *openai.Client
	model  openai.ChatModel
}

var (
	// ErrClientNotInitialised is returned when attempting to call the API without a configured client.
	ErrClientNotInitialised = errors.New("openai client not initialised")
	// ErrNoSuggestion is returned when the model cannot propose a command.
	ErrNoSuggestion = errors.New("no command suggestion")
)

const noSuggestion = "NONE"

// New returns an OpenAI client when apiKey is provided; otherwise every call
// returns ErrClientNotInitialised.
func New(apiKey string) *Client {
	if apiKey == "" {
		return &Client{}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		apiKey: apiKey,
		client: &client,
		model:  openai.ChatModelGPT4oMini,
	}
}

// SuggestCommand asks the model to rewrite text as one command of the grammar
// described by usage. today anchors relative dates like "tomorrow".
func (c *Client) SuggestCommand(ctx context.Context, text, usage string, today time.Time) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("content cannot be empty")
	}
	if c.client == nil {
		return "", ErrClientNotInitialised
	}

	system := fmt.Sprintf("You fix commands for a reminder bot. Today is %s. The accepted commands are, one per line:\n%s\n"+
		"Reply with exactly one corrected command and nothing else, or %s if the message is not a reminder request.",
		today.Format("2006-01-02 Monday"), usage, noSuggestion)

	req := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(system),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(text),
					},
				},
			},
		},
		Temperature:         openai.Float(0.0),
		MaxCompletionTokens: openai.Int(60),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion received")
	}
	return cleanSuggestion(resp.Choices[0].Message.Content)
}

// cleanSuggestion keeps the first line of a completion, without quoting.
func cleanSuggestion(content string) (string, error) {
	line := strings.TrimSpace(content)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(strings.Trim(line, "`\"'"))
	if line == "" || strings.EqualFold(line, noSuggestion) {
		return "", ErrNoSuggestion
	}
	return line, nil
}
