package twilio

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pathakanu/chronobot/internal/chat"
	"github.com/pathakanu/chronobot/internal/model"
	twilio "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// maxBodyLength is the longest WhatsApp body Twilio accepts in one message.
const maxBodyLength = 1600

type messageAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Options configures the Twilio WhatsApp transport.
type Options struct {
	AccountSID   string
	AuthToken    string
	FromWhatsApp string
	// WebhookURL is the public URL Twilio posts to; when set, inbound
	// requests must carry a valid X-Twilio-Signature.
	WebhookURL string
	// JoinKeyword is the inbound text treated as "bot added to this chat".
	JoinKeyword string
}

// Client sends WhatsApp messages via Twilio and turns webhook requests into
// chat updates.
type Client struct {
	api          messageAPI
	fromWhatsApp string
	webhookURL   string
	joinKeyword  string
	validator    *twilioclient.RequestValidator
	muted        *mutedChats
	logger       *zap.Logger
}

// New creates a Twilio client bound to the configured WhatsApp sender number.
func New(opts Options, logger *zap.Logger) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{Username: opts.AccountSID, Password: opts.AuthToken})
	c := newClient(rest.Api, opts, logger)
	if opts.WebhookURL != "" && opts.AuthToken != "" {
		v := twilioclient.NewRequestValidator(opts.AuthToken)
		c.validator = &v
	}
	return c
}

func newClient(api messageAPI, opts Options, logger *zap.Logger) *Client {
	return &Client{
		api:          api,
		fromWhatsApp: opts.FromWhatsApp,
		webhookURL:   opts.WebhookURL,
		joinKeyword:  strings.TrimSpace(opts.JoinKeyword),
		muted:        newMutedChats(),
		logger:       logger,
	}
}

// Send delivers text to a WhatsApp conversation, splitting it when it is
// longer than Twilio allows.
func (c *Client) Send(ctx context.Context, id model.ChatID, text string) error {
	if err := ctx.Err(); err != nil {
		return &chat.SendError{Chat: id, Err: err}
	}
	if c.api == nil {
		return &chat.SendError{Chat: id, Err: fmt.Errorf("twilio client not initialised")}
	}

	sender := normalizeWhatsAppAddress(c.fromWhatsApp)
	if sender == "" {
		return &chat.SendError{Chat: id, Err: fmt.Errorf("twilio sender WhatsApp number is not configured")}
	}
	recipient := chatAddress(id)

	for _, part := range splitMessage(text, maxBodyLength) {
		params := &openapi.CreateMessageParams{}
		params.SetTo(recipient)
		params.SetFrom(sender)
		params.SetBody(part)

		resp, err := c.api.CreateMessage(params)
		if err != nil {
			return &chat.SendError{Chat: id, Err: fmt.Errorf("twilio send message error: %w", err)}
		}
		if resp != nil && resp.Sid != nil {
			c.logger.Debug("twilio message sent", zap.Int64("chat", int64(id)), zap.String("sid", *resp.Sid))
		}
	}
	return nil
}

// Leave stops listening to a conversation. WhatsApp has no way to leave a
// 1:1 chat, so the number is muted until it sends the join keyword again.
func (c *Client) Leave(_ context.Context, id model.ChatID) {
	c.muted.add(id)
	c.logger.Info("muted chat", zap.Int64("chat", int64(id)))
}

// Muted reports whether inbound traffic from id is being dropped.
func (c *Client) Muted(id model.ChatID) bool {
	return c.muted.has(id)
}

// splitMessage cuts text into chunks of at most limit runes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > 0; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func normalizeWhatsAppAddress(number string) string {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "whatsapp:") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "+") {
		return "whatsapp:" + trimmed
	}
	return "whatsapp:+" + trimmed
}

func chatAddress(id model.ChatID) string {
	return "whatsapp:+" + strconv.FormatInt(int64(id), 10)
}

// parseChatID turns "whatsapp:+15551234567" into 15551234567.
func parseChatID(from string) (model.ChatID, error) {
	number := strings.TrimPrefix(strings.TrimSpace(from), "whatsapp:")
	number = strings.TrimPrefix(number, "+")
	id, err := strconv.ParseInt(number, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid WhatsApp sender %q", from)
	}
	return model.ChatID(id), nil
}

type mutedChats struct {
	mu    sync.RWMutex
	chats map[model.ChatID]struct{}
}

func newMutedChats() *mutedChats {
	return &mutedChats{chats: make(map[model.ChatID]struct{})}
}

func (m *mutedChats) add(id model.ChatID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[id] = struct{}{}
}

func (m *mutedChats) remove(id model.ChatID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chats, id)
}

func (m *mutedChats) has(id model.ChatID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.chats[id]
	return ok
}
