package twilio

import (
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"

	"github.com/pathakanu/chronobot/internal/chat"
	"go.uber.org/zap"
)

// Webhook returns the HTTP handler for incoming Twilio messages. Each accepted
// request is forwarded to updates; the handler waits until the update has
// been taken so inbound order is preserved.
func (c *Client) Webhook(updates chan<- chat.Update) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			c.logger.Warn("webhook: parse error", zap.Error(err))
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if c.validator != nil {
			signature := r.Header.Get("X-Twilio-Signature")
			if !c.validator.Validate(c.webhookURL, DecodeTwilioForm(r.PostForm), signature) {
				c.logger.Warn("webhook: invalid signature", zap.String("remote", r.RemoteAddr))
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		from := r.PostForm.Get("From")
		id, err := parseChatID(from)
		if err != nil {
			c.logger.Warn("webhook: unusable sender", zap.Error(err))
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		update := chat.Update{
			Chat:     id,
			Text:     strings.TrimSpace(r.PostForm.Get("Body")),
			Username: sanitizeWhatsAppNumber(from),
			Title:    r.PostForm.Get("ProfileName"),
		}

		switch {
		case c.joinKeyword != "" && strings.EqualFold(update.Text, c.joinKeyword):
			c.muted.remove(id)
			update.Joined = true
			update.Text = ""
		case c.muted.has(id):
			c.logger.Debug("webhook: dropping message from muted chat", zap.Int64("chat", int64(id)))
			writeTwilioResponse(w, c.logger)
			return
		}

		select {
		case updates <- update:
		case <-r.Context().Done():
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		writeTwilioResponse(w, c.logger)
	}
}

// writeTwilioResponse acknowledges the webhook with an empty TwiML document;
// replies are sent through the REST API.
func writeTwilioResponse(w http.ResponseWriter, logger *zap.Logger) {
	twiml := struct {
		XMLName xml.Name `xml:"Response"`
	}{}

	w.Header().Set("Content-Type", "application/xml")
	if err := xml.NewEncoder(w).Encode(twiml); err != nil {
		logger.Warn("twilio response encode", zap.Error(err))
	}
}

func sanitizeWhatsAppNumber(from string) string {
	// Twilio prepends whatsapp: to the number.
	return strings.TrimPrefix(from, "whatsapp:")
}

// DecodeTwilioForm extracts the POST form data into a map for convenience.
func DecodeTwilioForm(values url.Values) map[string]string {
	result := make(map[string]string, len(values))
	for key, value := range values {
		if len(value) > 0 {
			result[key] = value[0]
		}
	}
	return result
}
