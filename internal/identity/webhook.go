package identity

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	svix "github.com/svix/svix-webhooks/go"
)

// Lifecycle event types relayed by the identity provider.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// ErrInvalidSignature indicates the webhook payload failed signature verification.
var ErrInvalidSignature = eris.New("invalid webhook signature")

// Event is a user lifecycle notification.
type Event struct {
	Type string   `json:"type"`
	Data UserData `json:"data"`
}

// UserData is the subset of the provider's user object the application stores.
type UserData struct {
	ID             string         `json:"id"`
	FirstName      string         `json:"first_name"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
}

// EmailAddress is one of the user's registered addresses.
type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// PrimaryEmail returns the first registered address.
func (u UserData) PrimaryEmail() string {
	for _, address := range u.EmailAddresses {
		if trimmed := strings.TrimSpace(address.EmailAddress); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// DisplayName returns the first name, falling back to the local part of the primary email.
func (u UserData) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	email := u.PrimaryEmail()
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}

// WebhookVerifier authenticates lifecycle webhooks signed with the Svix scheme.
type WebhookVerifier struct {
	webhook *svix.Webhook
}

// NewWebhookVerifier constructs a verifier for the given signing secret (whsec_...).
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, eris.New("webhook secret is required")
	}

	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, eris.Wrap(err, "initialising webhook verifier")
	}

	return &WebhookVerifier{webhook: wh}, nil
}

// Verify checks the signature headers against the raw payload and decodes the event.
func (v *WebhookVerifier) Verify(payload []byte, headers http.Header) (*Event, error) {
	if err := v.webhook.Verify(payload, headers); err != nil {
		return nil, eris.Wrap(ErrInvalidSignature, err.Error())
	}

	return DecodeEvent(payload)
}

// DecodeEvent parses a lifecycle event payload.
func DecodeEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, eris.Wrap(err, "decoding webhook payload")
	}
	if strings.TrimSpace(event.Type) == "" {
		return nil, eris.New("webhook event type is required")
	}
	return &event, nil
}
