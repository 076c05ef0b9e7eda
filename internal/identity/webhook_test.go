package identity

import (
	"net/http"
	"testing"

	"github.com/rotisserie/eris"
)

// whsec_ followed by base64("test-webhook-secret-value").
const testWebhookSecret = "whsec_dGVzdC13ZWJob29rLXNlY3JldC12YWx1ZQ=="

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"type":"user.created","data":{"id":"user_1","first_name":"","email_addresses":[{"email_address":"jane@example.com"}]}}`)

	event, err := DecodeEvent(payload)
	if err != nil {
		t.Fatalf("DecodeEvent returned error: %v", err)
	}

	if event.Type != EventUserCreated {
		t.Fatalf("expected user.created, got %q", event.Type)
	}
	if event.Data.PrimaryEmail() != "jane@example.com" {
		t.Fatalf("unexpected primary email %q", event.Data.PrimaryEmail())
	}
	if event.Data.DisplayName() != "jane" {
		t.Fatalf("expected display name to fall back to email local part, got %q", event.Data.DisplayName())
	}
}

func TestDecodeEventRequiresType(t *testing.T) {
	t.Parallel()

	if _, err := DecodeEvent([]byte(`{"data":{}}`)); err == nil {
		t.Fatalf("expected error for missing type")
	}
	if _, err := DecodeEvent([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestWebhookVerifierRejectsUnsignedPayload(t *testing.T) {
	t.Parallel()

	verifier, err := NewWebhookVerifier(testWebhookSecret)
	if err != nil {
		t.Fatalf("NewWebhookVerifier returned error: %v", err)
	}

	headers := http.Header{}
	headers.Set("svix-id", "msg_1")
	headers.Set("svix-timestamp", "1700000000")
	headers.Set("svix-signature", "v1,bm90LWEtc2lnbmF0dXJl")

	_, err = verifier.Verify([]byte(`{"type":"user.created","data":{}}`), headers)
	if !eris.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestNewWebhookVerifierRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewWebhookVerifier(" "); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
