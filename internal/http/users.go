package http

import (
	"context"
	stdhttp "net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"legacypages/app/internal/identity"
)

const invalidSignatureMessage = "Invalid webhook signature"

type userIDBody struct {
	ID string `json:"id"`
}

type currentUserOutput struct {
	Body userIDBody
}

type webhookInput struct {
	SvixID        string `header:"svix-id"`
	SvixTimestamp string `header:"svix-timestamp"`
	SvixSignature string `header:"svix-signature"`
	RawBody       []byte
}

type webhookOutput struct {
	Body struct {
		Success bool `json:"success"`
		Handled bool `json:"handled"`
	}
}

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "current-user",
		Method:      stdhttp.MethodGet,
		Path:        "/users/me",
		Summary:     "Resolve the caller's internal user",
		Errors:      []int{stdhttp.StatusUnauthorized, stdhttp.StatusNotFound},
	}, s.currentUserHandler)
}

func (s *Server) registerWebhookRoute() {
	huma.Register(s.api, huma.Operation{
		OperationID: "identity-webhook",
		Method:      stdhttp.MethodPost,
		Path:        "/webhooks/identity",
		Summary:     "Apply identity provider user lifecycle events",
		Errors:      []int{stdhttp.StatusBadRequest},
	}, s.webhookHandler)
}

func (s *Server) currentUserHandler(ctx context.Context, _ *struct{}) (*currentUserOutput, error) {
	user, err := s.pages.CurrentUser(ctx, identity.CallerFromContext(ctx))
	if err != nil {
		return nil, s.apiError(ctx, err, "resolving current user", nil)
	}

	out := &currentUserOutput{}
	out.Body.ID = user.ID
	return out, nil
}

func (s *Server) webhookHandler(ctx context.Context, input *webhookInput) (*webhookOutput, error) {
	if input.SvixID == "" || input.SvixTimestamp == "" || input.SvixSignature == "" {
		return nil, huma.Error400BadRequest("Missing webhook signature headers")
	}

	headers := stdhttp.Header{}
	headers.Set("svix-id", input.SvixID)
	headers.Set("svix-timestamp", input.SvixTimestamp)
	headers.Set("svix-signature", input.SvixSignature)

	event, err := s.webhooks.Verify(input.RawBody, headers)
	if err != nil {
		if s.logger != nil {
			fields := logrus.Fields{"svix_id": input.SvixID, "reason": err.Error()}
			if requestID := RequestIDFromContext(ctx); requestID != "" {
				fields["request_id"] = requestID
			}
			s.logger.WithFields(fields).Warn("webhook verification failed")
		}
		return nil, huma.Error400BadRequest(invalidSignatureMessage)
	}

	handled, err := s.events.Apply(ctx, *event)
	if err != nil {
		s.recordError(ctx, err, "applying identity event", logrus.Fields{
			"event_type":  event.Type,
			"external_id": event.Data.ID,
			"svix_id":     input.SvixID,
		})
		return nil, huma.Error500InternalServerError(errorFallbackMessage)
	}

	out := &webhookOutput{}
	out.Body.Success = true
	out.Body.Handled = handled
	return out, nil
}
