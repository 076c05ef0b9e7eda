package http

import (
	"context"
	"sort"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"legacypages/app/internal/legacy"
)

const (
	errorFallbackMessage  = "We couldn't process your request right now."
	invalidSubmissionText = "Invalid submission"
)

// apiError maps domain failures onto status errors. Anything unrecognised is
// logged, captured and answered with a generic 500.
func (s *Server) apiError(ctx context.Context, err error, message string, fields logrus.Fields) error {
	if verr, ok := legacy.AsValidationError(err); ok {
		return huma.Error400BadRequest(invalidSubmissionText, validationDetails(verr)...)
	}

	switch {
	case eris.Is(err, legacy.ErrUnauthenticated):
		return huma.Error401Unauthorized(legacy.ErrUnauthenticated.Error())
	case eris.Is(err, legacy.ErrForbidden):
		return huma.Error403Forbidden(legacy.ErrForbidden.Error())
	case eris.Is(err, legacy.ErrUserNotFound):
		return huma.Error404NotFound(legacy.ErrUserNotFound.Error())
	case eris.Is(err, legacy.ErrPageNotFound):
		return huma.Error404NotFound(legacy.ErrPageNotFound.Error())
	case eris.Is(err, legacy.ErrNotFoundOrUnauthorized):
		return huma.Error404NotFound(legacy.ErrNotFoundOrUnauthorized.Error())
	case eris.Is(err, legacy.ErrPageAlreadyExists):
		return huma.Error400BadRequest(legacy.ErrPageAlreadyExists.Error())
	case eris.Is(err, legacy.ErrSlugTaken):
		return huma.Error400BadRequest(legacy.ErrSlugTaken.Error())
	}

	s.recordError(ctx, err, message, fields)
	return huma.Error500InternalServerError(errorFallbackMessage)
}

func validationDetails(verr *legacy.ValidationError) []error {
	keys := make([]string, 0, len(verr.Fields))
	for key := range verr.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	details := make([]error, 0, len(keys))
	for _, key := range keys {
		details = append(details, &huma.ErrorDetail{
			Location: "body." + key,
			Message:  verr.Fields[key],
		})
	}
	return details
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
