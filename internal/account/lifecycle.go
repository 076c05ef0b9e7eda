package account

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"legacypages/app/internal/identity"
)

// ErrUserExists indicates a user with the same external id is already stored.
var ErrUserExists = eris.New("user already exists")

// OwnedPageRemover deletes whatever page the user owns before the user row goes.
type OwnedPageRemover interface {
	DeleteOwnedBy(ctx context.Context, userID string) error
}

// Lifecycle applies identity-provider user events to the users table.
type Lifecycle struct {
	repo     Repository
	resolver *Resolver
	pages    OwnedPageRemover
	logger   *logrus.Logger
}

// NewLifecycle constructs the webhook event handler. pages may be nil.
func NewLifecycle(repo Repository, resolver *Resolver, pages OwnedPageRemover, logger *logrus.Logger) (*Lifecycle, error) {
	if repo == nil {
		return nil, eris.New("account repository is required")
	}
	if resolver == nil {
		return nil, eris.New("account resolver is required")
	}

	return &Lifecycle{repo: repo, resolver: resolver, pages: pages, logger: logger}, nil
}

// Apply handles a single lifecycle event. Unknown event types are ignored and
// reported as not handled.
func (l *Lifecycle) Apply(ctx context.Context, event identity.Event) (bool, error) {
	externalID := event.Data.ID
	if externalID == "" {
		return false, eris.New("event user id is required")
	}

	fields := logrus.Fields{"event_type": event.Type, "external_id": externalID}

	switch event.Type {
	case identity.EventUserCreated:
		err := l.repo.Create(ctx, &User{
			ExternalID: externalID,
			Name:       event.Data.DisplayName(),
			Email:      event.Data.PrimaryEmail(),
		})
		if eris.Is(err, ErrUserExists) {
			l.logInfo(fields, "user already present, skipping create")
			return true, nil
		}
		if err != nil {
			return false, eris.Wrap(err, "creating user from event")
		}
	case identity.EventUserUpdated:
		user, err := l.repo.UpdateProfile(ctx, externalID, event.Data.DisplayName(), event.Data.PrimaryEmail())
		if err != nil {
			return false, eris.Wrap(err, "updating user from event")
		}
		if user == nil {
			l.logInfo(fields, "update for unknown user ignored")
		}
		l.resolver.Forget(externalID)
	case identity.EventUserDeleted:
		if err := l.deleteUser(ctx, externalID); err != nil {
			return false, err
		}
	default:
		l.logInfo(fields, "ignoring unsupported identity event")
		return false, nil
	}

	l.logInfo(fields, "identity event applied")
	return true, nil
}

func (l *Lifecycle) deleteUser(ctx context.Context, externalID string) error {
	user, err := l.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return eris.Wrap(err, "loading user for delete")
	}
	if user == nil {
		return nil
	}

	if l.pages != nil {
		if err := l.pages.DeleteOwnedBy(ctx, user.ID); err != nil {
			return eris.Wrap(err, "removing page owned by deleted user")
		}
	}

	if err := l.repo.DeleteByExternalID(ctx, externalID); err != nil {
		return eris.Wrap(err, "deleting user from event")
	}
	l.resolver.Forget(externalID)

	return nil
}

func (l *Lifecycle) logInfo(fields logrus.Fields, message string) {
	if l.logger == nil {
		return
	}
	l.logger.WithFields(fields).Info(message)
}
