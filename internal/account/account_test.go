package account

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"legacypages/app/internal/db"
	"legacypages/app/internal/identity"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := db.Open(db.Options{Path: filepath.Join(t.TempDir(), "accounts.db")})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(database); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})

	if err := Migrate(context.Background(), database, silentLogger()); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	return database
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestGormRepositoryLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := NewGormRepository(newTestDB(t), silentLogger())
	if err != nil {
		t.Fatalf("NewGormRepository returned error: %v", err)
	}

	user := &User{ExternalID: " ext_1 ", Name: "Jane", Email: "jane@example.com"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected id to be assigned on create")
	}

	if err := repo.Create(ctx, &User{ExternalID: "ext_1"}); !eris.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists for duplicate external id, got %v", err)
	}

	fetched, err := repo.GetByExternalID(ctx, "ext_1")
	if err != nil {
		t.Fatalf("GetByExternalID returned error: %v", err)
	}
	if fetched == nil || fetched.ID != user.ID {
		t.Fatalf("expected to fetch created user, got %+v", fetched)
	}

	updated, err := repo.UpdateProfile(ctx, "ext_1", "Janet", "janet@example.com")
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if updated == nil || updated.Name != "Janet" || updated.Email != "janet@example.com" {
		t.Fatalf("unexpected updated user %+v", updated)
	}

	missing, err := repo.UpdateProfile(ctx, "ext_unknown", "x", "y")
	if err != nil || missing != nil {
		t.Fatalf("expected nil user for unknown external id, got %+v, %v", missing, err)
	}

	if err := repo.DeleteByExternalID(ctx, "ext_1"); err != nil {
		t.Fatalf("DeleteByExternalID returned error: %v", err)
	}

	gone, err := repo.GetByExternalID(ctx, "ext_1")
	if err != nil {
		t.Fatalf("GetByExternalID returned error: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected user to be deleted")
	}
}

type countingRepository struct {
	Repository
	lookups int
}

func (c *countingRepository) GetByExternalID(ctx context.Context, externalID string) (*User, error) {
	c.lookups++
	return c.Repository.GetByExternalID(ctx, externalID)
}

func TestResolverCachesHitsOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base, err := NewGormRepository(newTestDB(t), silentLogger())
	if err != nil {
		t.Fatalf("NewGormRepository returned error: %v", err)
	}
	repo := &countingRepository{Repository: base}

	resolver, err := NewResolver(repo, time.Minute)
	if err != nil {
		t.Fatalf("NewResolver returned error: %v", err)
	}

	user, err := resolver.Resolve(ctx, "ext_2")
	if err != nil || user != nil {
		t.Fatalf("expected nil user before creation, got %+v, %v", user, err)
	}

	if err := base.Create(ctx, &User{ExternalID: "ext_2", Name: "Sam"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	for i := 0; i < 3; i++ {
		user, err = resolver.Resolve(ctx, "ext_2")
		if err != nil || user == nil {
			t.Fatalf("expected user to resolve, got %+v, %v", user, err)
		}
	}

	if repo.lookups != 2 {
		t.Fatalf("expected 2 repository lookups (one miss, one fill), got %d", repo.lookups)
	}

	resolver.Forget("ext_2")
	if _, err := resolver.Resolve(ctx, "ext_2"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if repo.lookups != 3 {
		t.Fatalf("expected lookup after Forget, got %d", repo.lookups)
	}

	if user, err := resolver.Resolve(ctx, "  "); err != nil || user != nil {
		t.Fatalf("expected blank external id to resolve to nil, got %+v, %v", user, err)
	}
}

type stubPageRemover struct {
	userIDs []string
	err     error
}

func (s *stubPageRemover) DeleteOwnedBy(_ context.Context, userID string) error {
	s.userIDs = append(s.userIDs, userID)
	return s.err
}

func TestLifecycleAppliesEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := NewGormRepository(newTestDB(t), silentLogger())
	if err != nil {
		t.Fatalf("NewGormRepository returned error: %v", err)
	}
	resolver, err := NewResolver(repo, time.Minute)
	if err != nil {
		t.Fatalf("NewResolver returned error: %v", err)
	}
	pages := &stubPageRemover{}

	lifecycle, err := NewLifecycle(repo, resolver, pages, silentLogger())
	if err != nil {
		t.Fatalf("NewLifecycle returned error: %v", err)
	}

	created := identity.Event{Type: identity.EventUserCreated, Data: identity.UserData{
		ID:             "ext_3",
		EmailAddresses: []identity.EmailAddress{{EmailAddress: "robin@example.com"}},
	}}
	if handled, err := lifecycle.Apply(ctx, created); err != nil || !handled {
		t.Fatalf("expected created event to be handled, got %v, %v", handled, err)
	}

	user, err := resolver.Resolve(ctx, "ext_3")
	if err != nil || user == nil {
		t.Fatalf("expected user after create, got %+v, %v", user, err)
	}
	if user.Name != "robin" {
		t.Fatalf("expected name to fall back to email local part, got %q", user.Name)
	}

	if handled, err := lifecycle.Apply(ctx, created); err != nil || !handled {
		t.Fatalf("expected duplicate create to be tolerated, got %v, %v", handled, err)
	}

	updated := identity.Event{Type: identity.EventUserUpdated, Data: identity.UserData{
		ID:             "ext_3",
		FirstName:      "Robin",
		EmailAddresses: []identity.EmailAddress{{EmailAddress: "robin@example.org"}},
	}}
	if _, err := lifecycle.Apply(ctx, updated); err != nil {
		t.Fatalf("Apply(updated) returned error: %v", err)
	}

	user, err = resolver.Resolve(ctx, "ext_3")
	if err != nil || user == nil || user.Name != "Robin" || user.Email != "robin@example.org" {
		t.Fatalf("expected refreshed user after update, got %+v, %v", user, err)
	}

	if handled, err := lifecycle.Apply(ctx, identity.Event{Type: "session.created", Data: identity.UserData{ID: "ext_3"}}); err != nil || handled {
		t.Fatalf("expected unknown event to be ignored, got %v, %v", handled, err)
	}

	deleted := identity.Event{Type: identity.EventUserDeleted, Data: identity.UserData{ID: "ext_3"}}
	if _, err := lifecycle.Apply(ctx, deleted); err != nil {
		t.Fatalf("Apply(deleted) returned error: %v", err)
	}

	if len(pages.userIDs) != 1 || pages.userIDs[0] != user.ID {
		t.Fatalf("expected owned page removal for %s, got %v", user.ID, pages.userIDs)
	}

	user, err = resolver.Resolve(ctx, "ext_3")
	if err != nil || user != nil {
		t.Fatalf("expected user to be gone after delete, got %+v, %v", user, err)
	}
}

func TestLifecycleDeleteStopsWhenPageRemovalFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := NewGormRepository(newTestDB(t), silentLogger())
	if err != nil {
		t.Fatalf("NewGormRepository returned error: %v", err)
	}
	resolver, err := NewResolver(repo, 0)
	if err != nil {
		t.Fatalf("NewResolver returned error: %v", err)
	}
	if err := repo.Create(ctx, &User{ExternalID: "ext_4"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	lifecycle, err := NewLifecycle(repo, resolver, &stubPageRemover{err: eris.New("boom")}, silentLogger())
	if err != nil {
		t.Fatalf("NewLifecycle returned error: %v", err)
	}

	if _, err := lifecycle.Apply(ctx, identity.Event{Type: identity.EventUserDeleted, Data: identity.UserData{ID: "ext_4"}}); err == nil {
		t.Fatalf("expected error when page removal fails")
	}

	user, err := resolver.Resolve(ctx, "ext_4")
	if err != nil || user == nil {
		t.Fatalf("expected user to remain when page removal fails, got %+v, %v", user, err)
	}
}
