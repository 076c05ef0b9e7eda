package legacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"legacypages/app/internal/account"
	"legacypages/app/internal/identity"
	"legacypages/app/internal/storage"
)

// Service defines the page aggregate operations. Every caller-scoped operation
// takes the caller explicitly.
type Service interface {
	Create(ctx context.Context, caller identity.Caller, sub Submission) (*Page, error)
	Get(ctx context.Context, id string) (*Page, error)
	GetBySlug(ctx context.Context, slug string) (*Page, error)
	GetOwned(ctx context.Context, caller identity.Caller, joined bool) (*Page, error)
	Replace(ctx context.Context, caller identity.Caller, id string, sub Submission) (*Page, error)
	Delete(ctx context.Context, caller identity.Caller, id string) error
	DeleteOwnedBy(ctx context.Context, userID string) error
	CurrentUser(ctx context.Context, caller identity.Caller) (*account.User, error)
}

// UserResolver maps an external identity onto the internal user, or nil.
type UserResolver interface {
	Resolve(ctx context.Context, externalID string) (*account.User, error)
}

type service struct {
	repo      Repository
	files     storage.Storage
	users     UserResolver
	logger    *logrus.Logger
	sentryHub *sentry.Hub
	now       func() time.Time
}

var _ Service = (*service)(nil)

// NewService wires the page service with its dependencies.
func NewService(repo Repository, files storage.Storage, users UserResolver, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if repo == nil {
		return nil, eris.New("legacy repository is required")
	}
	if files == nil {
		return nil, eris.New("file storage is required")
	}
	if users == nil {
		return nil, eris.New("user resolver is required")
	}

	return &service{
		repo:      repo,
		files:     files,
		users:     users,
		logger:    logger,
		sentryHub: hub,
		now:       time.Now,
	}, nil
}

func (s *service) resolveCaller(ctx context.Context, caller identity.Caller) (*account.User, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}

	user, err := s.users.Resolve(ctx, caller.ExternalID)
	if err != nil {
		s.recordError(logrus.Fields{"external_id": caller.ExternalID}, err, "resolving caller")
		return nil, eris.Wrap(err, "resolving caller")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

func (s *service) CurrentUser(ctx context.Context, caller identity.Caller) (*account.User, error) {
	return s.resolveCaller(ctx, caller)
}

func (s *service) Create(ctx context.Context, caller identity.Caller, sub Submission) (*Page, error) {
	user, err := s.resolveCaller(ctx, caller)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"user_id": user.ID}

	owned, err := s.repo.GetByOwner(ctx, user.ID, false)
	if err != nil {
		return nil, eris.Wrap(err, "checking for existing page")
	}
	if owned != nil {
		return nil, ErrPageAlreadyExists
	}

	sub.Normalize()
	fields["slug"] = sub.Slug

	if sub.Slug != "" {
		taken, err := s.repo.SlugTaken(ctx, sub.Slug, "")
		if err != nil {
			return nil, eris.Wrap(err, "checking slug availability")
		}
		if taken {
			return nil, ErrSlugTaken
		}
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := requireMediaFiles(sub.MediaItems, nil); err != nil {
		return nil, err
	}

	uploads := &uploadSet{}
	page, err := s.buildPage(ctx, uploads, sub, nil)
	if err != nil {
		s.discard(ctx, uploads)
		s.recordError(fields, err, "storing uploaded files")
		return nil, eris.Wrap(err, "storing uploaded files")
	}
	page.UserID = user.ID
	page.Status = StatusActive

	if err := s.repo.Create(ctx, page); err != nil {
		s.discard(ctx, uploads)
		if errors.Is(err, ErrSlugTaken) {
			return nil, ErrSlugTaken
		}
		s.recordError(fields, err, "creating page")
		return nil, eris.Wrap(err, "creating page")
	}

	s.logInfo(logrus.Fields{"page_id": page.ID, "slug": page.Slug, "user_id": user.ID}, "legacy page created")
	return page, nil
}

func (s *service) Get(ctx context.Context, id string) (*Page, error) {
	page, err := s.findPage(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "retrieving page: %s", id)
	}
	if page == nil {
		return nil, ErrPageNotFound
	}
	return page, nil
}

// findPage returns the joined page, or nil when the id is blank or unknown.
func (s *service) findPage(ctx context.Context, id string) (*Page, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	return s.repo.GetByID(ctx, id, true)
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*Page, error) {
	page, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, eris.Wrapf(err, "retrieving page by slug: %s", slug)
	}
	if page == nil {
		return nil, ErrPageNotFound
	}
	return page, nil
}

// GetOwned returns the caller's page or nil. A caller without a user record owns nothing.
func (s *service) GetOwned(ctx context.Context, caller identity.Caller, joined bool) (*Page, error) {
	user, err := s.resolveCaller(ctx, caller)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	page, err := s.repo.GetByOwner(ctx, user.ID, joined)
	if err != nil {
		return nil, eris.Wrap(err, "retrieving owned page")
	}
	return page, nil
}

func (s *service) Replace(ctx context.Context, caller identity.Caller, id string, sub Submission) (*Page, error) {
	user, err := s.resolveCaller(ctx, caller)
	if err != nil {
		return nil, err
	}

	existing, err := s.findPage(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "retrieving page: %s", id)
	}
	if existing == nil || existing.UserID != user.ID {
		return nil, ErrNotFoundOrUnauthorized
	}

	fields := logrus.Fields{"page_id": existing.ID, "user_id": user.ID}

	sub.Normalize()
	if sub.Slug != "" && sub.Slug != existing.Slug {
		taken, err := s.repo.SlugTaken(ctx, sub.Slug, existing.ID)
		if err != nil {
			return nil, eris.Wrap(err, "checking slug availability")
		}
		if taken {
			return nil, ErrSlugTaken
		}
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := requireMediaFiles(sub.MediaItems, existing.MediaItems); err != nil {
		return nil, err
	}

	uploads := &uploadSet{}
	page, err := s.buildPage(ctx, uploads, sub, existing)
	if err != nil {
		s.discard(ctx, uploads)
		s.recordError(fields, err, "storing uploaded files")
		return nil, eris.Wrap(err, "storing uploaded files")
	}
	page.ID = existing.ID

	change := &Change{
		Page:          page,
		MediaItems:    page.MediaItems,
		Events:        page.Events,
		Relationships: page.Relationships,
		Insights:      page.Insights,
	}
	if page.GeneralKnowledge != nil {
		change.GeneralKnowledge = *page.GeneralKnowledge
	}
	if page.PageType == KindMemorial {
		change.Memorial = page.MemorialDetails
	} else {
		change.RemoveMemorial = existing.MemorialDetails != nil
	}

	if err := s.repo.Replace(ctx, change); err != nil {
		s.discard(ctx, uploads)
		switch {
		case errors.Is(err, ErrSlugTaken):
			return nil, ErrSlugTaken
		case errors.Is(err, ErrPageNotFound):
			return nil, ErrNotFoundOrUnauthorized
		}
		s.recordError(fields, err, "replacing page")
		return nil, eris.Wrap(err, "replacing page")
	}

	s.removeFiles(ctx, staleFiles(existing, page), fields)

	updated, err := s.repo.GetByID(ctx, existing.ID, true)
	if err != nil {
		return nil, eris.Wrap(err, "reloading page")
	}
	if updated == nil {
		return nil, ErrNotFoundOrUnauthorized
	}

	s.logInfo(logrus.Fields{"page_id": updated.ID, "slug": updated.Slug, "user_id": user.ID}, "legacy page updated")
	return updated, nil
}

func (s *service) Delete(ctx context.Context, caller identity.Caller, id string) error {
	user, err := s.resolveCaller(ctx, caller)
	if err != nil {
		return err
	}

	page, err := s.findPage(ctx, id)
	if err != nil {
		return eris.Wrapf(err, "retrieving page: %s", id)
	}
	if page == nil {
		return ErrPageNotFound
	}
	if page.UserID != user.ID {
		return ErrForbidden
	}

	return s.deletePage(ctx, page, logrus.Fields{"page_id": page.ID, "user_id": user.ID})
}

func (s *service) DeleteOwnedBy(ctx context.Context, userID string) error {
	page, err := s.repo.GetByOwner(ctx, userID, true)
	if err != nil {
		return eris.Wrap(err, "retrieving owned page")
	}
	if page == nil {
		return nil
	}

	return s.deletePage(ctx, page, logrus.Fields{"page_id": page.ID, "user_id": userID})
}

func (s *service) deletePage(ctx context.Context, page *Page, fields logrus.Fields) error {
	if err := s.repo.Delete(ctx, page.ID); err != nil {
		if errors.Is(err, ErrPageNotFound) {
			return ErrPageNotFound
		}
		s.recordError(fields, err, "deleting page")
		return eris.Wrap(err, "deleting page")
	}

	s.removeFiles(ctx, page.StoredFiles(), fields)
	s.logInfo(fields, "legacy page deleted")
	return nil
}

// buildPage turns a validated submission into models, storing every new file.
// With an existing page, photos without a replacement keep their URL and media
// items may refer to already stored files.
func (s *service) buildPage(ctx context.Context, uploads *uploadSet, sub Submission, existing *Page) (*Page, error) {
	page := &Page{
		PageType:     sub.PageType,
		Slug:         sub.Slug,
		HonoureeName: sub.HonoureeName,
		DateOfBirth:  mustDate(sub.DateOfBirth),
		CreatorName:  sub.CreatorName,
		Relationship: sub.Relationship,
		Story:        sub.Story,
		GeneralKnowledge: &GeneralKnowledge{
			Personality: sub.Personality,
			Values:      sub.Values,
			Beliefs:     sub.Beliefs,
		},
	}
	page.DateOfPassing = optionalDate(sub.DateOfPassing)

	if existing != nil {
		page.CoverPhoto = existing.CoverPhoto
		page.HonoureePhoto = existing.HonoureePhoto
	}

	if sub.CoverPhoto != nil {
		url, err := s.store(ctx, uploads, storage.BucketCoverPhotos, sub.CoverPhoto)
		if err != nil {
			return nil, err
		}
		page.CoverPhoto = &url
	}
	if sub.HonoureePhoto != nil {
		url, err := s.store(ctx, uploads, storage.BucketHonoureePhotos, sub.HonoureePhoto)
		if err != nil {
			return nil, err
		}
		page.HonoureePhoto = &url
	}

	if sub.PageType == KindMemorial {
		page.MemorialDetails = buildMemorial(sub.Memorial)
	}

	for _, item := range sub.MediaItems {
		url := item.URL
		if item.File != nil {
			stored, err := s.store(ctx, uploads, storage.BucketMedia, item.File)
			if err != nil {
				return nil, err
			}
			url = stored
		}
		page.MediaItems = append(page.MediaItems, MediaItem{
			Kind:        item.Kind,
			URL:         url,
			DateTaken:   mustDate(item.DateTaken),
			Location:    item.Location,
			Description: item.Description,
		})
	}

	for _, event := range sub.Events {
		page.Events = append(page.Events, Event{
			Name:        event.Name,
			Date:        mustDate(event.Date),
			Time:        event.Time,
			RSVPBy:      optionalDate(event.RSVPBy),
			Location:    event.Location,
			Description: event.Description,
			Message:     event.Message,
		})
	}

	for _, rel := range sub.Relationships {
		page.Relationships = append(page.Relationships, Relationship{Type: rel.ResolvedType(), Name: rel.Name})
	}

	for _, insight := range sub.Insights {
		page.Insights = append(page.Insights, Insight{Message: insight.Message})
	}

	return page, nil
}

func buildMemorial(m MemorialSubmission) *MemorialDetails {
	return &MemorialDetails{
		Funeral:    Ceremony{Date: optionalDate(m.FuneralDate), Time: m.FuneralTime, Location: m.FuneralLocation, Notes: m.FuneralNotes},
		Service:    Ceremony{Date: optionalDate(m.ServiceDate), Time: m.ServiceTime, Location: m.ServiceLocation, Notes: m.ServiceNotes},
		Viewing:    Ceremony{Date: optionalDate(m.ViewingDate), Time: m.ViewingTime, Location: m.ViewingLocation, Notes: m.ViewingNotes},
		Procession: Ceremony{Date: optionalDate(m.ProcessionDate), Time: m.ProcessionTime, Location: m.ProcessionLocation, Notes: m.ProcessionNotes},
		RestingPlace: RestingPlace{
			Name:     m.RestingPlaceName,
			Location: m.RestingPlaceLocation,
			Notes:    m.RestingPlaceNotes,
		},
		Eulogy:  m.Eulogy,
		Tribute: m.Tribute,
	}
}

// requireMediaFiles rejects media items that carry neither a new file nor the
// URL of one of the page's stored media items.
func requireMediaFiles(items []MediaSubmission, stored []MediaItem) error {
	known := make(map[string]struct{}, len(stored))
	for _, item := range stored {
		known[item.URL] = struct{}{}
	}

	fields := map[string]string{}
	for i, item := range items {
		if item.File != nil {
			continue
		}
		if _, ok := known[item.URL]; !ok {
			fields[fmt.Sprintf("mediaItems[%d][file]", i)] = "a file or the url of a stored media item is required"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// staleFiles lists the stored files of before that after no longer references.
func staleFiles(before, after *Page) []string {
	keep := map[string]struct{}{}
	for _, url := range after.StoredFiles() {
		keep[url] = struct{}{}
	}

	var stale []string
	candidates := []string{deref(before.CoverPhoto), deref(before.HonoureePhoto)}
	if after.MediaItems != nil {
		for _, item := range before.MediaItems {
			candidates = append(candidates, item.URL)
		}
	}
	for _, url := range candidates {
		if url == "" {
			continue
		}
		if _, ok := keep[url]; !ok {
			stale = append(stale, url)
		}
	}
	return stale
}

type storedFile struct {
	bucket storage.Bucket
	key    string
}

// uploadSet records files stored during one request so they can be discarded
// when the database write fails.
type uploadSet struct {
	files []storedFile
}

func (s *service) store(ctx context.Context, uploads *uploadSet, bucket storage.Bucket, upload *Upload) (string, error) {
	if upload.Open == nil {
		return "", eris.Errorf("upload %q has no content", upload.Filename)
	}

	body, err := upload.Open()
	if err != nil {
		return "", eris.Wrapf(err, "opening upload %q", upload.Filename)
	}
	defer body.Close()

	key := storage.ObjectKey(s.now(), upload.Filename)
	url, err := s.files.Store(ctx, bucket, key, body, upload.ContentType)
	if err != nil {
		return "", eris.Wrapf(err, "storing %s/%s", bucket, key)
	}

	uploads.files = append(uploads.files, storedFile{bucket: bucket, key: key})
	return url, nil
}

func (s *service) discard(ctx context.Context, uploads *uploadSet) {
	ctx = context.WithoutCancel(ctx)
	for _, file := range uploads.files {
		if err := s.files.Remove(ctx, file.bucket, file.key); err != nil {
			s.recordOrphan(logrus.Fields{"bucket": file.bucket, "path": file.key}, err)
		}
	}
}

// removeFiles deletes stored files after a commit. Failures are logged only.
func (s *service) removeFiles(ctx context.Context, urls []string, fields logrus.Fields) {
	ctx = context.WithoutCancel(ctx)
	for _, url := range urls {
		bucket, key, ok := s.files.Locate(url)
		if !ok {
			s.logWarn(logrus.Fields{"url": url}, "skipping file outside managed storage")
			continue
		}

		if err := s.files.Remove(ctx, bucket, key); err != nil {
			orphanFields := logrus.Fields{"bucket": bucket, "path": key}
			for k, v := range fields {
				orphanFields[k] = v
			}
			s.recordOrphan(orphanFields, err)
		}
	}
}

func (s *service) recordOrphan(fields logrus.Fields, err error) {
	if s.logger != nil {
		s.logger.WithFields(fields).WithField("error", err.Error()).Warn("failed to remove stored file")
	}
	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}

func (s *service) logInfo(fields logrus.Fields, message string) {
	if s.logger != nil {
		s.logger.WithFields(fields).Info(message)
	}
}

func (s *service) logWarn(fields logrus.Fields, message string) {
	if s.logger != nil {
		s.logger.WithFields(fields).Warn(message)
	}
}

// mustDate parses a date that already passed validation.
func mustDate(value string) time.Time {
	parsed, _ := time.Parse(DateLayout, value)
	return parsed
}

func optionalDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil
	}
	return &parsed
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
