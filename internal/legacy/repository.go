package legacy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence operations for the page aggregate. Lookups
// return nil without error when nothing matches.
type Repository interface {
	GetByID(ctx context.Context, id string, joined bool) (*Page, error)
	GetBySlug(ctx context.Context, slug string) (*Page, error)
	GetByOwner(ctx context.Context, userID string, joined bool) (*Page, error)
	SlugTaken(ctx context.Context, slug, excludeID string) (bool, error)
	Create(ctx context.Context, page *Page) error
	Replace(ctx context.Context, change *Change) error
	Delete(ctx context.Context, id string) error
}

// Change describes an edit applied in one transaction. A nil collection leaves
// the stored rows of that kind untouched; a non-nil one replaces them all.
type Change struct {
	Page             *Page
	GeneralKnowledge GeneralKnowledge
	Memorial         *MemorialDetails
	RemoveMemorial   bool
	MediaItems       []MediaItem
	Events           []Event
	Relationships    []Relationship
	Insights         []Insight
}

// GormRepository persists pages using a Gorm database connection.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewGormRepository constructs a Gorm-backed repository implementation.
func NewGormRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

func joinedQuery(db *gorm.DB) *gorm.DB {
	ordered := func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC").Order("created_at ASC")
	}

	return db.
		Preload("GeneralKnowledge").
		Preload("MemorialDetails").
		Preload("MediaItems", ordered).
		Preload("Events", ordered).
		Preload("Relationships", ordered).
		Preload("Insights", ordered)
}

func (r *GormRepository) first(ctx context.Context, joined bool, fields logrus.Fields, message string, query string, args ...any) (*Page, error) {
	db := r.db.WithContext(ctx)
	if joined {
		db = joinedQuery(db)
	}

	var page Page
	if err := db.Where(query, args...).First(&page).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(fields, err, message)
		return nil, eris.Wrap(err, message)
	}

	return &page, nil
}

// GetByID returns the page, with its dependents when joined is set.
func (r *GormRepository) GetByID(ctx context.Context, id string, joined bool) (*Page, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, eris.New("page id is required")
	}

	return r.first(ctx, joined, logrus.Fields{"page_id": trimmed}, "fetching page by id", "id = ?", trimmed)
}

// GetBySlug returns the joined page for the slug.
func (r *GormRepository) GetBySlug(ctx context.Context, slug string) (*Page, error) {
	trimmed := strings.ToLower(strings.TrimSpace(slug))
	if trimmed == "" {
		return nil, eris.New("slug is required")
	}

	return r.first(ctx, true, logrus.Fields{"slug": trimmed}, "fetching page by slug", "slug = ?", trimmed)
}

// GetByOwner returns the page owned by the user, with its dependents when joined is set.
func (r *GormRepository) GetByOwner(ctx context.Context, userID string, joined bool) (*Page, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return nil, eris.New("user id is required")
	}

	return r.first(ctx, joined, logrus.Fields{"user_id": trimmed}, "fetching page by owner", "user_id = ?", trimmed)
}

// SlugTaken reports whether a page other than excludeID uses the slug.
func (r *GormRepository) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	db := r.db.WithContext(ctx).Model(&Page{}).Where("slug = ?", slug)
	if excludeID != "" {
		db = db.Where("id <> ?", excludeID)
	}

	var count int64
	if err := db.Count(&count).Error; err != nil {
		r.logError(logrus.Fields{"slug": slug}, err, "checking slug availability")
		return false, eris.Wrapf(err, "checking slug availability: %s", slug)
	}

	return count > 0, nil
}

// Create inserts the page and every dependent it carries in one transaction.
func (r *GormRepository) Create(ctx context.Context, page *Page) error {
	if page == nil {
		return eris.New("page is nil")
	}

	fields := logrus.Fields{"slug": page.Slug, "user_id": page.UserID}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(page).Error; err != nil {
			return translateSlugConflict(err, "inserting page")
		}

		if gk := page.GeneralKnowledge; gk != nil && !gk.Empty() {
			gk.PageID = page.ID
			if err := tx.Create(gk).Error; err != nil {
				return eris.Wrap(err, "inserting general knowledge")
			}
		} else {
			page.GeneralKnowledge = nil
		}

		if md := page.MemorialDetails; md != nil && page.PageType == KindMemorial {
			md.PageID = page.ID
			if err := tx.Create(md).Error; err != nil {
				return eris.Wrap(err, "inserting memorial details")
			}
		} else {
			page.MemorialDetails = nil
		}

		return insertCollections(tx, page.ID, page.MediaItems, page.Events, page.Relationships, page.Insights)
	})
	if err != nil {
		if !errors.Is(err, ErrSlugTaken) {
			r.logError(fields, err, "creating page")
		}
		return err
	}

	return nil
}

// Replace applies the change in one transaction.
func (r *GormRepository) Replace(ctx context.Context, change *Change) error {
	if change == nil || change.Page == nil {
		return eris.New("change is nil")
	}

	page := change.Page
	fields := logrus.Fields{"page_id": page.ID, "slug": page.Slug}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Page{}).Where("id = ?", page.ID).Updates(map[string]any{
			"page_type":       page.PageType,
			"slug":            page.Slug,
			"honouree_name":   page.HonoureeName,
			"date_of_birth":   page.DateOfBirth,
			"date_of_passing": page.DateOfPassing,
			"creator_name":    page.CreatorName,
			"relationship":    page.Relationship,
			"story":           page.Story,
			"cover_photo":     page.CoverPhoto,
			"honouree_photo":  page.HonoureePhoto,
			"updated_at":      time.Now().UTC(),
		})
		if result.Error != nil {
			return translateSlugConflict(result.Error, "updating page")
		}
		if result.RowsAffected == 0 {
			return ErrPageNotFound
		}

		if err := upsertGeneralKnowledge(tx, page.ID, change.GeneralKnowledge); err != nil {
			return err
		}

		switch {
		case change.RemoveMemorial:
			if err := tx.Where("page_id = ?", page.ID).Delete(&MemorialDetails{}).Error; err != nil {
				return eris.Wrap(err, "deleting memorial details")
			}
		case change.Memorial != nil:
			if err := upsertMemorial(tx, page.ID, change.Memorial); err != nil {
				return err
			}
		}

		if change.MediaItems != nil {
			if err := tx.Where("page_id = ?", page.ID).Delete(&MediaItem{}).Error; err != nil {
				return eris.Wrap(err, "deleting media items")
			}
		}
		if change.Events != nil {
			if err := tx.Where("page_id = ?", page.ID).Delete(&Event{}).Error; err != nil {
				return eris.Wrap(err, "deleting events")
			}
		}
		if change.Relationships != nil {
			if err := tx.Where("page_id = ?", page.ID).Delete(&Relationship{}).Error; err != nil {
				return eris.Wrap(err, "deleting relationships")
			}
		}
		if change.Insights != nil {
			if err := tx.Where("page_id = ?", page.ID).Delete(&Insight{}).Error; err != nil {
				return eris.Wrap(err, "deleting insights")
			}
		}

		return insertCollections(tx, page.ID, change.MediaItems, change.Events, change.Relationships, change.Insights)
	})
	if err != nil {
		if !errors.Is(err, ErrSlugTaken) && !errors.Is(err, ErrPageNotFound) {
			r.logError(fields, err, "replacing page")
		}
		return err
	}

	return nil
}

// Delete removes the dependents and then the page in one transaction.
func (r *GormRepository) Delete(ctx context.Context, id string) error {
	fields := logrus.Fields{"page_id": id}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, dependent := range []any{
			&MediaItem{}, &Event{}, &Relationship{}, &Insight{}, &GeneralKnowledge{}, &MemorialDetails{},
		} {
			if err := tx.Where("page_id = ?", id).Delete(dependent).Error; err != nil {
				return eris.Wrapf(err, "deleting %T rows", dependent)
			}
		}

		result := tx.Where("id = ?", id).Delete(&Page{})
		if result.Error != nil {
			return eris.Wrap(result.Error, "deleting page")
		}
		if result.RowsAffected == 0 {
			return ErrPageNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrPageNotFound) {
			r.logError(fields, err, "deleting page")
		}
		return err
	}

	return nil
}

func upsertGeneralKnowledge(tx *gorm.DB, pageID string, gk GeneralKnowledge) error {
	var existing GeneralKnowledge
	err := tx.Where("page_id = ?", pageID).First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]any{"personality": gk.Personality, "core_values": gk.Values, "beliefs": gk.Beliefs}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return eris.Wrap(err, "updating general knowledge")
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if gk.Empty() {
			return nil
		}
		gk.ID = ""
		gk.PageID = pageID
		if err := tx.Create(&gk).Error; err != nil {
			return eris.Wrap(err, "inserting general knowledge")
		}
		return nil
	default:
		return eris.Wrap(err, "loading general knowledge")
	}
}

func upsertMemorial(tx *gorm.DB, pageID string, md *MemorialDetails) error {
	var existing MemorialDetails
	err := tx.Where("page_id = ?", pageID).First(&existing).Error
	switch {
	case err == nil:
		md.ID = existing.ID
		md.PageID = pageID
		md.CreatedAt = existing.CreatedAt
		if err := tx.Model(&existing).Select("*").Omit("id", "page_id", "created_at").Updates(md).Error; err != nil {
			return eris.Wrap(err, "updating memorial details")
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		md.ID = ""
		md.PageID = pageID
		if err := tx.Create(md).Error; err != nil {
			return eris.Wrap(err, "inserting memorial details")
		}
		return nil
	default:
		return eris.Wrap(err, "loading memorial details")
	}
}

func insertCollections(tx *gorm.DB, pageID string, media []MediaItem, events []Event, relationships []Relationship, insights []Insight) error {
	for i := range media {
		media[i].ID, media[i].PageID, media[i].Position = "", pageID, i
	}
	for i := range events {
		events[i].ID, events[i].PageID, events[i].Position = "", pageID, i
	}
	for i := range relationships {
		relationships[i].ID, relationships[i].PageID, relationships[i].Position = "", pageID, i
	}
	for i := range insights {
		insights[i].ID, insights[i].PageID, insights[i].Position = "", pageID, i
	}

	if len(media) > 0 {
		if err := tx.Create(&media).Error; err != nil {
			return eris.Wrap(err, "inserting media items")
		}
	}
	if len(events) > 0 {
		if err := tx.Create(&events).Error; err != nil {
			return eris.Wrap(err, "inserting events")
		}
	}
	if len(relationships) > 0 {
		if err := tx.Create(&relationships).Error; err != nil {
			return eris.Wrap(err, "inserting relationships")
		}
	}
	if len(insights) > 0 {
		if err := tx.Create(&insights).Error; err != nil {
			return eris.Wrap(err, "inserting insights")
		}
	}

	return nil
}

func translateSlugConflict(err error, message string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
		return ErrSlugTaken
	}
	return eris.Wrap(err, message)
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
