// Package legacy owns the legacy page aggregate: the page row, its optional
// general-knowledge and memorial records, and the media, event, relationship and
// insight collections that exist only in relation to it.
package legacy

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"legacypages/app/internal/account"
)

// Kind classifies who a page is written by and about.
type Kind string

// Page kinds.
const (
	KindAutobiography Kind = "autobiography"
	KindBiography     Kind = "biography"
	KindMemorial      Kind = "memorial"
)

// MediaKind classifies an uploaded media item.
type MediaKind string

// Media kinds.
const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// StatusActive is the status assigned to every new page.
const StatusActive = "active"

// RelationshipOther marks a relationship whose type is given as free text.
const RelationshipOther = "Other"

// Page is the root of the aggregate.
type Page struct {
	ID            string `gorm:"primaryKey;size:36"`
	PageType      Kind   `gorm:"size:32;not null"`
	Slug          string `gorm:"size:255;uniqueIndex:idx_pages_slug;not null"`
	HonoureeName  string `gorm:"size:255;not null"`
	DateOfBirth   time.Time
	DateOfPassing *time.Time
	CreatorName   string `gorm:"size:255;not null"`
	Relationship  string `gorm:"size:255;not null"`
	Story         string `gorm:"type:text;not null"`
	CoverPhoto    *string
	HonoureePhoto *string
	Status        string `gorm:"size:32;not null;default:active"`
	UserID        string `gorm:"size:36;index:idx_pages_user_id;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Owner            *account.User     `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
	GeneralKnowledge *GeneralKnowledge `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE"`
	MemorialDetails  *MemorialDetails  `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE"`
	MediaItems       []MediaItem       `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE"`
	Events           []Event           `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE"`
	Relationships    []Relationship    `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE"`
	Insights         []Insight         `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE"`
}

// TableName defines the table name for the Page model.
func (Page) TableName() string {
	return "pages"
}

// BeforeCreate assigns a random identifier when none was set.
func (p *Page) BeforeCreate(_ *gorm.DB) error {
	p.ID = ensureID(p.ID)
	return nil
}

// StoredFiles lists every stored file URL referenced by the page and its media.
func (p *Page) StoredFiles() []string {
	var urls []string
	if p.CoverPhoto != nil && *p.CoverPhoto != "" {
		urls = append(urls, *p.CoverPhoto)
	}
	if p.HonoureePhoto != nil && *p.HonoureePhoto != "" {
		urls = append(urls, *p.HonoureePhoto)
	}
	for _, item := range p.MediaItems {
		if item.URL != "" {
			urls = append(urls, item.URL)
		}
	}
	return urls
}

// GeneralKnowledge holds optional descriptive text about the honouree.
type GeneralKnowledge struct {
	ID          string `gorm:"primaryKey;size:36"`
	PageID      string `gorm:"size:36;uniqueIndex:idx_general_knowledge_page_id;not null"`
	Personality string `gorm:"type:text"`
	Values      string `gorm:"column:core_values;type:text"`
	Beliefs     string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName defines the table name for the GeneralKnowledge model.
func (GeneralKnowledge) TableName() string {
	return "general_knowledge"
}

// BeforeCreate assigns a random identifier when none was set.
func (g *GeneralKnowledge) BeforeCreate(_ *gorm.DB) error {
	g.ID = ensureID(g.ID)
	return nil
}

// Empty reports whether every field is blank.
func (g GeneralKnowledge) Empty() bool {
	return strings.TrimSpace(g.Personality) == "" &&
		strings.TrimSpace(g.Values) == "" &&
		strings.TrimSpace(g.Beliefs) == ""
}

// MediaItem is a stored image, video or audio file attached to a page.
type MediaItem struct {
	ID          string    `gorm:"primaryKey;size:36"`
	PageID      string    `gorm:"size:36;index:idx_media_items_page_id;not null"`
	Kind        MediaKind `gorm:"column:type;size:16;not null"`
	URL         string    `gorm:"size:1024;not null"`
	DateTaken   time.Time
	Location    string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	Position    int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName defines the table name for the MediaItem model.
func (MediaItem) TableName() string {
	return "media_items"
}

// BeforeCreate assigns a random identifier when none was set.
func (m *MediaItem) BeforeCreate(_ *gorm.DB) error {
	m.ID = ensureID(m.ID)
	return nil
}

// Event is a gathering connected to the honouree.
type Event struct {
	ID          string `gorm:"primaryKey;size:36"`
	PageID      string `gorm:"size:36;index:idx_events_page_id;not null"`
	Name        string `gorm:"size:255;not null"`
	Date        time.Time
	Time        string `gorm:"size:16;not null"`
	RSVPBy      *time.Time
	Location    string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Message     string `gorm:"type:text"`
	Position    int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName defines the table name for the Event model.
func (Event) TableName() string {
	return "events"
}

// BeforeCreate assigns a random identifier when none was set.
func (e *Event) BeforeCreate(_ *gorm.DB) error {
	e.ID = ensureID(e.ID)
	return nil
}

// Relationship names a person connected to the honouree.
type Relationship struct {
	ID        string `gorm:"primaryKey;size:36"`
	PageID    string `gorm:"size:36;index:idx_relationships_page_id;not null"`
	Type      string `gorm:"size:255;not null"`
	Name      string `gorm:"size:255;not null"`
	Position  int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName defines the table name for the Relationship model.
func (Relationship) TableName() string {
	return "relationships"
}

// BeforeCreate assigns a random identifier when none was set.
func (r *Relationship) BeforeCreate(_ *gorm.DB) error {
	r.ID = ensureID(r.ID)
	return nil
}

// Insight is a single remembered message.
type Insight struct {
	ID        string `gorm:"primaryKey;size:36"`
	PageID    string `gorm:"size:36;index:idx_insights_page_id;not null"`
	Message   string `gorm:"type:text;not null"`
	Position  int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName defines the table name for the Insight model.
func (Insight) TableName() string {
	return "insights"
}

// BeforeCreate assigns a random identifier when none was set.
func (i *Insight) BeforeCreate(_ *gorm.DB) error {
	i.ID = ensureID(i.ID)
	return nil
}

// Ceremony describes one memorial gathering.
type Ceremony struct {
	Date     *time.Time
	Time     string `gorm:"size:16"`
	Location string `gorm:"size:255"`
	Notes    string `gorm:"type:text"`
}

// RestingPlace describes where the honouree is laid to rest.
type RestingPlace struct {
	Name     string `gorm:"size:255"`
	Location string `gorm:"size:255"`
	Notes    string `gorm:"type:text"`
}

// MemorialDetails exists only for memorial pages.
type MemorialDetails struct {
	ID           string       `gorm:"primaryKey;size:36"`
	PageID       string       `gorm:"size:36;uniqueIndex:idx_memorial_details_page_id;not null"`
	Funeral      Ceremony     `gorm:"embedded;embeddedPrefix:funeral_"`
	Service      Ceremony     `gorm:"embedded;embeddedPrefix:service_"`
	Viewing      Ceremony     `gorm:"embedded;embeddedPrefix:viewing_"`
	Procession   Ceremony     `gorm:"embedded;embeddedPrefix:procession_"`
	RestingPlace RestingPlace `gorm:"embedded;embeddedPrefix:resting_place_"`
	Eulogy       string       `gorm:"type:text"`
	Tribute      string       `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName defines the table name for the MemorialDetails model.
func (MemorialDetails) TableName() string {
	return "memorial_details"
}

// BeforeCreate assigns a random identifier when none was set.
func (m *MemorialDetails) BeforeCreate(_ *gorm.DB) error {
	m.ID = ensureID(m.ID)
	return nil
}

func ensureID(id string) string {
	if strings.TrimSpace(id) == "" {
		return uuid.NewString()
	}
	return id
}
