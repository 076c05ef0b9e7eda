package templates

// SiteName is shown in every page title and the shared footer.
const SiteName = "Legacy Pages"

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Title       string
	StatusLabel string
	Message     string
}

// LegacyPageData is the read-only view of one legacy page.
type LegacyPageData struct {
	Title         string
	Description   string
	KindLabel     string
	HonoureeName  string
	Born          string
	Passed        string
	CreatedBy     string
	CoverPhoto    string
	HonoureePhoto string
	Story         string

	Knowledge     []LabelledText
	Memorial      []MemorialSectionView
	Media         []MediaView
	Relationships []LabelledText
	Insights      []string
	Events        []EventView
}

// LabelledText pairs a heading with free text.
type LabelledText struct {
	Label string
	Text  string
}

// MemorialSectionView is one block of the memorial arrangements.
type MemorialSectionView struct {
	Heading string
	Lines   []string
	Notes   string
}

// MediaView is one media gallery entry.
type MediaView struct {
	Kind        string
	URL         string
	Meta        string
	Description string
}

// EventView is one event entry.
type EventView struct {
	Name        string
	When        string
	Location    string
	RSVPBy      string
	Description string
	Message     string
}
