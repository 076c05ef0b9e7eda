package legacy

import (
	"errors"
	"io"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rotisserie/eris"
)

// DateLayout is the wire format of every calendar date in a submission.
const DateLayout = "2006-01-02"

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// Upload is a file received with a submission.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Submission is the typed form of a create or edit request.
type Submission struct {
	PageType      Kind   `json:"pageType"`
	Slug          string `json:"slug"`
	HonoureeName  string `json:"honoureeName"`
	DateOfBirth   string `json:"dateOfBirth"`
	DateOfPassing string `json:"dateOfPassing"`
	CreatorName   string `json:"creatorName"`
	Relationship  string `json:"relationship"`
	Story         string `json:"story"`
	Personality   string `json:"personality"`
	Values        string `json:"values"`
	Beliefs       string `json:"beliefs"`

	CoverPhoto    *Upload `json:"coverPhoto"`
	HonoureePhoto *Upload `json:"honoureePhoto"`

	// A nil or empty collection leaves the stored collection untouched on edit.
	MediaItems    []MediaSubmission        `json:"mediaItems"`
	Events        []EventSubmission        `json:"events"`
	Relationships []RelationshipSubmission `json:"relationships"`
	Insights      []InsightSubmission      `json:"insights"`

	Memorial MemorialSubmission `json:"-"`
}

// MediaSubmission is one submitted media item. URL refers to an already stored
// file of the same page and is used when File is nil.
type MediaSubmission struct {
	Kind        MediaKind `json:"type"`
	File        *Upload   `json:"file"`
	URL         string    `json:"url"`
	DateTaken   string    `json:"dateTaken"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
}

// EventSubmission is one submitted event.
type EventSubmission struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	RSVPBy      string `json:"rsvpBy"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

// RelationshipSubmission is one submitted relationship. CustomType replaces a
// Type of "Other".
type RelationshipSubmission struct {
	Type       string `json:"type"`
	CustomType string `json:"customType"`
	Name       string `json:"name"`
}

// InsightSubmission is one submitted insight.
type InsightSubmission struct {
	Message string `json:"message"`
}

// MemorialSubmission carries the memorial-only fields, flat as they are posted.
type MemorialSubmission struct {
	FuneralDate          string `json:"funeralDate"`
	FuneralTime          string `json:"funeralTime"`
	FuneralLocation      string `json:"funeralLocation"`
	FuneralNotes         string `json:"funeralNotes"`
	ServiceDate          string `json:"serviceDate"`
	ServiceTime          string `json:"serviceTime"`
	ServiceLocation      string `json:"serviceLocation"`
	ServiceNotes         string `json:"serviceNotes"`
	ViewingDate          string `json:"viewingDate"`
	ViewingTime          string `json:"viewingTime"`
	ViewingLocation      string `json:"viewingLocation"`
	ViewingNotes         string `json:"viewingNotes"`
	ProcessionDate       string `json:"processionDate"`
	ProcessionTime       string `json:"processionTime"`
	ProcessionLocation   string `json:"processionLocation"`
	ProcessionNotes      string `json:"processionNotes"`
	RestingPlaceName     string `json:"restingPlaceName"`
	RestingPlaceLocation string `json:"restingPlaceLocation"`
	RestingPlaceNotes    string `json:"restingPlaceNotes"`
	Eulogy               string `json:"eulogy"`
	Tribute              string `json:"tribute"`
}

// Normalize trims every text field and canonicalises the slug and kinds.
func (s *Submission) Normalize() {
	s.PageType = Kind(strings.ToLower(strings.TrimSpace(string(s.PageType))))
	s.Slug = strings.ToLower(strings.TrimSpace(s.Slug))
	trim(&s.HonoureeName, &s.DateOfBirth, &s.DateOfPassing, &s.CreatorName, &s.Relationship,
		&s.Story, &s.Personality, &s.Values, &s.Beliefs)

	for i := range s.MediaItems {
		item := &s.MediaItems[i]
		item.Kind = MediaKind(strings.ToLower(strings.TrimSpace(string(item.Kind))))
		trim(&item.URL, &item.DateTaken, &item.Location, &item.Description)
	}
	for i := range s.Events {
		event := &s.Events[i]
		trim(&event.Name, &event.Date, &event.Time, &event.RSVPBy, &event.Location, &event.Description, &event.Message)
	}
	for i := range s.Relationships {
		rel := &s.Relationships[i]
		trim(&rel.Type, &rel.CustomType, &rel.Name)
	}
	for i := range s.Insights {
		trim(&s.Insights[i].Message)
	}

	m := &s.Memorial
	trim(&m.FuneralDate, &m.FuneralTime, &m.FuneralLocation, &m.FuneralNotes,
		&m.ServiceDate, &m.ServiceTime, &m.ServiceLocation, &m.ServiceNotes,
		&m.ViewingDate, &m.ViewingTime, &m.ViewingLocation, &m.ViewingNotes,
		&m.ProcessionDate, &m.ProcessionTime, &m.ProcessionLocation, &m.ProcessionNotes,
		&m.RestingPlaceName, &m.RestingPlaceLocation, &m.RestingPlaceNotes, &m.Eulogy, &m.Tribute)
}

// Validate checks the submission. A failure is always a *ValidationError keyed by
// form field name, for example "events[1][date]".
func (s Submission) Validate() error {
	fields := map[string]string{}

	err := validation.ValidateStruct(&s,
		validation.Field(&s.PageType, validation.Required, validation.In(KindAutobiography, KindBiography, KindMemorial)),
		validation.Field(&s.Slug, validation.Required, validation.Length(1, 255),
			validation.Match(slugPattern).Error("must contain only lowercase letters, digits and single hyphens")),
		validation.Field(&s.HonoureeName, validation.Required, validation.Length(1, 255)),
		validation.Field(&s.DateOfBirth, validation.Required, validation.Date(DateLayout)),
		validation.Field(&s.DateOfPassing,
			validation.When(s.PageType == KindMemorial, validation.Required),
			validation.Date(DateLayout)),
		validation.Field(&s.CreatorName, validation.Required, validation.Length(1, 255)),
		validation.Field(&s.Relationship, validation.Required, validation.Length(1, 255)),
		validation.Field(&s.Story, validation.Required),
		validation.Field(&s.CoverPhoto, validation.By(imageUpload)),
		validation.Field(&s.HonoureePhoto, validation.By(imageUpload)),
		validation.Field(&s.MediaItems),
		validation.Field(&s.Events),
		validation.Field(&s.Relationships),
		validation.Field(&s.Insights),
	)
	if err := collect("", err, fields); err != nil {
		return err
	}

	if s.PageType == KindMemorial {
		if err := collect("", s.Memorial.Validate(), fields); err != nil {
			return err
		}
	}

	if s.DateOfPassing != "" && fields["dateOfBirth"] == "" && fields["dateOfPassing"] == "" {
		born, _ := time.Parse(DateLayout, s.DateOfBirth)
		passed, _ := time.Parse(DateLayout, s.DateOfPassing)
		if passed.Before(born) {
			fields["dateOfPassing"] = "must not be before the date of birth"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Validate checks one media item.
func (m MediaSubmission) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Kind, validation.Required, validation.In(MediaImage, MediaVideo, MediaAudio)),
		validation.Field(&m.File, validation.When(m.URL == "", validation.Required.Error("a file or an existing url is required"))),
		validation.Field(&m.DateTaken, validation.Required, validation.Date(DateLayout)),
		validation.Field(&m.Location, validation.Length(0, 255)),
	)
}

// Validate checks one event.
func (e EventSubmission) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&e.Date, validation.Required, validation.Date(DateLayout)),
		validation.Field(&e.Time, validation.Required, validation.Match(timePattern).Error("must be a time in HH:MM format")),
		validation.Field(&e.RSVPBy, validation.Date(DateLayout)),
		validation.Field(&e.Location, validation.Required, validation.Length(1, 255)),
	)
}

// Validate checks one relationship.
func (r RelationshipSubmission) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.CustomType, validation.When(r.Type == RelationshipOther, validation.Required), validation.Length(0, 255)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

// ResolvedType returns the type to store: the custom type for "Other", else Type.
func (r RelationshipSubmission) ResolvedType() string {
	if r.Type == RelationshipOther && r.CustomType != "" {
		return r.CustomType
	}
	return r.Type
}

// Validate checks one insight.
func (i InsightSubmission) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Message, validation.Required),
	)
}

// Validate checks the memorial fields.
func (m MemorialSubmission) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.FuneralDate, validation.Date(DateLayout)),
		validation.Field(&m.FuneralTime, validation.Match(timePattern)),
		validation.Field(&m.ServiceDate, validation.Date(DateLayout)),
		validation.Field(&m.ServiceTime, validation.Match(timePattern)),
		validation.Field(&m.ViewingDate, validation.Date(DateLayout)),
		validation.Field(&m.ViewingTime, validation.Match(timePattern)),
		validation.Field(&m.ProcessionDate, validation.Date(DateLayout)),
		validation.Field(&m.ProcessionTime, validation.Match(timePattern)),
	)
}

func imageUpload(value interface{}) error {
	upload, _ := value.(*Upload)
	if upload == nil || upload.ContentType == "" {
		return nil
	}
	if !strings.HasPrefix(strings.ToLower(upload.ContentType), "image/") {
		return eris.New("must be an image")
	}
	return nil
}

// collect flattens ozzo's nested errors into form-style keys. Internal errors
// are returned unchanged.
func collect(prefix string, err error, fields map[string]string) error {
	if err == nil {
		return nil
	}

	var internal validation.InternalError
	if errors.As(err, &internal) {
		return eris.Wrap(err, "validating submission")
	}

	nested, ok := err.(validation.Errors)
	if !ok {
		fields[prefix] = err.Error()
		return nil
	}

	for key, inner := range nested {
		name := key
		if prefix != "" {
			name = prefix + "[" + key + "]"
		}
		if err := collect(name, inner, fields); err != nil {
			return err
		}
	}
	return nil
}

func trim(values ...*string) {
	for _, value := range values {
		*value = strings.TrimSpace(*value)
	}
}
