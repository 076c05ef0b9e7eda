package http

import (
	"time"

	"legacypages/app/internal/legacy"
)

type pageBody struct {
	ID            string    `json:"id"`
	PageType      string    `json:"pageType"`
	Slug          string    `json:"slug"`
	HonoureeName  string    `json:"honoureeName"`
	DateOfBirth   string    `json:"dateOfBirth"`
	DateOfPassing *string   `json:"dateOfPassing"`
	CreatorName   string    `json:"creatorName"`
	Relationship  string    `json:"relationship"`
	Story         string    `json:"story"`
	CoverPhoto    *string   `json:"coverPhoto"`
	HonoureePhoto *string   `json:"honoureePhoto"`
	Status        string    `json:"status"`
	UserID        string    `json:"userId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type pageDetailBody struct {
	ID               string                `json:"id"`
	PageType         string                `json:"pageType"`
	Slug             string                `json:"slug"`
	HonoureeName     string                `json:"honoureeName"`
	DateOfBirth      string                `json:"dateOfBirth"`
	DateOfPassing    *string               `json:"dateOfPassing"`
	CreatorName      string                `json:"creatorName"`
	Relationship     string                `json:"relationship"`
	Story            string                `json:"story"`
	CoverPhoto       *string               `json:"coverPhoto"`
	HonoureePhoto    *string               `json:"honoureePhoto"`
	Status           string                `json:"status"`
	UserID           string                `json:"userId"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
	GeneralKnowledge *generalKnowledgeBody `json:"generalKnowledge"`
	MemorialDetails  *memorialBody         `json:"memorialDetails"`
	MediaItems       []mediaItemBody       `json:"mediaItems"`
	Events           []eventBody           `json:"events"`
	Relationships    []relationshipBody    `json:"relationships"`
	Insights         []insightBody         `json:"insights"`
}

type generalKnowledgeBody struct {
	Personality string `json:"personality"`
	Values      string `json:"values"`
	Beliefs     string `json:"beliefs"`
}

type mediaItemBody struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	DateTaken   string `json:"dateTaken"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type eventBody struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	RSVPBy      *string `json:"rsvpBy"`
	Location    string  `json:"location"`
	Description string  `json:"description"`
	Message     string  `json:"message"`
}

type relationshipBody struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

type insightBody struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type ceremonyBody struct {
	Date     *string `json:"date"`
	Time     string  `json:"time"`
	Location string  `json:"location"`
	Notes    string  `json:"notes"`
}

type restingPlaceBody struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

type memorialBody struct {
	Funeral      ceremonyBody     `json:"funeral"`
	Service      ceremonyBody     `json:"service"`
	Viewing      ceremonyBody     `json:"viewing"`
	Procession   ceremonyBody     `json:"procession"`
	RestingPlace restingPlaceBody `json:"restingPlace"`
	Eulogy       string           `json:"eulogy"`
	Tribute      string           `json:"tribute"`
}

func newPageBody(page *legacy.Page) *pageBody {
	if page == nil {
		return nil
	}

	return &pageBody{
		ID:            page.ID,
		PageType:      string(page.PageType),
		Slug:          page.Slug,
		HonoureeName:  page.HonoureeName,
		DateOfBirth:   page.DateOfBirth.Format(legacy.DateLayout),
		DateOfPassing: formatDate(page.DateOfPassing),
		CreatorName:   page.CreatorName,
		Relationship:  page.Relationship,
		Story:         page.Story,
		CoverPhoto:    page.CoverPhoto,
		HonoureePhoto: page.HonoureePhoto,
		Status:        page.Status,
		UserID:        page.UserID,
		CreatedAt:     page.CreatedAt,
		UpdatedAt:     page.UpdatedAt,
	}
}

// newPageDetailBody always emits the collections as arrays so clients can
// iterate without null checks.
func newPageDetailBody(page *legacy.Page) *pageDetailBody {
	if page == nil {
		return nil
	}

	base := newPageBody(page)
	body := &pageDetailBody{
		ID:            base.ID,
		PageType:      base.PageType,
		Slug:          base.Slug,
		HonoureeName:  base.HonoureeName,
		DateOfBirth:   base.DateOfBirth,
		DateOfPassing: base.DateOfPassing,
		CreatorName:   base.CreatorName,
		Relationship:  base.Relationship,
		Story:         base.Story,
		CoverPhoto:    base.CoverPhoto,
		HonoureePhoto: base.HonoureePhoto,
		Status:        base.Status,
		UserID:        base.UserID,
		CreatedAt:     base.CreatedAt,
		UpdatedAt:     base.UpdatedAt,
		MediaItems:    make([]mediaItemBody, 0, len(page.MediaItems)),
		Events:        make([]eventBody, 0, len(page.Events)),
		Relationships: make([]relationshipBody, 0, len(page.Relationships)),
		Insights:      make([]insightBody, 0, len(page.Insights)),
	}

	if gk := page.GeneralKnowledge; gk != nil {
		body.GeneralKnowledge = &generalKnowledgeBody{
			Personality: gk.Personality,
			Values:      gk.Values,
			Beliefs:     gk.Beliefs,
		}
	}

	if md := page.MemorialDetails; md != nil {
		body.MemorialDetails = &memorialBody{
			Funeral:    newCeremonyBody(md.Funeral),
			Service:    newCeremonyBody(md.Service),
			Viewing:    newCeremonyBody(md.Viewing),
			Procession: newCeremonyBody(md.Procession),
			RestingPlace: restingPlaceBody{
				Name:     md.RestingPlace.Name,
				Location: md.RestingPlace.Location,
				Notes:    md.RestingPlace.Notes,
			},
			Eulogy:  md.Eulogy,
			Tribute: md.Tribute,
		}
	}

	for _, item := range page.MediaItems {
		body.MediaItems = append(body.MediaItems, mediaItemBody{
			ID:          item.ID,
			Type:        string(item.Kind),
			URL:         item.URL,
			DateTaken:   item.DateTaken.Format(legacy.DateLayout),
			Location:    item.Location,
			Description: item.Description,
		})
	}

	for _, event := range page.Events {
		body.Events = append(body.Events, eventBody{
			ID:          event.ID,
			Name:        event.Name,
			Date:        event.Date.Format(legacy.DateLayout),
			Time:        event.Time,
			RSVPBy:      formatDate(event.RSVPBy),
			Location:    event.Location,
			Description: event.Description,
			Message:     event.Message,
		})
	}

	for _, rel := range page.Relationships {
		body.Relationships = append(body.Relationships, relationshipBody{
			ID:   rel.ID,
			Type: rel.Type,
			Name: rel.Name,
		})
	}

	for _, insight := range page.Insights {
		body.Insights = append(body.Insights, insightBody{
			ID:      insight.ID,
			Message: insight.Message,
		})
	}

	return body
}

func newCeremonyBody(c legacy.Ceremony) ceremonyBody {
	return ceremonyBody{
		Date:     formatDate(c.Date),
		Time:     c.Time,
		Location: c.Location,
		Notes:    c.Notes,
	}
}

func formatDate(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.Format(legacy.DateLayout)
	return &formatted
}
