package http

import (
	"context"
	"errors"
	"io/fs"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"legacypages/app/internal/http/templates"
	"legacypages/app/internal/legacy"
	"legacypages/app/internal/storage"
)

const (
	displayDateLayout  = "January 2, 2006"
	descriptionLength  = 160
	uploadCacheControl = "public, max-age=31536000, immutable"
)

var kindLabels = map[legacy.Kind]string{
	legacy.KindAutobiography: "Autobiography",
	legacy.KindBiography:     "Biography",
	legacy.KindMemorial:      "In Loving Memory",
}

type legacyViewInput struct {
	Slug string `path:"slug"`
}

func (s *Server) registerLegacyViewRoute() {
	huma.Get(s.api, "/legacy/{slug}", s.legacyViewHandler, htmlOperation(
		"Public legacy page",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) legacyViewHandler(ctx context.Context, input *legacyViewInput) (*htmlResponse, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	page, err := s.pages.GetBySlug(ctx, slug)
	if err != nil {
		if eris.Is(err, legacy.ErrPageNotFound) {
			return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, "We couldn't find that legacy page.")
		}
		s.recordError(ctx, err, "loading legacy page view", logrus.Fields{"slug": slug})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	body, err := renderComponent(ctx, templates.LegacyPage(newLegacyPageData(page)))
	if err != nil {
		s.recordError(ctx, err, "rendering legacy page view", logrus.Fields{"slug": slug, "page_id": page.ID})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

// uploadHandler serves files of the local storage backend. Keys carry a
// timestamp and random suffix, so responses are cacheable forever.
func (s *Server) uploadHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	bucket := storage.Bucket(r.PathValue("bucket"))
	key := r.PathValue("path")

	file, err := s.files.Open(bucket, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || eris.Is(err, storage.ErrUnknownBucket) || eris.Is(err, storage.ErrInvalidKey) {
			stdhttp.NotFound(w, r)
			return
		}
		s.recordError(r.Context(), err, "opening stored file", logrus.Fields{"bucket": bucket, "path": key})
		stdhttp.Error(w, errorFallbackMessage, stdhttp.StatusInternalServerError)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		s.recordError(r.Context(), err, "inspecting stored file", logrus.Fields{"bucket": bucket, "path": key})
		stdhttp.Error(w, errorFallbackMessage, stdhttp.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", uploadCacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	stdhttp.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func newLegacyPageData(page *legacy.Page) templates.LegacyPageData {
	data := templates.LegacyPageData{
		Title:         page.HonoureeName + " • " + templates.SiteName,
		Description:   legacy.Excerpt(page.Story, descriptionLength),
		KindLabel:     kindLabels[page.PageType],
		HonoureeName:  page.HonoureeName,
		Born:          displayDate(&page.DateOfBirth),
		Passed:        displayDate(page.DateOfPassing),
		CreatedBy:     "Created by " + page.CreatorName + " (" + page.Relationship + ")",
		CoverPhoto:    deref(page.CoverPhoto),
		HonoureePhoto: deref(page.HonoureePhoto),
		Story:         page.Story,
	}

	if gk := page.GeneralKnowledge; gk != nil {
		for _, entry := range []templates.LabelledText{
			{Label: "Personality", Text: gk.Personality},
			{Label: "Values", Text: gk.Values},
			{Label: "Spiritual Beliefs", Text: gk.Beliefs},
		} {
			if strings.TrimSpace(entry.Text) != "" {
				data.Knowledge = append(data.Knowledge, entry)
			}
		}
	}

	if md := page.MemorialDetails; md != nil && page.PageType == legacy.KindMemorial {
		data.Memorial = memorialSections(md)
	}

	for _, item := range page.MediaItems {
		meta := displayDate(&item.DateTaken)
		if item.Location != "" {
			if meta != "" {
				meta += " • "
			}
			meta += item.Location
		}
		data.Media = append(data.Media, templates.MediaView{
			Kind:        string(item.Kind),
			URL:         item.URL,
			Meta:        meta,
			Description: item.Description,
		})
	}

	for _, rel := range page.Relationships {
		data.Relationships = append(data.Relationships, templates.LabelledText{Label: rel.Type, Text: rel.Name})
	}

	for _, insight := range page.Insights {
		data.Insights = append(data.Insights, insight.Message)
	}

	for _, event := range page.Events {
		when := displayDate(&event.Date)
		if event.Time != "" {
			when += " at " + event.Time
		}
		data.Events = append(data.Events, templates.EventView{
			Name:        event.Name,
			When:        when,
			Location:    event.Location,
			RSVPBy:      displayDate(event.RSVPBy),
			Description: event.Description,
			Message:     event.Message,
		})
	}

	return data
}

func memorialSections(md *legacy.MemorialDetails) []templates.MemorialSectionView {
	var sections []templates.MemorialSectionView

	for _, c := range []struct {
		heading  string
		ceremony legacy.Ceremony
	}{
		{"Funeral", md.Funeral},
		{"Service", md.Service},
		{"Viewing", md.Viewing},
		{"Procession", md.Procession},
	} {
		var lines []string
		when := displayDate(c.ceremony.Date)
		if c.ceremony.Time != "" {
			when = strings.TrimSpace(when + " " + c.ceremony.Time)
		}
		if when != "" {
			lines = append(lines, when)
		}
		if c.ceremony.Location != "" {
			lines = append(lines, c.ceremony.Location)
		}
		if len(lines) == 0 && c.ceremony.Notes == "" {
			continue
		}
		sections = append(sections, templates.MemorialSectionView{Heading: c.heading, Lines: lines, Notes: c.ceremony.Notes})
	}

	rp := md.RestingPlace
	if rp.Name != "" || rp.Location != "" || rp.Notes != "" {
		var lines []string
		for _, line := range []string{rp.Name, rp.Location} {
			if line != "" {
				lines = append(lines, line)
			}
		}
		sections = append(sections, templates.MemorialSectionView{Heading: "Resting Place", Lines: lines, Notes: rp.Notes})
	}

	if md.Eulogy != "" {
		sections = append(sections, templates.MemorialSectionView{Heading: "Eulogy", Notes: md.Eulogy})
	}
	if md.Tribute != "" {
		sections = append(sections, templates.MemorialSectionView{Heading: "Tribute", Notes: md.Tribute})
	}

	return sections
}

func displayDate(value *time.Time) string {
	if value == nil || value.IsZero() {
		return ""
	}
	return value.Format(displayDateLayout)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
