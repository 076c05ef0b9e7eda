package http

import (
	"io"
	"mime/multipart"
	"regexp"
	"sort"
	"strconv"

	"legacypages/app/internal/legacy"
)

// maxCollectionItems caps the index accepted for any indexed form field.
const maxCollectionItems = 200

var indexedFieldPattern = regexp.MustCompile(`^(mediaItems|events|relationships|insights)\[(\d+)\]\[([A-Za-z]+)\]$`)

// indexed collects the fields of one collection by submitted index.
type indexed map[int]map[string]string

func (c indexed) set(index int, field, value string) {
	if c[index] == nil {
		c[index] = map[string]string{}
	}
	c[index][field] = value
}

// decodeSubmission turns a multipart form using the `collection[index][field]`
// convention into a typed submission. Items keep the order of their indices;
// gaps between indices are closed.
func decodeSubmission(form *multipart.Form) (legacy.Submission, error) {
	var sub legacy.Submission
	if form == nil {
		return sub, nil
	}

	value := func(key string) string {
		if values := form.Value[key]; len(values) > 0 {
			return values[0]
		}
		return ""
	}

	sub.PageType = legacy.Kind(value("pageType"))
	sub.Slug = value("slug")
	sub.HonoureeName = value("honoureeName")
	sub.DateOfBirth = value("dateOfBirth")
	sub.DateOfPassing = value("dateOfPassing")
	sub.CreatorName = value("creatorName")
	sub.Relationship = value("relationship")
	sub.Story = value("story")
	sub.Personality = value("personality")
	sub.Values = value("values")
	sub.Beliefs = value("beliefs")
	sub.CoverPhoto = uploadFrom(form.File["coverPhoto"])
	sub.HonoureePhoto = uploadFrom(form.File["honoureePhoto"])

	for key, target := range memorialFields(&sub.Memorial) {
		*target = value(key)
	}

	collections := map[string]indexed{
		"mediaItems":    {},
		"events":        {},
		"relationships": {},
		"insights":      {},
	}
	mediaFiles := map[int]*legacy.Upload{}
	invalid := map[string]string{}

	for key, values := range form.Value {
		collection, index, field, ok := parseIndexedKey(key)
		if !ok || len(values) == 0 {
			continue
		}
		if index >= maxCollectionItems {
			invalid[key] = "too many items"
			continue
		}
		collections[collection].set(index, field, values[0])
	}

	for key, headers := range form.File {
		collection, index, field, ok := parseIndexedKey(key)
		if !ok || collection != "mediaItems" || field != "file" {
			continue
		}
		if index >= maxCollectionItems {
			invalid[key] = "too many items"
			continue
		}
		if upload := uploadFrom(headers); upload != nil {
			mediaFiles[index] = upload
			collections[collection].set(index, field, upload.Filename)
		}
	}

	if len(invalid) > 0 {
		return sub, &legacy.ValidationError{Fields: invalid}
	}

	media := collections["mediaItems"]
	for _, index := range sortedIndices(media) {
		fields := media[index]
		sub.MediaItems = append(sub.MediaItems, legacy.MediaSubmission{
			Kind:        legacy.MediaKind(fields["type"]),
			File:        mediaFiles[index],
			URL:         fields["url"],
			DateTaken:   fields["dateTaken"],
			Location:    fields["location"],
			Description: fields["description"],
		})
	}

	events := collections["events"]
	for _, index := range sortedIndices(events) {
		fields := events[index]
		sub.Events = append(sub.Events, legacy.EventSubmission{
			Name:        fields["name"],
			Date:        fields["date"],
			Time:        fields["time"],
			RSVPBy:      fields["rsvpBy"],
			Location:    fields["location"],
			Description: fields["description"],
			Message:     fields["message"],
		})
	}

	relationships := collections["relationships"]
	for _, index := range sortedIndices(relationships) {
		fields := relationships[index]
		sub.Relationships = append(sub.Relationships, legacy.RelationshipSubmission{
			Type:       fields["type"],
			CustomType: fields["customType"],
			Name:       fields["name"],
		})
	}

	insights := collections["insights"]
	for _, index := range sortedIndices(insights) {
		sub.Insights = append(sub.Insights, legacy.InsightSubmission{
			Message: insights[index]["message"],
		})
	}

	return sub, nil
}

func parseIndexedKey(key string) (collection string, index int, field string, ok bool) {
	match := indexedFieldPattern.FindStringSubmatch(key)
	if match == nil {
		return "", 0, "", false
	}

	index, err := strconv.Atoi(match[2])
	if err != nil {
		// Digits that overflow int are treated as an out-of-range index.
		return match[1], maxCollectionItems, match[3], true
	}

	return match[1], index, match[3], true
}

func sortedIndices(c indexed) []int {
	indices := make([]int, 0, len(c))
	for index := range c {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return indices
}

// uploadFrom returns nil for a missing part or the empty part browsers send
// when no file was chosen.
func uploadFrom(headers []*multipart.FileHeader) *legacy.Upload {
	if len(headers) == 0 || headers[0] == nil {
		return nil
	}

	header := headers[0]
	if header.Size == 0 && header.Filename == "" {
		return nil
	}

	return &legacy.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}

func memorialFields(m *legacy.MemorialSubmission) map[string]*string {
	return map[string]*string{
		"funeralDate":          &m.FuneralDate,
		"funeralTime":          &m.FuneralTime,
		"funeralLocation":      &m.FuneralLocation,
		"funeralNotes":         &m.FuneralNotes,
		"serviceDate":          &m.ServiceDate,
		"serviceTime":          &m.ServiceTime,
		"serviceLocation":      &m.ServiceLocation,
		"serviceNotes":         &m.ServiceNotes,
		"viewingDate":          &m.ViewingDate,
		"viewingTime":          &m.ViewingTime,
		"viewingLocation":      &m.ViewingLocation,
		"viewingNotes":         &m.ViewingNotes,
		"processionDate":       &m.ProcessionDate,
		"processionTime":       &m.ProcessionTime,
		"processionLocation":   &m.ProcessionLocation,
		"processionNotes":      &m.ProcessionNotes,
		"restingPlaceName":     &m.RestingPlaceName,
		"restingPlaceLocation": &m.RestingPlaceLocation,
		"restingPlaceNotes":    &m.RestingPlaceNotes,
		"eulogy":               &m.Eulogy,
		"tribute":              &m.Tribute,
	}
}
