package http

import (
	"mime/multipart"
	"net/textproto"
	"testing"

	"legacypages/app/internal/legacy"
)

func TestDecodeSubmissionClosesIndexGaps(t *testing.T) {
	t.Parallel()

	form := &multipart.Form{
		Value: map[string][]string{
			"relationships[7][name]": {"Carol"},
			"relationships[7][type]": {"Friend of"},
			"relationships[2][name]": {"Bob"},
			"relationships[2][type]": {"Sibling of"},
			"eulogy":                 {"Remembered fondly."},
			"restingPlaceName":       {"Hillside"},
			"unrelated[0]":           {"ignored"},
		},
	}

	sub, err := decodeSubmission(form)
	if err != nil {
		t.Fatalf("decodeSubmission returned error: %v", err)
	}

	if len(sub.Relationships) != 2 {
		t.Fatalf("expected two relationships, got %+v", sub.Relationships)
	}
	if sub.Relationships[0].Name != "Bob" || sub.Relationships[1].Name != "Carol" {
		t.Fatalf("expected relationships ordered by index, got %+v", sub.Relationships)
	}
	if sub.Memorial.Eulogy != "Remembered fondly." || sub.Memorial.RestingPlaceName != "Hillside" {
		t.Fatalf("expected memorial fields, got %+v", sub.Memorial)
	}
	if sub.MediaItems != nil || sub.Events != nil || sub.Insights != nil {
		t.Fatalf("expected absent collections to stay nil, got %+v", sub)
	}
}

func TestDecodeSubmissionIgnoresEmptyFileParts(t *testing.T) {
	t.Parallel()

	emptyHeader := &multipart.FileHeader{Header: textproto.MIMEHeader{}}
	form := &multipart.Form{
		Value: map[string][]string{
			"mediaItems[0][type]": {"image"},
			"mediaItems[0][url]":  {"/uploads/media/1-a-lake.jpg"},
		},
		File: map[string][]*multipart.FileHeader{
			"coverPhoto":          {emptyHeader},
			"mediaItems[0][file]": {emptyHeader},
		},
	}

	sub, err := decodeSubmission(form)
	if err != nil {
		t.Fatalf("decodeSubmission returned error: %v", err)
	}

	if sub.CoverPhoto != nil {
		t.Fatalf("expected empty cover part to be ignored")
	}
	if len(sub.MediaItems) != 1 || sub.MediaItems[0].File != nil {
		t.Fatalf("expected one retained media item without a file, got %+v", sub.MediaItems)
	}
	if sub.MediaItems[0].URL != "/uploads/media/1-a-lake.jpg" || sub.MediaItems[0].Kind != legacy.MediaImage {
		t.Fatalf("unexpected media item: %+v", sub.MediaItems[0])
	}
}

func TestDecodeSubmissionRejectsHugeIndices(t *testing.T) {
	t.Parallel()

	form := &multipart.Form{
		Value: map[string][]string{
			"insights[99999999999999999999][message]": {"overflow"},
		},
	}

	_, err := decodeSubmission(form)
	verr, ok := legacy.AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["insights[99999999999999999999][message]"]; !ok {
		t.Fatalf("expected offending key to be reported, got %+v", verr.Fields)
	}
}
