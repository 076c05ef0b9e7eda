package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Layout wraps content in the shared document shell.
func Layout(title, description string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var b strings.Builder
		b.WriteString("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		b.WriteString("<title>" + templ.EscapeString(title) + "</title>")
		if description != "" {
			b.WriteString("<meta name=\"description\" content=\"" + templ.EscapeString(description) + "\">")
		}
		b.WriteString("</head><body><main>")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}

		if err := content.Render(ctx, w); err != nil {
			return err
		}

		_, err := io.WriteString(w, "</main><footer><p>"+templ.EscapeString(SiteName)+"</p></footer></body></html>")
		return err
	})
}

// ErrorPage renders a status page.
func ErrorPage(data ErrorPageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<section class=\"error\">")
		writeElement(&b, "h1", data.StatusLabel)
		writeElement(&b, "p", data.Message)
		b.WriteString("<p><a href=\"/\">Return home</a></p></section>")
		_, err := io.WriteString(w, b.String())
		return err
	})

	return Layout(data.Title+" • "+SiteName, "", body)
}

// LegacyPage renders the public view of a page and its dependents.
func LegacyPage(data LegacyPageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString("<article class=\"legacy-page\">")
		if data.CoverPhoto != "" {
			writeImage(&b, "cover-photo", data.CoverPhoto, "Cover photo for "+data.HonoureeName)
		}

		b.WriteString("<header>")
		if data.HonoureePhoto != "" {
			writeImage(&b, "honouree-photo", data.HonoureePhoto, data.HonoureeName)
		}
		writeElement(&b, "p", data.KindLabel)
		writeElement(&b, "h1", "About "+data.HonoureeName)
		if data.Born != "" {
			writeElement(&b, "p", "Born: "+data.Born)
		}
		if data.Passed != "" {
			writeElement(&b, "p", "Passed: "+data.Passed)
		}
		writeElement(&b, "p", data.CreatedBy)
		b.WriteString("</header>")

		if strings.TrimSpace(data.Story) != "" {
			b.WriteString("<section class=\"story\">")
			writeElement(&b, "h2", "Story")
			b.WriteString("<div style=\"white-space: pre-wrap\">" + templ.EscapeString(data.Story) + "</div>")
			b.WriteString("</section>")
		}

		if len(data.Knowledge) > 0 {
			b.WriteString("<section class=\"general-knowledge\">")
			writeElement(&b, "h2", "General Knowledge")
			for _, item := range data.Knowledge {
				writeElement(&b, "h3", item.Label)
				writeElement(&b, "p", item.Text)
			}
			b.WriteString("</section>")
		}

		if len(data.Memorial) > 0 {
			b.WriteString("<section class=\"memorial\">")
			writeElement(&b, "h2", "Memorial")
			for _, section := range data.Memorial {
				writeElement(&b, "h3", section.Heading)
				for _, line := range section.Lines {
					writeElement(&b, "p", line)
				}
				if section.Notes != "" {
					b.WriteString("<p style=\"white-space: pre-wrap\">" + templ.EscapeString(section.Notes) + "</p>")
				}
			}
			b.WriteString("</section>")
		}

		if len(data.Media) > 0 {
			b.WriteString("<section class=\"media\">")
			writeElement(&b, "h2", "Media Gallery")
			for _, item := range data.Media {
				b.WriteString("<figure>")
				writeMedia(&b, item)
				if item.Meta != "" || item.Description != "" {
					b.WriteString("<figcaption>")
					if item.Meta != "" {
						writeElement(&b, "p", item.Meta)
					}
					if item.Description != "" {
						writeElement(&b, "p", item.Description)
					}
					b.WriteString("</figcaption>")
				}
				b.WriteString("</figure>")
			}
			b.WriteString("</section>")
		}

		if len(data.Relationships) > 0 {
			b.WriteString("<section class=\"relationships\">")
			writeElement(&b, "h2", "Relationships")
			b.WriteString("<ul>")
			for _, rel := range data.Relationships {
				writeElement(&b, "li", rel.Label+": "+rel.Text)
			}
			b.WriteString("</ul></section>")
		}

		if len(data.Insights) > 0 {
			b.WriteString("<section class=\"insights\">")
			writeElement(&b, "h2", "Insights")
			for _, message := range data.Insights {
				writeElement(&b, "blockquote", message)
			}
			b.WriteString("</section>")
		}

		if len(data.Events) > 0 {
			b.WriteString("<section class=\"events\">")
			writeElement(&b, "h2", "Events")
			for _, event := range data.Events {
				b.WriteString("<div class=\"event\">")
				writeElement(&b, "h3", event.Name)
				writeElement(&b, "p", event.When)
				if event.Location != "" {
					writeElement(&b, "p", event.Location)
				}
				if event.RSVPBy != "" {
					writeElement(&b, "p", "RSVP by "+event.RSVPBy)
				}
				if event.Description != "" {
					writeElement(&b, "p", event.Description)
				}
				if event.Message != "" {
					writeElement(&b, "blockquote", event.Message)
				}
				b.WriteString("</div>")
			}
			b.WriteString("</section>")
		}

		b.WriteString("</article>")
		_, err := io.WriteString(w, b.String())
		return err
	})

	return Layout(data.Title, data.Description, body)
}

func writeElement(b *strings.Builder, tag, text string) {
	b.WriteString("<" + tag + ">" + templ.EscapeString(text) + "</" + tag + ">")
}

func writeImage(b *strings.Builder, class, src, alt string) {
	b.WriteString("<img class=\"" + class + "\" src=\"" + templ.EscapeString(src) + "\" alt=\"" + templ.EscapeString(alt) + "\">")
}

func writeMedia(b *strings.Builder, item MediaView) {
	src := templ.EscapeString(item.URL)
	switch item.Kind {
	case "video":
		b.WriteString("<video controls src=\"" + src + "\"></video>")
	case "audio":
		b.WriteString("<audio controls src=\"" + src + "\"></audio>")
	default:
		writeImage(b, "media-image", item.URL, item.Description)
	}
}
