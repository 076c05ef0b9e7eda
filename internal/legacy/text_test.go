package legacy

import "testing"

func TestPlainText(t *testing.T) {
	t.Parallel()

	got := PlainText("<p>She loved <b>gardens</b></p><script>alert(1)</script>\n\n and   roses")
	if got != "She loved gardens and roses" {
		t.Fatalf("unexpected plain text %q", got)
	}

	if PlainText("   ") != "" {
		t.Fatalf("expected empty plain text for blank input")
	}
}

func TestExcerpt(t *testing.T) {
	t.Parallel()

	if got := Excerpt("short story", 50); got != "short story" {
		t.Fatalf("expected untouched excerpt, got %q", got)
	}

	got := Excerpt("Jane spent every spring planting tulips along the lane", 30)
	if got != "Jane spent every spring…" {
		t.Fatalf("unexpected excerpt %q", got)
	}
}
