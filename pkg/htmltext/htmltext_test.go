package htmltext

import (
	"strings"
	"testing"
)

func TestExtract(t *testing.T) {
	got := Extract("<h2>Funding Round</h2><p>Acme raised <b>$10M</b> today.</p>")
	if !strings.Contains(got, "Funding Round") {
		t.Fatalf("missing heading text: %q", got)
	}
	if !strings.Contains(got, "$10M") {
		t.Fatalf("missing inline text: %q", got)
	}
	if strings.Contains(got, "<p>") {
		t.Fatalf("tags leaked through: %q", got)
	}
}

func TestExtract_SkipsScript(t *testing.T) {
	got := Extract(`<p>visible</p><script>var hidden = 1;</script>`)
	if strings.Contains(got, "hidden") {
		t.Fatalf("script content leaked: %q", got)
	}
}

func TestWordCount(t *testing.T) {
	words := make([]string, 400)
	for i := range words {
		words[i] = "word"
	}
	fragment := "<p>" + strings.Join(words, " ") + "</p>"

	if n := WordCount(fragment); n != 400 {
		t.Fatalf("expected 400 words, got %d", n)
	}
}

func TestWordCount_Empty(t *testing.T) {
	if n := WordCount(""); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}
