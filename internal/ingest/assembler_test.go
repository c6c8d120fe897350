package ingest

import (
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/pulsewire/ingest/internal/enhancer"
	"github.com/pulsewire/ingest/internal/newsapi"
)

func TestSlugify(t *testing.T) {
	slug := Slugify("OpenAI Raises $2B!!")
	if !regexp.MustCompile(`^openai-raises-2b-\d{1,3}$`).MatchString(slug) {
		t.Fatalf("unexpected slug: %q", slug)
	}
}

func TestSlugify_Truncates(t *testing.T) {
	title := strings.Repeat("very long startup news title ", 5)
	slug := Slugify(title)

	base := slug[:strings.LastIndex(slug, "-")]
	if len(base) > 60 {
		t.Fatalf("base slug longer than 60 chars: %d (%q)", len(base), base)
	}
	if strings.HasSuffix(base, "-") {
		t.Fatalf("base slug has trailing hyphen: %q", base)
	}
}

func TestSlugify_CollapsesWhitespace(t *testing.T) {
	slug := Slugify("Acme   raises\t$10M")
	if !regexp.MustCompile(`^acme-raises-10m-\d{1,3}$`).MatchString(slug) {
		t.Fatalf("unexpected slug: %q", slug)
	}
}

func TestDeriveTags(t *testing.T) {
	tags := DeriveTags("ai", "New machine learning breakthrough", "")

	for _, want := range []string{"machine learning", "ai", "tech"} {
		if !slices.Contains(tags, want) {
			t.Fatalf("missing tag %q in %v", want, tags)
		}
	}
}

func TestDeriveTags_NeverEmpty(t *testing.T) {
	tags := DeriveTags("unknown-category", "nothing relevant here", "")
	if len(tags) == 0 {
		t.Fatal("tags must never be empty")
	}
	if !slices.Contains(tags, "unknown-category") {
		t.Fatalf("category itself must be tagged: %v", tags)
	}
	if !slices.Contains(tags, "tech") {
		t.Fatalf("expected generic tag padding: %v", tags)
	}
}

func TestDeriveTags_NoDuplicates(t *testing.T) {
	tags := DeriveTags("funding", "Big funding round", "another funding story")
	seen := map[string]bool{}
	for _, tag := range tags {
		if seen[tag] {
			t.Fatalf("duplicate tag %q in %v", tag, tags)
		}
		seen[tag] = true
	}
}

func TestReadingTime(t *testing.T) {
	cases := []struct {
		words int
		want  int
	}{
		{1, 1},
		{199, 1},
		{400, 2},
		{401, 3},
	}
	for _, tc := range cases {
		content := "<p>" + strings.Repeat("word ", tc.words) + "</p>"
		if got := ReadingTime(content); got != tc.want {
			t.Fatalf("%d words: expected %d minutes, got %d", tc.words, tc.want, got)
		}
	}
}

func TestReadingTime_EmptyContentFloorsAtOne(t *testing.T) {
	if got := ReadingTime(""); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestAssemble(t *testing.T) {
	assembler := NewAssembler("https://cdn.pulsewire.io/covers/placeholder.png")

	item := newsapi.Item{
		Title:       "Lab X releases new model",
		Description: "",
		URL:         "https://news.example/lab-x",
	}
	enhanced := enhancer.Result{
		Content: "<p>Long generated article body.</p>",
		Summary: "Lab X releases new model",
	}

	article := assembler.Assemble(item, enhanced, "ai")

	if article.CoverImageURL != "https://cdn.pulsewire.io/covers/placeholder.png" {
		t.Fatalf("expected placeholder cover, got %q", article.CoverImageURL)
	}
	if !article.Visible {
		t.Fatal("articles must default to visible")
	}
	if article.Author != AuthorName {
		t.Fatalf("unexpected author: %q", article.Author)
	}
	if article.ReadingTime < 1 {
		t.Fatalf("reading time below 1: %d", article.ReadingTime)
	}
	if !slices.Contains(article.Tags, "ai") {
		t.Fatalf("category tag missing: %v", article.Tags)
	}
	if article.Content == "" || article.Summary == "" {
		t.Fatal("content and summary must be non-empty")
	}
}

func TestAssemble_KeepsItemImage(t *testing.T) {
	assembler := NewAssembler("https://cdn.pulsewire.io/covers/placeholder.png")
	item := newsapi.Item{Title: "t", Image: "https://img.example/real.jpg", URL: "u"}

	article := assembler.Assemble(item, enhancer.Result{Content: "<p>c</p>", Summary: "s"}, "startups")
	if article.CoverImageURL != "https://img.example/real.jpg" {
		t.Fatalf("item image must win over placeholder: %q", article.CoverImageURL)
	}
}

func TestDefaultQuery(t *testing.T) {
	if q := DefaultQuery("funding"); q != "startup funding round venture capital" {
		t.Fatalf("unexpected query: %q", q)
	}
	if q := DefaultQuery("no-such-category"); q != FallbackQuery {
		t.Fatalf("expected fallback query, got %q", q)
	}
}
