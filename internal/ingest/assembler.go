package ingest

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/pulsewire/ingest/internal/enhancer"
	"github.com/pulsewire/ingest/internal/newsapi"
	"github.com/pulsewire/ingest/internal/store"
	"github.com/pulsewire/ingest/pkg/htmltext"
)

// AuthorName is the fixed attribution on generated articles.
const AuthorName = "Pulsewire Editorial"

const (
	genericTag  = "tech"
	minTags     = 3
	slugMaxLen  = 60
	wordsPerMin = 200
)

var (
	slugStrip     = regexp.MustCompile(`[^a-z0-9\s]`)
	slugHyphenate = regexp.MustCompile(`\s+`)
)

// Slugify derives a URL-safe slug from a title: lowercased, punctuation
// stripped, whitespace hyphenated, truncated to 60 characters, plus a
// random 0-999 suffix to reduce collision risk.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStrip.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugHyphenate.ReplaceAllString(s, "-")
	if len(s) > slugMaxLen {
		s = strings.TrimRight(s[:slugMaxLen], "-")
	}
	return fmt.Sprintf("%s-%d", s, rand.Intn(1000))
}

// DeriveTags builds the tag set for an article: category keywords that
// literally appear in title+description, the category itself, and a
// generic "tech" tag when fewer than three tags were found. The result
// is never empty.
func DeriveTags(category, title, description string) []string {
	text := strings.ToLower(title + " " + description)

	var tags []string
	seen := map[string]bool{}
	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	for _, kw := range Keywords(category) {
		if strings.Contains(text, kw) {
			add(kw)
		}
	}
	add(category)
	if len(tags) < minTags {
		add(genericTag)
	}

	return tags
}

// ReadingTime estimates minutes to read the given HTML content at 200
// words per minute, rounded up, never below 1.
func ReadingTime(content string) int {
	words := htmltext.WordCount(content)
	minutes := (words + wordsPerMin - 1) / wordsPerMin
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Assembler folds a raw item and its enhanced content into a storable
// article record.
type Assembler struct {
	placeholderCover string
}

// NewAssembler creates an Assembler. placeholderCover is the cover image
// URL used for items without an image.
func NewAssembler(placeholderCover string) *Assembler {
	return &Assembler{placeholderCover: placeholderCover}
}

// Assemble builds the article record for one processed item.
func (a *Assembler) Assemble(item newsapi.Item, enhanced enhancer.Result, category string) store.Article {
	cover := item.Image
	if cover == "" {
		cover = a.placeholderCover
	}

	return store.Article{
		Title:         item.Title,
		Summary:       enhanced.Summary,
		Content:       enhanced.Content,
		CoverImageURL: cover,
		SourceURL:     item.URL,
		Category:      category,
		Visible:       true,
		Tags:          DeriveTags(category, item.Title, item.Description),
		ReadingTime:   ReadingTime(enhanced.Content),
		Author:        AuthorName,
		Slug:          Slugify(item.Title),
	}
}
