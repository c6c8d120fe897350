// Package enhancer turns raw news snippets into long-form article
// content plus a short summary via a generative-text backend. It never
// fails an item: rate-limited calls take a simplified retry, and any
// remaining failure degrades to wrapping the raw description.
package enhancer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pulsewire/ingest/pkg/llm"
	"golang.org/x/time/rate"
)

const (
	// FallbackContent is the article body used when enhancement fails
	// and the raw item carried no description.
	FallbackContent = "No content available."

	retryMaxTokens = 1024
)

// Result is the enhanced output for one raw item. Content is always
// non-empty HTML.
type Result struct {
	Content string
	Summary string
}

// Enhancer produces publish-quality content from raw news items.
type Enhancer struct {
	client  llm.Client
	limiter *rate.Limiter
	backoff time.Duration
	logger  *slog.Logger
}

// New creates an Enhancer. backoff is the wait applied before the
// single simplified retry after a rate-limited primary call.
func New(client llm.Client, limiter *rate.Limiter, backoff time.Duration) *Enhancer {
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Enhancer{
		client:  client,
		limiter: limiter,
		backoff: backoff,
		logger:  slog.Default(),
	}
}

// Enhance generates long-form HTML content and a short summary for a
// raw news item. Two upstream calls on the happy path, three when the
// primary call is rate limited.
func (e *Enhancer) Enhance(ctx context.Context, title, description, category string) Result {
	content, err := e.generate(ctx, articlePrompt(title, description, category), 0)
	if err == nil {
		summary, sErr := e.generate(ctx, summaryPrompt(title), 0)
		if sErr != nil {
			e.logger.Warn("summary generation failed, using title", "title", title, "error", sErr)
			summary = title
		}
		return Result{Content: content, Summary: strings.TrimSpace(summary)}
	}

	if llm.IsRateLimit(err) {
		e.logger.Warn("enhancement rate limited, retrying with simplified prompt",
			"title", title, "backoff", e.backoff)
		if waitErr := e.wait(ctx); waitErr == nil {
			content, retryErr := e.generate(ctx, simplifiedPrompt(title, category), retryMaxTokens)
			if retryErr == nil {
				// The summary call is skipped on the degraded path.
				return Result{Content: content, Summary: title}
			}
			err = retryErr
		}
	}

	e.logger.Warn("enhancement failed, falling back to raw description", "title", title, "error", err)
	return Result{Content: wrapDescription(description), Summary: title}
}

func (e *Enhancer) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	resp, err := e.client.Generate(ctx, &llm.Request{Prompt: prompt, MaxTokens: maxTokens})
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", fmt.Errorf("empty generation result")
	}
	return content, nil
}

func (e *Enhancer) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.backoff):
		return nil
	}
}

// Raw builds a Result without calling the generative backend: the
// description wrapped as a paragraph and the title as summary. Used when
// AI enhancement is disabled and as the shared failure fallback.
func Raw(title, description string) Result {
	return Result{Content: wrapDescription(description), Summary: title}
}

func wrapDescription(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		description = FallbackContent
	}
	return "<p>" + description + "</p>"
}

func articlePrompt(title, description, category string) string {
	var sb strings.Builder
	sb.WriteString("Write a detailed, engaging news article of at least 800 words about the following topic for a startup intelligence newsletter.\n\n")
	sb.WriteString("Title: " + title + "\n")
	if strings.TrimSpace(description) != "" {
		sb.WriteString("Context: " + description + "\n")
	}
	sb.WriteString("Category: " + category + "\n\n")
	sb.WriteString("Format the article as HTML: wrap paragraphs in <p> tags and use <h2> tags for section headers. ")
	sb.WriteString("Cover the background, what happened, why it matters for founders and investors, and the likely outlook. ")
	sb.WriteString("Return only the HTML body, no markdown and no preamble.")
	return sb.String()
}

func summaryPrompt(title string) string {
	return fmt.Sprintf("Write an engaging summary of at most 2 sentences for a news article titled %q. Return only the summary text.", title)
}

func simplifiedPrompt(title, category string) string {
	return fmt.Sprintf("Write a short news article in HTML (<p> paragraphs) about %q for the %s category.", title, category)
}
