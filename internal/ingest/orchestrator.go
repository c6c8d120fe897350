// Package ingest drives the content ingestion pipeline: per category,
// fetch candidate news items, enhance them into long-form articles, and
// persist the results with full run bookkeeping.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/pulsewire/ingest/internal/enhancer"
	"github.com/pulsewire/ingest/internal/newsapi"
	"github.com/pulsewire/ingest/internal/store"
)

const (
	// DefaultArticlesPerCategory is the item count per category when the
	// orchestrator fans out across all categories.
	DefaultArticlesPerCategory = 3

	// DefaultArticlesDirect is the item count for a direct single-category
	// invocation.
	DefaultArticlesDirect = 5
)

// Params configures one category ingestion run.
type Params struct {
	Query          string
	Category       string
	ArticlesNeeded int
	UseAI          bool
}

// Summary is the aggregate result of a fan-out run.
type Summary struct {
	Success           bool      `json:"success"`
	ArticlesGenerated int       `json:"articlesGenerated"`
	ErrorsEncountered int       `json:"errorsEncountered"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewsSource fetches candidate items for a query.
type NewsSource interface {
	Search(ctx context.Context, query string, max int) ([]newsapi.Item, error)
}

// ContentEnhancer turns a raw item into article content plus summary.
// Implementations degrade internally and never fail an item.
type ContentEnhancer interface {
	Enhance(ctx context.Context, title, description, category string) enhancer.Result
}

// Gateway is the persistence surface the orchestrator writes through.
type Gateway interface {
	CreateRun(ctx context.Context, query string) (*store.Run, error)
	MarkFetched(ctx context.Context, runID string, itemCount int) error
	CompleteRun(ctx context.Context, runID string, status store.RunStatus, articles int, message string) error
	InsertArticle(ctx context.Context, a store.Article) error
}

// Sink is the best-effort error log channel. Implementations must not
// return errors or panic; they swallow their own failures.
type Sink interface {
	Error(ctx context.Context, message string, details map[string]any)
}

// Orchestrator runs the ingestion pipeline. Categories are processed
// sequentially; outbound call pacing lives in the news and LLM clients,
// which share a token-bucket limiter.
type Orchestrator struct {
	source    NewsSource
	enhancer  ContentEnhancer
	gateway   Gateway
	sink      Sink
	assembler *Assembler
	logger    *slog.Logger
}

// NewOrchestrator wires the pipeline components.
func NewOrchestrator(source NewsSource, enh ContentEnhancer, gateway Gateway, sink Sink, assembler *Assembler) *Orchestrator {
	return &Orchestrator{
		source:    source,
		enhancer:  enh,
		gateway:   gateway,
		sink:      sink,
		assembler: assembler,
		logger:    slog.Default(),
	}
}

// RunAll processes every category in declared order. A failing category
// is counted and the loop continues; the run as a whole never aborts.
func (o *Orchestrator) RunAll(ctx context.Context) Summary {
	summary := Summary{Success: true}

	for _, category := range Categories {
		n, err := o.RunCategory(ctx, Params{
			Query:          DefaultQuery(category),
			Category:       category,
			ArticlesNeeded: DefaultArticlesPerCategory,
			UseAI:          true,
		})
		summary.ArticlesGenerated += n
		if err != nil {
			summary.ErrorsEncountered++
			o.logger.Error("category ingestion failed", "category", category, "error", err)
			continue
		}
		o.logger.Info("category ingestion complete", "category", category, "articles", n)
	}

	summary.Timestamp = time.Now().UTC()
	o.logger.Info("ingestion run complete",
		"articles", summary.ArticlesGenerated,
		"errors", summary.ErrorsEncountered)
	return summary
}

// RunCategory runs the fetch-and-generate unit for one category and
// returns the number of articles inserted. Failures are recorded both on
// the run record and through the error sink before being returned; the
// two channels are independent.
func (o *Orchestrator) RunCategory(ctx context.Context, p Params) (int, error) {
	if p.Category == "" {
		return 0, fmt.Errorf("category is required")
	}
	if p.Query == "" {
		p.Query = DefaultQuery(p.Category)
	}
	if p.ArticlesNeeded <= 0 {
		p.ArticlesNeeded = DefaultArticlesDirect
	}

	inserted, err := o.runCategory(ctx, p)
	if err != nil {
		o.sink.Error(ctx, err.Error(), map[string]any{
			"category": p.Category,
			"query":    p.Query,
			"stack":    string(debug.Stack()),
			"time":     time.Now().UTC().Format(time.RFC3339),
		})
		return inserted, err
	}
	return inserted, nil
}

func (o *Orchestrator) runCategory(ctx context.Context, p Params) (int, error) {
	run, err := o.gateway.CreateRun(ctx, p.Query)
	if err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}

	items, err := o.source.Search(ctx, p.Query, p.ArticlesNeeded)
	if err != nil {
		o.completeBestEffort(ctx, run.ID, store.StatusError, 0, err.Error())
		return 0, fmt.Errorf("fetch news for %s: %w", p.Category, err)
	}

	if err := o.gateway.MarkFetched(ctx, run.ID, len(items)); err != nil {
		// Bookkeeping only; item processing continues.
		o.logger.Warn("failed to mark run fetched", "run", run.ID, "error", err)
	}

	inserted, failed := 0, 0
	for _, item := range items {
		var result enhancer.Result
		if p.UseAI {
			result = o.enhancer.Enhance(ctx, item.Title, item.Description, p.Category)
		} else {
			result = enhancer.Raw(item.Title, item.Description)
		}

		article := o.assembler.Assemble(item, result, p.Category)
		if err := o.insertArticle(ctx, article, item.Title); err != nil {
			failed++
			o.logger.Error("article insert failed", "category", p.Category, "title", item.Title, "error", err)
			continue
		}
		inserted++
	}

	status := store.StatusCompleted
	message := ""
	switch {
	case failed > 0 && inserted == 0 && len(items) > 0:
		status = store.StatusError
		message = fmt.Sprintf("all %d article inserts failed", failed)
	case failed > 0:
		status = store.StatusPartialSuccess
		message = fmt.Sprintf("%d of %d article inserts failed", failed, len(items))
	}

	if err := o.gateway.CompleteRun(ctx, run.ID, status, inserted, message); err != nil {
		o.logger.Error("failed to record run completion", "run", run.ID, "status", status, "error", err)
	}

	if status == store.StatusError {
		return inserted, fmt.Errorf("persist articles for %s: %s", p.Category, message)
	}
	return inserted, nil
}

// insertArticle retries once with a fresh slug on a uniqueness conflict.
func (o *Orchestrator) insertArticle(ctx context.Context, article store.Article, title string) error {
	err := o.gateway.InsertArticle(ctx, article)
	if errors.Is(err, store.ErrDuplicateSlug) {
		article.Slug = Slugify(title)
		err = o.gateway.InsertArticle(ctx, article)
	}
	return err
}

func (o *Orchestrator) completeBestEffort(ctx context.Context, runID string, status store.RunStatus, articles int, message string) {
	if err := o.gateway.CompleteRun(ctx, runID, status, articles, message); err != nil {
		o.logger.Error("failed to record run status", "run", runID, "status", status, "error", err)
	}
}
