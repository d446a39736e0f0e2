// Package feedimport seeds the catalog from RSS/Atom feeds.
package feedimport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/TobiSchelling/catalog/internal/articles"
	"github.com/TobiSchelling/catalog/internal/catalog"
)

const maxPerFeed = 50

// Inserter runs the insert flow for one article.
type Inserter interface {
	Insert(ctx context.Context, a articles.NewArticle) catalog.Outcome
}

// Summary counts what happened to each feed entry.
type Summary struct {
	Found    int
	Inserted int
	Skipped  int
	Failed   int
}

// Importer turns feed entries into catalog articles.
type Importer struct {
	inserter Inserter
	parser   *gofeed.Parser
	excerpts *ExcerptFetcher
	logger   *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithExcerpts fills in missing descriptions from the linked page.
func WithExcerpts(f *ExcerptFetcher) Option {
	return func(i *Importer) { i.excerpts = f }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Importer) { i.logger = l }
}

// WithHTTPClient sets the client used to download feeds.
func WithHTTPClient(hc *http.Client) Option {
	return func(i *Importer) { i.parser.Client = hc }
}

// New creates an Importer that inserts through inserter.
func New(inserter Inserter, opts ...Option) *Importer {
	i := &Importer{
		inserter: inserter,
		parser:   gofeed.NewParser(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import downloads feedURL and inserts up to maxPerFeed entries. Entries that
// end up without a title or description are skipped by validation.
func (i *Importer) Import(ctx context.Context, feedURL string) (*Summary, error) {
	feed, err := i.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	items := feed.Items
	if len(items) > maxPerFeed {
		items = items[:maxPerFeed]
	}

	summary := &Summary{Found: len(items)}
	for _, item := range items {
		a := i.toArticle(ctx, item)
		if err := a.Validate(); err != nil {
			i.logger.Debug("skipping entry", zap.String("link", item.Link), zap.Error(err))
			summary.Skipped++
			continue
		}

		out := i.inserter.Insert(ctx, a)
		if out.OK() {
			summary.Inserted++
		} else {
			summary.Failed++
		}
	}

	i.logger.Info("feed imported",
		zap.String("feed", feedURL),
		zap.Int("inserted", summary.Inserted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (i *Importer) toArticle(ctx context.Context, item *gofeed.Item) articles.NewArticle {
	description := strings.TrimSpace(item.Description)
	if description == "" && i.excerpts != nil && item.Link != "" {
		excerpt, err := i.excerpts.Excerpt(ctx, item.Link)
		if err != nil {
			i.logger.Debug("fetching excerpt", zap.String("link", item.Link), zap.Error(err))
		}
		description = excerpt
	}
	if description != "" && item.Link != "" {
		description += "\n\n" + item.Link
	}

	return articles.NewArticle{
		Title:       strings.TrimSpace(item.Title),
		Description: description,
	}
}

// ExcerptFetcher extracts a short summary from an article page.
type ExcerptFetcher struct {
	client *http.Client
}

// NewExcerptFetcher creates a fetcher with the given timeout.
func NewExcerptFetcher(timeout time.Duration) *ExcerptFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ExcerptFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}
