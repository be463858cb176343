package wasapi

import (
	"context"
	"fmt"
	"log/slog"
)

// JSONGetter fetches and decodes a JSON document.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Pager follows the "next" links of a paginated webdata response.
type Pager struct {
	client JSONGetter
	log    *slog.Logger

	// OnPage, if set, is called after each page is fetched.
	OnPage func(url string, page *Page)
}

// NewPager creates a Pager issuing requests through client.
func NewPager(client JSONGetter, log *slog.Logger) *Pager {
	return &Pager{client: client, log: log}
}

// FetchAll requests url and every page it links to, returning the pages in
// fetch order. A null or empty first response yields no pages and no error.
// Paging stops at the first page without a next link, at an empty response,
// or when a next link points back to a page already fetched.
func (p *Pager) FetchAll(ctx context.Context, url string) ([]*Page, error) {
	var pages []*Page
	seen := make(map[string]bool)

	for url != "" {
		if seen[url] {
			p.log.Warn("metadata pagination loops, stopping", slog.String("url", url))
			break
		}
		seen[url] = true

		var page *Page
		if err := p.client.GetJSON(ctx, url, &page); err != nil {
			return nil, fmt.Errorf("wasapi: fetch page %d: %w", len(pages)+1, err)
		}
		if page == nil {
			break
		}

		p.log.Debug("fetched metadata page",
			slog.String("url", url),
			slog.Int("files", len(page.Files)),
			slog.Int("count", page.Count))
		if p.OnPage != nil {
			p.OnPage(url, page)
		}

		pages = append(pages, page)
		url = page.Next
	}

	return pages, nil
}
