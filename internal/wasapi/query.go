package wasapi

import (
	"net/url"
	"strings"
)

// Query holds the file selection criteria sent to the webdata endpoint.
// Empty fields are omitted.
type Query struct {
	Collection       string
	JobID            string
	CrawlStartAfter  string
	CrawlStartBefore string
	Filename         string
}

// Params returns the query parameters in request order. A filename selects
// a single file and overrides every other criterion.
func (q Query) Params() []string {
	if q.Filename != "" {
		return []string{"filename=" + url.QueryEscape(q.Filename)}
	}

	var params []string
	if q.Collection != "" {
		params = append(params, "collection="+url.QueryEscape(q.Collection))
	}
	if q.CrawlStartAfter != "" {
		params = append(params, "crawl-start-after="+url.QueryEscape(q.CrawlStartAfter))
	}
	if q.CrawlStartBefore != "" {
		params = append(params, "crawl-start-before="+url.QueryEscape(q.CrawlStartBefore))
	}
	if q.JobID != "" {
		params = append(params, "crawl="+url.QueryEscape(q.JobID))
	}
	return params
}

// RequestURL builds the webdata request for baseURL, which is expected to
// end with a slash.
func (q Query) RequestURL(baseURL string) string {
	return baseURL + "webdata?" + strings.Join(q.Params(), "&")
}
