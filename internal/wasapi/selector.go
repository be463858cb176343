package wasapi

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// CrawlSelector indexes file records by crawl id. It is built once and is
// read-only afterwards.
type CrawlSelector struct {
	byCrawl map[int64][]FileRecord
	total   int
}

// NewCrawlSelector indexes the records of all pages in fetch order.
func NewCrawlSelector(pages []*Page) *CrawlSelector {
	s := &CrawlSelector{byCrawl: make(map[int64][]FileRecord)}
	for _, page := range pages {
		if page == nil {
			continue
		}
		for _, f := range page.Files {
			s.byCrawl[f.Crawl] = append(s.byCrawl[f.Crawl], f)
			s.total++
		}
	}
	return s
}

// Len returns the number of indexed records.
func (s *CrawlSelector) Len() int {
	return s.total
}

// SelectedCrawlIDs returns the distinct crawl ids that are >= minJobID in
// ascending order. A minJobID of 0 selects every crawl.
func (s *CrawlSelector) SelectedCrawlIDs(minJobID int64) []int64 {
	ids := slices.Sorted(maps.Keys(s.byCrawl))
	return slices.DeleteFunc(ids, func(id int64) bool {
		return id < minJobID
	})
}

// FilesForCrawl returns the records of crawl id in the order they were
// fetched. Unknown ids yield an empty slice.
func (s *CrawlSelector) FilesForCrawl(id int64) []FileRecord {
	return slices.Clone(s.byCrawl[id])
}

// ParseJobIDLowerBound parses the lower bound for crawl selection. Empty or
// unparseable input selects every crawl.
func ParseJobIDLowerBound(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
