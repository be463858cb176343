// Package wasapi models the WASAPI webdata endpoint: the file records it
// returns, the query that selects them, paging through the response, and
// grouping the accumulated records by crawl.
//
// # Usage
//
//	q := wasapi.Query{Collection: "5425", CrawlStartAfter: "2017-01-01"}
//	pages, err := wasapi.NewPager(client, logger).FetchAll(ctx, q.RequestURL(baseURL))
//
//	sel := wasapi.NewCrawlSelector(pages)
//	for _, id := range sel.SelectedCrawlIDs(0) {
//	    for _, f := range sel.FilesForCrawl(id) {
//	        // retrieve f
//	    }
//	}
package wasapi
