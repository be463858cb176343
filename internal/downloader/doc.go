// Package downloader orchestrates a WASAPI retrieval run.
//
// A run logs in when credentials are configured, pages through the webdata
// response, groups the listed files by crawl and retrieves them one at a
// time through the retriever package. Validated files are optionally copied
// to an object store mirror.
//
// # Usage
//
//	d := downloader.New(client, afero.NewOsFs(), log, downloader.Options{
//	    BaseURL:       "https://partner.archive-it.org/wasapi/v1/",
//	    Query:         wasapi.Query{Collection: "5425"},
//	    OutputBaseDir: "/data/warcs/",
//	})
//	summary, err := d.Run(ctx)
//
// Per-file failures never abort a run; they are counted in the Summary.
// Plan performs the metadata part alone, for dry runs.
//
// # Graceful Shutdown
//
// Cancelling the context aborts the request in flight and stops the run
// before the next file.
package downloader
