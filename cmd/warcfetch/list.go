package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/ligustah/warcfetch/internal/downloader"
	"github.com/ligustah/warcfetch/internal/progress"
	"github.com/ligustah/warcfetch/internal/retriever"
)

// runList pages through the metadata and prints the crawls and files a
// download would retrieve, without downloading anything.
func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	settings := registerSettings(fs)

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: warcfetch list [options]

Show the crawls and files selected from a WASAPI endpoint and where each
file would be stored. Nothing is downloaded.

Options:`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := settings.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	log := newLogger(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	// Paths are only computed, never written.
	memFs := afero.NewMemMapFs()
	opts := downloaderOptions(cfg)

	plan, err := downloader.New(newClient(cfg), memFs, log, opts).Plan(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return sourceExitCode(err)
	}

	paths := retriever.New(memFs, nil, log, retriever.Options{OutputBaseDir: cfg.OutputBaseDir})

	fmt.Printf("Source: %s\n", plan.RequestURL)
	fmt.Printf("Pages: %d | Records: %d | Crawls: %d | Files: %d | Total size: %s\n",
		plan.Pages, plan.Records, len(plan.CrawlIDs), len(plan.Files), progress.FormatBytes(plan.TotalSize()))

	var crawl int64 = -1
	for _, rec := range plan.Files {
		if rec.Crawl != crawl {
			crawl = rec.Crawl
			fmt.Printf("Crawl %d\n", crawl)
		}
		fmt.Printf("  %s  %s\n", paths.OutputPath(rec), progress.FormatBytes(rec.Size))
	}

	return ExitSuccess
}
