package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"github.com/ligustah/warcfetch/internal/metrics"
	"github.com/ligustah/warcfetch/internal/mirror"
	"github.com/ligustah/warcfetch/internal/progress"
	"github.com/ligustah/warcfetch/internal/retriever"
	"github.com/ligustah/warcfetch/internal/wasapi"
)

// ErrSourceUnavailable wraps failures to log in to or page the metadata
// endpoint.
var ErrSourceUnavailable = errors.New("downloader: metadata source not accessible")

// Client is the transport a run needs.
type Client interface {
	wasapi.JSONGetter
	retriever.Fetcher
	Login(ctx context.Context, authURL, username, password string) error
}

// Options configures a run.
type Options struct {
	// BaseURL is the WASAPI endpoint, ending with a slash.
	BaseURL string

	// AuthURL, Username and Password enable a form login before the first
	// request. Login is skipped when Username is empty.
	AuthURL  string
	Username string
	Password string

	// Query selects the files listed by the webdata endpoint.
	Query wasapi.Query

	// MinJobID drops crawls with a lower id. 0 keeps all.
	MinJobID int64

	// OutputBaseDir is prepended to every output path.
	OutputBaseDir string

	// Algorithm is the checksum used to validate downloads.
	// Default: md5
	Algorithm string

	// Mirror, if set, receives a copy of every validated file.
	Mirror *mirror.Mirror

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Progress, if set, receives human-readable per-file progress.
	Progress io.Writer
}

// Plan is the set of files a run will retrieve.
type Plan struct {
	RequestURL string
	Pages      int
	Records    int
	CrawlIDs   []int64
	Files      []wasapi.FileRecord // in retrieval order
}

// TotalSize returns the sum of the sizes declared for the planned files.
func (p *Plan) TotalSize() int64 {
	var n int64
	for _, f := range p.Files {
		n += f.Size
	}
	return n
}

// Summary reports the outcome of a run.
type Summary struct {
	Plan *Plan

	Succeeded int
	Invalid   int
	Failed    int

	Mirrored      int
	MirrorSkipped int
	MirrorFailed  int

	Results []retriever.Result
}

// OK reports whether every planned file was retrieved, validated and,
// when mirroring, stored.
func (s *Summary) OK() bool {
	return s.Invalid == 0 && s.Failed == 0 && s.MirrorFailed == 0
}

// Downloader runs a retrieval: log in, page the metadata, select crawls and
// retrieve their files one at a time.
type Downloader struct {
	client    Client
	fs        afero.Fs
	log       *slog.Logger
	opts      Options
	retriever *retriever.Retriever
}

// New creates a Downloader writing through fs.
func New(client Client, fs afero.Fs, log *slog.Logger, opts Options) *Downloader {
	if opts.Algorithm == "" {
		opts.Algorithm = retriever.DefaultAlgorithm
	}
	return &Downloader{
		client: client,
		fs:     fs,
		log:    log,
		opts:   opts,
		retriever: retriever.New(fs, client, log, retriever.Options{
			OutputBaseDir: opts.OutputBaseDir,
			Algorithm:     opts.Algorithm,
			Metrics:       opts.Metrics,
		}),
	}
}

// Plan logs in if configured, fetches every metadata page and selects the
// files to retrieve. A null or empty response yields an empty plan.
func (d *Downloader) Plan(ctx context.Context) (*Plan, error) {
	plan := &Plan{RequestURL: d.opts.Query.RequestURL(d.opts.BaseURL)}

	if d.opts.Username != "" {
		if err := d.client.Login(ctx, d.opts.AuthURL, d.opts.Username, d.opts.Password); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		d.log.Debug("logged in", slog.String("auth_url", d.opts.AuthURL), slog.String("username", d.opts.Username))
	}

	pager := wasapi.NewPager(d.client, d.log)
	pager.OnPage = func(string, *wasapi.Page) { d.opts.Metrics.ObservePage() }

	pages, err := pager.FetchAll(ctx, plan.RequestURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	plan.Pages = len(pages)

	selector := wasapi.NewCrawlSelector(pages)
	plan.Records = selector.Len()
	plan.CrawlIDs = selector.SelectedCrawlIDs(d.opts.MinJobID)
	for _, id := range plan.CrawlIDs {
		plan.Files = append(plan.Files, selector.FilesForCrawl(id)...)
	}

	d.log.Info("metadata fetched",
		slog.String("request", plan.RequestURL),
		slog.Int("pages", plan.Pages),
		slog.Int("records", plan.Records),
		slog.Int("crawls", len(plan.CrawlIDs)),
		slog.Int("files", len(plan.Files)))

	return plan, nil
}

// Run plans the retrieval and processes every selected file. Per-file
// failures are recorded in the Summary; the returned error is reserved for
// failures of the run itself, including cancellation.
func (d *Downloader) Run(ctx context.Context) (*Summary, error) {
	plan, err := d.Plan(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Plan: plan}
	if len(plan.Files) == 0 {
		d.log.Info("nothing to do", slog.String("request", plan.RequestURL))
		return summary, nil
	}

	var reporter *progress.Reporter
	if d.opts.Progress != nil {
		reporter = progress.NewReporter(progress.Options{
			TotalFiles: len(plan.Files),
			TotalSize:  plan.TotalSize(),
			Output:     d.opts.Progress,
			Source:     plan.RequestURL,
		})
		reporter.Start()
		defer reporter.Stop()
	}

	for _, rec := range plan.Files {
		if err := ctx.Err(); err != nil {
			d.log.Warn("run interrupted", slog.Int("remaining", len(plan.Files)-len(summary.Results)))
			return summary, err
		}

		if reporter != nil {
			reporter.FileStarted(orNull(rec.Filename))
		}

		res := d.retriever.Retrieve(ctx, rec)
		summary.Results = append(summary.Results, res)

		switch res.Outcome {
		case retriever.OutcomeSucceeded:
			summary.Succeeded++
			if reporter != nil {
				reporter.FileSucceeded(res.Bytes)
			}
			d.mirror(ctx, rec, res.Path, summary)
		case retriever.OutcomeChecksumMismatch:
			summary.Invalid++
			if reporter != nil {
				reporter.FileInvalid()
			}
		default:
			summary.Failed++
			if reporter != nil {
				reporter.FileFailed()
			}
		}
	}

	d.log.Info("run finished",
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("invalid", summary.Invalid),
		slog.Int("failed", summary.Failed),
		slog.Int("mirrored", summary.Mirrored),
		slog.Int("mirror_failed", summary.MirrorFailed))

	return summary, ctx.Err()
}

// mirror copies a validated file to the object store, keyed by its path
// relative to the output base directory.
func (d *Downloader) mirror(ctx context.Context, rec wasapi.FileRecord, path string, summary *Summary) {
	if d.opts.Mirror == nil {
		return
	}

	key := d.opts.Mirror.Key(strings.TrimPrefix(path, d.opts.OutputBaseDir))
	md5Hex, _ := rec.Checksum("md5")

	res, err := d.opts.Mirror.Put(ctx, path, key, md5Hex)
	if err != nil {
		summary.MirrorFailed++
		d.opts.Metrics.ObserveMirror("failed")
		d.log.Error("mirror upload failed", slog.String("path", path), slog.String("key", key), slog.Any("error", err))
		return
	}

	if res == mirror.Skipped {
		summary.MirrorSkipped++
	} else {
		summary.Mirrored++
	}
	d.opts.Metrics.ObserveMirror(res.String())
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}
