package retriever

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/ligustah/warcfetch/internal/checksum"
	wasapihttp "github.com/ligustah/warcfetch/internal/http"
	"github.com/ligustah/warcfetch/internal/metrics"
	"github.com/ligustah/warcfetch/internal/wasapi"
)

const (
	// NumRetries is the number of download attempts after the first one.
	NumRetries = 3

	// MaxAttempts is the total download budget for one file.
	MaxAttempts = NumRetries + 1

	// DefaultAlgorithm is the checksum used when Options.Algorithm is empty.
	DefaultAlgorithm = "md5"
)

const sep = string(filepath.Separator)

// Fetcher downloads a URL into w.
type Fetcher interface {
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Outcome is the final state of one file.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeChecksumMismatch
	OutcomeDownloadFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeChecksumMismatch:
		return "checksum_mismatch"
	case OutcomeDownloadFailed:
		return "download_failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes how the retrieval of one file ended.
type Result struct {
	URL      string
	Path     string
	Outcome  Outcome
	Attempts int   // download attempts made
	Fatal    bool  // retrying was aborted by a non-retryable error
	Bytes    int64 // size of the last successful transfer
	Err      error // last download error, if any
}

// Options configures a Retriever.
type Options struct {
	// OutputBaseDir is prepended verbatim to every output path and is
	// expected to end with a path separator.
	OutputBaseDir string

	// Algorithm is the checksum used to validate downloads.
	// Default: md5
	Algorithm string

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Retriever downloads and validates single WARC files.
type Retriever struct {
	fs       afero.Fs
	fetcher  Fetcher
	verifier *checksum.Verifier
	log      *slog.Logger
	opts     Options
}

// New creates a Retriever writing through fs and downloading with fetcher.
func New(fs afero.Fs, fetcher Fetcher, log *slog.Logger, opts Options) *Retriever {
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}
	return &Retriever{
		fs:       fs,
		fetcher:  fetcher,
		verifier: checksum.NewVerifier(fs, log),
		log:      log,
		opts:     opts,
	}
}

// OutputPath returns where rec is stored:
// <base>AIT_<collection>/<crawl>/<crawl-start>/<filename>. Missing ids
// render as 0 and missing strings as "null".
func (r *Retriever) OutputPath(rec wasapi.FileRecord) string {
	return r.opts.OutputBaseDir + "AIT_" + strconv.FormatInt(rec.Collection, 10) +
		sep + strconv.FormatInt(rec.Crawl, 10) +
		sep + orNull(rec.CrawlStart) +
		sep + orNull(rec.Filename)
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

type attemptKind int

const (
	attemptOK attemptKind = iota
	attemptTransient
	attemptFatal
)

// Retrieve downloads rec to its output path and validates it, retrying
// transient failures and checksum mismatches up to MaxAttempts downloads.
// Failures are logged and reported in the Result, never returned.
func (r *Retriever) Retrieve(ctx context.Context, rec wasapi.FileRecord) Result {
	start := time.Now()
	res := r.retrieve(ctx, rec)
	r.opts.Metrics.ObserveFile(res.Outcome.String(), time.Since(start))
	return res
}

func (r *Retriever) retrieve(ctx context.Context, rec wasapi.FileRecord) Result {
	res := Result{
		URL:     rec.Location(),
		Path:    r.OutputPath(rec),
		Outcome: OutcomeDownloadFailed,
	}
	log := r.log.With(slog.String("url", res.URL), slog.String("path", res.Path))

	if res.URL == "" {
		res.Fatal = true
		res.Err = errors.New("record has no download location")
		log.Error("file not retrieved (will not retry)", slog.Any("error", res.Err))
		return res
	}

	if err := r.fs.MkdirAll(filepath.Dir(res.Path), 0755); err != nil {
		res.Fatal = true
		res.Err = fmt.Errorf("create output directory: %w", err)
		log.Error("file not retrieved (will not retry)", slog.Any("error", res.Err))
		return res
	}

	var validated, invalid bool
	for res.Attempts < MaxAttempts && !validated && !res.Fatal {
		res.Attempts++

		kind, n, err := r.attempt(ctx, res.URL, res.Path)
		switch kind {
		case attemptFatal:
			res.Fatal = true
			res.Err = err
			r.opts.Metrics.ObserveAttempt("fatal", 0)
			log.Error("error downloading file (will not retry)",
				slog.Int("attempt", res.Attempts), slog.Any("error", err))

		case attemptTransient:
			res.Err = err
			invalid = false
			r.opts.Metrics.ObserveAttempt("transient", 0)
			log.Warn("error downloading file (will retry)",
				slog.Int("attempt", res.Attempts), slog.Any("error", err))

		case attemptOK:
			res.Bytes = n
			ok, err := r.validate(rec, res.Path)
			switch {
			case err != nil:
				res.Err = err
				invalid = false
				r.opts.Metrics.ObserveAttempt("transient", n)
				log.Warn("error reading downloaded file (will retry)",
					slog.Int("attempt", res.Attempts), slog.Any("error", err))
			case ok:
				res.Err = nil
				validated = true
				r.opts.Metrics.ObserveAttempt("ok", n)
			default:
				res.Err = nil
				invalid = true
				r.opts.Metrics.ObserveAttempt("invalid", n)
				log.Warn("checksum mismatch (will retry)", slog.Int("attempt", res.Attempts))
			}
		}
	}

	switch {
	case validated:
		res.Outcome = OutcomeSucceeded
		log.Info("file retrieved successfully", slog.Int("attempts", res.Attempts), slog.Int64("bytes", res.Bytes))
	case res.Fatal:
		log.Error("file not retrieved (will not retry)", slog.Int("attempts", res.Attempts), slog.Any("error", res.Err))
	case invalid:
		res.Outcome = OutcomeChecksumMismatch
		log.Error("file has invalid checksum", slog.Int("attempts", res.Attempts))
	default:
		log.Error("file not retrieved after retries", slog.Int("attempts", res.Attempts), slog.Any("error", res.Err))
	}

	return res
}

// attempt performs one download into path and classifies the result.
func (r *Retriever) attempt(ctx context.Context, url, path string) (attemptKind, int64, error) {
	f, err := r.fs.Create(path)
	if err != nil {
		return attemptTransient, 0, fmt.Errorf("create %s: %w", path, err)
	}

	n, err := r.fetcher.Download(ctx, url, f)
	closeErr := f.Close()
	if err != nil {
		return classify(ctx, err), n, err
	}
	if closeErr != nil {
		return attemptTransient, n, fmt.Errorf("close %s: %w", path, closeErr)
	}
	return attemptOK, n, nil
}

// classify decides whether a download error is worth retrying. Explicit
// HTTP error statuses, protocol errors and cancellation of ctx are final.
// Timeouts of the HTTP client itself also match context.DeadlineExceeded,
// so cancellation is read from ctx rather than from err.
func classify(ctx context.Context, err error) attemptKind {
	var statusErr *wasapihttp.StatusError
	var protoErr *wasapihttp.ProtocolError
	switch {
	case errors.As(err, &statusErr), errors.As(err, &protoErr):
		return attemptFatal
	case ctx.Err() != nil:
		return attemptFatal
	default:
		return attemptTransient
	}
}

// validate checks the downloaded file against the record's checksum for the
// configured algorithm. A record without that checksum never validates.
func (r *Retriever) validate(rec wasapi.FileRecord, path string) (bool, error) {
	expected, ok := rec.Checksum(r.opts.Algorithm)
	if !ok {
		r.log.Error("No checksum of type: "+r.opts.Algorithm+" available",
			slog.Any("options", rec.ChecksumNames()),
			slog.String("url", rec.Location()))
		return false, nil
	}
	return r.verifier.Verify(r.opts.Algorithm, expected, path)
}
