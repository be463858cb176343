package downloader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"

	wasapihttp "github.com/ligustah/warcfetch/internal/http"
	"github.com/ligustah/warcfetch/internal/metrics"
	"github.com/ligustah/warcfetch/internal/mirror"
	"github.com/ligustah/warcfetch/internal/retriever"
	"github.com/ligustah/warcfetch/internal/testutils"
	"github.com/ligustah/warcfetch/internal/wasapi"
)

const (
	outDir     = "/warcs/"
	crawlStart = "2017-05-26T11:41:17Z"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// threeWARCs spans two crawls listed out of crawl order.
func threeWARCs() []testutils.WARC {
	return []testutils.WARC{
		{Filename: "a.warc.gz", Collection: 5425, Crawl: 302671, CrawlStart: crawlStart, Data: testutils.GenerateTestData(4096)},
		{Filename: "b.warc.gz", Collection: 5425, Crawl: 302001, CrawlStart: crawlStart, Data: testutils.GenerateTestData(2048)},
		{Filename: "c.warc.gz", Collection: 5425, Crawl: 302001, Data: testutils.GenerateTestData(1024)},
	}
}

func newDownloader(t *testing.T, srv *testutils.FakeWASAPI, fs afero.Fs, opts Options) *Downloader {
	t.Helper()
	opts.BaseURL = srv.BaseURL()
	if opts.OutputBaseDir == "" {
		opts.OutputBaseDir = outDir
	}
	client := wasapihttp.NewClient(wasapihttp.DefaultOptions())
	return New(client, fs, discard(), opts)
}

func TestRunRetrievesCrawlsInOrder(t *testing.T) {
	warcs := threeWARCs()
	srv := testutils.NewFakeWASAPI(t, warcs)
	fs := afero.NewMemMapFs()
	m := metrics.New()

	d := newDownloader(t, srv, fs, Options{
		Query:   wasapi.Query{Collection: "5425"},
		Metrics: m,
	})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.OK())
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 2, summary.Plan.Pages)
	assert.Equal(t, 3, summary.Plan.Records)
	assert.Equal(t, []int64{302001, 302671}, summary.Plan.CrawlIDs)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Pages))

	require.Len(t, summary.Results, 3)
	wantPaths := []string{
		"/warcs/AIT_5425/302001/" + crawlStart + "/b.warc.gz",
		"/warcs/AIT_5425/302001/null/c.warc.gz",
		"/warcs/AIT_5425/302671/" + crawlStart + "/a.warc.gz",
	}
	wantData := [][]byte{warcs[1].Data, warcs[2].Data, warcs[0].Data}
	for i, res := range summary.Results {
		assert.Equal(t, retriever.OutcomeSucceeded, res.Outcome)
		assert.Equal(t, 1, res.Attempts)
		assert.Equal(t, wantPaths[i], res.Path)

		got, err := afero.ReadFile(fs, res.Path)
		require.NoError(t, err)
		assert.Equal(t, wantData[i], got)
	}
}

func TestRunJobIDLowerBound(t *testing.T) {
	srv := testutils.NewFakeWASAPI(t, threeWARCs())
	fs := afero.NewMemMapFs()

	d := newDownloader(t, srv, fs, Options{MinJobID: 302500})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{302671}, summary.Plan.CrawlIDs)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, srv.Downloads("b.warc.gz"))
	assert.Equal(t, 0, srv.Downloads("c.warc.gz"))
}

func TestRunFilenameOverridesSelection(t *testing.T) {
	srv := testutils.NewFakeWASAPI(t, threeWARCs())

	d := newDownloader(t, srv, afero.NewMemMapFs(), Options{
		Query: wasapi.Query{Collection: "5425", JobID: "302001", Filename: "a.warc.gz"},
	})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	queries := srv.Queries()
	require.NotEmpty(t, queries)
	assert.Equal(t, "a.warc.gz", queries[0].Get("filename"))
	assert.Empty(t, queries[0].Get("collection"))
	assert.Empty(t, queries[0].Get("crawl"))
}

func TestRunChecksumMismatch(t *testing.T) {
	warcs := threeWARCs()[:1]
	warcs[0].MD5 = "00000000000000000000000000000000"
	srv := testutils.NewFakeWASAPI(t, warcs)

	d := newDownloader(t, srv, afero.NewMemMapFs(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, summary.OK())
	assert.Equal(t, 1, summary.Invalid)
	assert.Equal(t, retriever.MaxAttempts, srv.Downloads("a.warc.gz"))
	assert.Equal(t, retriever.OutcomeChecksumMismatch, summary.Results[0].Outcome)
}

func TestRunSHA1(t *testing.T) {
	warcs := threeWARCs()[:1]
	warcs[0].MD5 = "-"
	srv := testutils.NewFakeWASAPI(t, warcs)

	d := newDownloader(t, srv, afero.NewMemMapFs(), Options{Algorithm: "sha1"})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestRunFatalStatus(t *testing.T) {
	warcs := threeWARCs()
	warcs[1].Status = 404
	srv := testutils.NewFakeWASAPI(t, warcs)

	d := newDownloader(t, srv, afero.NewMemMapFs(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, srv.Downloads("b.warc.gz"))

	res := summary.Results[0]
	assert.True(t, res.Fatal)
	assert.True(t, errors.Is(res.Err, wasapihttp.ErrNotFound))
}

func TestRunTransientThenSuccess(t *testing.T) {
	warcs := threeWARCs()[:1]
	warcs[0].Truncate = 2
	srv := testutils.NewFakeWASAPI(t, warcs)

	d := newDownloader(t, srv, afero.NewMemMapFs(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 3, summary.Results[0].Attempts)
	assert.Equal(t, 3, srv.Downloads("a.warc.gz"))
}

func TestRunNullResponse(t *testing.T) {
	srv := testutils.NewFakeWASAPI(t, threeWARCs())
	srv.Null = true

	d := newDownloader(t, srv, afero.NewMemMapFs(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.OK())
	assert.Equal(t, 0, summary.Plan.Pages)
	assert.Empty(t, summary.Results)
}

func TestRunLogin(t *testing.T) {
	srv := testutils.NewFakeWASAPI(t, threeWARCs())
	srv.Username = "fred"
	srv.Password = "secret"

	t.Run("valid credentials", func(t *testing.T) {
		d := newDownloader(t, srv, afero.NewMemMapFs(), Options{
			AuthURL:  srv.AuthURL(),
			Username: "fred",
			Password: "secret",
		})

		summary, err := d.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Succeeded)
	})

	t.Run("bad credentials", func(t *testing.T) {
		d := newDownloader(t, srv, afero.NewMemMapFs(), Options{
			AuthURL:  srv.AuthURL(),
			Username: "fred",
			Password: "wrong",
		})

		_, err := d.Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSourceUnavailable))
		assert.True(t, errors.Is(err, wasapihttp.ErrUnauthorized))
	})

	t.Run("no session", func(t *testing.T) {
		d := newDownloader(t, srv, afero.NewMemMapFs(), Options{})

		_, err := d.Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSourceUnavailable))
		assert.True(t, errors.Is(err, wasapihttp.ErrForbidden))
	})
}

func TestRunMirror(t *testing.T) {
	ctx := context.Background()
	warcs := threeWARCs()
	srv := testutils.NewFakeWASAPI(t, warcs)
	fs := afero.NewMemMapFs()

	bucket, err := blob.OpenBucket(ctx, "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { bucket.Close() })

	m := metrics.New()
	opts := Options{
		Mirror:  mirror.New(bucket, "wasapi", fs, discard()),
		Metrics: m,
	}

	summary, err := newDownloader(t, srv, fs, opts).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Mirrored)

	got, err := bucket.ReadAll(ctx, "wasapi/AIT_5425/302001/null/c.warc.gz")
	require.NoError(t, err)
	assert.Equal(t, warcs[2].Data, got)

	// A second run finds the objects in place.
	summary, err = newDownloader(t, srv, fs, opts).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Mirrored)
	assert.Equal(t, 3, summary.MirrorSkipped)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Mirrored.WithLabelValues("skipped")))
}

func TestRunProgress(t *testing.T) {
	warcs := threeWARCs()
	warcs[0].Status = 403
	srv := testutils.NewFakeWASAPI(t, warcs)

	var out bytes.Buffer
	d := newDownloader(t, srv, afero.NewMemMapFs(), Options{Progress: &out})

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "[warcfetch] Files: 3")
	assert.Contains(t, out.String(), "(3/3) a.warc.gz: not retrieved")
	assert.Contains(t, out.String(), "Done: 2 retrieved | 0 invalid checksum | 1 not retrieved")
}

func TestRunCancelled(t *testing.T) {
	srv := testutils.NewFakeWASAPI(t, threeWARCs())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newDownloader(t, srv, afero.NewMemMapFs(), Options{}).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPlanTotalSize(t *testing.T) {
	srv := testutils.NewFakeWASAPI(t, threeWARCs())

	plan, err := newDownloader(t, srv, afero.NewMemMapFs(), Options{}).Plan(context.Background())
	require.NoError(t, err)

	assert.Len(t, plan.Files, 3)
	assert.Equal(t, int64(4096+2048+1024), plan.TotalSize())
	assert.Equal(t, srv.BaseURL()+"webdata?", plan.RequestURL)
	assert.Equal(t, 0, srv.Downloads("a.warc.gz"))
}
