//go:build integration

package main

import (
	"context"
	"testing"
	"time"

	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/warcfetch/internal/testutils"
)

func TestCLIIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	warcs := []testutils.WARC{
		{Filename: "ARCHIVEIT-1-JOB10-00000.warc.gz", Collection: 1, Crawl: 10, CrawlStart: "2017-05-26", Data: testutils.GenerateTestData(1024 * 1024)},
		{Filename: "ARCHIVEIT-1-JOB10-00001.warc.gz", Collection: 1, Crawl: 10, CrawlStart: "2017-05-26", Data: testutils.GenerateTestData(512 * 1024)},
	}
	srv := testutils.NewFakeWASAPI(t, warcs)

	t.Log("Starting MinIO container...")
	minio := testutils.StartMinIOContainer(t, ctx, "cli-test-bucket")
	defer func() {
		if err := minio.Close(ctx); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	}()

	outDir := t.TempDir()
	args := []string{
		"-base-url", srv.BaseURL(),
		"-output-base-dir", outDir,
		"-collection-id", "1",
		"-mirror", minio.BucketURL,
		"-mirror-prefix", "wasapi",
	}

	t.Run("download", func(t *testing.T) {
		if code := runDownload(args); code != ExitSuccess {
			t.Fatalf("download failed with exit code %d", code)
		}
	})

	t.Run("objects", func(t *testing.T) {
		bucket, err := minio.OpenBucket(ctx)
		if err != nil {
			t.Fatalf("open bucket: %v", err)
		}
		defer bucket.Close()

		for _, w := range warcs {
			key := "wasapi/AIT_1/10/2017-05-26/" + w.Filename
			r, err := bucket.NewReader(ctx, key, nil)
			if err != nil {
				t.Fatalf("open %s: %v", key, err)
			}
			testutils.CompareReaderToData(t, r, w.Data)
			r.Close()
		}
	})

	t.Run("download again", func(t *testing.T) {
		// Objects already mirrored are skipped, the run still succeeds.
		if code := runDownload(args); code != ExitSuccess {
			t.Fatalf("second download failed with exit code %d", code)
		}
	})
}
