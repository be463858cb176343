package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/afero"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/warcfetch/internal/downloader"
	"github.com/ligustah/warcfetch/internal/metrics"
	"github.com/ligustah/warcfetch/internal/mirror"
)

// runDownload retrieves every selected WARC file into the output directory,
// validating each against the checksum listed by the endpoint.
func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	settings := registerSettings(fs)

	mirrorBucket := fs.String("mirror", "", "Bucket URL receiving a copy of every validated file")
	mirrorPrefix := fs.String("mirror-prefix", "", "Key prefix inside the mirror bucket")
	metricsFile := fs.String("metrics-file", "", "Write Prometheus metrics to this textfile at the end of the run")
	showProgress := fs.Bool("progress", false, "Show progress output")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: warcfetch download [options]

Retrieve the WARC files selected from a WASAPI endpoint, grouped by crawl,
and validate each one against its published checksum.

Options:`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	settings.override.Mirror.Bucket = *mirrorBucket
	settings.override.Mirror.Prefix = *mirrorPrefix
	settings.override.MetricsFile = *metricsFile
	settings.override.Progress = *showProgress

	cfg, err := settings.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	log := newLogger(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	osFs := afero.NewOsFs()
	m := metrics.New()

	opts := downloaderOptions(cfg)
	opts.Metrics = m
	if cfg.Progress {
		opts.Progress = os.Stdout
	}

	if cfg.Mirror.Bucket != "" {
		mir, err := mirror.Open(ctx, cfg.Mirror.Bucket, cfg.Mirror.Prefix, osFs, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening mirror bucket: %v\n", err)
			return ExitStorageError
		}
		defer mir.Close()
		opts.Mirror = mir
	}

	if cfg.MetricsFile != "" {
		defer func() {
			if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing metrics: %v\n", err)
			}
		}()
	}

	summary, err := downloader.New(newClient(cfg), osFs, log, opts).Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "[warcfetch] Download interrupted")
			return ExitGeneralError
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return sourceExitCode(err)
	}

	switch {
	case summary.Invalid > 0 || summary.Failed > 0:
		fmt.Fprintf(os.Stderr, "[warcfetch] %d of %d files not retrieved or invalid\n",
			summary.Invalid+summary.Failed, len(summary.Plan.Files))
		return ExitFilesFailed
	case summary.MirrorFailed > 0:
		fmt.Fprintf(os.Stderr, "[warcfetch] %d files could not be mirrored\n", summary.MirrorFailed)
		return ExitStorageError
	}

	return ExitSuccess
}
