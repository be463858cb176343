package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ligustah/warcfetch/internal/config"
	"github.com/ligustah/warcfetch/internal/downloader"
	wasapihttp "github.com/ligustah/warcfetch/internal/http"
	"github.com/ligustah/warcfetch/internal/logging"
)

// settingsFlags are the options shared by download and list. Flags left
// empty fall back to the settings file and the environment.
type settingsFlags struct {
	configPath string
	envPath    string
	override   config.Config
}

func registerSettings(fs *flag.FlagSet) *settingsFlags {
	s := &settingsFlags{}
	o := &s.override

	fs.StringVar(&s.configPath, "config", "", "YAML settings file")
	fs.StringVar(&s.envPath, "env", ".env", "Optional .env file with WASAPI_* variables")

	fs.StringVar(&o.BaseURL, "base-url", "", "WASAPI base URL")
	fs.StringVar(&o.AuthURL, "auth-url", "", "Login form URL")
	fs.StringVar(&o.Username, "username", "", "Account username")
	fs.StringVar(&o.Password, "password", "", "Account password")
	fs.StringVar(&o.OutputBaseDir, "output-base-dir", "", "Directory WARC files are stored under")
	fs.StringVar(&o.ChecksumAlgorithm, "checksum-algorithm", "", "Checksum used to validate files: md5 or sha1")
	fs.DurationVar(&o.Timeout, "timeout", 0, "Per-request timeout (0 disables)")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, warn or error")

	fs.StringVar(&o.Selection.CollectionID, "collection-id", "", "Collection to retrieve")
	fs.StringVar(&o.Selection.JobID, "job-id", "", "Crawl job to retrieve")
	fs.StringVar(&o.Selection.CrawlStartAfter, "crawl-start-after", "", "Only crawls started after this date")
	fs.StringVar(&o.Selection.CrawlStartBefore, "crawl-start-before", "", "Only crawls started before this date")
	fs.StringVar(&o.Selection.Filename, "filename", "", "Single file to retrieve (overrides other selection flags)")
	fs.StringVar(&o.Selection.JobIDLowerBound, "job-id-lower-bound", "", "Skip crawls with a lower job id")

	return s
}

// load resolves the configuration: defaults, settings file, .env file,
// environment, then flags.
func (s *settingsFlags) load() (config.Config, error) {
	if err := config.LoadDotEnv(s.envPath); err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	if s.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(s.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	cfg = cfg.Merge(s.override)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	// Validate has already checked the level.
	log, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return log
}

func newClient(cfg config.Config) *wasapihttp.Client {
	opts := wasapihttp.DefaultOptions()
	opts.Timeout = cfg.Timeout
	return wasapihttp.NewClient(opts)
}

func downloaderOptions(cfg config.Config) downloader.Options {
	return downloader.Options{
		BaseURL:       cfg.BaseURL,
		AuthURL:       cfg.AuthURL,
		Username:      cfg.Username,
		Password:      cfg.Password,
		Query:         cfg.Selection.Query(),
		MinJobID:      cfg.Selection.MinJobID(),
		OutputBaseDir: cfg.OutputBaseDir,
		Algorithm:     cfg.ChecksumAlgorithm,
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n[warcfetch] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// parseFlags parses args, mapping -h to a successful exit.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess, false
		}
		return ExitInvalidArgs, false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return ExitInvalidArgs, false
	}
	return 0, true
}

// sourceExitCode maps a failed metadata phase to an exit code.
func sourceExitCode(err error) int {
	if errors.Is(err, downloader.ErrSourceUnavailable) {
		return ExitSourceNotAccess
	}
	return ExitGeneralError
}
