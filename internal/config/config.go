package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ligustah/warcfetch/internal/checksum"
	"github.com/ligustah/warcfetch/internal/logging"
	"github.com/ligustah/warcfetch/internal/wasapi"
)

// Config defines configuration for the warcfetch CLI.
type Config struct {
	BaseURL           string        `yaml:"base_url"`
	AuthURL           string        `yaml:"auth_url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	OutputBaseDir     string        `yaml:"output_base_dir"`
	ChecksumAlgorithm string        `yaml:"checksum_algorithm"`
	Timeout           time.Duration `yaml:"timeout"`
	LogLevel          string        `yaml:"log_level"`
	Progress          bool          `yaml:"progress"`
	MetricsFile       string        `yaml:"metrics_file"`
	Mirror            MirrorConfig  `yaml:"mirror"`
	Selection         Selection     `yaml:"selection"`
}

// MirrorConfig defines the optional object store copy of retrieved files.
type MirrorConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// Selection holds the criteria choosing which files to retrieve.
// All fields are optional.
type Selection struct {
	CollectionID     string `yaml:"collection_id"`
	JobID            string `yaml:"job_id"`
	CrawlStartAfter  string `yaml:"crawl_start_after"`
	CrawlStartBefore string `yaml:"crawl_start_before"`
	Filename         string `yaml:"filename"`
	JobIDLowerBound  string `yaml:"job_id_lower_bound"`
}

// Query converts the selection into a webdata query.
func (s Selection) Query() wasapi.Query {
	return wasapi.Query{
		Collection:       s.CollectionID,
		JobID:            s.JobID,
		CrawlStartAfter:  s.CrawlStartAfter,
		CrawlStartBefore: s.CrawlStartBefore,
		Filename:         s.Filename,
	}
}

// MinJobID returns the crawl id lower bound, 0 when unset or unparseable.
func (s Selection) MinJobID() int64 {
	return wasapi.ParseJobIDLowerBound(s.JobIDLowerBound)
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		BaseURL:           "https://partner.archive-it.org/wasapi/v1/",
		AuthURL:           "https://partner.archive-it.org/login",
		OutputBaseDir:     "warcs" + string(filepath.Separator),
		ChecksumAlgorithm: "md5",
		LogLevel:          logging.LevelInfo,
	}
}

// yamlConfig is used for YAML unmarshaling with a string timeout.
type yamlConfig struct {
	BaseURL           string       `yaml:"base_url"`
	AuthURL           string       `yaml:"auth_url"`
	Username          string       `yaml:"username"`
	Password          string       `yaml:"password"`
	OutputBaseDir     string       `yaml:"output_base_dir"`
	ChecksumAlgorithm string       `yaml:"checksum_algorithm"`
	Timeout           string       `yaml:"timeout"`
	LogLevel          string       `yaml:"log_level"`
	Progress          bool         `yaml:"progress"`
	MetricsFile       string       `yaml:"metrics_file"`
	Mirror            MirrorConfig `yaml:"mirror"`
	Selection         Selection    `yaml:"selection"`
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	override := Config{
		BaseURL:           yc.BaseURL,
		AuthURL:           yc.AuthURL,
		Username:          yc.Username,
		Password:          yc.Password,
		OutputBaseDir:     yc.OutputBaseDir,
		ChecksumAlgorithm: yc.ChecksumAlgorithm,
		LogLevel:          yc.LogLevel,
		Progress:          yc.Progress,
		MetricsFile:       yc.MetricsFile,
		Mirror:            yc.Mirror,
		Selection:         yc.Selection,
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		override.Timeout = d
	}

	return Default().Merge(override), nil
}

// LoadDotEnv loads KEY=value pairs from a .env file into the process
// environment. Variables that are already set win. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the WASAPI_ prefix.
func (c *Config) LoadFromEnv() error {
	strs := map[string]*string{
		"WASAPI_BASE_URL":           &c.BaseURL,
		"WASAPI_AUTH_URL":           &c.AuthURL,
		"WASAPI_USERNAME":           &c.Username,
		"WASAPI_PASSWORD":           &c.Password,
		"WASAPI_OUTPUT_BASE_DIR":    &c.OutputBaseDir,
		"WASAPI_CHECKSUM_ALGORITHM": &c.ChecksumAlgorithm,
		"WASAPI_LOG_LEVEL":          &c.LogLevel,
		"WASAPI_METRICS_FILE":       &c.MetricsFile,
		"WASAPI_MIRROR_BUCKET":      &c.Mirror.Bucket,
		"WASAPI_MIRROR_PREFIX":      &c.Mirror.Prefix,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("WASAPI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse WASAPI_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("WASAPI_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}

	return nil
}

// Normalize makes BaseURL and OutputBaseDir end with a separator, since
// both are used as plain string prefixes.
func (c *Config) Normalize() {
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.OutputBaseDir != "" && !strings.HasSuffix(c.OutputBaseDir, string(filepath.Separator)) {
		c.OutputBaseDir += string(filepath.Separator)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("config: base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: base_url %q is not an http(s) URL", c.BaseURL)
	}
	if c.OutputBaseDir == "" {
		return errors.New("config: output_base_dir is required")
	}
	if _, ok := checksum.ParseAlgorithm(c.ChecksumAlgorithm); !ok {
		return fmt.Errorf("config: unsupported checksum_algorithm %q, options are 'md5' or 'sha1'", c.ChecksumAlgorithm)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	if c.Username != "" {
		if c.Password == "" {
			return errors.New("config: password is required with username")
		}
		if c.AuthURL == "" {
			return errors.New("config: auth_url is required with username")
		}
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.BaseURL != "" {
		c.BaseURL = override.BaseURL
	}
	if override.AuthURL != "" {
		c.AuthURL = override.AuthURL
	}
	if override.Username != "" {
		c.Username = override.Username
	}
	if override.Password != "" {
		c.Password = override.Password
	}
	if override.OutputBaseDir != "" {
		c.OutputBaseDir = override.OutputBaseDir
	}
	if override.ChecksumAlgorithm != "" {
		c.ChecksumAlgorithm = override.ChecksumAlgorithm
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.MetricsFile != "" {
		c.MetricsFile = override.MetricsFile
	}
	if override.Mirror.Bucket != "" {
		c.Mirror.Bucket = override.Mirror.Bucket
	}
	if override.Mirror.Prefix != "" {
		c.Mirror.Prefix = override.Mirror.Prefix
	}
	c.Selection = c.Selection.merge(override.Selection)
	return c
}

func (s Selection) merge(override Selection) Selection {
	if override.CollectionID != "" {
		s.CollectionID = override.CollectionID
	}
	if override.JobID != "" {
		s.JobID = override.JobID
	}
	if override.CrawlStartAfter != "" {
		s.CrawlStartAfter = override.CrawlStartAfter
	}
	if override.CrawlStartBefore != "" {
		s.CrawlStartBefore = override.CrawlStartBefore
	}
	if override.Filename != "" {
		s.Filename = override.Filename
	}
	if override.JobIDLowerBound != "" {
		s.JobIDLowerBound = override.JobIDLowerBound
	}
	return s
}
