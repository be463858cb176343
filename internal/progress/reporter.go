package progress

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// TotalFiles is the number of files selected for the run.
	TotalFiles int

	// TotalSize is the sum of the sizes declared by the metadata, if known.
	TotalSize int64

	// Output is where to write progress output.
	// Default: os.Stdout
	Output io.Writer

	// Source is the metadata request being processed (for display).
	Source string
}

// Reporter outputs human-readable progress for a sequential run. It is not
// safe for concurrent use.
type Reporter struct {
	opts Options

	done       int
	succeeded  int
	invalid    int
	failed     int
	bytes      int64
	startTime  time.Time
	fileStart  time.Time
	activeName string
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Reporter{opts: opts}
}

// Start prints the run header.
func (r *Reporter) Start() {
	r.startTime = time.Now()

	fmt.Fprintf(r.opts.Output, "[warcfetch] Source: %s\n", r.opts.Source)
	fmt.Fprintf(r.opts.Output, "[warcfetch] Files: %d | Total size: %s\n",
		r.opts.TotalFiles,
		formatBytes(r.opts.TotalSize),
	)
}

// FileStarted marks the beginning of a file.
func (r *Reporter) FileStarted(name string) {
	r.fileStart = time.Now()
	r.activeName = name
	fmt.Fprintf(r.opts.Output, "[warcfetch] (%d/%d) %s\n", r.done+1, r.opts.TotalFiles, name)
}

// FileSucceeded marks the active file as retrieved and validated.
func (r *Reporter) FileSucceeded(size int64) {
	r.succeeded++
	r.bytes += size
	r.finish("ok", size)
}

// FileInvalid marks the active file as failing checksum validation.
func (r *Reporter) FileInvalid() {
	r.invalid++
	r.finish("invalid checksum", 0)
}

// FileFailed marks the active file as not retrieved.
func (r *Reporter) FileFailed() {
	r.failed++
	r.finish("not retrieved", 0)
}

func (r *Reporter) finish(status string, size int64) {
	r.done++
	elapsed := time.Since(r.fileStart)

	var speed string
	if size > 0 && elapsed > 0 {
		speed = fmt.Sprintf(" | %s/s", formatBytes(int64(float64(size)/elapsed.Seconds())))
	}
	fmt.Fprintf(r.opts.Output, "[warcfetch] (%d/%d) %s: %s | %s%s\n",
		r.done, r.opts.TotalFiles, r.activeName, status, formatDuration(elapsed), speed)
}

// Stop prints the final summary.
func (r *Reporter) Stop() {
	duration := time.Since(r.startTime)

	fmt.Fprintf(r.opts.Output, "[warcfetch] Done: %d retrieved | %d invalid checksum | %d not retrieved\n",
		r.succeeded, r.invalid, r.failed)
	fmt.Fprintf(r.opts.Output, "[warcfetch] Total time: %s | Downloaded: %s\n",
		formatDuration(duration),
		formatBytes(r.bytes),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}
