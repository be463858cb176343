package mirror

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/spf13/afero"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Result tells what Put did.
type Result int

const (
	Uploaded Result = iota
	Skipped
)

func (r Result) String() string {
	if r == Skipped {
		return "skipped"
	}
	return "uploaded"
}

// Mirror copies validated files into an object store bucket.
type Mirror struct {
	bucket *blob.Bucket
	prefix string
	fs     afero.Fs
	log    *slog.Logger
	owned  bool
}

// Open opens the bucket at bucketURL (s3://, gs:// or mem://).
func Open(ctx context.Context, bucketURL, prefix string, fs afero.Fs, log *slog.Logger) (*Mirror, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("mirror: open bucket: %w", err)
	}
	m := New(bucket, prefix, fs, log)
	m.owned = true
	return m, nil
}

// New wraps an already open bucket. The caller keeps ownership of bucket.
func New(bucket *blob.Bucket, prefix string, fs afero.Fs, log *slog.Logger) *Mirror {
	return &Mirror{bucket: bucket, prefix: prefix, fs: fs, log: log}
}

// Close closes the bucket if it was opened by Open.
func (m *Mirror) Close() error {
	if !m.owned {
		return nil
	}
	return m.bucket.Close()
}

// Key returns the object key for a file stored at rel, a slash- or
// OS-separated path relative to the output base directory.
func (m *Mirror) Key(rel string) string {
	rel = strings.ReplaceAll(rel, "\\", "/")
	return path.Join(m.prefix, rel)
}

// Put uploads the local file to key. When md5Hex is given it is sent as
// the object's Content-MD5 so the store verifies the upload, and an
// existing object with the same MD5 is left alone.
func (m *Mirror) Put(ctx context.Context, localPath, key, md5Hex string) (Result, error) {
	var sum []byte
	if md5Hex != "" {
		var err error
		if sum, err = hex.DecodeString(md5Hex); err != nil {
			return Uploaded, fmt.Errorf("mirror: invalid md5 %q: %w", md5Hex, err)
		}
	}

	attrs, err := m.bucket.Attributes(ctx, key)
	switch {
	case err == nil && sum != nil && bytes.Equal(attrs.MD5, sum):
		m.log.Debug("mirror already has file", slog.String("key", key))
		return Skipped, nil
	case err != nil && !isNotExist(err):
		return Uploaded, fmt.Errorf("mirror: stat %s: %w", key, err)
	}

	f, err := m.fs.Open(localPath)
	if err != nil {
		return Uploaded, fmt.Errorf("mirror: open %s: %w", localPath, err)
	}
	defer f.Close()

	// Cancelling the writer's context before Close discards a partial upload.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := m.bucket.NewWriter(wctx, key, &blob.WriterOptions{
		ContentType: "application/warc",
		ContentMD5:  sum,
		Metadata:    map[string]string{"source_path": localPath},
	})
	if err != nil {
		return Uploaded, fmt.Errorf("mirror: create writer for %s: %w", key, err)
	}

	if _, err := io.Copy(w, f); err != nil {
		cancel()
		w.Close()
		return Uploaded, fmt.Errorf("mirror: upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return Uploaded, fmt.Errorf("mirror: finish %s: %w", key, err)
	}

	m.log.Info("mirrored file", slog.String("key", key))
	return Uploaded, nil
}

// isNotExist returns true if the error indicates the object doesn't exist.
func isNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
