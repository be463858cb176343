// Package retriever downloads one WARC file and accepts it only once its
// checksum matches.
//
// Each file goes through at most MaxAttempts downloads. An attempt ends in
// one of three ways:
//   - ok: the bytes were transferred, and the checksum is checked next
//   - transient: a network or local I/O error, retried immediately
//   - fatal: an HTTP error status or protocol error, retrying stops
//
// A checksum mismatch also triggers a fresh download. After the loop the
// file is reported as retrieved, not retrieved (fatal or exhausted) or
// as having an invalid checksum.
//
// The filesystem and the download transport are injected, so the state
// machine runs against afero.NewMemMapFs and a fake Fetcher in tests.
package retriever
