package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
)

// Algorithm is a supported digest algorithm.
type Algorithm int

const (
	MD5 Algorithm = iota + 1
	SHA1
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{MD5, SHA1}

// ParseAlgorithm maps a checksum key as used by WASAPI ("md5", "sha1")
// to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, bool) {
	switch name {
	case "md5":
		return MD5, true
	case "sha1":
		return SHA1, true
	default:
		return 0, false
	}
}

func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// New returns a fresh hash for the algorithm.
func (a Algorithm) New() hash.Hash {
	switch a {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	default:
		panic(fmt.Sprintf("checksum: unsupported algorithm %d", int(a)))
	}
}

// Verifier computes and compares file digests.
type Verifier struct {
	fs  afero.Fs
	log *slog.Logger
}

// NewVerifier creates a Verifier reading files from fs.
func NewVerifier(fs afero.Fs, log *slog.Logger) *Verifier {
	return &Verifier{fs: fs, log: log}
}

// Verify reports whether the file at path has the expected hex digest.
// Hex strings are compared case-insensitively. An unsupported algorithm
// name is logged and reported as a mismatch without reading the file.
// Errors are returned only when the file cannot be read.
func (v *Verifier) Verify(algorithm, expectedHex, path string) (bool, error) {
	alg, ok := ParseAlgorithm(algorithm)
	if !ok {
		v.log.Error("Unsupported checksum algorithm",
			slog.String("algorithm", algorithm),
			slog.String("options", "'md5' or 'sha1'"))
		return false, nil
	}

	actual, err := v.Sum(alg, path)
	if err != nil {
		return false, err
	}

	return strings.EqualFold(actual, strings.TrimSpace(expectedHex)), nil
}

// Sum returns the lowercase hex digest of the file at path.
func (v *Verifier) Sum(alg Algorithm, path string) (string, error) {
	f, err := v.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum: open %s: %w", path, err)
	}
	defer f.Close()

	h := alg.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum: read %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
