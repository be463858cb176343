package checksum

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fixturePath = "testdata/small-file.warc"
	fixtureMD5  = "f43adae2b500b553c2dede4684531286"
	fixtureSHA1 = "4e60fff68fa17143606ff70cce19c78fc4d8fbcb"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		name string
		want Algorithm
		ok   bool
	}{
		{"md5", MD5, true},
		{"sha1", SHA1, true},
		{"sha256", 0, false},
		{"MD5", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAlgorithm(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlgorithmsRoundTrip(t *testing.T) {
	for _, alg := range Algorithms {
		parsed, ok := ParseAlgorithm(alg.String())
		require.True(t, ok, alg.String())
		assert.Equal(t, alg, parsed)
		assert.NotNil(t, alg.New())
	}
}

func TestVerifyFixture(t *testing.T) {
	v := NewVerifier(afero.NewOsFs(), discardLogger())

	ok, err := v.Verify("md5", fixtureMD5, fixturePath)
	require.NoError(t, err)
	assert.True(t, ok, "md5 checksum expected to validate")

	ok, err = v.Verify("sha1", fixtureSHA1, fixturePath)
	require.NoError(t, err)
	assert.True(t, ok, "sha1 checksum expected to validate")
}

func TestVerifyFixtureMismatch(t *testing.T) {
	v := NewVerifier(afero.NewOsFs(), discardLogger())

	tests := []struct {
		name      string
		algorithm string
		expected  string
	}{
		{"md5 extra digit", "md5", fixtureMD5 + "9"},
		{"md5 given sha1", "md5", fixtureSHA1},
		{"sha1 extra digit", "sha1", fixtureSHA1 + "9"},
		{"sha1 given md5", "sha1", fixtureMD5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := v.Verify(tt.algorithm, tt.expected, fixturePath)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestVerifyCaseInsensitive(t *testing.T) {
	v := NewVerifier(afero.NewOsFs(), discardLogger())

	ok, err := v.Verify("md5", strings.ToUpper(fixtureMD5), fixturePath)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyUnsupportedAlgorithm(t *testing.T) {
	var buf bytes.Buffer
	v := NewVerifier(afero.NewMemMapFs(), slog.New(slog.NewTextHandler(&buf, nil)))

	// The file does not exist: an unsupported algorithm must not touch it.
	ok, err := v.Verify("foo", fixtureMD5, "/missing/file.warc.gz")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "Unsupported checksum algorithm")
	assert.Contains(t, buf.String(), "algorithm=foo")
}

func TestVerifyMissingFile(t *testing.T) {
	v := NewVerifier(afero.NewMemMapFs(), discardLogger())

	_, err := v.Verify("md5", fixtureMD5, "/missing/file.warc.gz")
	require.Error(t, err)
}

func TestSum(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.Join("/data", "hello.txt")
	require.NoError(t, afero.WriteFile(fs, path, []byte("hello world\n"), 0644))

	v := NewVerifier(fs, discardLogger())

	got, err := v.Sum(MD5, path)
	require.NoError(t, err)
	assert.Equal(t, "6f5902ac237024bdd0c176cb93063dc4", got)

	got, err = v.Sum(SHA1, path)
	require.NoError(t, err)
	assert.Equal(t, "22596363b3de40b06f981fb85d82312e8c0ed511", got)
}
