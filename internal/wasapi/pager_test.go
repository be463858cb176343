package wasapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGetter serves canned JSON bodies keyed by URL.
type fakeGetter struct {
	bodies   map[string]string
	errs     map[string]error
	requests []string
}

func (g *fakeGetter) GetJSON(_ context.Context, url string, v any) error {
	g.requests = append(g.requests, url)
	if err, ok := g.errs[url]; ok {
		return err
	}
	body, ok := g.bodies[url]
	if !ok {
		return fmt.Errorf("unexpected url %s", url)
	}
	if body == "" {
		return nil
	}
	return json.Unmarshal([]byte(body), v)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchAllFollowsNext(t *testing.T) {
	g := &fakeGetter{bodies: map[string]string{
		"u1": `{"count": 3, "next": "u2", "files": [{"filename": "a", "crawl": 1}]}`,
		"u2": `{"count": 3, "next": "u3", "files": [{"filename": "b", "crawl": 2}]}`,
		"u3": `{"count": 3, "next": null, "files": [{"filename": "c", "crawl": 1}]}`,
	}}

	var seen []string
	p := NewPager(g, testLogger())
	p.OnPage = func(url string, _ *Page) { seen = append(seen, url) }

	pages, err := p.FetchAll(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Equal(t, []string{"u1", "u2", "u3"}, g.requests)
	assert.Equal(t, []string{"u1", "u2", "u3"}, seen)
	assert.Equal(t, "a", pages[0].Files[0].Filename)
	assert.Equal(t, "b", pages[1].Files[0].Filename)
	assert.Equal(t, "c", pages[2].Files[0].Filename)
}

func TestFetchAllNullFirstResponse(t *testing.T) {
	for _, body := range []string{"null", ""} {
		g := &fakeGetter{bodies: map[string]string{"u1": body}}

		pages, err := NewPager(g, testLogger()).FetchAll(context.Background(), "u1")
		require.NoError(t, err)
		assert.Empty(t, pages, "body %q", body)
	}
}

func TestFetchAllStopsAtNullPage(t *testing.T) {
	g := &fakeGetter{bodies: map[string]string{
		"u1": `{"next": "u2", "files": [{"filename": "a"}]}`,
		"u2": `null`,
	}}

	pages, err := NewPager(g, testLogger()).FetchAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestFetchAllStopsOnLoop(t *testing.T) {
	g := &fakeGetter{bodies: map[string]string{
		"u1": `{"next": "u2", "files": [{"filename": "a"}]}`,
		"u2": `{"next": "u1", "files": [{"filename": "b"}]}`,
	}}

	pages, err := NewPager(g, testLogger()).FetchAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.Equal(t, []string{"u1", "u2"}, g.requests)
}

func TestFetchAllTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	g := &fakeGetter{
		bodies: map[string]string{"u1": `{"next": "u2"}`},
		errs:   map[string]error{"u2": boom},
	}

	pages, err := NewPager(g, testLogger()).FetchAll(context.Background(), "u1")
	require.ErrorIs(t, err, boom)
	assert.Nil(t, pages)
	assert.Contains(t, err.Error(), "page 2")
}
