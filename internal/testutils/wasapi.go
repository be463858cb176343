// Package testutils provides shared test infrastructure: a fake WASAPI
// server and, behind the integration build tag, a MinIO container.
package testutils

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// WARC is a file served by FakeWASAPI.
type WARC struct {
	Filename   string
	Collection int64
	Crawl      int64
	CrawlStart string
	Data       []byte

	// MD5 and SHA1 override the digests advertised in the metadata.
	// Set to "-" to leave the digest out.
	MD5  string
	SHA1 string

	// Status, if set, is returned instead of the file body.
	Status int

	// Truncate makes the first Truncate downloads end early.
	Truncate int
}

// FakeWASAPI is an httptest server speaking enough of the WASAPI webdata
// protocol for end-to-end tests: paginated metadata, downloads and a form
// login.
type FakeWASAPI struct {
	Server *httptest.Server

	// PageSize is the number of files per metadata page. Default: 2
	PageSize int

	// Username and Password, if set, are required by /login, and metadata
	// requests without the session cookie are refused.
	Username string
	Password string

	// Null makes the metadata endpoint answer with a JSON null.
	Null bool

	mu        sync.Mutex
	files     []WARC
	downloads map[string]int
	queries   []url.Values
}

const sessionCookie = "sessionid"

// NewFakeWASAPI starts a fake server serving files. It is closed when the
// test ends.
func NewFakeWASAPI(t *testing.T, files []WARC) *FakeWASAPI {
	t.Helper()

	f := &FakeWASAPI{
		PageSize:  2,
		files:     files,
		downloads: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", f.handleLogin)
	mux.HandleFunc("GET /wasapi/v1/webdata", f.handleWebdata)
	mux.HandleFunc("GET /download/{name}", f.handleDownload)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// BaseURL returns the WASAPI base URL, ending with a slash.
func (f *FakeWASAPI) BaseURL() string { return f.Server.URL + "/wasapi/v1/" }

// AuthURL returns the login form URL.
func (f *FakeWASAPI) AuthURL() string { return f.Server.URL + "/login" }

// Downloads returns how many times name was requested.
func (f *FakeWASAPI) Downloads(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads[name]
}

// Queries returns the query parameters of every metadata request.
func (f *FakeWASAPI) Queries() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.queries...)
}

func (f *FakeWASAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("username") != f.Username || r.PostForm.Get("password") != f.Password {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "ok", Path: "/"})
	w.WriteHeader(http.StatusOK)
}

type fileJSON struct {
	Filename   string            `json:"filename"`
	FileType   string            `json:"filetype"`
	Checksums  map[string]string `json:"checksums"`
	Account    int64             `json:"account"`
	Size       int64             `json:"size"`
	Collection int64             `json:"collection"`
	Crawl      int64             `json:"crawl"`
	CrawlStart *string           `json:"crawl-start"`
	Locations  []string          `json:"locations"`
}

type pageJSON struct {
	Count    int        `json:"count"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Files    []fileJSON `json:"files"`
}

func (f *FakeWASAPI) handleWebdata(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if f.Username != "" {
		if c, err := r.Cookie(sessionCookie); err != nil || c.Value != "ok" {
			http.Error(w, "login required", http.StatusForbidden)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if f.Null {
		w.Write([]byte("null"))
		return
	}

	matched := f.match(q)

	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 2
	}
	pageNum, _ := strconv.Atoi(q.Get("page"))
	if pageNum < 1 {
		pageNum = 1
	}
	start := min((pageNum-1)*pageSize, len(matched))
	end := min(start+pageSize, len(matched))

	page := pageJSON{Count: len(matched)}
	for _, warc := range matched[start:end] {
		page.Files = append(page.Files, f.record(warc))
	}
	if end < len(matched) {
		next := f.pageURL(q, pageNum+1)
		page.Next = &next
	}
	if pageNum > 1 {
		prev := f.pageURL(q, pageNum-1)
		page.Previous = &prev
	}

	json.NewEncoder(w).Encode(page)
}

func (f *FakeWASAPI) match(q url.Values) []WARC {
	var out []WARC
	for _, warc := range f.files {
		if v := q.Get("filename"); v != "" && v != warc.Filename {
			continue
		}
		if v := q.Get("collection"); v != "" && v != strconv.FormatInt(warc.Collection, 10) {
			continue
		}
		if v := q.Get("crawl"); v != "" && v != strconv.FormatInt(warc.Crawl, 10) {
			continue
		}
		if v := q.Get("crawl-start-after"); v != "" && warc.CrawlStart <= v {
			continue
		}
		if v := q.Get("crawl-start-before"); v != "" && warc.CrawlStart >= v {
			continue
		}
		out = append(out, warc)
	}
	return out
}

func (f *FakeWASAPI) pageURL(q url.Values, page int) string {
	next := url.Values{}
	for k, v := range q {
		next[k] = v
	}
	next.Set("page", strconv.Itoa(page))
	return f.BaseURL() + "webdata?" + next.Encode()
}

func (f *FakeWASAPI) record(warc WARC) fileJSON {
	md5Sum := md5.Sum(warc.Data)
	sha1Sum := sha1.Sum(warc.Data)

	checksums := map[string]string{
		"md5":  hex.EncodeToString(md5Sum[:]),
		"sha1": hex.EncodeToString(sha1Sum[:]),
	}
	for name, override := range map[string]string{"md5": warc.MD5, "sha1": warc.SHA1} {
		switch override {
		case "":
		case "-":
			delete(checksums, name)
		default:
			checksums[name] = override
		}
	}

	rec := fileJSON{
		Filename:   warc.Filename,
		FileType:   "warc",
		Checksums:  checksums,
		Account:    89,
		Size:       int64(len(warc.Data)),
		Collection: warc.Collection,
		Crawl:      warc.Crawl,
		Locations:  []string{f.Server.URL + "/download/" + url.PathEscape(warc.Filename)},
	}
	if warc.CrawlStart != "" {
		rec.CrawlStart = &warc.CrawlStart
	}
	return rec
}

func (f *FakeWASAPI) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	f.mu.Lock()
	f.downloads[name]++
	n := f.downloads[name]
	f.mu.Unlock()

	var warc *WARC
	for i := range f.files {
		if f.files[i].Filename == name {
			warc = &f.files[i]
			break
		}
	}
	if warc == nil {
		http.NotFound(w, r)
		return
	}
	if warc.Status != 0 {
		http.Error(w, http.StatusText(warc.Status), warc.Status)
		return
	}

	w.Header().Set("Content-Type", "application/warc")
	w.Header().Set("Content-Length", strconv.Itoa(len(warc.Data)))
	if n <= warc.Truncate {
		// The server closes the connection when fewer bytes than declared
		// are written.
		w.Write(warc.Data[:len(warc.Data)/2])
		return
	}
	w.Write(warc.Data)
}

// GenerateTestData returns size bytes of deterministic WARC-like content.
func GenerateTestData(size int) []byte {
	const header = "WARC/1.0\r\nWARC-Type: resource\r\n\r\n"
	var b strings.Builder
	b.Grow(size)
	b.WriteString(header)
	for i := 0; b.Len() < size; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	return []byte(b.String()[:size])
}
