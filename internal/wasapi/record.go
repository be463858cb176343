package wasapi

import (
	"maps"
	"slices"
)

// FileRecord describes one downloadable WARC file as listed by the
// webdata endpoint. Absent numeric fields decode as 0 and absent strings
// as "".
type FileRecord struct {
	Filename   string            `json:"filename"`
	FileType   string            `json:"filetype"`
	Checksums  map[string]string `json:"checksums"`
	Account    int64             `json:"account"`
	Size       int64             `json:"size"`
	Collection int64             `json:"collection"`
	Crawl      int64             `json:"crawl"`
	CrawlTime  string            `json:"crawl-time"`
	CrawlStart string            `json:"crawl-start"`
	StoreTime  string            `json:"store-time"`
	Locations  []string          `json:"locations"`
}

// Location returns the primary download location, or "" if none is listed.
func (f FileRecord) Location() string {
	if len(f.Locations) == 0 {
		return ""
	}
	return f.Locations[0]
}

// Checksum returns the expected hex digest for algorithm.
func (f FileRecord) Checksum(algorithm string) (string, bool) {
	sum, ok := f.Checksums[algorithm]
	return sum, ok
}

// ChecksumNames returns the algorithms the record carries a digest for, sorted.
func (f FileRecord) ChecksumNames() []string {
	return slices.Sorted(maps.Keys(f.Checksums))
}

// Page is one page of a webdata response.
type Page struct {
	Count    int          `json:"count"`
	Next     string       `json:"next"`
	Previous string       `json:"previous"`
	Files    []FileRecord `json:"files"`
}
