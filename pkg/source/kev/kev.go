// Package kev normalizes entries of the Known Exploited Vulnerabilities
// catalog. KEV entries carry no fixed versions, so they never enter
// minimum-safe-version arithmetic; they exist to raise the
// exploited-in-the-wild flag and the CVE count.
package kev

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"github.com/minsafe/msv-db/pkg/types"
	"github.com/minsafe/msv-db/pkg/utils"
)

const (
	SourceID   = types.SourceID("known-exploited-catalog")
	kevDir     = "kev"
	DateFormat = "2006-01-02"
)

var source = types.DataSource{
	ID:   SourceID,
	Name: "Known Exploited Vulnerability Catalog",
	URL:  "https://www.cisa.gov/known-exploited-vulnerabilities-catalog",
}

// Fetcher supplies the already-retrieved catalog.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Entry, error)
}

type Source struct {
	fetcher Fetcher
}

func NewSource(fetcher Fetcher) Source {
	return Source{
		fetcher: fetcher,
	}
}

func (s Source) Name() types.SourceID {
	return SourceID
}

func (s Source) DataSource() types.DataSource {
	return source
}

func (s Source) Query(ctx context.Context, q types.ProductQuery) ([]types.Advisory, error) {
	entries, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, xerrors.Errorf("KEV catalog fetch error: %w", err)
	}

	var advisories []types.Advisory
	for _, entry := range entries {
		if !matches(entry, q) {
			continue
		}
		advisories = append(advisories, types.Advisory{
			ID:              entry.CveID,
			Title:           entry.VulnerabilityName,
			CveIDs:          []string{entry.CveID},
			Published:       entry.DateAdded.Time,
			ExploitedInWild: true,
			Source:          SourceID,
		})
	}
	return advisories, nil
}

func matches(entry Entry, q types.ProductQuery) bool {
	if !strings.EqualFold(entry.VendorProject, q.Vendor) {
		return false
	}
	return strings.EqualFold(entry.Product, q.Name)
}

// FileFetcher reads a pre-fetched catalog from <root>/kev/, one entry
// per file.
type FileFetcher struct {
	root string
}

func NewFileFetcher(root string) FileFetcher {
	return FileFetcher{
		root: root,
	}
}

func (f FileFetcher) Fetch(_ context.Context) ([]Entry, error) {
	rootDir := filepath.Join(f.root, kevDir)
	if ok, _ := utils.Exists(rootDir); !ok {
		return nil, nil
	}

	var entries []Entry
	err := utils.FileWalk(rootDir, func(r io.Reader, path string) error {
		var e Entry
		if err := json.NewDecoder(r).Decode(&e); err != nil {
			return xerrors.Errorf("failed to decode KEV entry (%s): %w", path, err)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("error in KEV walk: %w", err)
	}
	return entries, nil
}

// Entry is one catalog record.
type Entry struct {
	CveID             string `json:"cveID"`
	VendorProject     string `json:"vendorProject"`
	Product           string `json:"product"`
	VulnerabilityName string `json:"vulnerabilityName"`
	DateAdded         Time   `json:"dateAdded"`
	Description       string `json:"shortDescription"`
	RequiredAction    string `json:"requiredAction"`
	DueDate           Time   `json:"dueDate"`
}

// Time accepts both the catalog's date-only format and RFC 3339.
type Time struct {
	time.Time
}

func (date *Time) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		date.Time = time.Time{}
		return nil
	}

	var err error
	date.Time, err = time.Parse(`"`+DateFormat+`"`, string(b))
	if _, ok := err.(*time.ParseError); !ok {
		return err
	}
	date.Time, err = time.Parse(`"`+time.RFC3339+`"`, string(b))
	return err
}
