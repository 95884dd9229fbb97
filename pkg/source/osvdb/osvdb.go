// Package osvdb normalizes ecosystem advisories in the OSV schema.
// Products are matched by the package name from their package-URL match
// key; "fixed" range events are concrete fixed versions, and a trailing
// "introduced" event with no fix leaves the range open-ended.
package osvdb

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/vuln/osv"
	"golang.org/x/xerrors"

	"github.com/minsafe/msv-db/pkg/set"
	"github.com/minsafe/msv-db/pkg/types"
	"github.com/minsafe/msv-db/pkg/utils"
)

const (
	SourceID = types.SourceID("osv-ecosystem")
	osvDir   = "osv"
)

var source = types.DataSource{
	ID:   SourceID,
	Name: "Open Source Vulnerability Database",
	URL:  "https://osv.dev/",
}

// Entry carries the OSV record plus the package field some databases
// put alongside it.
type Entry struct {
	Package string `json:"package,omitempty"`

	osv.Entry
}

// Fetcher supplies already-retrieved OSV entries for one package name.
type Fetcher interface {
	Fetch(ctx context.Context, pkgName string) ([]Entry, error)
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
	if q.Package == "" {
		return nil, nil
	}

	entries, err := s.fetcher.Fetch(ctx, q.Package)
	if err != nil {
		return nil, xerrors.Errorf("OSV fetch error: %w", err)
	}

	var advisories []types.Advisory
	for _, entry := range entries {
		adv, ok := normalize(entry, q.Package)
		if !ok {
			continue
		}
		advisories = append(advisories, adv)
	}
	return advisories, nil
}

func normalize(entry Entry, pkgName string) (types.Advisory, bool) {
	fixes := set.NewOrdered[string]()
	var ranges []types.VersionRange
	for _, affected := range entry.Affected {
		if !affectedMatches(entry, affected, pkgName) {
			continue
		}
		for _, affects := range affected.Ranges {
			ranges = append(ranges, eventRanges(affects.Events, fixes)...)
		}
	}
	if len(ranges) == 0 {
		return types.Advisory{}, false
	}

	adv := types.Advisory{
		ID:        entry.ID,
		Title:     entry.Details,
		CveIDs:    cveIDs(entry.ID, entry.Aliases),
		Ranges:    ranges,
		Published: entry.Published,
		Source:    SourceID,
	}
	if fixes.Len() > 0 {
		adv.FixedVersions = fixes.Values()
	}
	return adv, true
}

func affectedMatches(entry Entry, affected osv.Affected, pkgName string) bool {
	if entry.Package != "" {
		return strings.EqualFold(entry.Package, pkgName)
	}
	return strings.EqualFold(affected.Package.Name, pkgName)
}

// eventRanges folds an ordered introduced/fixed event list into
// affected ranges. An open range at the end of the list has no upper
// bound and therefore no resolvable fix.
func eventRanges(events []osv.RangeEvent, fixes set.Ordered[string]) []types.VersionRange {
	var ranges []types.VersionRange
	var current *types.VersionRange
	for _, event := range events {
		switch {
		case event.Introduced != "":
			if current != nil {
				ranges = append(ranges, *current)
			}
			start := event.Introduced
			if start == "0" {
				start = ""
			}
			current = &types.VersionRange{StartIncluding: start}
		case event.Fixed != "":
			if current == nil {
				current = &types.VersionRange{}
			}
			current.EndExcluding = event.Fixed
			fixes.Append(event.Fixed)
			ranges = append(ranges, *current)
			current = nil
		}
	}
	if current != nil {
		ranges = append(ranges, *current)
	}
	return ranges
}

func cveIDs(id string, aliases []string) []string {
	var ids []string
	for _, alias := range aliases {
		if strings.HasPrefix(alias, "CVE-") {
			ids = append(ids, alias)
		}
	}
	if len(ids) == 0 && strings.HasPrefix(id, "CVE-") {
		ids = []string{id}
	}
	return ids
}

// FileFetcher reads pre-fetched OSV entries from <root>/osv/*.json.
type FileFetcher struct {
	root string
}

func NewFileFetcher(root string) FileFetcher {
	return FileFetcher{
		root: root,
	}
}

func (f FileFetcher) Fetch(_ context.Context, _ string) ([]Entry, error) {
	rootDir := filepath.Join(f.root, osvDir)
	if ok, _ := utils.Exists(rootDir); !ok {
		return nil, nil
	}

	var entries []Entry
	err := utils.FileWalk(rootDir, func(r io.Reader, path string) error {
		var entry Entry
		if err := json.NewDecoder(r).Decode(&entry); err != nil {
			return xerrors.Errorf("failed to decode OSV entry (%s): %w", path, err)
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("error in OSV walk: %w", err)
	}
	return entries, nil
}
