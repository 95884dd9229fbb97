// Package vendoradv normalizes vendor-published security advisories.
// Vendors publish feeds in all kinds of page and feed formats; the
// retrieval collaborators scrape those and hand over the YAML documents
// this package understands.
package vendoradv

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"github.com/minsafe/msv-db/pkg/set"
	"github.com/minsafe/msv-db/pkg/types"
	"github.com/minsafe/msv-db/pkg/utils"
)

const (
	SourceID   = types.SourceID("vendor-advisories")
	vendorDir  = "vendor-advisories"
	dateFormat = "2006-01-02"
)

// Vendor feeds have no single upstream URL; each vendor collaborator
// knows its own.
var source = types.DataSource{
	ID:   SourceID,
	Name: "Vendor Security Advisories",
}

// Fetcher supplies already-retrieved advisory feeds for one vendor.
type Fetcher interface {
	Fetch(ctx context.Context, vendor string) ([]Feed, error)
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
	feeds, err := s.fetcher.Fetch(ctx, q.Vendor)
	if err != nil {
		return nil, xerrors.Errorf("vendor advisory fetch error: %w", err)
	}

	var advisories []types.Advisory
	for _, feed := range feeds {
		if feed.Vendor != "" && !strings.EqualFold(feed.Vendor, q.Vendor) {
			continue
		}
		for _, raw := range feed.Advisories {
			if raw.Product != "" && !strings.EqualFold(raw.Product, q.Name) {
				continue
			}
			advisories = append(advisories, normalize(raw))
		}
	}
	return advisories, nil
}

func normalize(raw Advisory) types.Advisory {
	severity, _ := types.NewSeverity(strings.ToUpper(raw.Severity))

	var published time.Time
	if raw.Published != "" {
		published, _ = time.Parse(dateFormat, raw.Published)
	}

	fixes := set.NewOrdered(raw.FixedVersions...)
	var ranges []types.VersionRange
	for _, affected := range raw.Affected {
		r := types.VersionRange{
			StartIncluding: affected.StartIncluding,
			StartExcluding: affected.StartExcluding,
			EndIncluding:   affected.EndIncluding,
			EndExcluding:   affected.EndExcluding,
		}
		ranges = append(ranges, r)
		if fix := r.InferredFix(); fix != "" {
			fixes.Append(fix)
		}
	}

	adv := types.Advisory{
		ID:              raw.ID,
		Title:           raw.Title,
		Severity:        severity,
		CveIDs:          raw.CVEs,
		Ranges:          ranges,
		Published:       published,
		ExploitedInWild: raw.Exploited,
		Source:          SourceID,
	}
	if fixes.Len() > 0 {
		adv.FixedVersions = fixes.Values()
	}
	return adv
}

// FileFetcher reads pre-fetched feeds from
// <root>/vendor-advisories/<vendor>/*.yaml.
type FileFetcher struct {
	root string
}

func NewFileFetcher(root string) FileFetcher {
	return FileFetcher{
		root: root,
	}
}

func (f FileFetcher) Fetch(_ context.Context, vendor string) ([]Feed, error) {
	rootDir := filepath.Join(f.root, vendorDir, strings.ToLower(vendor))
	if ok, _ := utils.Exists(rootDir); !ok {
		return nil, nil
	}

	var feeds []Feed
	err := utils.FileWalk(rootDir, func(r io.Reader, path string) error {
		var feed Feed
		if err := yaml.NewDecoder(r).Decode(&feed); err != nil {
			return xerrors.Errorf("failed to decode vendor advisory feed (%s): %w", path, err)
		}
		feeds = append(feeds, feed)
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("error in vendor advisory walk: %w", err)
	}
	return feeds, nil
}
