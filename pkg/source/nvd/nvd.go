// Package nvd normalizes CVE items in the NVD API 2.0 shape. A product
// is matched by CPE criteria prefix; version ranges on matching CPE
// nodes become affected ranges and inferred fixed versions.
package nvd

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"github.com/minsafe/msv-db/pkg/set"
	"github.com/minsafe/msv-db/pkg/types"
	"github.com/minsafe/msv-db/pkg/utils"
)

const (
	SourceID = types.SourceID("nvd")
	nvdDir   = "nvd"
)

var source = types.DataSource{
	ID:   SourceID,
	Name: "National Vulnerability Database",
	URL:  "https://nvd.nist.gov/",
}

// Fetcher supplies already-retrieved CVE items relevant to a match key.
type Fetcher interface {
	Fetch(ctx context.Context, matchKey string) ([]Item, error)
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
	if q.MatchKey == "" || !strings.HasPrefix(q.MatchKey, "cpe:") {
		return nil, nil
	}

	items, err := s.fetcher.Fetch(ctx, q.MatchKey)
	if err != nil {
		return nil, xerrors.Errorf("NVD fetch error: %w", err)
	}

	var advisories []types.Advisory
	for _, item := range items {
		adv, ok := normalize(item, q.MatchKey)
		if !ok {
			continue
		}
		advisories = append(advisories, adv)
	}
	return advisories, nil
}

func normalize(item Item, matchKey string) (types.Advisory, bool) {
	fixes := set.NewOrdered[string]()
	var ranges []types.VersionRange
	for _, conf := range item.Cve.Configurations {
		for _, node := range conf.Nodes {
			for _, match := range node.CpeMatch {
				if !match.Vulnerable || !strings.HasPrefix(match.Criteria, matchKey) {
					continue
				}
				r := types.VersionRange{
					StartIncluding: match.VersionStartIncluding,
					StartExcluding: match.VersionStartExcluding,
					EndIncluding:   match.VersionEndIncluding,
					EndExcluding:   match.VersionEndExcluding,
				}
				ranges = append(ranges, r)
				if fix := r.InferredFix(); fix != "" {
					fixes.Append(fix)
				}
			}
		}
	}
	if len(ranges) == 0 {
		return types.Advisory{}, false
	}

	var published time.Time
	if item.Cve.Published != "" {
		published, _ = time.Parse(time.RFC3339, item.Cve.Published)
	}

	adv := types.Advisory{
		ID:       item.Cve.ID,
		Title:    description(item.Cve),
		Severity: severity(item.Cve.Metrics),
		CveIDs:   []string{item.Cve.ID},
		Ranges:   ranges,
		// The KEV-equivalent flag comes from the CISA fields NVD
		// carries through.
		ExploitedInWild: item.Cve.CisaExploitAdd != "",
		Published:       published,
		Source:          SourceID,
	}
	if fixes.Len() > 0 {
		adv.FixedVersions = fixes.Values()
	}
	return adv, true
}

func severity(metrics Metrics) types.Severity {
	for _, m := range metrics.CvssMetricV31 {
		if s, err := types.NewSeverity(strings.ToUpper(m.CvssData.BaseSeverity)); err == nil {
			return s
		}
	}
	for _, m := range metrics.CvssMetricV30 {
		if s, err := types.NewSeverity(strings.ToUpper(m.CvssData.BaseSeverity)); err == nil {
			return s
		}
	}
	for _, m := range metrics.CvssMetricV2 {
		if s, err := types.NewSeverity(strings.ToUpper(m.BaseSeverity)); err == nil {
			return s
		}
	}
	return types.SeverityUnknown
}

func description(cve Cve) string {
	for _, d := range cve.Descriptions {
		if d.Lang == "en" && d.Value != "" {
			return d.Value
		}
	}
	return ""
}

// FileFetcher reads pre-fetched CVE items from <root>/nvd/*.json, one
// item per file.
type FileFetcher struct {
	root string
}

func NewFileFetcher(root string) FileFetcher {
	return FileFetcher{
		root: root,
	}
}

func (f FileFetcher) Fetch(_ context.Context, _ string) ([]Item, error) {
	rootDir := filepath.Join(f.root, nvdDir)
	if ok, _ := utils.Exists(rootDir); !ok {
		return nil, nil
	}

	var items []Item
	err := utils.FileWalk(rootDir, func(r io.Reader, path string) error {
		var item Item
		if err := json.NewDecoder(r).Decode(&item); err != nil {
			return xerrors.Errorf("failed to decode NVD JSON (%s): %w", path, err)
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("error in NVD walk: %w", err)
	}
	return items, nil
}
