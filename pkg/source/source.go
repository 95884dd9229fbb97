// Package source defines the boundary between the resolution engine and
// the intelligence feeds it consumes. Each feed lives in its own
// subpackage and normalizes already-fetched payloads into the common
// types.Advisory shape; nothing above this package ever sees a
// source-specific document.
package source

import (
	"context"

	"github.com/minsafe/msv-db/pkg/source/kev"
	"github.com/minsafe/msv-db/pkg/source/nvd"
	"github.com/minsafe/msv-db/pkg/source/osvdb"
	"github.com/minsafe/msv-db/pkg/source/vendoradv"
	"github.com/minsafe/msv-db/pkg/types"
)

// Source is one intelligence feed. Query must not panic and must not
// let transport errors escape unwrapped; a failed query surfaces to the
// resolver as an error and is recorded, never fatal to the batch.
type Source interface {
	Name() types.SourceID
	DataSource() types.DataSource
	Query(ctx context.Context, q types.ProductQuery) ([]types.Advisory, error)
}

// SourceList has the identifiers of all known sources.
var SourceList = []string{
	string(vendoradv.SourceID),
	string(nvd.SourceID),
	string(kev.SourceID),
	string(osvdb.SourceID),
}

// All builds every source over file-backed fetchers rooted at
// evidenceDir. Collaborators that talk to the network implement the
// per-source Fetcher interfaces instead.
func All(evidenceDir string) []Source {
	return []Source{
		vendoradv.NewSource(vendoradv.NewFileFetcher(evidenceDir)),
		nvd.NewSource(nvd.NewFileFetcher(evidenceDir)),
		kev.NewSource(kev.NewFileFetcher(evidenceDir)),
		osvdb.NewSource(osvdb.NewFileFetcher(evidenceDir)),
	}
}

// Filter returns the subset of sources whose identifiers are in names.
// An empty names list selects everything.
func Filter(sources []Source, names []string) []Source {
	if len(names) == 0 {
		return sources
	}
	enabled := make(map[string]struct{}, len(names))
	for _, name := range names {
		enabled[name] = struct{}{}
	}
	var filtered []Source
	for _, s := range sources {
		if _, ok := enabled[string(s.Name())]; ok {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
