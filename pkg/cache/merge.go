package cache

import (
	"sort"
	"time"

	"github.com/minsafe/msv-db/pkg/set"
	"github.com/minsafe/msv-db/pkg/types"
	"github.com/minsafe/msv-db/pkg/version"
)

// mergeEntry folds incoming into existing. Per branch the update rule
// is max(msv), max(latestKnown), union(advisoriesSeen) - monotone in
// every component, which is what makes merge order irrelevant. Top
// level, confidence is only ever raised, data sources accumulate, and
// source results reflect the most recent query snapshot.
func mergeEntry(existing *types.ResolutionEntry, incoming types.ResolutionEntry, now time.Time) types.ResolutionEntry {
	var merged types.ResolutionEntry
	if existing != nil {
		merged = *existing
	} else {
		merged = types.ResolutionEntry{
			ProductID: incoming.ProductID,
		}
	}

	if incoming.Name != "" {
		merged.Name = incoming.Name
	}
	if incoming.Vendor != "" {
		merged.Vendor = incoming.Vendor
	}

	merged.Branches = mergeBranches(merged.Branches, incoming.Branches, now)

	if incoming.Confidence > merged.Confidence {
		merged.Confidence = incoming.Confidence
		merged.Justification = incoming.Justification
	} else if merged.Justification == "" {
		merged.Justification = incoming.Justification
	}

	if incoming.CVECount > merged.CVECount {
		merged.CVECount = incoming.CVECount
	}
	if incoming.Exploited {
		merged.Exploited = true
	}

	if len(incoming.DataSources) > 0 {
		sources := set.NewOrdered(merged.DataSources...)
		sources.Append(incoming.DataSources...)
		merged.DataSources = sources.Values()
	}
	if incoming.SourceResults != nil {
		merged.SourceResults = incoming.SourceResults
	}

	merged.LastUpdated = now
	return merged
}

func mergeBranches(existing, incoming []types.Branch, now time.Time) []types.Branch {
	byPrefix := make(map[string]types.Branch, len(existing))
	for _, b := range existing {
		byPrefix[b.Prefix] = b
	}

	for _, in := range incoming {
		cur, ok := byPrefix[in.Prefix]
		if !ok {
			in.LastChecked = now
			in.AdvisoriesSeen = sortedSeen(set.NewOrdered(in.AdvisoriesSeen...))
			byPrefix[in.Prefix] = in
			continue
		}

		// A lower incoming msv is ignored, not an error: the branch
		// keeps the highest safety bar it has ever been shown.
		cur.MSV = version.Max(cur.MSV, in.MSV)
		cur.LatestKnown = version.Max(cur.LatestKnown, in.LatestKnown)
		cur.AdvisoriesSeen = sortedSeen(set.NewOrdered(cur.AdvisoriesSeen...).Union(set.NewOrdered(in.AdvisoriesSeen...)))
		cur.LastChecked = now
		byPrefix[in.Prefix] = cur
	}

	branches := make([]types.Branch, 0, len(byPrefix))
	for _, b := range byPrefix {
		branches = append(branches, b)
	}
	sort.Slice(branches, func(i, j int) bool {
		return version.Less(branches[i].Prefix, branches[j].Prefix)
	})
	return branches
}

func sortedSeen(s set.Ordered[string]) []string {
	if s.Len() == 0 {
		return nil
	}
	return s.Values()
}
