// Package msv computes per-branch minimum-safe-version candidates from
// the normalized advisories of one product. A version is safe only if
// it is unaffected by every known vulnerability in its branch, so the
// candidate is the maximum resolvable fixed version, not the minimum.
package msv

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/minsafe/msv-db/pkg/set"
	"github.com/minsafe/msv-db/pkg/types"
	"github.com/minsafe/msv-db/pkg/version"
)

// Candidate is the computed state for one release branch. It is merged
// into the resolution cache, never applied directly.
type Candidate struct {
	Prefix string
	// MSV is empty when Unresolved is set.
	MSV        string
	Unresolved bool
	// LatestKnown is the newest release the caller knows about for the
	// branch, "" when unknown.
	LatestKnown string
	// NoSafeVersion is set when the candidate exceeds LatestKnown: no
	// released version of the branch is safe.
	NoSafeVersion bool
	AdvisoryIDs   []string
	FixPoints     int
	Exploited     bool
	Confidence    types.Confidence
}

// Result is the calculator output for one product.
type Result struct {
	Candidates    []Candidate
	CVECount      int
	Exploited     bool
	Confidence    types.Confidence
	Justification string
}

type branchEvidence struct {
	msv       string
	latest    string
	ids       set.Ordered[string]
	cves      set.Set[string]
	fixPoints int
	exploited bool
}

// Calculate derives per-branch candidates from all advisories evidenced
// for one product. latestKnown maps a branch prefix to the newest
// release the catalog knows about for that branch.
func Calculate(advisories []types.Advisory, latestKnown map[string]string) Result {
	branches := make(map[string]*branchEvidence)
	branch := func(prefix string) *branchEvidence {
		b, ok := branches[prefix]
		if !ok {
			b = &branchEvidence{
				latest: latestKnown[prefix],
				ids:    set.NewOrdered[string](),
				cves:   set.New[string](),
			}
			branches[prefix] = b
		}
		return b
	}

	allCVEs := set.New[string]()
	exploitedCVEs := set.New[string]()
	exploited := false

	for _, adv := range advisories {
		allCVEs.Append(adv.CveIDs...)
		if adv.ExploitedInWild {
			exploited = true
			exploitedCVEs.Append(adv.CveIDs...)
		}

		fixBranches := set.New[string]()
		for _, fix := range lo.Uniq(adv.ResolvableFixes()) {
			b := branch(version.Branch(fix))
			b.msv = version.Max(b.msv, fix)
			b.fixPoints++
			b.ids.Append(adv.ID)
			b.cves.Append(adv.CveIDs...)
			if adv.ExploitedInWild {
				b.exploited = true
			}
			fixBranches.Append(version.Branch(fix))
		}

		// Branches the advisory affects without contributing a
		// resolvable fix still surface, explicitly unresolved rather
		// than silently absent.
		for _, prefix := range rangeBranches(adv.Ranges) {
			if fixBranches.Contains(prefix) {
				continue
			}
			b := branch(prefix)
			b.ids.Append(adv.ID)
			b.cves.Append(adv.CveIDs...)
			if adv.ExploitedInWild {
				b.exploited = true
			}
		}
	}

	var candidates []Candidate
	for prefix, b := range branches {
		// A versionless exploited advisory (a bare catalog entry)
		// still marks the branch when it shares a CVE id with the
		// branch's evidence.
		branchExploited := b.exploited
		if !branchExploited {
			branchExploited = lo.SomeBy(b.cves.Values(), exploitedCVEs.Contains)
		}

		c := Candidate{
			Prefix:      prefix,
			MSV:         b.msv,
			Unresolved:  b.msv == "",
			LatestKnown: b.latest,
			AdvisoryIDs: b.ids.Values(),
			FixPoints:   b.fixPoints,
			Exploited:   branchExploited,
			Confidence:  confidence(b.fixPoints, branchExploited),
		}
		if c.MSV != "" && c.LatestKnown != "" && version.Compare(c.MSV, c.LatestKnown) > 0 {
			c.NoSafeVersion = true
		}
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return version.Less(candidates[i].Prefix, candidates[j].Prefix)
	})

	result := Result{
		Candidates: candidates,
		CVECount:   allCVEs.Len(),
		Exploited:  exploited,
	}
	result.Confidence = overallConfidence(candidates, result.CVECount)
	result.Justification = justify(result)
	return result
}

// confidence applies the evidence-volume thresholds: three or more
// independent fixed-version data points plus exploitation evidence rate
// high, a single data point rates low, anything in between medium. A
// branch without any data point is an unresolved placeholder and rates
// low.
func confidence(fixPoints int, exploited bool) types.Confidence {
	switch {
	case fixPoints >= 3 && exploited:
		return types.ConfidenceHigh
	case fixPoints <= 1:
		return types.ConfidenceLow
	default:
		return types.ConfidenceMedium
	}
}

func overallConfidence(candidates []Candidate, cveCount int) types.Confidence {
	if len(candidates) == 0 {
		if cveCount > 0 {
			return types.ConfidenceLow
		}
		return types.ConfidenceNone
	}
	best := types.ConfidenceNone
	for _, c := range candidates {
		if c.Confidence > best {
			best = c.Confidence
		}
	}
	return best
}

func justify(r Result) string {
	if len(r.Candidates) == 0 {
		if r.CVECount == 0 {
			return "no relevant vulnerabilities found"
		}
		return fmt.Sprintf("%d relevant CVEs but no version evidence", r.CVECount)
	}

	var parts []string
	for _, c := range r.Candidates {
		switch {
		case c.Unresolved:
			parts = append(parts, fmt.Sprintf("branch %s: advisories without a resolvable fixed version", c.Prefix))
		case c.NoSafeVersion:
			parts = append(parts, fmt.Sprintf("branch %s: minimum safe %s exceeds latest known %s", c.Prefix, c.MSV, c.LatestKnown))
		default:
			parts = append(parts, fmt.Sprintf("branch %s: %d fixed-version data points, minimum safe %s", c.Prefix, c.FixPoints, c.MSV))
		}
	}
	if r.Exploited {
		parts = append(parts, "exploited-in-the-wild evidence present")
	}
	return strings.Join(parts, "; ")
}

// rangeBranches names the branches an affected range gives evidence
// about, judged by its version bounds.
func rangeBranches(ranges []types.VersionRange) []string {
	prefixes := set.NewOrdered[string]()
	for _, r := range ranges {
		for _, v := range []string{r.EndIncluding, r.EndExcluding, r.StartIncluding, r.StartExcluding} {
			if v != "" {
				prefixes.Append(version.Branch(v))
				break
			}
		}
	}
	return prefixes.Values()
}
