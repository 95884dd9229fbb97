// Package action turns a compliance verdict plus resolution signals
// into one terminal recommendation. The policy is an ordered rule
// table, first match wins, so precedence is data rather than control
// flow.
package action

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/minsafe/msv-db/pkg/types"
	"github.com/minsafe/msv-db/pkg/version"
)

// Input collects every signal the policy may consult.
type Input struct {
	Installed   string
	MSV         string
	Recommended string

	// Exploited reports exploited-in-the-wild evidence for the product.
	Exploited bool

	// NoSafeBranches are branches whose minimum safe version exceeds
	// the latest known release.
	NoSafeBranches []types.Branch

	// HasEvidence reports that at least one source was queried, even if
	// it found nothing.
	HasEvidence bool
	CVECount    int
	Confidence  types.Confidence
}

type rule struct {
	name  string
	match func(Input) bool
	build func(Input) types.ActionGuidance
}

// Rules are evaluated top to bottom. Branch infeasibility outranks
// everything else, including active exploitation.
var rules = []rule{
	{
		name: "no safe version",
		match: func(in Input) bool {
			return len(in.NoSafeBranches) > 0
		},
		build: buildNoSafeVersion,
	},
	{
		name: "exploited and below minimum",
		match: func(in Input) bool {
			return in.Exploited && belowMSV(in)
		},
		build: func(in Input) types.ActionGuidance {
			return types.ActionGuidance{
				Kind:    types.ActionUpgradeCritical,
				Urgency: types.UrgencyCritical,
				Message: fmt.Sprintf("installed %s is below minimum safe version %s and the product has exploited-in-the-wild vulnerabilities",
					in.Installed, in.MSV),
				Steps: []string{
					fmt.Sprintf("upgrade to %s or later immediately", in.MSV),
				},
			}
		},
	},
	{
		name: "below minimum",
		match: func(in Input) bool {
			return belowMSV(in)
		},
		build: func(in Input) types.ActionGuidance {
			return types.ActionGuidance{
				Kind:    types.ActionUpgradeRequired,
				Urgency: types.UrgencyHigh,
				Message: fmt.Sprintf("installed %s is below minimum safe version %s", in.Installed, in.MSV),
				Steps: []string{
					fmt.Sprintf("upgrade to %s or later", in.MSV),
				},
			}
		},
	},
	{
		name: "behind recommended",
		match: func(in Input) bool {
			return meetsMSV(in) && in.Recommended != "" && version.Less(in.Installed, in.Recommended)
		},
		build: func(in Input) types.ActionGuidance {
			return types.ActionGuidance{
				Kind:    types.ActionUpgradeRecommended,
				Urgency: types.UrgencyMedium,
				Message: fmt.Sprintf("installed %s is safe but behind recommended %s", in.Installed, in.Recommended),
			}
		},
	},
	{
		name: "up to date",
		match: func(in Input) bool {
			return meetsMSV(in)
		},
		build: func(in Input) types.ActionGuidance {
			return types.ActionGuidance{
				Kind:    types.ActionNoAction,
				Urgency: types.UrgencyInfo,
				Message: fmt.Sprintf("installed %s meets minimum safe version %s", in.Installed, in.MSV),
			}
		},
	},
	{
		name: "installed unknown",
		match: func(in Input) bool {
			return in.MSV != "" && in.Installed == ""
		},
		build: func(in Input) types.ActionGuidance {
			return types.ActionGuidance{
				Kind:    types.ActionInvestigate,
				Urgency: types.UrgencyMedium,
				Message: fmt.Sprintf("minimum safe version is %s but the installed version is unknown", in.MSV),
				Steps: []string{
					"determine the installed version",
					fmt.Sprintf("verify it is %s or later", in.MSV),
				},
			}
		},
	},
	{
		name: "monitored, nothing relevant",
		match: func(in Input) bool {
			// A clean bill of health from queried sources rates the
			// lowest confidence tier, so no confidence floor here.
			return in.MSV == "" && in.HasEvidence && in.CVECount == 0
		},
		build: func(in Input) types.ActionGuidance {
			return types.ActionGuidance{
				Kind:    types.ActionMonitor,
				Urgency: types.UrgencyInfo,
				Message: "sources were consulted and no relevant vulnerabilities were found",
			}
		},
	},
	{
		name: "insufficient evidence",
		match: func(in Input) bool {
			return in.MSV == ""
		},
		build: func(in Input) types.ActionGuidance {
			return types.ActionGuidance{
				Kind:    types.ActionInvestigate,
				Urgency: types.UrgencyLow,
				Message: "no minimum safe version could be resolved",
				Steps: []string{
					"search authoritative vulnerability databases for this product",
					"use the latest vendor build until a minimum safe version is established",
				},
			}
		},
	},
	{
		name: "fallback",
		match: func(in Input) bool {
			return true
		},
		build: func(in Input) types.ActionGuidance {
			return types.ActionGuidance{
				Kind:    types.ActionMonitor,
				Urgency: types.UrgencyLow,
				Message: "no rule matched, continue monitoring",
			}
		},
	},
}

// Decide evaluates the policy for one product query.
func Decide(in Input) types.ActionGuidance {
	for _, r := range rules {
		if r.match(in) {
			return r.build(in)
		}
	}
	// rules end in a catch-all
	return types.ActionGuidance{Kind: types.ActionMonitor, Urgency: types.UrgencyLow}
}

func belowMSV(in Input) bool {
	return in.Installed != "" && in.MSV != "" && version.Less(in.Installed, in.MSV)
}

func meetsMSV(in Input) bool {
	return in.Installed != "" && in.MSV != "" && !version.Less(in.Installed, in.MSV)
}

func buildNoSafeVersion(in Input) types.ActionGuidance {
	lines := lo.Map(in.NoSafeBranches, func(b types.Branch, _ int) string {
		return fmt.Sprintf("branch %s requires %s but the latest known release is %s",
			b.Prefix, b.MSV, b.LatestKnown)
	})
	steps := lo.Map(in.NoSafeBranches, func(b types.Branch, _ int) string {
		return fmt.Sprintf("move off branch %s: no released version satisfies its minimum safe version", b.Prefix)
	})
	return types.ActionGuidance{
		Kind:    types.ActionUpgradeCritical,
		Urgency: types.UrgencyCritical,
		Message: "no safe version exists: " + strings.Join(lines, "; "),
		Steps:   steps,
	}
}
