package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/minsafe/msv-db/pkg/types"
)

var mergeTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMergeEntry_Monotonic(t *testing.T) {
	existing := &types.ResolutionEntry{
		ProductID: "vendorx/widget",
		Branches: []types.Branch{
			{
				Prefix:         "7.2",
				MSV:            "7.2.6",
				LatestKnown:    "7.2.7",
				AdvisoriesSeen: []string{"VSA-1", "VSA-2", "VSA-3"},
			},
		},
		Confidence: types.ConfidenceHigh,
	}

	// A stale source later reports only an older fix
	incoming := types.ResolutionEntry{
		ProductID: "vendorx/widget",
		Branches: []types.Branch{
			{
				Prefix:         "7.2",
				MSV:            "7.2.4",
				AdvisoriesSeen: []string{"VSA-2"},
			},
		},
		Confidence: types.ConfidenceLow,
	}

	merged := mergeEntry(existing, incoming, mergeTime)
	assert.Equal(t, "7.2.6", merged.Branches[0].MSV)
	assert.Equal(t, "7.2.7", merged.Branches[0].LatestKnown)
	assert.Equal(t, []string{"VSA-1", "VSA-2", "VSA-3"}, merged.Branches[0].AdvisoriesSeen)
	assert.Equal(t, types.ConfidenceHigh, merged.Confidence)
}

func TestMergeEntry_Idempotent(t *testing.T) {
	incoming := types.ResolutionEntry{
		ProductID: "vendorx/widget",
		Branches: []types.Branch{
			{
				Prefix:         "7.2",
				MSV:            "7.2.4",
				LatestKnown:    "7.2.7",
				AdvisoriesSeen: []string{"VSA-1"},
			},
		},
		Confidence: types.ConfidenceMedium,
		CVECount:   2,
	}

	once := mergeEntry(nil, incoming, mergeTime)
	twice := mergeEntry(&once, incoming, mergeTime)
	assert.Equal(t, once, twice)
}

func TestMergeEntry_Commutative(t *testing.T) {
	c1 := types.ResolutionEntry{
		ProductID: "vendorx/widget",
		Branches: []types.Branch{
			{
				Prefix:         "7.2",
				MSV:            "7.2.4",
				AdvisoriesSeen: []string{"VSA-1"},
			},
		},
		Confidence: types.ConfidenceMedium,
	}
	c2 := types.ResolutionEntry{
		ProductID: "vendorx/widget",
		Branches: []types.Branch{
			{
				Prefix:         "7.2",
				MSV:            "7.2.6",
				LatestKnown:    "7.2.7",
				AdvisoriesSeen: []string{"VSA-2"},
			},
			{
				Prefix:         "8.0",
				MSV:            "8.0.1",
				AdvisoriesSeen: []string{"VSA-3"},
			},
		},
		Confidence: types.ConfidenceHigh,
	}

	first := mergeEntry(nil, c1, mergeTime)
	oneTwo := mergeEntry(&first, c2, mergeTime)

	second := mergeEntry(nil, c2, mergeTime)
	twoOne := mergeEntry(&second, c1, mergeTime)

	assert.Equal(t, oneTwo.Branches, twoOne.Branches)
	assert.Equal(t, oneTwo.Confidence, twoOne.Confidence)
}

func TestMergeEntry_SequenceIsMaxOverCandidates(t *testing.T) {
	msvs := []string{"7.2.1", "7.2.9", "7.2.4", "7.2.9", "7.2.0"}

	var state *types.ResolutionEntry
	for _, m := range msvs {
		merged := mergeEntry(state, types.ResolutionEntry{
			ProductID: "vendorx/widget",
			Branches: []types.Branch{
				{
					Prefix: "7.2",
					MSV:    m,
				},
			},
		}, mergeTime)
		state = &merged
	}
	assert.Equal(t, "7.2.9", state.Branches[0].MSV)
}

func TestMergeEntry_NewBranchInserted(t *testing.T) {
	existing := &types.ResolutionEntry{
		ProductID: "vendorx/widget",
		Branches: []types.Branch{
			{
				Prefix: "7.2",
				MSV:    "7.2.4",
			},
		},
	}
	incoming := types.ResolutionEntry{
		Branches: []types.Branch{
			{
				Prefix: "8.0",
				MSV:    "8.0.1",
			},
		},
	}

	merged := mergeEntry(existing, incoming, mergeTime)
	assert.Len(t, merged.Branches, 2)
	assert.Equal(t, "7.2", merged.Branches[0].Prefix)
	assert.Equal(t, "8.0", merged.Branches[1].Prefix)
	assert.Equal(t, mergeTime, merged.Branches[1].LastChecked)
}

func TestMergeEntry_SourceResultsReplaced(t *testing.T) {
	existing := &types.ResolutionEntry{
		ProductID: "vendorx/widget",
		SourceResults: map[types.SourceID]types.SourceResult{
			"nvd": {Source: "nvd", Queried: true, CVECount: 3},
		},
		DataSources: []types.SourceID{"nvd"},
	}
	incoming := types.ResolutionEntry{
		SourceResults: map[types.SourceID]types.SourceResult{
			"nvd": {Source: "nvd", Queried: false, Note: "timeout"},
		},
		DataSources: []types.SourceID{"vendor-advisories"},
	}

	merged := mergeEntry(existing, incoming, mergeTime)
	// results are the latest snapshot, sources accumulate
	assert.False(t, merged.SourceResults["nvd"].Queried)
	assert.Equal(t, "timeout", merged.SourceResults["nvd"].Note)
	assert.Equal(t, []types.SourceID{"nvd", "vendor-advisories"}, merged.DataSources)
}

func TestMergeEntry_ExploitedNeverUnset(t *testing.T) {
	existing := &types.ResolutionEntry{
		ProductID: "vendorx/widget",
		Exploited: true,
		CVECount:  5,
	}
	merged := mergeEntry(existing, types.ResolutionEntry{CVECount: 2}, mergeTime)
	assert.True(t, merged.Exploited)
	assert.Equal(t, 5, merged.CVECount)
}
