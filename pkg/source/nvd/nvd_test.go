package nvd_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsafe/msv-db/pkg/source/nvd"
	"github.com/minsafe/msv-db/pkg/types"
	"github.com/minsafe/msv-db/pkg/utils"
)

type fakeFetcher struct {
	items []nvd.Item
	err   error
}

func (f fakeFetcher) Fetch(_ context.Context, _ string) ([]nvd.Item, error) {
	return f.items, f.err
}

func TestSource_Query(t *testing.T) {
	query := types.ProductQuery{
		ProductID: "vendorx/widget",
		Name:      "Widget",
		Vendor:    "VendorX",
		MatchKey:  "cpe:2.3:a:vendorx:widget",
	}
	tests := []struct {
		name  string
		query types.ProductQuery
		items []nvd.Item
		want  []types.Advisory
	}{
		{
			name:  "happy path",
			query: query,
			items: []nvd.Item{
				{
					Cve: nvd.Cve{
						ID:        "CVE-2024-0001",
						Published: "2024-01-10T18:15:00Z",
						Descriptions: []nvd.LangString{
							{
								Lang:  "en",
								Value: "Widget allows remote code execution.",
							},
						},
						Metrics: nvd.Metrics{
							CvssMetricV31: []nvd.CvssMetricV3{
								{
									CvssData: nvd.CvssDataV30{
										BaseScore:    9.8,
										BaseSeverity: "CRITICAL",
									},
								},
							},
						},
						Configurations: []nvd.Configuration{
							{
								Nodes: []nvd.Node{
									{
										Operator: "OR",
										CpeMatch: []nvd.CpeMatch{
											{
												Vulnerable:            true,
												Criteria:              "cpe:2.3:a:vendorx:widget:*:*:*:*:*:*:*:*",
												VersionStartIncluding: "7.2.0",
												VersionEndExcluding:   "7.2.4",
											},
										},
									},
								},
							},
						},
					},
				},
			},
			want: []types.Advisory{
				{
					ID:       "CVE-2024-0001",
					Title:    "Widget allows remote code execution.",
					Severity: types.SeverityCritical,
					CveIDs:   []string{"CVE-2024-0001"},
					Ranges: []types.VersionRange{
						{
							StartIncluding: "7.2.0",
							EndExcluding:   "7.2.4",
						},
					},
					FixedVersions: []string{"7.2.4"},
					Published:     *utils.MustTimeParse("2024-01-10T18:15:00Z"),
					Source:        nvd.SourceID,
				},
			},
		},
		{
			name:  "cisa exploit date raises the exploited flag",
			query: query,
			items: []nvd.Item{
				{
					Cve: nvd.Cve{
						ID:             "CVE-2024-0002",
						CisaExploitAdd: "2024-02-01",
						Configurations: []nvd.Configuration{
							{
								Nodes: []nvd.Node{
									{
										CpeMatch: []nvd.CpeMatch{
											{
												Vulnerable:          true,
												Criteria:            "cpe:2.3:a:vendorx:widget:*:*:*:*:*:*:*:*",
												VersionEndExcluding: "7.2.6",
											},
										},
									},
								},
							},
						},
					},
				},
			},
			want: []types.Advisory{
				{
					ID:     "CVE-2024-0002",
					CveIDs: []string{"CVE-2024-0002"},
					Ranges: []types.VersionRange{
						{
							EndExcluding: "7.2.6",
						},
					},
					FixedVersions:   []string{"7.2.6"},
					ExploitedInWild: true,
					Source:          nvd.SourceID,
				},
			},
		},
		{
			name:  "non-matching criteria dropped",
			query: query,
			items: []nvd.Item{
				{
					Cve: nvd.Cve{
						ID: "CVE-2024-0003",
						Configurations: []nvd.Configuration{
							{
								Nodes: []nvd.Node{
									{
										CpeMatch: []nvd.CpeMatch{
											{
												Vulnerable:          true,
												Criteria:            "cpe:2.3:a:someone:else:*:*:*:*:*:*:*:*",
												VersionEndExcluding: "1.0.1",
											},
										},
									},
								},
							},
						},
					},
				},
			},
			want: nil,
		},
		{
			name: "non-cpe match key skips the source",
			query: types.ProductQuery{
				ProductID: "vendorx/widget",
				MatchKey:  "pkg:npm/widget",
			},
			items: []nvd.Item{
				{
					Cve: nvd.Cve{
						ID: "CVE-2024-0004",
					},
				},
			},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := nvd.NewSource(fakeFetcher{items: tt.items})
			got, err := s.Query(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileFetcher_Fetch(t *testing.T) {
	f := nvd.NewFileFetcher("testdata")
	items, err := f.Fetch(context.Background(), "cpe:2.3:a:vendorx:widget")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "CVE-2024-0001", items[0].Cve.ID)
}
