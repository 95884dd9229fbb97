package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/minsafe/msv-db/pkg/cache"
	"github.com/minsafe/msv-db/pkg/cachetest"
	"github.com/minsafe/msv-db/pkg/types"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T, cacheDir string) *cache.Store {
	t.Helper()
	s, err := cache.New(cacheDir, cache.WithClock(clocktesting.NewFakeClock(fixedTime)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_MergeAndGet(t *testing.T) {
	s := newStore(t, t.TempDir())

	err := s.Merge("vendorx/widget", types.ResolutionEntry{
		ProductID: "vendorx/widget",
		Name:      "widget",
		Vendor:    "VendorX",
		Branches: []types.Branch{
			{
				Prefix:         "7.2",
				MSV:            "7.2.4",
				LatestKnown:    "7.2.7",
				AdvisoriesSeen: []string{"VSA-2024-001"},
			},
		},
		Confidence: types.ConfidenceMedium,
		CVECount:   1,
	})
	require.NoError(t, err)

	got, err := s.Get("vendorx/widget")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "widget", got.Name)
	assert.Equal(t, "7.2.4", got.Branches[0].MSV)
	assert.Equal(t, fixedTime, got.Branches[0].LastChecked)
	assert.Equal(t, fixedTime, got.LastUpdated)
}

func TestStore_MergeKeepsHigherMSV(t *testing.T) {
	s := newStore(t, t.TempDir())

	require.NoError(t, s.Merge("vendorx/widget", types.ResolutionEntry{
		ProductID: "vendorx/widget",
		Branches: []types.Branch{
			{
				Prefix:         "7.2",
				MSV:            "7.2.6",
				AdvisoriesSeen: []string{"VSA-2024-003"},
			},
		},
		Confidence: types.ConfidenceHigh,
	}))

	// A stale snapshot knowing only the older fix must not move the bar.
	require.NoError(t, s.Merge("vendorx/widget", types.ResolutionEntry{
		ProductID: "vendorx/widget",
		Branches: []types.Branch{
			{
				Prefix:         "7.2",
				MSV:            "7.2.4",
				AdvisoriesSeen: []string{"VSA-2024-001"},
			},
		},
		Confidence: types.ConfidenceLow,
	}))

	got, err := s.Get("vendorx/widget")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "7.2.6", got.Branches[0].MSV)
	assert.Equal(t, []string{"VSA-2024-001", "VSA-2024-003"}, got.Branches[0].AdvisoriesSeen)
	assert.Equal(t, types.ConfidenceHigh, got.Confidence)
}

func TestStore_GetAbsent(t *testing.T) {
	s := newStore(t, t.TempDir())

	got, err := s.Get("vendorx/unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_CorruptRebuiltEmpty(t *testing.T) {
	cacheDir := t.TempDir()
	dbPath := cache.Path(cacheDir)
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0o700))
	require.NoError(t, os.WriteFile(dbPath, []byte("not a bolt file"), 0o600))

	s := newStore(t, cacheDir)

	got, err := s.Get("vendorx/widget")
	require.NoError(t, err)
	assert.Nil(t, got)

	// The rebuilt store is usable.
	require.NoError(t, s.Merge("vendorx/widget", types.ResolutionEntry{
		ProductID: "vendorx/widget",
		Branches: []types.Branch{
			{
				Prefix: "7.2",
				MSV:    "7.2.4",
			},
		},
	}))
}

func TestStore_Fixtures(t *testing.T) {
	cacheDir := cachetest.InitCache(t, []string{"testdata/fixtures/resolution.yaml"})
	s := newStore(t, cacheDir)

	got, err := s.Get("vendorx/widget")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "VendorX", got.Vendor)
	assert.Equal(t, types.ConfidenceHigh, got.Confidence)
	assert.True(t, got.Exploited)
	assert.Equal(t, "7.2.6", got.Branches[0].MSV)
}

func TestStore_PrimaryMSV(t *testing.T) {
	s := newStore(t, t.TempDir())

	require.NoError(t, s.Merge("vendorx/widget", types.ResolutionEntry{
		ProductID: "vendorx/widget",
		Branches: []types.Branch{
			{
				Prefix: "7.2",
				MSV:    "7.2.6",
			},
			{
				Prefix: "8.0",
				MSV:    "8.0.1",
			},
			{
				Prefix: "9.0", // placeholder branch, no fix yet
			},
		},
	}))

	primary, err := s.PrimaryMSV("vendorx/widget")
	require.NoError(t, err)
	require.NotNil(t, primary)
	assert.Equal(t, "8.0.1", primary.MSV)
	assert.Equal(t, "8.0", primary.Branch)

	primary, err = s.PrimaryMSV("vendorx/unknown")
	require.NoError(t, err)
	assert.Nil(t, primary)
}

func TestMetadataClient(t *testing.T) {
	cacheDir := t.TempDir()
	client := cache.NewMetadataClient(cacheDir)

	_, err := client.Get()
	require.Error(t, err)

	meta := cache.Metadata{
		Version:   cache.SchemaVersion,
		UpdatedAt: fixedTime,
	}
	require.NoError(t, client.Update(meta))

	got, err := client.Get()
	require.NoError(t, err)
	assert.Equal(t, meta, got)

	require.NoError(t, client.Delete())
	_, err = client.Get()
	require.Error(t, err)
}
