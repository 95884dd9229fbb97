package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsafe/msv-db/pkg/catalog"
	"github.com/minsafe/msv-db/pkg/types"
)

func TestLoad(t *testing.T) {
	c, err := catalog.Load("testdata/catalog.yaml")
	require.NoError(t, err)
	require.Len(t, c.Products, 2)

	p, ok := c.Get("vendorx/widget")
	require.True(t, ok)
	assert.Equal(t, "VendorX", p.Vendor)
	assert.Equal(t, "7.2.3", p.Installed)
	assert.Equal(t, "7.2.7", p.LatestKnown["7.2"])

	_, ok = c.Get("vendorx/unknown")
	assert.False(t, ok)
}

func TestLoad_DuplicateID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `products:
  - id: vendorx/widget
    name: widget
  - id: vendorx/widget
    name: widget again
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := catalog.Load(path)
	require.ErrorContains(t, err, "duplicate product id")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := catalog.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestProduct_Query(t *testing.T) {
	tests := []struct {
		name    string
		product catalog.Product
		want    types.ProductQuery
	}{
		{
			name: "cpe match key",
			product: catalog.Product{
				ID:       "vendorx/widget",
				Name:     "widget",
				Vendor:   "VendorX",
				MatchKey: "cpe:2.3:a:vendorx:widget",
			},
			want: types.ProductQuery{
				ProductID: "vendorx/widget",
				Name:      "widget",
				Vendor:    "VendorX",
				MatchKey:  "cpe:2.3:a:vendorx:widget",
			},
		},
		{
			name: "package url match key",
			product: catalog.Product{
				ID:       "npm/left-pad",
				Name:     "left-pad",
				Vendor:   "community",
				MatchKey: "pkg:npm/left-pad",
			},
			want: types.ProductQuery{
				ProductID: "npm/left-pad",
				Name:      "left-pad",
				Vendor:    "community",
				MatchKey:  "pkg:npm/left-pad",
				Package:   "left-pad",
			},
		},
		{
			name: "namespaced package url",
			product: catalog.Product{
				ID:       "golang/x-net",
				Name:     "x/net",
				MatchKey: "pkg:golang/golang.org/x/net",
			},
			want: types.ProductQuery{
				ProductID: "golang/x-net",
				Name:      "x/net",
				MatchKey:  "pkg:golang/golang.org/x/net",
				Package:   "golang.org/x/net",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.product.Query())
		})
	}
}
