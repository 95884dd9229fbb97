// Package sourcetest has a shared harness for source normalizer tests:
// run a query against a source and compare the normalized advisories.
package sourcetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsafe/msv-db/pkg/source"
	"github.com/minsafe/msv-db/pkg/types"
)

type TestQueryArgs struct {
	Query   types.ProductQuery
	Want    []types.Advisory
	WantErr string
}

func TestQuery(t *testing.T, s source.Source, args TestQueryArgs) {
	t.Helper()

	got, err := s.Query(context.Background(), args.Query)
	if args.WantErr != "" {
		require.Error(t, err)
		assert.Contains(t, err.Error(), args.WantErr)
		return
	}

	require.NoError(t, err)
	assert.Equal(t, args.Want, got)
}
