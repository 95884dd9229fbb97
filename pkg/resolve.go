package pkg

import (
	"context"
	"strings"
	"time"

	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/minsafe/msv-db/pkg/cache"
	"github.com/minsafe/msv-db/pkg/catalog"
	"github.com/minsafe/msv-db/pkg/resolver"
	"github.com/minsafe/msv-db/pkg/source"
)

func resolve(c *cli.Context) error {
	cacheDir := c.String("cache-dir")

	reg, err := catalog.Load(c.String("catalog"))
	if err != nil {
		return xerrors.Errorf("catalog load error: %w", err)
	}

	store, err := cache.New(cacheDir)
	if err != nil {
		return xerrors.Errorf("cache open error: %w", err)
	}
	defer store.Close()

	sources := source.Filter(source.All(c.String("evidence-dir")),
		strings.Split(c.String("only-sources"), ","))
	if len(sources) == 0 {
		return xerrors.New("no sources selected")
	}

	r := resolver.New(sources, store,
		resolver.WithWorkers(c.Int("workers")),
		resolver.WithQueryTimeout(c.Duration("timeout")))
	if err = r.Resolve(context.Background(), reg.Products); err != nil {
		return xerrors.Errorf("resolve error: %w", err)
	}

	meta := cache.NewMetadataClient(cacheDir)
	if err = meta.Update(cache.Metadata{
		Version:   cache.SchemaVersion,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		return xerrors.Errorf("metadata update error: %w", err)
	}
	return nil
}
