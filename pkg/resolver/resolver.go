// Package resolver drives resolution end to end: fan out the product's
// query to every source, calculate per-branch candidates, merge them
// into the resolution cache. Products resolve in parallel, merges for
// one product are serialized by the cache.
package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/minsafe/msv-db/pkg/cache"
	"github.com/minsafe/msv-db/pkg/catalog"
	"github.com/minsafe/msv-db/pkg/log"
	"github.com/minsafe/msv-db/pkg/msv"
	"github.com/minsafe/msv-db/pkg/source"
	"github.com/minsafe/msv-db/pkg/types"
	"github.com/minsafe/msv-db/pkg/version"
)

const (
	defaultWorkers      = 5
	defaultQueryTimeout = 30 * time.Second
	defaultRetries      = 2
	defaultRetryWait    = time.Second
)

var logger = log.WithPrefix("resolver")

type Resolver struct {
	sources []source.Source
	store   *cache.Store

	workers      int
	queryTimeout time.Duration
	retries      uint64
	retryWait    time.Duration
}

type Option func(*Resolver)

func WithWorkers(n int) Option {
	return func(r *Resolver) {
		r.workers = n
	}
}

func WithQueryTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.queryTimeout = d
	}
}

func WithRetries(n uint64) Option {
	return func(r *Resolver) {
		r.retries = n
	}
}

func WithRetryWait(d time.Duration) Option {
	return func(r *Resolver) {
		r.retryWait = d
	}
}

func New(sources []source.Source, store *cache.Store, opts ...Option) *Resolver {
	r := &Resolver{
		sources:      sources,
		store:        store,
		workers:      defaultWorkers,
		queryTimeout: defaultQueryTimeout,
		retries:      defaultRetries,
		retryWait:    defaultRetryWait,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve processes every product. A failure for one product is logged
// and does not block the rest of the batch.
func (r *Resolver) Resolve(ctx context.Context, products []catalog.Product) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, product := range products {
		product := product
		g.Go(func() error {
			if err := r.resolveProduct(ctx, product); err != nil {
				logger.Warn("Resolution failed", log.Product(product.ID), log.Err(err))
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Resolver) resolveProduct(ctx context.Context, product catalog.Product) error {
	query := product.Query()

	var (
		mu            sync.Mutex
		advisories    []types.Advisory
		sourceResults = make(map[types.SourceID]types.SourceResult)
		consulted     []types.SourceID
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range r.sources {
		src := src
		g.Go(func() error {
			advs, err := r.query(ctx, src, query)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// A dead source degrades to "not queried"; the batch
				// carries on with the remaining evidence.
				logger.Warn("Source query failed", log.Product(product.ID),
					log.Source(string(src.Name())), log.Err(err))
				sourceResults[src.Name()] = types.SourceResult{
					Source:  src.Name(),
					Queried: false,
					Note:    err.Error(),
				}
				return nil
			}
			sourceResults[src.Name()] = types.SourceResult{
				Source:   src.Name(),
				Queried:  true,
				CVECount: cveCount(advs),
			}
			consulted = append(consulted, src.Name())
			advisories = append(advisories, advs...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	entry := r.buildEntry(product, msv.Calculate(advisories, product.LatestKnown), consulted, sourceResults)
	return r.store.Merge(product.ID, entry)
}

// query runs one source with a bounded timeout and a few retries.
func (r *Resolver) query(ctx context.Context, src source.Source, q types.ProductQuery) ([]types.Advisory, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(r.retryWait), r.retries), ctx)
	return backoff.RetryWithData(func() ([]types.Advisory, error) {
		return src.Query(ctx, q)
	}, b)
}

func (r *Resolver) buildEntry(product catalog.Product, result msv.Result,
	consulted []types.SourceID, sourceResults map[types.SourceID]types.SourceResult) types.ResolutionEntry {

	branches := make([]types.Branch, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		branches = append(branches, types.Branch{
			Prefix:         c.Prefix,
			MSV:            c.MSV,
			LatestKnown:    c.LatestKnown,
			AdvisoriesSeen: c.AdvisoryIDs,
		})
	}

	confidence := result.Confidence
	justification := result.Justification
	if partial(sourceResults) && confidence > types.ConfidenceMedium {
		// Evidence is incomplete, so the rating must not claim more
		// certainty than the queried subset supports.
		confidence = types.ConfidenceMedium
		justification += "; evidence incomplete, one or more sources unavailable"
	}

	return types.ResolutionEntry{
		ProductID:     product.ID,
		Name:          product.Name,
		Vendor:        product.Vendor,
		Branches:      branches,
		DataSources:   consulted,
		Confidence:    confidence,
		Justification: justification,
		CVECount:      result.CVECount,
		Exploited:     result.Exploited,
		SourceResults: sourceResults,
	}
}

func partial(results map[types.SourceID]types.SourceResult) bool {
	for _, res := range results {
		if !res.Queried {
			return true
		}
	}
	return false
}

func cveCount(advisories []types.Advisory) int {
	seen := make(map[string]struct{})
	for _, adv := range advisories {
		for _, id := range adv.CveIDs {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// NoSafeBranches extracts the branches of entry whose minimum safe
// version exceeds the latest known release, the action policy's
// highest-priority signal.
func NoSafeBranches(entry *types.ResolutionEntry) []types.Branch {
	if entry == nil {
		return nil
	}
	var flagged []types.Branch
	for _, b := range entry.Branches {
		if b.MSV != "" && b.LatestKnown != "" && version.Compare(b.MSV, b.LatestKnown) > 0 {
			flagged = append(flagged, b)
		}
	}
	return flagged
}
