// Package region maps a storefront's free-text region name onto the
// accounting platform's region ids. The shop this bridge was built for runs
// with resolution switched off, so the default resolver is a no-op; the
// fuzzy resolver stays available behind configuration.
package region

import (
	"context"
	"errors"
	"sort"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/webshop-ops/freefinance-bridge/internal/freefinance"
)

// ErrNotFound: the country has no region resembling the given name.
var ErrNotFound = errors.New("region: no match")

type Resolver interface {
	// Resolve returns the platform's region id for a raw region name.
	// An empty id with a nil error means resolution is not in use.
	Resolve(ctx context.Context, countryCode, name string) (string, error)
}

// NopResolver leaves regions unresolved.
type NopResolver struct{}

func (NopResolver) Resolve(context.Context, string, string) (string, error) {
	return "", nil
}

// RegionLister is satisfied by the FreeFinance client.
type RegionLister interface {
	Regions(ctx context.Context, countryCode string) ([]freefinance.Region, error)
}

// FuzzyResolver picks the region whose name is most similar to the input,
// by Sørensen–Dice bigram similarity.
type FuzzyResolver struct {
	Regions RegionLister
}

func (r *FuzzyResolver) Resolve(ctx context.Context, countryCode, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	regions, err := r.Regions.Regions(ctx, countryCode)
	if err != nil {
		return "", err
	}
	if len(regions) == 0 {
		return "", ErrNotFound
	}

	dice := metrics.NewSorensenDice()
	sort.SliceStable(regions, func(i, j int) bool {
		return strutil.Similarity(name, regions[i].Name, dice) >
			strutil.Similarity(name, regions[j].Name, dice)
	})
	if regions[0].ID == "" {
		return "", ErrNotFound
	}
	return regions[0].ID, nil
}
