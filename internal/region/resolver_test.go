package region

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webshop-ops/freefinance-bridge/internal/freefinance"
)

type fakeLister struct {
	regions []freefinance.Region
	err     error
}

func (f *fakeLister) Regions(context.Context, string) ([]freefinance.Region, error) {
	return f.regions, f.err
}

var austrianRegions = []freefinance.Region{
	{ID: "AT-9", Name: "Wien"},
	{ID: "AT-6", Name: "Steiermark"},
	{ID: "AT-7", Name: "Tirol"},
	{ID: "AT-5", Name: "Salzburg"},
}

func TestNopResolver(t *testing.T) {
	code, err := NopResolver{}.Resolve(context.Background(), "AT", "Steiermark")
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestFuzzyResolverExactName(t *testing.T) {
	r := &FuzzyResolver{Regions: &fakeLister{regions: austrianRegions}}
	code, err := r.Resolve(context.Background(), "AT", "Steiermark")
	require.NoError(t, err)
	assert.Equal(t, "AT-6", code)
}

func TestFuzzyResolverTolerantOfTypos(t *testing.T) {
	r := &FuzzyResolver{Regions: &fakeLister{regions: austrianRegions}}
	code, err := r.Resolve(context.Background(), "AT", "Stiermark")
	require.NoError(t, err)
	assert.Equal(t, "AT-6", code)
}

func TestFuzzyResolverEmptyName(t *testing.T) {
	r := &FuzzyResolver{Regions: &fakeLister{regions: austrianRegions}}
	code, err := r.Resolve(context.Background(), "AT", "")
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestFuzzyResolverNoRegions(t *testing.T) {
	r := &FuzzyResolver{Regions: &fakeLister{}}
	_, err := r.Resolve(context.Background(), "AT", "Steiermark")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFuzzyResolverListError(t *testing.T) {
	r := &FuzzyResolver{Regions: &fakeLister{err: errors.New("boom")}}
	_, err := r.Resolve(context.Background(), "AT", "Steiermark")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
