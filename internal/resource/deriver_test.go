package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordinals-plus/indexer/internal/cache"
	"github.com/ordinals-plus/indexer/internal/log"
	"github.com/ordinals-plus/indexer/internal/model"
	"github.com/ordinals-plus/indexer/internal/provider"
)

type fakeProvider struct {
	details map[string]*provider.Details
	sats    map[int64]*provider.SatInfo
	calls   map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		details: map[string]*provider.Details{},
		sats:    map[int64]*provider.SatInfo{},
		calls:   map[string]int{},
	}
}

func (f *fakeProvider) InscriptionByNumber(ctx context.Context, n int64) (*provider.Inscription, error) {
	panic("not used in these tests")
}

func (f *fakeProvider) InscriptionByID(ctx context.Context, id string) (*provider.Details, error) {
	f.calls["byID:"+id]++
	d, ok := f.details[id]
	if !ok {
		return nil, provider.ErrNotYetExists
	}
	return d, nil
}

func (f *fakeProvider) SatInfo(ctx context.Context, sat int64) (*provider.SatInfo, error) {
	f.calls["sat"]++
	s, ok := f.sats[sat]
	if !ok {
		return &provider.SatInfo{}, nil
	}
	return s, nil
}

func (f *fakeProvider) Metadata(ctx context.Context, id string) ([]byte, error) {
	panic("not used in these tests")
}

func TestDeriveMainnet(t *testing.T) {
	fp := newFakeProvider()
	fp.details["abcd...i0"] = &provider.Details{InscriptionID: "abcd...i0", Sat: 1000}
	fp.sats[1000] = &provider.SatInfo{InscriptionIDs: []string{"abcd...i0"}}

	d := New(fp, cache.New(time.Hour), model.NetworkMainnet, log.New())
	id, err := d.Derive(context.Background(), "abcd...i0")
	require.NoError(t, err)
	assert.Equal(t, "did:btco:1000/0", id)
}

func TestDeriveSignetIndex(t *testing.T) {
	fp := newFakeProvider()
	fp.details["xyz...i0"] = &provider.Details{InscriptionID: "xyz...i0", Sat: 42}
	fp.sats[42] = &provider.SatInfo{InscriptionIDs: []string{"a", "b", "xyz...i0"}}

	d := New(fp, cache.New(time.Hour), model.NetworkSignet, log.New())
	id, err := d.Derive(context.Background(), "xyz...i0")
	require.NoError(t, err)
	assert.Equal(t, "did:btco:sig:42/2", id)
}

func TestDeriveTestnetTag(t *testing.T) {
	fp := newFakeProvider()
	fp.details["id1"] = &provider.Details{InscriptionID: "id1", Sat: 7}
	fp.sats[7] = &provider.SatInfo{InscriptionIDs: []string{"id1"}}

	d := New(fp, cache.New(time.Hour), model.NetworkTestnet, log.New())
	id, err := d.Derive(context.Background(), "id1")
	require.NoError(t, err)
	assert.Equal(t, "did:btco:test:7/0", id)
}

func TestDeriveUsesCache(t *testing.T) {
	fp := newFakeProvider()
	fp.details["id1"] = &provider.Details{InscriptionID: "id1", Sat: 7}
	fp.sats[7] = &provider.SatInfo{InscriptionIDs: []string{"id1"}}

	c := cache.New(time.Hour)
	d := New(fp, c, model.NetworkMainnet, log.New())

	_, err := d.Derive(context.Background(), "id1")
	require.NoError(t, err)
	_, err = d.Derive(context.Background(), "id1")
	require.NoError(t, err)

	assert.Equal(t, 1, fp.calls["byID:id1"], "second derive should hit cache, not the provider")
	assert.Equal(t, 1, fp.calls["sat"], "second derive should hit cache, not the provider")
}

func TestDeriveSatNotFoundFallsBackToIndexZero(t *testing.T) {
	fp := newFakeProvider()
	fp.details["id9"] = &provider.Details{InscriptionID: "id9", Sat: 55}
	fp.sats[55] = &provider.SatInfo{InscriptionIDs: []string{"other-id"}}

	d := New(fp, cache.New(time.Hour), model.NetworkMainnet, log.New())
	id, err := d.Derive(context.Background(), "id9")
	require.NoError(t, err)
	assert.Equal(t, "did:btco:55/0", id)
}

func TestDeriveFailsWhenSatInfoEmpty(t *testing.T) {
	fp := newFakeProvider()
	fp.details["id9"] = &provider.Details{InscriptionID: "id9", Sat: 55}
	// sats[55] deliberately absent -> empty SatInfo{} returned.

	d := New(fp, cache.New(time.Hour), model.NetworkMainnet, log.New())
	_, err := d.Derive(context.Background(), "id9")
	require.Error(t, err)

	var derivErr *DerivationError
	assert.ErrorAs(t, err, &derivErr)
}

func TestDeriveFailsWhenIDUnknown(t *testing.T) {
	fp := newFakeProvider()
	d := New(fp, cache.New(time.Hour), model.NetworkMainnet, log.New())
	_, err := d.Derive(context.Background(), "nonexistent")
	require.Error(t, err)
}
