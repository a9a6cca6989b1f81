package kvstate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordinals-plus/indexer/internal/log"
	"github.com/ordinals-plus/indexer/internal/model"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewWithClient(client, log.New())
}

func TestClaimNextBatchNoOverlap(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	a, err := s.ClaimNextBatch(ctx, "worker-a", 100, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, a.Start)
	assert.EqualValues(t, 99, a.EndInscription)

	b, err := s.ClaimNextBatch(ctx, "worker-b", 100, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 100, b.Start)
	assert.EqualValues(t, 199, b.EndInscription)

	assert.False(t, a.Overlaps(b.Start, b.EndInscription))
}

func TestClaimIsIdempotentPerWorker(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	first, err := s.ClaimNextBatch(ctx, "worker-a", 100, 0)
	require.NoError(t, err)

	// Re-claiming with the same workerId must replace, not duplicate.
	second, err := s.ClaimNextBatch(ctx, "worker-a", 100, 0)
	require.NoError(t, err)
	assert.Equal(t, first.Start, second.Start)

	active, err := s.ActiveWorkers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, active)
}

func TestClaimAfterCursorAdvance(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	require.NoError(t, s.AdvanceCursor(ctx, 200))

	claim, err := s.ClaimNextBatch(ctx, "worker-a", 100, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 201, claim.Start)
	assert.EqualValues(t, 300, claim.EndInscription)
}

func TestReleaseClaim(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	_, err := s.ClaimNextBatch(ctx, "worker-a", 100, 0)
	require.NoError(t, err)

	require.NoError(t, s.ReleaseClaim(ctx, "worker-a"))

	active, err := s.ActiveWorkers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, active)
}

func TestCursorDefaultsToStartMinusOne(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	cursor, err := s.Cursor(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, -1, cursor)
}

func TestWriteIdentityResourceOrderingAndCounters(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	r := model.IdentityResource{
		ResourceID:        "did:btco:1000/0",
		InscriptionID:     "abcd...i0",
		InscriptionNumber: 7,
		IdentityKind:      model.IdentityKindDIDDocument,
		ContentType:       "application/cbor",
		Metadata:          map[string]interface{}{"id": "did:btco:1000"},
		IndexedAtMillis:   time.Now().UnixMilli(),
		Network:           model.NetworkMainnet,
	}
	require.NoError(t, s.WriteIdentityResource(ctx, r))

	head, err := s.rdb.LIndex(ctx, keyIdentityList, 0).Result()
	require.NoError(t, err)
	assert.Equal(t, "did:btco:1000/0", head)

	fields, err := s.rdb.HGetAll(ctx, resourceKey("abcd...i0")).Result()
	require.NoError(t, err)
	assert.Equal(t, "did-document", fields["ordinalsType"])
	assert.Equal(t, "mainnet", fields["network"])

	stats, err := s.Stats(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.DIDDocumentTotal)
	assert.EqualValues(t, 1, stats.OrdinalsTotal)
}

func TestWriteErrorRecord(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	err := s.WriteError(ctx, model.ErrorRecord{
		InscriptionID:     "id9",
		InscriptionNumber: 9,
		Error:             "sat has no inscriptions on record",
		TimestampMillis:   time.Now().UnixMilli(),
		WorkerID:          "worker-a",
	})
	require.NoError(t, err)

	stats, statsErr := s.Stats(ctx, 0)
	require.NoError(t, statsErr)
	assert.EqualValues(t, 1, stats.ErrorCount)

	records, recErr := s.RecentErrors(ctx, 10)
	require.NoError(t, recErr)
	require.Len(t, records, 1)
	assert.Equal(t, "id9", records[0].InscriptionID)
	assert.EqualValues(t, 9, records[0].InscriptionNumber)
}

func TestWriteNonIdentityResourceBucketing(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	require.NoError(t, s.WriteNonIdentityResource(ctx, model.NonIdentityResource{
		ResourceID:        "did:btco:2000/0",
		InscriptionID:     "id2",
		InscriptionNumber: 2,
		ContentType:       "image/png",
		IndexedAtMillis:   time.Now().UnixMilli(),
	}))

	stats, err := s.Stats(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.NonOrdinalsTotal)
	assert.EqualValues(t, 1, stats.NonOrdinalsByType["image"])
}
