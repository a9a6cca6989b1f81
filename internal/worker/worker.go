// Package worker implements the ingestion loop (spec.md §4.6): claim a
// batch, fetch-and-classify its inscriptions in bounded-concurrency chunks,
// persist results, advance the cursor, and back off at the end of the
// stream.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ordinals-plus/indexer/config"
	"github.com/ordinals-plus/indexer/internal/cache"
	"github.com/ordinals-plus/indexer/internal/classify"
	"github.com/ordinals-plus/indexer/internal/kvstate"
	"github.com/ordinals-plus/indexer/internal/log"
	"github.com/ordinals-plus/indexer/internal/model"
	"github.com/ordinals-plus/indexer/internal/provider"
	"github.com/ordinals-plus/indexer/internal/resource"
)

const interChunkPause = 100 * time.Millisecond
const topLevelErrorPause = 5 * time.Second

// Worker owns one replica's ingestion loop. Each Worker is single-owner: it
// claims and releases exactly one claim key, identified by ID.
type Worker struct {
	id       string
	cfg      *config.Config
	provider provider.Provider
	deriver  *resource.Deriver
	state    *kvstate.State
	log      log.Logger
}

// New wires a Worker from its constructed dependencies. The start command in
// internal/cli is responsible for constructing provider.Provider, cache.Cache, and
// kvstate.State from cfg before calling New.
func New(id string, cfg *config.Config, p provider.Provider, c *cache.Cache, st *kvstate.State, logger log.Logger) *Worker {
	return &Worker{
		id:       id,
		cfg:      cfg,
		provider: p,
		deriver:  resource.New(p, c, cfg.Network, logger),
		state:    st,
		log:      logger.With("workerId", id),
	}
}

// Run executes the state machine Idle→Claiming→Processing→Persisting→
// Advancing→Idle until ctx is cancelled, at which point it releases its
// claim and returns.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker starting", "batchSize", w.cfg.BatchSize, "concurrency", w.cfg.ConcurrentProcessing)
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.state.ReleaseClaim(releaseCtx, w.id); err != nil {
			w.log.Warn("failed to release claim on shutdown", "err", err)
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := w.tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error("unexpected error in worker loop, backing off", "err", err)
			if !sleepCtx(ctx, topLevelErrorPause) {
				return nil
			}
		}
	}
}

// tick runs exactly one Claiming→Processing→Persisting→Advancing cycle.
func (w *Worker) tick(ctx context.Context) error {
	claim, err := w.state.ClaimNextBatch(ctx, w.id, w.cfg.BatchSize, w.cfg.StartInscription)
	if errors.Is(err, kvstate.ErrNoBatch) {
		w.log.Debug("no claimable batch, polling")
		sleepCtx(ctx, w.cfg.PollInterval)
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim batch: %w", err)
	}

	w.log.Info("claimed batch", "start", claim.Start, "end", claim.EndInscription)
	result, err := w.processBatch(ctx, claim.Start, claim.EndInscription)
	if err != nil {
		return fmt.Errorf("process batch: %w", err)
	}

	if err := w.state.SweepExpiredClaims(ctx); err != nil {
		w.log.Warn("failed to sweep expired claims", "err", err)
	}

	return w.advanceCursor(ctx, claim.Start, claim.EndInscription, result)
}

// advanceCursor implements the cursor policy of spec.md §4.6 step 6.
func (w *Worker) advanceCursor(ctx context.Context, start, end int64, result *batchResult) error {
	ratio := result.failureRatio(w.cfg.BatchSize)
	highFailure := ratio > w.cfg.HighFailureThreshold

	switch {
	case highFailure && result.firstMissing != nil:
		next := *result.firstMissing - 1
		if next < start-1 {
			next = start - 1
		}
		w.log.Info("end of stream detected, backing off", "cursor", next, "failureRatio", ratio)
		if err := w.state.AdvanceCursor(ctx, next); err != nil {
			return err
		}
		sleepCtx(ctx, w.cfg.PollInterval)
		return nil

	case highFailure:
		w.log.Warn("high failure ratio with no identifiable missing inscription, advancing past batch", "failureRatio", ratio)
		if err := w.state.AdvanceCursor(ctx, end); err != nil {
			return err
		}
		sleepCtx(ctx, w.cfg.PollInterval)
		return nil

	default:
		w.log.Info("batch complete", "ordinalsFound", result.ordinalsFound, "nonOrdinalsFound", result.nonOrdinalsFound,
			"failures", result.failures, "derivationErrors", result.derivationErrors)
		return w.state.AdvanceCursor(ctx, end)
	}
}

// processBatch walks [start, end] in chunks of ConcurrentProcessing,
// running each chunk fully in parallel and pausing briefly between chunks
// if another chunk follows (spec.md §4.6 step 3).
func (w *Worker) processBatch(ctx context.Context, start, end int64) (*batchResult, error) {
	result := &batchResult{}
	numbers := sequence(start, end)

	for i := 0; i < len(numbers); i += w.cfg.ConcurrentProcessing {
		j := i + w.cfg.ConcurrentProcessing
		if j > len(numbers) {
			j = len(numbers)
		}
		chunk := numbers[i:j]

		outcomes, err := w.processChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		for _, o := range outcomes {
			result.record(o)
		}

		if j < len(numbers) {
			if !sleepCtx(ctx, interChunkPause) {
				return result, ctx.Err()
			}
		}
	}
	return result, nil
}

// processChunk runs every item in chunk concurrently, bounded by
// ConcurrentProcessing via errgroup's SetLimit, and returns one itemOutcome
// per item. A per-item error never fails the group; per spec.md §4.6 step 4
// it is captured as an outcome instead, so one bad inscription cannot abort
// the rest of the chunk.
func (w *Worker) processChunk(ctx context.Context, chunk []int64) ([]itemOutcome, error) {
	outcomes := make([]itemOutcome, len(chunk))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.ConcurrentProcessing)

	for i, n := range chunk {
		i, n := i, n
		g.Go(func() error {
			outcomes[i] = w.processItem(gctx, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// processItem implements spec.md §4.6 step 4 for a single inscription
// number.
func (w *Worker) processItem(ctx context.Context, number int64) itemOutcome {
	insc, err := w.provider.InscriptionByNumber(ctx, number)
	if err != nil {
		if !errors.Is(err, provider.ErrNotYetExists) {
			w.log.Debug("treating provider error as missing", "number", number, "err", err)
		}
		return itemOutcome{number: number, kind: outcomeMissing}
	}

	metaBytes, err := w.provider.Metadata(ctx, insc.InscriptionID)
	if err != nil {
		w.writeErrorRecord(ctx, insc.InscriptionID, number, fmt.Errorf("fetch metadata: %w", err))
		return itemOutcome{number: number, kind: outcomeDerivationError}
	}

	metaValue, err := classify.Decode(insc.ContentType, metaBytes)
	if err != nil {
		w.writeErrorRecord(ctx, insc.InscriptionID, number, fmt.Errorf("decode metadata: %w", err))
		return itemOutcome{number: number, kind: outcomeDerivationError}
	}

	now := time.Now().UnixMilli()
	classification := classify.Classify(metaValue)

	if classification == classify.NonIdentity {
		resourceID, err := w.deriver.Derive(ctx, insc.InscriptionID)
		if err != nil {
			w.writeErrorRecord(ctx, insc.InscriptionID, number, err)
			return itemOutcome{number: number, kind: outcomeDerivationError}
		}
		if err := w.state.WriteNonIdentityResource(ctx, model.NonIdentityResource{
			ResourceID:        resourceID,
			InscriptionID:     insc.InscriptionID,
			InscriptionNumber: number,
			ContentType:       insc.ContentType,
			IndexedAtMillis:   now,
		}); err != nil {
			w.log.Error("failed to write non-identity resource", "inscriptionId", insc.InscriptionID, "err", err)
		}
		return itemOutcome{number: number, kind: outcomeNonIdentity}
	}

	resourceID, err := w.deriver.Derive(ctx, insc.InscriptionID)
	if err != nil {
		w.writeErrorRecord(ctx, insc.InscriptionID, number, err)
		return itemOutcome{number: number, kind: outcomeDerivationError}
	}

	kind := model.IdentityKindVerifiableCredential
	if classification == classify.DIDDocument {
		kind = model.IdentityKindDIDDocument
	}

	metaGo, _ := metaValue.ToGo().(map[string]interface{})
	if err := w.state.WriteIdentityResource(ctx, model.IdentityResource{
		ResourceID:        resourceID,
		InscriptionID:     insc.InscriptionID,
		InscriptionNumber: number,
		IdentityKind:      kind,
		ContentType:       insc.ContentType,
		Metadata:          metaGo,
		IndexedAtMillis:   now,
		Network:           w.cfg.Network,
	}); err != nil {
		w.log.Error("failed to write identity resource", "inscriptionId", insc.InscriptionID, "err", err)
	}
	return itemOutcome{number: number, kind: outcomeIdentity}
}

func (w *Worker) writeErrorRecord(ctx context.Context, inscriptionID string, number int64, cause error) {
	w.log.Warn("derivation failed, recording error", "inscriptionId", inscriptionID, "number", number, "err", cause)
	record := model.ErrorRecord{
		InscriptionID:     inscriptionID,
		InscriptionNumber: number,
		Error:             cause.Error(),
		TimestampMillis:   time.Now().UnixMilli(),
		WorkerID:          w.id,
	}
	if err := w.state.WriteError(ctx, record); err != nil {
		w.log.Error("failed to write error record", "inscriptionId", inscriptionID, "err", err)
	}
}

func sequence(start, end int64) []int64 {
	if end < start {
		return nil
	}
	out := make([]int64, 0, end-start+1)
	for n := start; n <= end; n++ {
		out = append(out, n)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	b := backoff.WithContext(backoff.NewConstantBackOff(d), ctx)
	timer := time.NewTimer(b.NextBackOff())
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
