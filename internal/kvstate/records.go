package kvstate

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ordinals-plus/indexer/internal/model"
)

// WriteIdentityResource persists r following the write ordering of
// spec.md §4.5: push the resource ID to the head of the identity list, then
// write its full hash, then bump the counters. The three writes are not
// wrapped in a transaction — partial application under a mid-write crash is
// acceptable because the worker will simply reprocess the inscription once
// the claim expires and the batch is reclaimed; what must never happen is
// claiming it as processed (the cursor advance) before these writes land,
// which the worker's ordering already guarantees.
func (s *State) WriteIdentityResource(ctx context.Context, r model.IdentityResource) error {
	if err := s.rdb.LPush(ctx, keyIdentityList, r.ResourceID).Err(); err != nil {
		return err
	}

	metadataJSON, err := json.Marshal(r.Metadata)
	if err != nil {
		return err
	}
	fields := map[string]interface{}{
		"resourceId":        r.ResourceID,
		"inscriptionId":     r.InscriptionID,
		"inscriptionNumber": r.InscriptionNumber,
		"ordinalsType":      string(r.IdentityKind),
		"contentType":       r.ContentType,
		"metadata":          string(metadataJSON),
		"indexedAt":         r.IndexedAtMillis,
		"network":           string(r.Network),
	}
	if err := s.rdb.HSet(ctx, resourceKey(r.InscriptionID), fields).Err(); err != nil {
		return err
	}

	if err := s.rdb.Incr(ctx, identityStatKey(string(r.IdentityKind))).Err(); err != nil {
		return err
	}
	return s.rdb.Incr(ctx, identityStatKey("total")).Err()
}

// WriteNonIdentityResource persists a non-identity resource and bumps the
// total and per-content-type-bucket counters. The bucket key is the first
// "/"-segment of the content type (spec.md Design Notes §9, preserved
// verbatim), falling back to "unknown" for an empty or malformed type.
func (s *State) WriteNonIdentityResource(ctx context.Context, r model.NonIdentityResource) error {
	if err := s.rdb.LPush(ctx, keyNonIdentityList, r.ResourceID).Err(); err != nil {
		return err
	}
	if err := s.rdb.Incr(ctx, nonIdentityStatKey("total")).Err(); err != nil {
		return err
	}
	return s.rdb.Incr(ctx, nonIdentityStatKey(contentTypeBucket(r.ContentType))).Err()
}

func contentTypeBucket(contentType string) string {
	if contentType == "" {
		return "unknown"
	}
	parts := strings.SplitN(contentType, "/", 2)
	if parts[0] == "" {
		return "unknown"
	}
	return parts[0]
}

// WriteError persists an ErrorRecord: the hash, the error list push, and the
// error counter, per spec.md §4.5.
func (s *State) WriteError(ctx context.Context, e model.ErrorRecord) error {
	fields := map[string]interface{}{
		"inscriptionId":     e.InscriptionID,
		"inscriptionNumber": e.InscriptionNumber,
		"error":             e.Error,
		"timestamp":         e.TimestampMillis,
		"workerId":          e.WorkerID,
	}
	if err := s.rdb.HSet(ctx, errorKey(e.InscriptionNumber), fields).Err(); err != nil {
		return err
	}
	if err := s.rdb.LPush(ctx, keyErrorList, e.InscriptionID).Err(); err != nil {
		return err
	}
	return s.rdb.Incr(ctx, keyStatsErrors).Err()
}
