// Package resource implements the Resource-ID Deriver (spec.md §4.4): it
// composes the network-tagged DID resource identifier for an inscription by
// locating its position within the ordered list of inscriptions on its sat.
package resource

import (
	"context"
	"fmt"

	"github.com/ordinals-plus/indexer/internal/cache"
	"github.com/ordinals-plus/indexer/internal/log"
	"github.com/ordinals-plus/indexer/internal/model"
	"github.com/ordinals-plus/indexer/internal/provider"
)

// DerivationError is returned when the sat or its inscription list cannot be
// resolved. It is recorded as an ErrorRecord by the worker, never retried
// automatically.
type DerivationError struct {
	InscriptionID string
	Err           error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("resource: derive %s: %v", e.InscriptionID, e.Err)
}
func (e *DerivationError) Unwrap() error { return e.Err }

// Deriver composes resource IDs. It is cache-then-adapter: a cache hit never
// calls the provider.
type Deriver struct {
	provider provider.Provider
	cache    *cache.Cache
	network  model.Network
	log      log.Logger
}

// New builds a Deriver for the given network, consulting cache before p.
func New(p provider.Provider, c *cache.Cache, network model.Network, logger log.Logger) *Deriver {
	return &Deriver{provider: p, cache: c, network: network, log: logger}
}

// Derive returns the did:btco[:<tag>]:<sat>/<index> resource ID for id, per
// spec.md §4.4's four steps.
func (d *Deriver) Derive(ctx context.Context, id string) (string, error) {
	sat, err := d.resolveSat(ctx, id)
	if err != nil {
		return "", &DerivationError{InscriptionID: id, Err: err}
	}

	ids, err := d.resolveSatInscriptions(ctx, sat)
	if err != nil {
		return "", &DerivationError{InscriptionID: id, Err: err}
	}

	index := indexOf(ids, id)
	if index < 0 {
		// Open question in spec.md §9: preserved behaviour is to warn and
		// substitute index 0 rather than hard-fail.
		d.log.Warn("inscription not found in its own sat's inscription list, using index 0",
			"inscriptionId", id, "sat", sat)
		index = 0
	}

	tag := d.network.Tag()
	if tag == "" {
		return fmt.Sprintf("did:btco:%d/%d", sat, index), nil
	}
	return fmt.Sprintf("did:btco:%s:%d/%d", tag, sat, index), nil
}

func (d *Deriver) resolveSat(ctx context.Context, id string) (int64, error) {
	if details, ok := d.cache.GetDetails(id); ok {
		return details.Sat, nil
	}
	details, err := d.provider.InscriptionByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("resolve sat: %w", err)
	}
	d.cache.PutDetails(id, details)
	return details.Sat, nil
}

func (d *Deriver) resolveSatInscriptions(ctx context.Context, sat int64) ([]string, error) {
	if info, ok := d.cache.GetSatInfo(sat); ok {
		return info.InscriptionIDs, nil
	}
	info, err := d.provider.SatInfo(ctx, sat)
	if err != nil {
		return nil, fmt.Errorf("resolve sat inscriptions: %w", err)
	}
	if len(info.InscriptionIDs) == 0 {
		return nil, fmt.Errorf("sat %d has no inscriptions on record", sat)
	}
	d.cache.PutSatInfo(sat, info)
	return info.InscriptionIDs, nil
}

func indexOf(ids []string, target string) int {
	for i, id := range ids {
		if id == target {
			return i
		}
	}
	return -1
}
