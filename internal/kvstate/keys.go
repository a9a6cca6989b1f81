package kvstate

import "fmt"

// Key schema, verbatim from spec.md §4.5. Every key string used anywhere in
// this module is built by one of these functions so the schema has exactly
// one source of truth.
const (
	keyCursor              = "indexer:cursor"
	keyClaimPrefix         = "indexer:claim:"
	keyIdentityList        = "ordinals-plus-resources"
	keyNonIdentityList     = "non-ordinals-resources"
	keyResourcePrefix      = "ordinals_plus:resource:"
	keyErrorPrefix         = "indexer:error:"
	keyErrorList           = "indexer:errors"
	keyStatsErrors         = "indexer:stats:errors"
	identityStatsPrefix    = "ordinals-plus:stats:"
	nonIdentityStatsPrefix = "non-ordinals:stats:"
)

func claimKey(workerID string) string { return keyClaimPrefix + workerID }

func claimGlob() string { return keyClaimPrefix + "*" }

func resourceKey(inscriptionID string) string { return keyResourcePrefix + inscriptionID }

func errorKey(inscriptionNumber int64) string { return fmt.Sprintf("%s%d", keyErrorPrefix, inscriptionNumber) }

func identityStatKey(name string) string { return identityStatsPrefix + name }

func nonIdentityStatKey(name string) string { return nonIdentityStatsPrefix + name }
