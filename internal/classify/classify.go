package classify

import "strings"

// Classification is the result of classifying a piece of metadata.
type Classification int

const (
	// NonIdentity means metadata matched neither known identity shape.
	NonIdentity Classification = iota
	// DIDDocument means metadata has a did:btco: id and a non-empty
	// verificationMethod.
	DIDDocument
	// VerifiableCredential means metadata carries a VerifiableCredential
	// type entry or a credentialSubject.
	VerifiableCredential
)

const didBtcoPrefix = "did:btco:"

// Classify is the pure function described in spec.md §4.3. Rules are
// evaluated in order and the first match wins, even when a later rule's
// shape is also present.
func Classify(metadata Value) Classification {
	if metadata.Kind() != KindMap {
		return NonIdentity
	}

	if id, ok := metadata.Field("id"); ok {
		if idStr, ok := id.AsString(); ok && strings.HasPrefix(idStr, didBtcoPrefix) {
			if vm, ok := metadata.Field("verificationMethod"); ok && vm.IsNonEmpty() {
				return DIDDocument
			}
		}
	}

	if typ, ok := metadata.Field("type"); ok {
		if items, ok := typ.AsList(); ok {
			for _, item := range items {
				if s, ok := item.AsString(); ok && s == "VerifiableCredential" {
					return VerifiableCredential
				}
			}
		}
	}
	if _, ok := metadata.Field("credentialSubject"); ok {
		return VerifiableCredential
	}

	return NonIdentity
}
