package classify

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, raw string) Value {
	t.Helper()
	v, err := DecodeJSON([]byte(raw))
	require.NoError(t, err)
	return v
}

func TestClassifyDIDDocument(t *testing.T) {
	v := mustDecode(t, `{"id":"did:btco:1000","verificationMethod":[{"id":"#key-1"}]}`)
	assert.Equal(t, DIDDocument, Classify(v))
}

func TestClassifyVerifiableCredentialByType(t *testing.T) {
	v := mustDecode(t, `{"type":["VerifiableCredential"],"credentialSubject":{}}`)
	assert.Equal(t, VerifiableCredential, Classify(v))
}

func TestClassifyVerifiableCredentialBySubjectOnly(t *testing.T) {
	v := mustDecode(t, `{"credentialSubject":{"name":"alice"}}`)
	assert.Equal(t, VerifiableCredential, Classify(v))
}

func TestClassifyNonIdentity(t *testing.T) {
	v := mustDecode(t, `{"foo":"bar"}`)
	assert.Equal(t, NonIdentity, Classify(v))
}

func TestClassifyNonMapMetadata(t *testing.T) {
	v := mustDecode(t, `["a","b"]`)
	assert.Equal(t, NonIdentity, Classify(v))
}

func TestClassifyDIDDocumentWinsOverOverlap(t *testing.T) {
	// Metadata that would also satisfy the verifiable-credential shape must
	// still classify as did-document: rule 1 wins when both shapes overlap.
	v := mustDecode(t, `{
		"id":"did:btco:1000",
		"verificationMethod":[{"id":"#key-1"}],
		"type":["VerifiableCredential"],
		"credentialSubject":{}
	}`)
	assert.Equal(t, DIDDocument, Classify(v))
}

func TestClassifyDIDMissingVerificationMethod(t *testing.T) {
	v := mustDecode(t, `{"id":"did:btco:1000","verificationMethod":[]}`)
	assert.Equal(t, NonIdentity, Classify(v), "empty verificationMethod")
}

func TestClassifyWrongDIDPrefix(t *testing.T) {
	v := mustDecode(t, `{"id":"did:example:1000","verificationMethod":[{"id":"#key-1"}]}`)
	assert.Equal(t, NonIdentity, Classify(v), "wrong prefix")
}

func TestClassifyEmptyMetadata(t *testing.T) {
	v, err := DecodeJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, NonIdentity, Classify(v))
}

func TestDecodeJSONRejectsCBORBytes(t *testing.T) {
	// DecodeJSON is the JSON-only codec; handing it a CBOR byte stream must
	// fail rather than silently succeed with garbage content, since callers
	// dispatch by content type via Decode rather than guessing here.
	raw, err := cbor.Marshal(map[string]interface{}{"id": "did:btco:1000"})
	require.NoError(t, err)
	_, err = DecodeJSON(raw)
	assert.Error(t, err)
}

func TestDecodeDispatchesCBORByContentType(t *testing.T) {
	raw, err := cbor.Marshal(map[string]interface{}{
		"id":                 "did:btco:1000",
		"verificationMethod": []interface{}{map[string]interface{}{"id": "#key-1"}},
	})
	require.NoError(t, err)

	v, err := Decode("application/cbor", raw)
	require.NoError(t, err)
	assert.Equal(t, DIDDocument, Classify(v))
}

func TestDecodeDispatchesJSONByDefault(t *testing.T) {
	v, err := Decode("text/plain;charset=utf-8", []byte(`{"foo":"bar"}`))
	require.NoError(t, err)
	assert.Equal(t, NonIdentity, Classify(v))
}

func TestDecodeCBORRoundTripsNestedShapes(t *testing.T) {
	raw, err := cbor.Marshal(map[string]interface{}{
		"type":              []interface{}{"VerifiableCredential"},
		"credentialSubject": map[string]interface{}{"name": "alice"},
	})
	require.NoError(t, err)

	v, err := DecodeCBOR(raw)
	require.NoError(t, err)
	assert.Equal(t, VerifiableCredential, Classify(v))
}

func TestClassifyDeterministic(t *testing.T) {
	v := mustDecode(t, `{"id":"did:btco:1000","verificationMethod":[{"id":"#key-1"}]}`)
	first := Classify(v)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(v), "iteration %d", i)
	}
}
