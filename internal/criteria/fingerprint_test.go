package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStableAcrossFormats(t *testing.T) {
	fromJSON, err := DecodeJSON([]byte(jsonRequest))
	require.NoError(t, err)
	fromYAML, err := DecodeYAML([]byte(yamlRequest))
	require.NoError(t, err)

	a, err := Fingerprint(fromJSON)
	require.NoError(t, err)
	b, err := Fingerprint(fromYAML)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintChangesWithContent(t *testing.T) {
	req := expectedRequest()
	before, err := Fingerprint(req)
	require.NoError(t, err)

	req.IncludeGroups[0].Items[0].SearchParameters[0].ConceptID = Int64(2)
	after, err := Fingerprint(req)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestFingerprintNilRequest(t *testing.T) {
	_, err := Fingerprint(nil)
	require.Error(t, err)
}

func TestMarshalCanonicalOrdersKeys(t *testing.T) {
	out, err := marshalCanonical(map[string]any{
		"b": "x",
		"a": []any{true, nil},
		"c": map[string]any{"z": "1", "y": "<&>"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,null],"b":"x","c":{"y":"<&>","z":"1"}}`, string(out))
}

func TestMarshalCanonicalNormalizesStrings(t *testing.T) {
	// "e" followed by a combining acute accent normalizes to U+00E9.
	decomposed, err := marshalCanonical("e\u0301")
	require.NoError(t, err)
	composed, err := marshalCanonical("\u00e9")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonicalRejectsUnsupported(t *testing.T) {
	_, err := marshalCanonical(3.5)
	require.Error(t, err)
}
