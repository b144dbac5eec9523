package criteria

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// fingerprintDomain separates request fingerprints from any other hash
// computed over the same bytes. The version suffix allows changing the
// algorithm later.
const fingerprintDomain = "cohort/search-request/v1"

// Fingerprint returns a stable content hash of req. Two requests that
// decode to the same tree have the same fingerprint regardless of key order
// or whitespace in their source documents.
func Fingerprint(req *SearchRequest) (string, error) {
	if req == nil {
		return "", fmt.Errorf("fingerprint: nil request")
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("fingerprint: marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("fingerprint: decode: %w", err)
	}
	canonical, err := marshalCanonical(generic)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(fingerprintDomain))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}
