package verification

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint returns hex(SHA-256(canonical(result))). Two results that are
// structurally equal produce the same fingerprint regardless of object key
// order, so grouping by fingerprint never splits equivalent answers.
func Fingerprint(result json.RawMessage) (string, error) {
	if len(result) == 0 {
		return "", fmt.Errorf("empty result payload")
	}

	var v any
	dec := json.NewDecoder(strings.NewReader(string(result)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("decode result: %w", err)
	}

	var b strings.Builder
	if err := writeCanonical(&b, v); err != nil {
		return "", err
	}

	h := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(h[:]), nil
}

// writeCanonical serializes v deterministically: object keys sorted,
// numbers kept verbatim as decoded.
func writeCanonical(b *strings.Builder, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("marshal key: %w", err)
			}
			b.Write(kb)
			b.WriteByte(':')
			if err := writeCanonical(b, t[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case json.Number:
		b.WriteString(t.String())
	default:
		eb, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal scalar: %w", err)
		}
		b.Write(eb)
	}
	return nil
}
