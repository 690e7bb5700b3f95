package verification

import (
	"encoding/json"
	"testing"
)

func TestFingerprint_KeyOrderInsensitive(t *testing.T) {
	a := json.RawMessage(`{"approved":true,"category":"spam","score":0.9}`)
	b := json.RawMessage(`{"score":0.9,"approved":true,"category":"spam"}`)

	fpA, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint(a): %v", err)
	}
	fpB, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint(b): %v", err)
	}
	if fpA != fpB {
		t.Errorf("fingerprints differ for structurally equal objects: %s vs %s", fpA, fpB)
	}
}

func TestFingerprint_NestedKeyOrder(t *testing.T) {
	a := json.RawMessage(`{"outer":{"x":1,"y":[{"b":2,"a":1}]}}`)
	b := json.RawMessage(`{"outer":{"y":[{"a":1,"b":2}],"x":1}}`)

	fpA, _ := Fingerprint(a)
	fpB, _ := Fingerprint(b)
	if fpA != fpB {
		t.Error("nested key order should not affect the fingerprint")
	}
}

func TestFingerprint_DifferentValuesDiffer(t *testing.T) {
	a := json.RawMessage(`{"approved":true}`)
	b := json.RawMessage(`{"approved":false}`)

	fpA, _ := Fingerprint(a)
	fpB, _ := Fingerprint(b)
	if fpA == fpB {
		t.Error("different values must not collide")
	}
}

func TestFingerprint_ArrayOrderMatters(t *testing.T) {
	a := json.RawMessage(`[1,2,3]`)
	b := json.RawMessage(`[3,2,1]`)

	fpA, _ := Fingerprint(a)
	fpB, _ := Fingerprint(b)
	if fpA == fpB {
		t.Error("array element order is significant and must change the fingerprint")
	}
}

func TestFingerprint_Scalars(t *testing.T) {
	for _, raw := range []string{`true`, `"text"`, `42`, `0.5`, `null`} {
		if _, err := Fingerprint(json.RawMessage(raw)); err != nil {
			t.Errorf("Fingerprint(%s): %v", raw, err)
		}
	}
}

func TestFingerprint_EmptyPayload(t *testing.T) {
	if _, err := Fingerprint(nil); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestFingerprint_InvalidJSON(t *testing.T) {
	if _, err := Fingerprint(json.RawMessage(`{"broken`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
