package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainComputed = "viewmerge/computed/v1"
	DomainSource   = "viewmerge/source/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash fingerprints a computed view: its group, groups and merged
// content. Equal hashes mean a recomposition produced the same document.
func ContentHash(key GroupKey, groups []string, content string) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"name":    key.Name,
		"type":    key.Type,
		"model":   key.Model,
		"groups":  NormalizeSet(groups),
		"content": content,
	})
	if err != nil {
		return "", fmt.Errorf("ContentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainComputed, canonical), nil
}

// SourceHash fingerprints a loaded view's declared fields. The loader uses
// it to tell an unchanged file from an edited one.
func SourceHash(v *View) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"xml_id":    v.XMLID,
		"name":      v.Name,
		"type":      v.Type,
		"model":     v.Model,
		"module":    v.Module,
		"title":     v.Title,
		"priority":  v.Priority,
		"extension": v.Extension,
		"groups":    NormalizeSet(v.Groups),
		"content":   v.Content,
	})
	if err != nil {
		return "", fmt.Errorf("SourceHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSource, canonical), nil
}

// MustContentHash is like ContentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustContentHash(key GroupKey, groups []string, content string) string {
	h, err := ContentHash(key, groups, content)
	if err != nil {
		panic(err)
	}
	return h
}
