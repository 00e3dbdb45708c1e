package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf16"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainOrganism = "morphic/organism/v1"
	DomainBatch    = "morphic/batch/v1"
)

// TargetHash is the 32-bit polynomial rolling hash used to place a mutation
// target into a drift dimension: h = h*31 + c over UTF-16 code units, with
// uint32 wraparound. It is stable across runs and platforms.
func TargetHash(s string) uint32 {
	var h uint32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + uint32(c)
	}
	return h
}

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OrganismDigest is the content digest of an organism document.
// Two organisms with equal graphs, generation and history share a digest.
func OrganismDigest(o *Organism) (string, error) {
	canonical, err := MarshalCanonical(o.Document())
	if err != nil {
		return "", fmt.Errorf("OrganismDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainOrganism, canonical), nil
}

// BatchDigest is the content digest of a single batch record.
func BatchDigest(rec BatchRecord) (string, error) {
	canonical, err := MarshalCanonical(rec.Document())
	if err != nil {
		return "", fmt.Errorf("BatchDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBatch, canonical), nil
}
