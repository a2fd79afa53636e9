// Package checksum computes and verifies content digests of structured data.
//
// Digests are taken over a canonical JSON encoding (object keys sorted), so
// two values that marshal to the same JSON document always share a checksum
// regardless of map iteration order. The result is prefixed with the
// algorithm name, e.g. "sha256:9f86d0...", which lets Verify check records
// written under a different configured algorithm.
package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Algorithm names a supported digest function.
type Algorithm string

const (
	SHA256  Algorithm = "sha256"
	BLAKE2b Algorithm = "blake2b"
)

var (
	// ErrUnknownAlgorithm is returned for an unsupported algorithm name or
	// checksum prefix.
	ErrUnknownAlgorithm = errors.New("unknown checksum algorithm")

	// ErrMalformedChecksum is returned when a checksum string has no
	// "<algorithm>:" prefix.
	ErrMalformedChecksum = errors.New("malformed checksum")
)

// pools holds one sync.Pool of reusable hashers per algorithm.
var pools = map[Algorithm]*sync.Pool{
	SHA256: {New: func() any { return sha256.New() }},
	BLAKE2b: {New: func() any {
		h, _ := blake2b.New256(nil)
		return h
	}},
}

// Service computes checksums with one configured algorithm.
type Service struct {
	algorithm Algorithm
}

// New returns a Service using algorithm. An empty name selects SHA256.
func New(algorithm Algorithm) (*Service, error) {
	if algorithm == "" {
		algorithm = SHA256
	}
	if _, ok := pools[algorithm]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	return &Service{algorithm: algorithm}, nil
}

// Algorithm returns the algorithm used by Compute.
func (s *Service) Algorithm() Algorithm {
	return s.algorithm
}

// Compute returns the checksum of v's canonical JSON encoding.
func (s *Service) Compute(v any) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return string(s.algorithm) + ":" + digest(s.algorithm, canonical), nil
}

// Verify reports whether sum is the checksum of v. The algorithm is taken
// from sum's prefix. A well-formed mismatch returns false and no error.
func (s *Service) Verify(v any, sum string) (bool, error) {
	algo, want, ok := strings.Cut(sum, ":")
	if !ok || want == "" {
		return false, ErrMalformedChecksum
	}
	if _, known := pools[Algorithm(algo)]; !known {
		return false, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}

	canonical, err := Canonicalize(v)
	if err != nil {
		return false, err
	}
	return digest(Algorithm(algo), canonical) == strings.ToLower(want), nil
}

// Canonicalize encodes v as JSON with every object's keys sorted.
//
// encoding/json sorts map keys but keeps struct field order; decoding into a
// generic value and re-encoding normalises both.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal checksum input: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err = dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode checksum input: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("canonicalize checksum input: %w", err)
	}
	return canonical, nil
}

func digest(algo Algorithm, data []byte) string {
	pool := pools[algo]
	h := pool.Get().(hash.Hash)
	h.Reset()

	h.Write(data)
	sum := h.Sum(nil)

	h.Reset()
	pool.Put(h)

	return hex.EncodeToString(sum)
}
