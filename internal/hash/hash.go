// Package hash computes the deterministic source-hash stamped into IR
// headers (SPEC_FULL.md §4.10, spec.md §6.3 "tako.sourceHash").
package hash

import (
	"encoding/hex"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/tako-lang/tako/internal/module"
)

// SourceHash digests every loaded module's canonical path and byte content,
// in import-resolution order, into a single hex-encoded blake2b-256 sum.
// Given identical source inputs the result is byte-identical (spec.md §5:
// "Given identical source inputs and standard library, IR output is
// byte-identical").
func SourceHash(graph map[string]*module.Module, order []string) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	paths := order
	if len(paths) == 0 {
		// Fall back to a sorted traversal when no explicit load order is
		// available (e.g. a hand-built graph in a test), so the hash stays
		// deterministic regardless of Go's map iteration order.
		paths = make([]string, 0, len(graph))
		for p := range graph {
			paths = append(paths, p)
		}
		sort.Strings(paths)
	}
	for _, p := range paths {
		m, ok := graph[p]
		if !ok {
			continue
		}
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(m.Source))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
