// Package rng provides deterministic, named child streams of randomness
// derived from one root seed. No other package in the simulator creates
// its own source of randomness.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/proteus-sim/proteus/internal/domain"
)

// Manager owns one independent PCG generator per named stream. Streams
// are created and cached on first request; a stream's draw sequence
// depends only on (rootSeed, name), never on draw counts elsewhere.
type Manager struct {
	rootSeed uint64
	streams  map[string]*rand.Rand
}

// New creates a Manager for the given root seed.
func New(rootSeed uint64) *Manager {
	return &Manager{
		rootSeed: rootSeed,
		streams:  make(map[string]*rand.Rand),
	}
}

// Stream returns the generator bound to name, creating it on first use.
// Repeated calls return the same instance, so draw position is preserved
// across call sites within a run.
func (m *Manager) Stream(name string) (*rand.Rand, error) {
	if m == nil || m.streams == nil {
		return nil, domain.ErrManagerNotInitialized
	}
	if s, ok := m.streams[name]; ok {
		return s, nil
	}
	hi, lo := childSeed(m.rootSeed, name)
	s := rand.New(rand.NewPCG(hi, lo))
	m.streams[name] = s
	return s, nil
}

// Reset discards all cached streams. The next Stream call for any name
// returns a generator in its initial state, replaying draws identically.
func (m *Manager) Reset() {
	for name := range m.streams {
		delete(m.streams, name)
	}
}

// DeriveRepetitionSeed produces the root seed for one Monte Carlo
// repetition as a pure function of the scenario seed and the repetition
// index. Each repetition's Manager is seeded with the result.
func DeriveRepetitionSeed(scenarioSeed uint64, repetition int) uint64 {
	digest := sha256.Sum256(fmt.Appendf(nil, "%d:rep:%d", scenarioSeed, repetition))
	return binary.BigEndian.Uint64(digest[:8])
}

// childSeed hashes "<rootSeed>:<name>" and splits the digest into the
// two 64-bit words that seed the stream's PCG state.
func childSeed(rootSeed uint64, name string) (uint64, uint64) {
	digest := sha256.Sum256(fmt.Appendf(nil, "%d:%s", rootSeed, name))
	return binary.BigEndian.Uint64(digest[:8]), binary.BigEndian.Uint64(digest[8:16])
}
