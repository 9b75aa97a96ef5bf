// Package random provides the random source used for capsule rolls,
// hatch durations and rare-variant draws.
//
// Production code seeds a PCG generator from crypto/rand; tests inject a
// scripted Source so outcomes are deterministic.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Source is the subset of math/rand/v2 the game needs.
type Source interface {
	// Float64 returns a number in [0.0, 1.0).
	Float64() float64
	// IntN returns a number in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// locked wraps a *rand.Rand, which is not safe for concurrent use.
type locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// NewSeeded returns a goroutine-safe Source seeded with the given values.
func NewSeeded(seed1, seed2 uint64) Source {
	return &locked{r: rand.New(rand.NewPCG(seed1, seed2))}
}

// New returns a goroutine-safe Source seeded from crypto/rand.
func New() (Source, error) {
	s1, err := NewSeed()
	if err != nil {
		return nil, err
	}
	s2, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewSeeded(s1, s2), nil
}

// Chance reports whether an event of probability p happened.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Between returns a value in [min, max]. If max <= min it returns min.
func Between(src Source, min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + int64(src.Float64()*float64(max-min+1))
}
