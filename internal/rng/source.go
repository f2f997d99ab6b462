package rng

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source supplies uniform draws in [0,1).
type Source interface {
	Float64() float64
}

// Seeded wraps a PCG generator so a whole match can be replayed from one seed.
type Seeded struct {
	mu   sync.Mutex
	rand *rand.Rand
	seed uint64
}

// NewSeeded constructs a deterministic source. A zero seed picks one from the wall clock.
func NewSeeded(seed uint64) *Seeded {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	//1.- Derive the second PCG word from the seed so a single integer fully describes the stream.
	return &Seeded{
		rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Float64 implements Source.
func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

// Seed reports the seed the stream was built from.
func (s *Seeded) Seed() uint64 {
	if s == nil {
		return 0
	}
	return s.seed
}

// Scripted replays a fixed sequence of draws, repeating the final value once exhausted.
type Scripted struct {
	mu     sync.Mutex
	values []float64
	next   int
	calls  int
}

// NewScripted builds a scripted source. Values outside [0,1) are clamped into range.
func NewScripted(values ...float64) *Scripted {
	clean := make([]float64, len(values))
	for i, v := range values {
		clean[i] = clampUnit(v)
	}
	return &Scripted{values: clean}
}

// Float64 implements Source.
func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.values) == 0 {
		return 0
	}
	if s.next >= len(s.values) {
		return s.values[len(s.values)-1]
	}
	v := s.values[s.next]
	s.next++
	return v
}

// Push appends further draws to the script.
func (s *Scripted) Push(values ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		s.values = append(s.values, clampUnit(v))
	}
}

// Calls reports how many draws have been consumed.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Span draws an integer uniformly from [base, base+span) as floor(r*span)+base.
func Span(src Source, base, span int) int {
	if src == nil || span <= 0 {
		return base
	}
	return int(src.Float64()*float64(span)) + base
}

// Duration draws uniformly from [lo, hi).
func Duration(src Source, lo, hi time.Duration) time.Duration {
	if src == nil || hi <= lo {
		return lo
	}
	return lo + time.Duration(src.Float64()*float64(hi-lo))
}

func clampUnit(v float64) float64 {
	if !(v >= 0) {
		return 0
	}
	if v >= 1 {
		return 1 - 1e-9
	}
	return v
}
