package simulation

import (
	"math/rand"
	"sync"
	"time"
)

// Sampler selects a bounded subset of personas for a run.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler creates a sampler seeded from the clock.
func NewSampler() *Sampler {
	return NewSamplerWithSeed(time.Now().UnixNano())
}

// NewSamplerWithSeed creates a deterministic sampler for tests.
func NewSamplerWithSeed(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample returns count personas. When count <= len(personas) it samples
// without replacement via Fisher-Yates; otherwise it falls back to uniform
// sampling with replacement, so the call never fails. The input slice is
// never mutated.
func (s *Sampler) Sample(personas []Persona, count int) []Persona {
	if count <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if count <= len(personas) {
		shuffled := make([]Persona, len(personas))
		copy(shuffled, personas)
		for i := len(shuffled) - 1; i > 0; i-- {
			j := s.rng.Intn(i + 1)
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		}
		return shuffled[:count]
	}

	if len(personas) == 0 {
		return nil
	}

	sampled := make([]Persona, 0, count)
	for i := 0; i < count; i++ {
		sampled = append(sampled, personas[s.rng.Intn(len(personas))])
	}
	return sampled
}
