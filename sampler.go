package denoiser

import (
	"context"
	"math"
	"math/rand"
)

// Sampler drives one worker's Metropolis-Hastings iterations over its
// SubImage (spec §4.5). The random source is passed in explicitly rather
// than drawn from a package-global generator (spec §9 "Global mutable
// RNG" — rewrites should pass the source explicitly into the Sampler
// Loop), so a test can seed it deterministically and two Samplers never
// share hidden state.
type Sampler struct {
	sub     *SubImage
	beta    float64
	gamma   float64
	rng     *rand.Rand
	query   *QueryEngine
	answer  *AnswerEngine
	metrics *Metrics
}

// NewSampler builds a Sampler for beta (neighbour coupling) and gamma
// (data-fidelity weight, spec §1 γ = (1/2)ln((1-π)/π)).
func NewSampler(sub *SubImage, beta, gamma float64, rng *rand.Rand, query *QueryEngine, answer *AnswerEngine, m *Metrics) *Sampler {
	return &Sampler{sub: sub, beta: beta, gamma: gamma, rng: rng, query: query, answer: answer, metrics: m}
}

// Step performs one sampler iteration (spec §4.5 steps 1-6): draw a
// pixel, compute its full 3x3 neighbour sum (local plus, via the Query
// Engine, any cross-boundary contributions), compute ΔE, and accept or
// reject the flip. It returns whether the flip was accepted.
func (s *Sampler) Step(ctx context.Context) (accepted bool, err error) {
	rows, cols := s.sub.Rows(), s.sub.Cols()
	r := s.rng.Intn(rows)
	c := s.rng.Intn(cols)

	sum := s.sub.LocalSum(r, c)

	extSum, err := s.query.Ask(ctx, r, c, s.answer)
	if err != nil {
		return false, err
	}
	sum += extSum

	current := s.sub.Current(r, c)
	initial := s.sub.Initial(r, c)

	deltaE := -2*s.gamma*float64(initial)*float64(current) - 2*s.beta*float64(current)*float64(sum)

	// u is drawn uniform on (0, 1]: rng.Float64() is [0, 1), so 1 minus
	// it excludes 0 and includes 1. Comparing ln(u) <= ΔE is the
	// unclamped Metropolis rule u <= exp(ΔE) without the overflow risk of
	// computing exp(ΔE) directly for large positive ΔE (spec §4.5 step 6,
	// §9 "Acceptance via log" — clamping to 1 is deliberately omitted
	// because the inequality already handles ΔE >= 0 correctly).
	u := 1 - s.rng.Float64()
	lnU := math.Log(u)
	accepted = lnU <= deltaE

	if accepted {
		s.sub.Flip(r, c)
	}

	if s.metrics != nil {
		s.metrics.Iterations.Add(1)
		if accepted {
			s.metrics.Accepted.Add(1)
		} else {
			s.metrics.Rejected.Add(1)
		}
	}

	return accepted, nil
}

// DeltaE computes the energy change of flipping (r, c) given its current
// value and the full (local plus cross-boundary) neighbour sum, without
// performing the flip or any transport I/O. It is exposed for testing
// property P6 (flipping the same pixel twice in succession with identical
// neighbour state yields ΔE2 = -ΔE1).
func DeltaE(beta, gamma float64, initial, current Pixel, sum int) float64 {
	return -2*gamma*float64(initial)*float64(current) - 2*beta*float64(current)*float64(sum)
}
