package denoiser

import (
	"strconv"

	"github.com/isingmesh/denoiser/metrics"
)

// Metrics is the fixed set of counters a worker records while running the
// sampler loop and the halo-exchange protocol (spec §7 "progress logs
// every million iterations" plus the countable events named throughout
// §8's scenarios: questions asked and answered, counted across all
// directions rather than per direction, and accepted/rejected flips). It
// is a thin adapter over metrics.Provider — the teacher's own
// instrumentation interface, unchanged — so any Provider implementation
// (BasicProvider, NoopProvider, or a future OpenTelemetry-backed one) can
// back a worker without this package knowing the difference.
type Metrics struct {
	QuestionsAsked    metrics.Counter
	QuestionsAnswered metrics.Counter
	Accepted          metrics.Counter
	Rejected          metrics.Counter
	Iterations        metrics.Counter
}

// NewMetrics builds the counters a worker needs from provider, passing the
// worker's rank as an instrument attribute. Instrument names do not
// include the rank, and BasicProvider keys instruments by name only, so
// workers sharing one BasicProvider (as in in-process mode) add to the
// same counters.
func NewMetrics(provider metrics.Provider, rank int) *Metrics {
	attrs := metrics.WithAttributes(map[string]string{"rank": strconv.Itoa(rank)})
	return &Metrics{
		QuestionsAsked:    provider.Counter("denoiser.questions_asked", attrs),
		QuestionsAnswered: provider.Counter("denoiser.questions_answered", attrs),
		Accepted:          provider.Counter("denoiser.flips_accepted", attrs),
		Rejected:          provider.Counter("denoiser.flips_rejected", attrs),
		Iterations:        provider.Counter("denoiser.iterations", attrs),
	}
}
