package denoiser

import "github.com/pkg/errors"

// Mode selects how workers are deployed (SPEC_FULL §10.5).
type Mode int

const (
	// ModeInProcess runs every worker as a goroutine in this process,
	// wired together by a transport/memory.Network. This is the default:
	// it needs no network configuration and is what tests and the
	// round-trip property (spec §8) exercise directly.
	ModeInProcess Mode = iota

	// ModeDistributed runs this process as a single rank (coordinator or
	// worker) of a multi-process deployment, wired together by
	// transport/netgrpc over TCP.
	ModeDistributed
)

func (m Mode) String() string {
	switch m {
	case ModeInProcess:
		return "in-process"
	case ModeDistributed:
		return "distributed"
	default:
		return "unknown"
	}
}

// Config holds the parameters needed to run a denoising job, whether
// in-process or distributed (spec §6 invocation parameters, SPEC_FULL
// §10.4/§10.5).
type Config struct {
	// Mode selects in-process or distributed deployment.
	Mode Mode

	// Workers is S, the number of worker ranks the image is partitioned
	// across (spec §3, §4.2).
	Workers int

	// SlavesPerRow is the grid width used to arrange Workers ranks into a
	// 2-D topology (spec §4.2, SPEC_FULL §10.5 resolves the open question
	// of how this is chosen: it defaults to the largest divisor of
	// Workers that is <= sqrt(Workers), giving as square a grid as
	// possible; set explicitly to override).
	SlavesPerRow int

	// Beta is the neighbour-coupling strength (spec §1).
	Beta float64

	// Pi is the assumed bit-flip noise probability (spec §1); Gamma is
	// derived from it as (1/2)ln((1-Pi)/Pi).
	Pi float64

	// Budget is B, the number of sampler iterations each worker runs
	// before entering the Termination Protocol (spec §4.5, §8 P5).
	Budget int

	// Seed seeds each worker's independent *rand.Rand. Workers derive
	// their own seed from Seed and their rank so no two workers share an
	// RNG stream even though Seed is fixed (spec §9 "Global mutable
	// RNG").
	Seed int64

	// Endpoints maps rank -> "host:port" for ModeDistributed. Unused in
	// ModeInProcess.
	Endpoints map[int]string

	// Rank identifies which participant this process is in
	// ModeDistributed: CoordinatorRank or one of 0..Workers-1.
	Rank int

	// CoordinatorRank is the rank reserved for the coordinator process in
	// ModeDistributed deployments (spec §6 "Coordinator ↔ Worker
	// protocol").
	CoordinatorRank int

	// LogLevel is the minimum zerolog level that is emitted (SPEC_FULL
	// §10.1). Accepted values: "debug", "info", "warn", "error".
	LogLevel string
}

// defaultConfig centralizes Config's default values (SPEC_FULL §10.4).
func defaultConfig() Config {
	return Config{
		Mode:            ModeInProcess,
		Workers:         1,
		SlavesPerRow:    1,
		Beta:            1.0,
		Pi:              0.1,
		Budget:          1_000_000,
		Seed:            1,
		CoordinatorRank: -1,
		LogLevel:        "info",
	}
}

// validateConfig checks the invariants a Config must satisfy before a job
// can start (spec §4.2 topology, §1 parameter domains).
func validateConfig(cfg *Config) error {
	if cfg.Workers <= 0 {
		return errors.Wrap(ErrInvalidConfig, "Workers must be positive")
	}
	if cfg.SlavesPerRow <= 0 || cfg.SlavesPerRow > cfg.Workers {
		return errors.Wrap(ErrInvalidConfig, "SlavesPerRow must be in [1, Workers]")
	}
	if cfg.Workers%cfg.SlavesPerRow != 0 {
		return errors.Wrap(ErrInvalidTopology, "SlavesPerRow must evenly divide Workers, or the grid leaves a cell unowned")
	}
	if cfg.Pi <= 0 || cfg.Pi >= 1 {
		return errors.Wrap(ErrInvalidConfig, "Pi must lie in (0, 1)")
	}
	if cfg.Budget <= 0 {
		return errors.Wrap(ErrInvalidConfig, "Budget must be positive")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unrecognized log level %q", cfg.LogLevel)
	}
	if cfg.Mode == ModeDistributed {
		if cfg.Rank != cfg.CoordinatorRank && (cfg.Rank < 0 || cfg.Rank >= cfg.Workers) {
			return errors.Wrap(ErrInvalidTopology, "Rank must be CoordinatorRank or in [0, Workers)")
		}
		// Every rank sends QUESTION/ANSWER/FINISHED directly to its
		// neighbours, not through the coordinator (answer.go,
		// termination.go), so Endpoints must cover every worker rank
		// plus the coordinator, not just whichever ranks happened to be
		// passed in.
		for rank := 0; rank < cfg.Workers; rank++ {
			if _, ok := cfg.Endpoints[rank]; !ok {
				return errors.Wrapf(ErrInvalidTopology, "Endpoints missing address for worker rank %d", rank)
			}
		}
		if _, ok := cfg.Endpoints[cfg.CoordinatorRank]; !ok {
			return errors.Wrap(ErrInvalidTopology, "Endpoints missing address for coordinator rank")
		}
	}
	return nil
}

// squareSlavesPerRow returns the largest divisor of workers that is <=
// sqrt(workers), giving as close to a square grid as possible (SPEC_FULL
// §10.5, resolving spec §9's slavesPerRow=1 open question).
func squareSlavesPerRow(workers int) int {
	best := 1
	for d := 1; d*d <= workers; d++ {
		if workers%d == 0 {
			best = d
		}
	}
	return best
}
