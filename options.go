package denoiser

// Option configures a Config. Use NewConfig(opts...) to build one.
type Option func(*configOptions)

// internal builder state: tracks which fields the caller set explicitly so
// NewConfig can fill in a derived SlavesPerRow only when the caller left it
// unspecified (mirrors the teacher's poolSelected builder pattern).
type configOptions struct {
	cfg             Config
	slavesPerRowSet bool
}

// WithMode selects in-process or distributed deployment.
func WithMode(m Mode) Option {
	return func(co *configOptions) { co.cfg.Mode = m }
}

// WithWorkers sets the number of worker ranks the image is partitioned
// across (spec §3). Panics if n is not positive.
func WithWorkers(n int) Option {
	return func(co *configOptions) {
		if n <= 0 {
			panic("denoiser: WithWorkers requires n > 0")
		}
		co.cfg.Workers = n
	}
}

// WithGrid sets the explicit grid width (spec §4.2). Panics if
// slavesPerRow is not positive.
func WithGrid(slavesPerRow int) Option {
	return func(co *configOptions) {
		if slavesPerRow <= 0 {
			panic("denoiser: WithGrid requires slavesPerRow > 0")
		}
		co.cfg.SlavesPerRow = slavesPerRow
		co.slavesPerRowSet = true
	}
}

// WithBeta sets the neighbour-coupling strength.
func WithBeta(beta float64) Option {
	return func(co *configOptions) { co.cfg.Beta = beta }
}

// WithPi sets the assumed bit-flip noise probability.
func WithPi(pi float64) Option {
	return func(co *configOptions) { co.cfg.Pi = pi }
}

// WithBudget sets B, the per-worker iteration count (spec §8 P5).
func WithBudget(b int) Option {
	return func(co *configOptions) { co.cfg.Budget = b }
}

// WithSeed sets the base RNG seed each worker derives its own stream from.
func WithSeed(seed int64) Option {
	return func(co *configOptions) { co.cfg.Seed = seed }
}

// WithEndpoints sets the rank -> "host:port" map used by ModeDistributed.
func WithEndpoints(endpoints map[int]string) Option {
	return func(co *configOptions) {
		m := make(map[int]string, len(endpoints))
		for k, v := range endpoints {
			m[k] = v
		}
		co.cfg.Endpoints = m
	}
}

// WithRank sets which participant this process is in ModeDistributed.
func WithRank(rank int) Option {
	return func(co *configOptions) { co.cfg.Rank = rank }
}

// WithCoordinatorRank overrides the rank reserved for the coordinator.
func WithCoordinatorRank(rank int) Option {
	return func(co *configOptions) { co.cfg.CoordinatorRank = rank }
}

// WithLogLevel sets the minimum zerolog level emitted.
func WithLogLevel(level string) Option {
	return func(co *configOptions) { co.cfg.LogLevel = level }
}

// NewConfig builds a validated Config from defaults plus opts. When the
// caller does not pin SlavesPerRow explicitly, it is derived from the
// final Workers count as the largest divisor <= sqrt(Workers) (SPEC_FULL
// §10.5), giving as square a grid as the worker count allows.
func NewConfig(opts ...Option) (Config, error) {
	co := configOptions{cfg: defaultConfig()}
	for _, opt := range opts {
		if opt == nil {
			panic("denoiser: nil config option")
		}
		opt(&co)
	}

	if !co.slavesPerRowSet {
		co.cfg.SlavesPerRow = squareSlavesPerRow(co.cfg.Workers)
	}
	if co.cfg.Mode == ModeDistributed && co.cfg.CoordinatorRank == -1 {
		co.cfg.CoordinatorRank = co.cfg.Workers
	}

	if err := validateConfig(&co.cfg); err != nil {
		return Config{}, err
	}
	return co.cfg, nil
}
