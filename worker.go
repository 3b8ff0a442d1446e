package denoiser

import (
	"context"
	"math"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/isingmesh/denoiser/metrics"
	"github.com/isingmesh/denoiser/transport"
)

// Gamma is the data-fidelity weight derived from the noise probability π
// (spec §1, Glossary): γ = (1/2)ln((1-π)/π).
func Gamma(pi float64) float64 {
	return 0.5 * math.Log((1-pi)/pi)
}

// WorkerConfig is everything one worker rank needs to run (spec §6
// invocation parameters plus the coordinator↔worker wiring).
type WorkerConfig struct {
	Rank            int
	CoordinatorRank int
	Beta            float64
	Pi              float64
	Budget          int // iteration count B (spec §8 P5)
	Seed            int64
	Transport       transport.Transport
	MetricsProvider metrics.Provider
	Logger          zerolog.Logger
}

// Worker runs one rank of the distributed sampler: receives its sub-image
// and neighbour table from the coordinator, runs its iteration budget,
// terminates cleanly with its neighbours, and ships its final pixels back
// (spec §4.5, §4.6, §6).
type Worker struct {
	cfg        WorkerConfig
	neighbours NeighbourTable
	sub        *SubImage
	metrics    *Metrics
	answer     *AnswerEngine
	query      *QueryEngine
	sampler    *Sampler
	log        zerolog.Logger
}

// NewWorker receives ROWS, COLUMNS, the neighbour table, and the initial
// sub-image from the coordinator (spec §6 "Coordinator ↔ Worker
// protocol"), then constructs the engines needed to run it.
func NewWorker(ctx context.Context, cfg WorkerConfig) (*Worker, error) {
	provider := cfg.MetricsProvider
	if provider == nil {
		provider = metrics.NewNoopProvider()
	}
	host, _ := os.Hostname()
	log := cfg.Logger.With().Str("host", host).Int("rank", cfg.Rank).Logger()

	t := cfg.Transport
	coord := cfg.CoordinatorRank

	rowsH := t.PostReceive(coord, transport.TagRows)
	colsH := t.PostReceive(coord, transport.TagColumns)
	if err := transport.WaitAll(ctx, rowsH, colsH); err != nil {
		return nil, errors.Wrap(err, "denoiser: receive ROWS/COLUMNS")
	}
	rows, err := decodeInt(rowsH.Payload())
	if err != nil {
		return nil, errors.Wrap(err, "denoiser: decode ROWS")
	}
	cols, err := decodeInt(colsH.Payload())
	if err != nil {
		return nil, errors.Wrap(err, "denoiser: decode COLUMNS")
	}

	var neighbours NeighbourTable
	dirHandles := make([]transport.Handle, NumDirections)
	for _, d := range Directions {
		dirHandles[d] = t.PostReceive(coord, transport.TagDirection(int(d)))
	}
	if err := transport.WaitAll(ctx, dirHandles...); err != nil {
		return nil, errors.Wrap(err, "denoiser: receive neighbour table")
	}
	for _, d := range Directions {
		v, err := decodeInt(dirHandles[d].Payload())
		if err != nil {
			return nil, errors.Wrapf(err, "denoiser: decode neighbour rank for direction %s", d)
		}
		neighbours[d] = v
	}

	rowHandles := make([]transport.Handle, rows)
	for i := 0; i < rows; i++ {
		rowHandles[i] = t.PostReceive(coord, transport.TagImageRow(i))
	}
	if err := transport.WaitAll(ctx, rowHandles...); err != nil {
		return nil, errors.Wrap(err, "denoiser: receive image rows")
	}
	pixels := make([]Pixel, rows*cols)
	for i := 0; i < rows; i++ {
		row, err := decodeRow(rowHandles[i].Payload())
		if err != nil {
			return nil, errors.Wrapf(err, "denoiser: decode image row %d", i)
		}
		if len(row) != cols {
			return nil, errors.Errorf("denoiser: image row %d has %d pixels, want %d", i, len(row), cols)
		}
		copy(pixels[i*cols:(i+1)*cols], row)
	}

	sub := NewSubImage(rows, cols, pixels)
	m := NewMetrics(provider, cfg.Rank)
	answer := NewAnswerEngine(t, neighbours, sub, m)
	query := NewQueryEngine(t, neighbours, sub, m)
	sampler := NewSampler(sub, cfg.Beta, Gamma(cfg.Pi), rand.New(rand.NewSource(cfg.Seed)), query, answer, m)

	log.Info().
		Int("rows", rows).Int("cols", cols).
		Interface("neighbours", neighbours).
		Msg("worker received sub-image")

	return &Worker{
		cfg:        cfg,
		neighbours: neighbours,
		sub:        sub,
		metrics:    m,
		answer:     answer,
		query:      query,
		sampler:    sampler,
		log:        log,
	}, nil
}

// Run executes the worker's iteration budget, then the Termination
// Protocol, then ships the final sub-image back to the coordinator (spec
// §4.5 "After the final iteration, enter the Termination Protocol", §4.6,
// §6 FINAL_IMAGE_ROW).
func (w *Worker) Run(ctx context.Context) error {
	for i := 0; i < w.cfg.Budget; i++ {
		if _, err := w.sampler.Step(ctx); err != nil {
			return errors.Wrapf(err, "denoiser: rank %d iteration %d", w.cfg.Rank, i)
		}
		if (i+1)%1_000_000 == 0 {
			w.log.Info().Int("iteration", i+1).Msg("progress")
		}
	}

	if err := Terminate(ctx, w.cfg.Transport, w.neighbours, w.answer); err != nil {
		return errors.Wrapf(err, "denoiser: rank %d termination", w.cfg.Rank)
	}
	w.log.Info().Msg("worker finished")

	return w.sendFinalImage(ctx)
}

func (w *Worker) sendFinalImage(ctx context.Context) error {
	t := w.cfg.Transport
	coord := w.cfg.CoordinatorRank
	rows := w.sub.Rows()

	handles := make([]transport.Handle, rows)
	for i := 0; i < rows; i++ {
		handles[i] = t.PostSend(coord, transport.TagFinalImageRow(i), encodeRow(w.sub.Row(i)))
	}
	return errors.Wrap(transport.WaitAll(ctx, handles...), "denoiser: send final image rows")
}

// SubImage exposes the worker's sub-image, for tests that need to inspect
// intermediate sampler state directly instead of round tripping through
// the transport (spec §8 round-trip property).
func (w *Worker) SubImage() *SubImage { return w.sub }
