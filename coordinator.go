package denoiser

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/isingmesh/denoiser/metrics"
	"github.com/isingmesh/denoiser/transport"
	"github.com/isingmesh/denoiser/transport/memory"
	"github.com/isingmesh/denoiser/transport/netgrpc"
)

// Image is a whole-grid pixel plane, row-major, used at the coordinator
// boundary before partitioning and after reassembly (spec §2, §6).
type Image struct {
	Rows, Cols int
	Pixels     []Pixel // len == Rows*Cols
}

func (img Image) at(r, c int) Pixel { return img.Pixels[r*img.Cols+c] }

// Coordinator partitions a whole image across a Grid of workers, drives
// them to completion, and reassembles their final sub-images into one
// output image (spec §4.2, §6, §8 round-trip property).
type Coordinator struct {
	cfg  Config
	grid Grid
	log  zerolog.Logger
}

// NewCoordinator builds a Coordinator from cfg. cfg must already be
// validated (see NewConfig).
func NewCoordinator(cfg Config, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		cfg:  cfg,
		grid: Grid{Workers: cfg.Workers, SlavesPerRow: cfg.SlavesPerRow},
		log:  log,
	}
}

// rowPartition splits img.Rows as evenly as possible across n row-bands,
// front-loading the remainder onto the earliest bands (spec §3 "each
// worker owns a contiguous rectangle"). It returns, for each band, the
// first row index and the row count.
func rowPartition(totalRows, n int) (starts, counts []int) {
	starts = make([]int, n)
	counts = make([]int, n)
	base := totalRows / n
	rem := totalRows % n
	row := 0
	for i := 0; i < n; i++ {
		c := base
		if i < rem {
			c++
		}
		starts[i] = row
		counts[i] = c
		row += c
	}
	return starts, counts
}

// colPartition is rowPartition's column analogue.
func colPartition(totalCols, n int) (starts, counts []int) {
	return rowPartition(totalCols, n)
}

// subImageBounds returns the row/column extent of the rectangle owned by
// rank within img, given the coordinator's Grid.
func (co *Coordinator) subImageBounds(img Image, rank int) (rowStart, rowCount, colStart, colCount int) {
	gridRows := co.grid.Rows()
	row, col := co.grid.position(rank)

	rowStarts, rowCounts := rowPartition(img.Rows, gridRows)
	colStarts, colCounts := colPartition(img.Cols, co.grid.SlavesPerRow)

	return rowStarts[row], rowCounts[row], colStarts[col], colCounts[col]
}

// RunInProcess partitions img across cfg.Workers goroutines wired by a
// transport/memory.Network, runs every worker to completion, and returns
// the reassembled final image (spec §8 round-trip property: with Budget
// high enough for convergence, or even with Budget == 0, every pixel in
// the output traces back to img).
func (co *Coordinator) RunInProcess(ctx context.Context, img Image, provider metrics.Provider) (Image, error) {
	net := memory.NewNetwork()
	coordRank := co.cfg.Workers

	g, ctx := errgroup.WithContext(ctx)

	results := make([][]Pixel, co.cfg.Workers)
	bounds := make([][4]int, co.cfg.Workers)

	for rank := 0; rank < co.cfg.Workers; rank++ {
		rank := rank
		rs, rc, cs, cc := co.subImageBounds(img, rank)
		bounds[rank] = [4]int{rs, rc, cs, cc}

		workerTransport := memory.NewTransport(net, rank)
		seed := co.cfg.Seed + int64(rank)
		wcfg := WorkerConfig{
			Rank:            rank,
			CoordinatorRank: coordRank,
			Beta:            co.cfg.Beta,
			Pi:              co.cfg.Pi,
			Budget:          co.cfg.Budget,
			Seed:            seed,
			Transport:       workerTransport,
			MetricsProvider: provider,
			Logger:          co.log,
		}

		g.Go(func() error {
			defer workerTransport.Close()
			w, err := NewWorker(ctx, wcfg)
			if err != nil {
				return errors.Wrapf(err, "denoiser: worker %d setup", rank)
			}
			if err := w.Run(ctx); err != nil {
				return errors.Wrapf(err, "denoiser: worker %d run", rank)
			}
			return nil
		})
	}

	coordTransport := memory.NewTransport(net, coordRank)
	defer coordTransport.Close()

	g.Go(func() error {
		return co.runAsCoordinator(ctx, coordTransport, img, bounds, results)
	})

	if err := g.Wait(); err != nil {
		return Image{}, errors.Wrap(err, "denoiser: in-process run")
	}

	return co.reassemble(img, results, bounds), nil
}

// runAsCoordinator drives this process's side of the coordinator-worker
// protocol over t: dispatch every worker's ROWS, COLUMNS, neighbour table,
// and initial rows, then collect each worker's final rows once it
// terminates (spec §6). results[rank] is filled in place.
func (co *Coordinator) runAsCoordinator(ctx context.Context, t transport.Transport, img Image, bounds [][4]int, results [][]Pixel) error {
	if err := co.dispatch(ctx, t, img); err != nil {
		return err
	}
	for rank := 0; rank < co.cfg.Workers; rank++ {
		rc := bounds[rank][1]
		handles := make([]transport.Handle, rc)
		for i := 0; i < rc; i++ {
			handles[i] = t.PostReceive(rank, transport.TagFinalImageRow(i))
		}
		if err := transport.WaitAll(ctx, handles...); err != nil {
			return errors.Wrapf(err, "denoiser: collect final image from worker %d", rank)
		}
		cc := bounds[rank][3]
		pixels := make([]Pixel, rc*cc)
		for i := 0; i < rc; i++ {
			row, err := decodeRow(handles[i].Payload())
			if err != nil {
				return errors.Wrapf(err, "denoiser: decode final row %d from worker %d", i, rank)
			}
			copy(pixels[i*cc:(i+1)*cc], row)
		}
		results[rank] = pixels
	}
	return nil
}

// dispatch sends every worker its ROWS, COLUMNS, neighbour table, and
// initial image rows (spec §6 "Coordinator ↔ Worker protocol").
func (co *Coordinator) dispatch(ctx context.Context, t transport.Transport, img Image) error {
	for rank := 0; rank < co.cfg.Workers; rank++ {
		rs, rc, cs, cc := co.subImageBounds(img, rank)
		neighbours := NeighbourTableFor(co.grid, rank)

		handles := []transport.Handle{
			t.PostSend(rank, transport.TagRows, encodeInt(rc)),
			t.PostSend(rank, transport.TagColumns, encodeInt(cc)),
		}
		for _, d := range Directions {
			peer, _ := neighbours.Peer(d)
			handles = append(handles, t.PostSend(rank, transport.TagDirection(int(d)), encodeInt(peer)))
		}
		for i := 0; i < rc; i++ {
			row := make([]Pixel, cc)
			for j := 0; j < cc; j++ {
				row[j] = img.at(rs+i, cs+j)
			}
			handles = append(handles, t.PostSend(rank, transport.TagImageRow(i), encodeRow(row)))
		}
		if err := transport.WaitAll(ctx, handles...); err != nil {
			return errors.Wrapf(err, "denoiser: dispatch to worker %d", rank)
		}
	}
	return nil
}

// RunDistributed runs this process's share of a distributed deployment
// (SPEC_FULL §10.5): the coordinator rank dispatches img and collects the
// final image over a netgrpc.Transport listening on listenAddr; any other
// rank runs a single Worker. Only the coordinator's return Image is
// meaningful; worker ranks return a zero Image.
func (co *Coordinator) RunDistributed(ctx context.Context, img Image, listenAddr string, provider metrics.Provider) (Image, error) {
	endpoints := netgrpc.Endpoints(co.cfg.Endpoints)
	t, err := netgrpc.Listen(co.cfg.Rank, listenAddr, endpoints, co.log)
	if err != nil {
		return Image{}, errors.Wrap(ErrTransport, err.Error())
	}
	defer t.Close()

	if co.cfg.Rank == co.cfg.CoordinatorRank {
		bounds := make([][4]int, co.cfg.Workers)
		results := make([][]Pixel, co.cfg.Workers)
		for rank := 0; rank < co.cfg.Workers; rank++ {
			rs, rc, cs, cc := co.subImageBounds(img, rank)
			bounds[rank] = [4]int{rs, rc, cs, cc}
		}
		if err := co.runAsCoordinator(ctx, t, img, bounds, results); err != nil {
			return Image{}, err
		}
		return co.reassemble(img, results, bounds), nil
	}

	seed := co.cfg.Seed + int64(co.cfg.Rank)
	wcfg := WorkerConfig{
		Rank:            co.cfg.Rank,
		CoordinatorRank: co.cfg.CoordinatorRank,
		Beta:            co.cfg.Beta,
		Pi:              co.cfg.Pi,
		Budget:          co.cfg.Budget,
		Seed:            seed,
		Transport:       t,
		MetricsProvider: provider,
		Logger:          co.log,
	}
	w, err := NewWorker(ctx, wcfg)
	if err != nil {
		return Image{}, errors.Wrapf(err, "denoiser: worker %d setup", co.cfg.Rank)
	}
	if err := w.Run(ctx); err != nil {
		return Image{}, errors.Wrapf(err, "denoiser: worker %d run", co.cfg.Rank)
	}
	return Image{}, nil
}

// reassemble collects each worker's final rows and places them back into
// a whole Image in row-major order (spec §8 round-trip property).
func (co *Coordinator) reassemble(img Image, results [][]Pixel, bounds [][4]int) Image {
	out := Image{Rows: img.Rows, Cols: img.Cols, Pixels: make([]Pixel, img.Rows*img.Cols)}
	for rank, pixels := range results {
		rs, rc, cs, cc := bounds[rank][0], bounds[rank][1], bounds[rank][2], bounds[rank][3]
		for i := 0; i < rc; i++ {
			for j := 0; j < cc; j++ {
				out.Pixels[(rs+i)*img.Cols+(cs+j)] = pixels[i*cc+j]
			}
		}
	}
	return out
}
