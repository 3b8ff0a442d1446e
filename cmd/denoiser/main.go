// Command denoiser runs the distributed Ising-model image denoiser (spec
// §6 "Invocation"). Usage:
//
//	denoiser <input> <output> <beta> <pi> [flags]
//
// In --mode distributed, every rank (workers and the coordinator) is a
// separate invocation of this binary, and every one of them needs
// --peers: a complete rank=host:port map covering all ranks, because
// QUESTION/ANSWER/FINISHED halo-exchange traffic goes worker-to-worker,
// not through the coordinator (spec §4.3/§4.6).
//
// Exit codes: 0 success, 1 configuration/argument error, 2 topology error,
// 3 transport error, 4 image I/O error (SPEC_FULL §10.3, §10.6).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/isingmesh/denoiser"
	"github.com/isingmesh/denoiser/imageio"
	"github.com/isingmesh/denoiser/metrics"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("denoiser", flag.ContinueOnError)

	workers := fs.Int("workers", 1, "number of worker ranks to partition the image across")
	grid := fs.String("grid", "", "explicit ROWSxCOLS worker grid (default: nearest square)")
	mode := fs.String("mode", "in-process", "deployment mode: in-process or distributed")
	rank := fs.Int("rank", -1, "this process's rank (distributed mode; coordinator-rank for the coordinator)")
	coordinatorRank := fs.Int("coordinator-rank", -1, "rank reserved for the coordinator (default: workers)")
	peers := fs.String("peers", "", "comma-separated rank=host:port for every rank, including the coordinator (distributed mode)")
	listenAddr := fs.String("listen", ":0", "address this process listens on (distributed mode); must match this rank's entry in --peers")
	seed := fs.Int64("seed", 1, "base RNG seed")
	budget := fs.Int("budget", 1_000_000, "per-worker iteration budget")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	positional := fs.Args()
	if len(positional) != 4 {
		fmt.Fprintln(os.Stderr, "usage: denoiser <input> <output> <beta> <pi> [flags]")
		return 1
	}

	inputPath, outputPath := positional[0], positional[1]
	beta, err := strconv.ParseFloat(positional[2], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "denoiser: invalid beta %q: %v\n", positional[2], err)
		return 1
	}
	pi, err := strconv.ParseFloat(positional[3], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "denoiser: invalid pi %q: %v\n", positional[3], err)
		return 1
	}

	runID := denoiser.NewRunID()
	log := denoiser.NewConsoleLogger(*logLevel, runID)

	var deployMode denoiser.Mode
	switch *mode {
	case "in-process":
		deployMode = denoiser.ModeInProcess
	case "distributed":
		deployMode = denoiser.ModeDistributed
	default:
		fmt.Fprintf(os.Stderr, "denoiser: unrecognized --mode %q\n", *mode)
		return 1
	}

	opts := []denoiser.Option{
		denoiser.WithMode(deployMode),
		denoiser.WithWorkers(*workers),
		denoiser.WithBeta(beta),
		denoiser.WithPi(pi),
		denoiser.WithBudget(*budget),
		denoiser.WithSeed(*seed),
		denoiser.WithLogLevel(*logLevel),
	}
	if *grid != "" {
		slavesPerRow, err := parseGrid(*grid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "denoiser: %v\n", err)
			return 1
		}
		opts = append(opts, denoiser.WithGrid(slavesPerRow))
	}
	if deployMode == denoiser.ModeDistributed {
		if *rank < 0 {
			fmt.Fprintln(os.Stderr, "denoiser: --rank is required in distributed mode")
			return 1
		}
		coordRank := *coordinatorRank
		if coordRank < 0 {
			coordRank = *workers
		}
		endpoints, err := distributedEndpoints(*peers, *workers, coordRank)
		if err != nil {
			fmt.Fprintf(os.Stderr, "denoiser: %v\n", err)
			return 1
		}
		opts = append(opts, denoiser.WithRank(*rank), denoiser.WithEndpoints(endpoints), denoiser.WithCoordinatorRank(coordRank))
	}

	cfg, err := denoiser.NewConfig(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "denoiser: %v\n", err)
		return exitCodeFor(err)
	}

	img, err := imageio.Read(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "denoiser: %v\n", err)
		return 4
	}

	coord := denoiser.NewCoordinator(cfg, log)
	ctx := context.Background()
	provider := metrics.NewBasicProvider()

	var out denoiser.Image
	switch deployMode {
	case denoiser.ModeInProcess:
		out, err = coord.RunInProcess(ctx, img, provider)
	case denoiser.ModeDistributed:
		out, err = coord.RunDistributed(ctx, img, *listenAddr, provider)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "denoiser: %v\n", err)
		return exitCodeFor(err)
	}

	if deployMode == denoiser.ModeDistributed && cfg.Rank != cfg.CoordinatorRank {
		// Worker ranks ship their final rows to the coordinator over the
		// wire; there is nothing local to write.
		return 0
	}

	if err := imageio.Write(outputPath, out); err != nil {
		fmt.Fprintf(os.Stderr, "denoiser: %v\n", err)
		return 4
	}
	return 0
}

// parseGrid parses "ROWSxCOLS" into slavesPerRow (the COLS component; ROWS
// must be a positive integer but is otherwise unused, since the grid's row
// count is derived from worker count, spec §4.2).
func parseGrid(s string) (int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid --grid %q, want ROWSxCOLS", s)
	}
	if rows, err := strconv.Atoi(parts[0]); err != nil || rows <= 0 {
		return 0, fmt.Errorf("invalid --grid %q, want ROWSxCOLS", s)
	}
	cols, err := strconv.Atoi(parts[1])
	if err != nil || cols <= 0 {
		return 0, fmt.Errorf("invalid --grid %q, want ROWSxCOLS", s)
	}
	return cols, nil
}

// distributedEndpoints parses --peers into the full rank -> address map
// every process in a distributed run needs. QUESTION/ANSWER/FINISHED
// traffic is worker-to-worker, not relayed through the coordinator
// (answer.go, termination.go), so each rank must be able to dial every
// other rank directly: the coordinator's address alone is not enough
// (spec §4.3/§4.6, SPEC_FULL §10.5).
func distributedEndpoints(peers string, workers int, coordinatorRank int) (map[int]string, error) {
	if peers == "" {
		return nil, errors.New("--peers is required in distributed mode (rank=host:port for every rank)")
	}
	endpoints := make(map[int]string)
	for _, entry := range strings.Split(peers, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kv := strings.SplitN(entry, "=", 2)
		if len(kv) != 2 || kv[1] == "" {
			return nil, fmt.Errorf("invalid --peers entry %q, want rank=host:port", entry)
		}
		rank, err := strconv.Atoi(kv[0])
		if err != nil {
			return nil, fmt.Errorf("invalid --peers entry %q: %v", entry, err)
		}
		endpoints[rank] = kv[1]
	}
	for rank := 0; rank < workers; rank++ {
		if _, ok := endpoints[rank]; !ok {
			return nil, fmt.Errorf("--peers is missing an address for worker rank %d", rank)
		}
	}
	if _, ok := endpoints[coordinatorRank]; !ok {
		return nil, fmt.Errorf("--peers is missing an address for coordinator rank %d", coordinatorRank)
	}
	return endpoints, nil
}

// exitCodeFor maps a returned error to the exit code taxonomy (SPEC_FULL
// §10.3, §10.6).
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, denoiser.ErrInvalidConfig):
		return 1
	case errors.Is(err, denoiser.ErrInvalidTopology):
		return 2
	case errors.Is(err, denoiser.ErrTransport):
		return 3
	case errors.Is(err, denoiser.ErrImageIO):
		return 4
	default:
		return 3
	}
}
