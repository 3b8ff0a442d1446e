package denoiser

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NewLogger builds the zerolog.Logger a coordinator or worker process logs
// through (SPEC_FULL §10.1). Every logger carries a run_id; cmd/denoiser
// generates one per process, so all ranks of an in-process run share it,
// while each process of a distributed run logs its own. Callers add their
// own "rank" field (NewWorker and netgrpc.Listen do this). w is typically os.Stderr;
// tests pass an io.Discard or a bytes.Buffer.
func NewLogger(w io.Writer, level string, runID uuid.UUID) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("run_id", runID.String()).
		Logger()
}

// NewRunID generates a fresh run identifier for one denoising job.
func NewRunID() uuid.UUID { return uuid.New() }

// NewConsoleLogger is a convenience wrapper around NewLogger for
// cmd/denoiser: human-readable output to os.Stderr via
// zerolog.ConsoleWriter, the same presentation the teacher's examples use
// for command-line tools.
func NewConsoleLogger(level string, runID uuid.UUID) zerolog.Logger {
	return NewLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}, level, runID)
}
