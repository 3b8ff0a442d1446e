package denoiser

import "errors"

// Namespace prefixes every sentinel error so a message is unambiguous even
// once wrapped several layers deep by github.com/pkg/errors.
const Namespace = "denoiser"

// Sentinel errors, grouped by the four classes cmd/denoiser maps to exit
// codes (SPEC_FULL §10.3, §10.6): configuration, topology, transport, I/O.
var (
	// ErrInvalidConfig marks a Config that failed validateConfig (exit
	// code 1).
	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")

	// ErrInvalidTopology marks a neighbour/grid computation that could
	// not be satisfied, e.g. a rank with no possible position in the
	// configured grid (exit code 2).
	ErrInvalidTopology = errors.New(Namespace + ": invalid topology")

	// ErrTransport marks a failure of the underlying Transport: a listener
	// that could not be started, or an image row whose checksum does not
	// match on receipt (exit code 3).
	ErrTransport = errors.New(Namespace + ": transport failure")

	// ErrImageIO marks a failure reading or writing the pixel grid file
	// format (exit code 4).
	ErrImageIO = errors.New(Namespace + ": image I/O failure")
)
