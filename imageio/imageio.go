// Package imageio reads and writes the whitespace-separated integer grid
// format the coordinator uses at its file boundary (spec §6 "Input
// file"/"Output file"). Reading is single-threaded and counts rows and
// columns directly from the file contents (SPEC_FULL §10.8), replacing
// the original's unjoined thread pool and hardcoded rows=columns=0.
package imageio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/isingmesh/denoiser"
)

// Read parses path as whitespace-separated integers arranged in rows: one
// line per image row, space-separated pixel values per line. rows and
// columns are derived from the file itself (spec §9 "the original always
// sent 0, 0" is not reproduced here). Every value must be -1 or +1.
func Read(path string) (denoiser.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return denoiser.Image{}, errors.Wrapf(denoiser.ErrImageIO, "open %s: %v", path, err)
	}
	defer f.Close()
	return ReadFrom(f)
}

// ReadFrom parses r the same way Read parses a file, for tests that don't
// want to touch the filesystem.
func ReadFrom(r io.Reader) (denoiser.Image, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var rows [][]denoiser.Pixel
	cols := -1

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		row := make([]denoiser.Pixel, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return denoiser.Image{}, errors.Wrapf(denoiser.ErrImageIO, "parse pixel %q: %v", f, err)
			}
			p := denoiser.Pixel(v)
			if !p.Valid() {
				return denoiser.Image{}, errors.Wrapf(denoiser.ErrImageIO, "pixel value %d is not -1 or +1", v)
			}
			row[i] = p
		}
		if cols == -1 {
			cols = len(row)
		} else if len(row) != cols {
			return denoiser.Image{}, errors.Wrapf(denoiser.ErrImageIO, "row %d has %d columns, want %d", len(rows), len(row), cols)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return denoiser.Image{}, errors.Wrap(denoiser.ErrImageIO, err.Error())
	}
	if len(rows) == 0 {
		return denoiser.Image{}, errors.Wrap(denoiser.ErrImageIO, "empty input")
	}

	pixels := make([]denoiser.Pixel, 0, len(rows)*cols)
	for _, row := range rows {
		pixels = append(pixels, row...)
	}

	return denoiser.Image{Rows: len(rows), Cols: cols, Pixels: pixels}, nil
}

// Write emits img to path, same shape, space-separated integers per row,
// one line per row, trailing newline per row (spec §6 "Output file").
func Write(path string, img denoiser.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(denoiser.ErrImageIO, "create %s: %v", path, err)
	}
	defer f.Close()
	if err := WriteTo(f, img); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return errors.Wrap(denoiser.ErrImageIO, err.Error())
	}
	return nil
}

// WriteTo writes img to w in the same format Write uses.
func WriteTo(w io.Writer, img denoiser.Image) error {
	bw := bufio.NewWriter(w)
	for r := 0; r < img.Rows; r++ {
		for c := 0; c < img.Cols; c++ {
			if c > 0 {
				if _, err := bw.WriteByte(' '); err != nil {
					return errors.Wrap(denoiser.ErrImageIO, err.Error())
				}
			}
			if _, err := fmt.Fprintf(bw, "%d", img.Pixels[r*img.Cols+c]); err != nil {
				return errors.Wrap(denoiser.ErrImageIO, err.Error())
			}
		}
		if _, err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(denoiser.ErrImageIO, err.Error())
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(denoiser.ErrImageIO, err.Error())
	}
	return nil
}
