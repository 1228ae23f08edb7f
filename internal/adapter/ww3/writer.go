// Package ww3 reads and writes the WAVEWATCH III grid input files.
package ww3

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.ngs.io/ww3-gridprep/internal/domain"
)

// Column widths. Values are right-aligned and separated by one space.
const (
	depthWidth = 9
	maskWidth  = 1
	obstWidth  = 3
)

// Write stores the four artifact files of a in dir. Every file is synced
// before it is closed.
func Write(dir string, a *domain.Artifact, h Header) (domain.ArtifactPaths, error) {
	paths := domain.PathsIn(dir)
	g := a.Geometry

	err := writeFile(paths.Bot, func(w *bufio.Writer) error {
		return writeRows(w, g.Ny, g.Nx, depthWidth, func(i, j int) int64 { return int64(a.Depth[j][i]) })
	})
	if err != nil {
		return paths, err
	}

	err = writeFile(paths.Mask, func(w *bufio.Writer) error {
		return writeRows(w, g.Ny, g.Nx, maskWidth, func(i, j int) int64 { return int64(a.Mask[j][i]) })
	})
	if err != nil {
		return paths, err
	}

	err = writeFile(paths.Obst, func(w *bufio.Writer) error {
		if err := writeRows(w, g.Ny, g.Nx, obstWidth, func(i, j int) int64 { return int64(a.SX[j][i]) }); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
		return writeRows(w, g.Ny, g.Nx, obstWidth, func(i, j int) int64 { return int64(a.SY[j][i]) })
	})
	if err != nil {
		return paths, err
	}

	err = writeFile(paths.Meta, func(w *bufio.Writer) error {
		_, err := w.Write(RenderMeta(g, h))
		return err
	})
	return paths, err
}

// writeRows emits ny rows of nx values, row 0 first.
func writeRows(w *bufio.Writer, ny, nx, width int, at func(i, j int) int64) error {
	buf := make([]byte, 0, nx*(width+1)+1)
	for j := 0; j < ny; j++ {
		buf = buf[:0]
		for i := 0; i < nx; i++ {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = appendPadded(buf, at(i, j), width)
		}
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func appendPadded(buf []byte, v int64, width int) []byte {
	var num [20]byte
	s := strconv.AppendInt(num[:0], v, 10)
	for k := len(s); k < width; k++ {
		buf = append(buf, ' ')
	}
	return append(buf, s...)
}

func writeFile(path string, fill func(w *bufio.Writer) error) error {
	//nolint:gosec // G304: Path is built from the output directory and a fixed artifact name.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	w := bufio.NewWriterSize(f, 1<<16)
	if err := fill(w); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush %s: %w", filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	return nil
}
