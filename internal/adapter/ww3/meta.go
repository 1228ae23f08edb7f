package ww3

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"go.ngs.io/ww3-gridprep/internal/domain"
)

// CommentLines is the number of '$' commentary lines heading grid.meta.
const CommentLines = 45

// RectLine is the grid-type line that follows the commentary.
const RectLine = "'RECT' T 'NONE'"

// Header carries what the commentary of grid.meta describes. It holds no
// timestamps or output paths so cached copies stay byte-identical.
type Header struct {
	Key     string
	Request domain.GridRequest
}

// Meta is the parsed data section of grid.meta.
type Meta struct {
	Nx, Ny      int
	SX, SY, SF  float64
	X0, Y0, SF0 float64
	Comments    int
}

// RenderMeta returns the grid.meta text for g.
func RenderMeta(g *domain.Geometry, h Header) []byte {
	r := h.Request
	override := "none"
	if r.MaskOverride != nil {
		override = "applied (negative entries keep the computed value)"
	}
	comments := []string{
		"WAVEWATCH III grid definition",
		"",
		"Generated by ww3-gridprep",
		"Cache key   : " + h.Key,
		"",
		"Source data",
		"  Bathymetry: " + string(r.RefGrid),
		"  Coastline : GSHHG " + string(r.Boundary) + " (levels 1-4, even-odd)",
		"  Reference : " + filepath.ToSlash(filepath.Clean(r.RefDir)),
		"",
		"Domain",
		fmt.Sprintf("  Longitude : %s to %s", ftoa(r.LonW), ftoa(r.LonE)),
		fmt.Sprintf("  Latitude  : %s to %s", ftoa(r.LatS), ftoa(r.LatN)),
		fmt.Sprintf("  dx, dy    : %s, %s degrees", ftoa(r.DX), ftoa(r.DY)),
		fmt.Sprintf("  Nx x Ny   : %d x %d", g.Nx, g.Ny),
		"",
		"Files",
		"  grid.bot  : Ny rows of Nx depths, row 1 southernmost",
		fmt.Sprintf("              integer meters x %d, below sea level negative", domain.DepthScale),
		"  grid.mask : Ny rows of Nx flags",
		"              0 land, 1 water, 2 boundary, 3 excluded",
		"              mask override: " + override,
		"  grid.obst : sx block of Ny rows, blank line, sy block of Ny rows",
		fmt.Sprintf("              blocked fraction x %d in [0, %d]", domain.ObstrScale, domain.ObstrScale),
		fmt.Sprintf("              sampled on a %dx%d subgrid per cell", r.SubgridSize(), r.SubgridSize()),
		"              sx blocks the east face, sy the north face",
		"",
		"ww3_grid.inp usage",
		"  'RECT' T 'NONE'",
		"  NX NY",
		"  SX SY SF",
		"  X0 Y0 SF0",
		"  bottom  : grid.bot, scale factor 0.001, IDLA 1, IDFM 1",
		"  obstr   : grid.obst, scale factor 0.01, IDLA 1, IDFM 1",
		"  mask    : grid.mask, IDLA 1, IDFM 1",
	}
	var b strings.Builder
	for k := 0; k < CommentLines; k++ {
		line := ""
		if k < len(comments) {
			line = comments[k]
		}
		if line == "" {
			b.WriteString("$\n")
			continue
		}
		b.WriteString("$ " + line + "\n")
	}
	b.WriteString(RectLine + "\n")
	fmt.Fprintf(&b, "%d %d\n", g.Nx, g.Ny)
	fmt.Fprintf(&b, "%s %s %s\n", ftoa(g.SX), ftoa(g.SY), ftoa(g.SF))
	fmt.Fprintf(&b, "%s %s %s\n", ftoa(g.X0), ftoa(g.Y0), ftoa(g.SF0))
	return []byte(b.String())
}

// ParseMeta reads a grid.meta stream. Commentary lines start with '$'.
func ParseMeta(r io.Reader) (*Meta, error) {
	sc := bufio.NewScanner(r)
	m := &Meta{}
	var data []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "$"):
			if len(data) == 0 {
				m.Comments++
			}
		case line == "":
		default:
			data = append(data, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read meta: %w", err)
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("meta has %d data lines, expected 4", len(data))
	}
	if data[0] != RectLine {
		return nil, fmt.Errorf("meta grid line is %q, expected %q", data[0], RectLine)
	}

	ints, err := parseFields(data[1], 2)
	if err != nil {
		return nil, fmt.Errorf("meta size line: %w", err)
	}
	if ints[0] != float64(int(ints[0])) || ints[1] != float64(int(ints[1])) {
		return nil, fmt.Errorf("meta size line %q is not integral", data[1])
	}
	m.Nx, m.Ny = int(ints[0]), int(ints[1])

	scale, err := parseFields(data[2], 3)
	if err != nil {
		return nil, fmt.Errorf("meta increment line: %w", err)
	}
	m.SX, m.SY, m.SF = scale[0], scale[1], scale[2]

	origin, err := parseFields(data[3], 3)
	if err != nil {
		return nil, fmt.Errorf("meta origin line: %w", err)
	}
	m.X0, m.Y0, m.SF0 = origin[0], origin[1], origin[2]
	return m, nil
}

func parseFields(line string, n int) ([]float64, error) {
	fields := strings.Fields(line)
	if len(fields) != n {
		return nil, fmt.Errorf("%q has %d fields, expected %d", line, len(fields), n)
	}
	out := make([]float64, n)
	for k, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("field %d of %q: %w", k+1, line, err)
		}
		out[k] = v
	}
	return out, nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
