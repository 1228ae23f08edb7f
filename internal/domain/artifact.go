package domain

import (
	"fmt"
	"path/filepath"
)

// Artifact file names.
const (
	BotFile   = "grid.bot"
	MaskFile  = "grid.mask"
	ObstFile  = "grid.obst"
	MetaFile  = "grid.meta"
	ParamFile = "params.json"
)

// ArtifactFiles lists the four WW3 inputs in write order.
var ArtifactFiles = []string{BotFile, MaskFile, ObstFile, MetaFile}

// Mask values.
const (
	MaskLand     uint8 = 0
	MaskWater    uint8 = 1
	MaskBoundary uint8 = 2
	MaskExcluded uint8 = 3
)

// Artifact holds the three Ny×Nx integer layers of a grid. Row 0 is the
// southernmost row.
type Artifact struct {
	Geometry *Geometry
	Depth    [][]int32 // Meters × DepthScale, below sea level negative.
	Mask     [][]uint8
	SX, SY   [][]int16 // Blocked fraction × ObstrScale.
}

// NewArtifact allocates zeroed layers for g.
func NewArtifact(g *Geometry) *Artifact {
	a := &Artifact{
		Geometry: g,
		Depth:    make([][]int32, g.Ny),
		Mask:     make([][]uint8, g.Ny),
		SX:       make([][]int16, g.Ny),
		SY:       make([][]int16, g.Ny),
	}
	for j := 0; j < g.Ny; j++ {
		a.Depth[j] = make([]int32, g.Nx)
		a.Mask[j] = make([]uint8, g.Nx)
		a.SX[j] = make([]int16, g.Nx)
		a.SY[j] = make([]int16, g.Nx)
	}
	return a
}

// CheckConsistency verifies the cross-layer invariants: computed water cells
// are below sea level, land cells carry no obstruction, and obstruction stays
// within [0, ObstrScale]. overridden reports cells whose mask was set
// explicitly; those are exempt from the depth check.
func (a *Artifact) CheckConsistency(overridden func(i, j int) bool) error {
	g := a.Geometry
	for j := 0; j < g.Ny; j++ {
		for i := 0; i < g.Nx; i++ {
			m := a.Mask[j][i]
			if m == MaskWater && a.Depth[j][i] >= 0 && (overridden == nil || !overridden(i, j)) {
				return fmt.Errorf("cell (%d,%d) is water with depth %d", i, j, a.Depth[j][i])
			}
			if m == MaskLand && (a.SX[j][i] != 0 || a.SY[j][i] != 0) {
				return fmt.Errorf("land cell (%d,%d) has obstruction %d/%d", i, j, a.SX[j][i], a.SY[j][i])
			}
			for _, v := range [2]int16{a.SX[j][i], a.SY[j][i]} {
				if v < 0 || v > ObstrScale {
					return fmt.Errorf("cell (%d,%d) obstruction %d outside [0,%d]", i, j, v, ObstrScale)
				}
			}
		}
	}
	return nil
}

// ArtifactPaths are the four files of a produced grid.
type ArtifactPaths struct {
	Bot  string `json:"bot"`
	Mask string `json:"mask"`
	Obst string `json:"obst"`
	Meta string `json:"meta"`
}

// PathsIn returns the artifact paths inside dir.
func PathsIn(dir string) ArtifactPaths {
	return ArtifactPaths{
		Bot:  filepath.Join(dir, BotFile),
		Mask: filepath.Join(dir, MaskFile),
		Obst: filepath.Join(dir, ObstFile),
		Meta: filepath.Join(dir, MetaFile),
	}
}
