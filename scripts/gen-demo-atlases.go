//go:build ignore

// gen-demo-atlases regenerates the bundled demonstration atlases under
// assets/: compact 1mm builds of "aal" and "ba" over a reduced field of
// view, in the .atl.gz/.tsv format the atlas package reads.
//
// Usage: go run scripts/gen-demo-atlases.go [--out assets]
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"mnilabel/pkg/atlas"
)

// The demonstration grid: 1mm voxels, x in [-10,30], y and z in [-10,10].
const (
	nx, ny, nz = 41, 21, 21
	ox, oy, oz = -10, -10, -10
)

// blob is an axis-aligned box of labeled voxels in world coordinates.
type blob struct {
	x0, x1, y0, y1, z0, z1 int
	index                  uint16
}

func buildLabels(blobs []blob) []uint16 {
	labels := make([]uint16, nx*ny*nz)
	for _, b := range blobs {
		for z := b.z0; z <= b.z1; z++ {
			for y := b.y0; y <= b.y1; y++ {
				for x := b.x0; x <= b.x1; x++ {
					labels[(x-ox)+nx*((y-oy)+ny*(z-oz))] = b.index
				}
			}
		}
	}
	return labels
}

func write(outDir, name string, blobs []blob, regions map[uint16]string) error {
	affine := []float64{
		1, 0, 0, ox,
		0, 1, 0, oy,
		0, 0, 1, oz,
		0, 0, 0, 1,
	}

	vol, err := os.Create(filepath.Join(outDir, name+".atl.gz"))
	if err != nil {
		return err
	}
	defer vol.Close()
	if err := atlas.WriteVolume(vol, nx, ny, nz, affine, buildLabels(blobs)); err != nil {
		return err
	}

	tab, err := os.Create(filepath.Join(outDir, name+".tsv"))
	if err != nil {
		return err
	}
	defer tab.Close()
	if _, err := fmt.Fprintf(tab, "# %s demonstration region table\n", name); err != nil {
		return err
	}
	return atlas.WriteRegionTable(tab, regions)
}

func main() {
	outDir := flag.String("out", "assets", "Output directory for the generated atlas files")
	flag.Parse()

	// Right-hemisphere blob around (26,0,0), left-hemisphere blob near
	// the midline so (0,0,0) stays unlabeled with a small nearest
	// distance.
	specs := []struct {
		name    string
		right   uint16
		left    uint16
		regions map[uint16]string
	}{
		{"aal", 72, 71, map[uint16]string{71: "Caudate_L", 72: "Caudate_R"}},
		{"ba", 13, 25, map[uint16]string{13: "Brodmann area 13", 25: "Brodmann area 25"}},
	}
	for _, s := range specs {
		blobs := []blob{
			{22, 29, -3, 3, -3, 3, s.right},
			{-8, -4, -3, 3, -3, 3, s.left},
		}
		if err := write(*outDir, s.name, blobs, s.regions); err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate %s: %v\n", s.name, err)
			os.Exit(1)
		}
	}
}
