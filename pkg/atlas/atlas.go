// Package atlas provides read-only access to anatomical reference
// atlases: per-atlas label volumes mapping integer MNI coordinates to
// region indices, and region tables mapping those indices to names.
// Atlases are loaded once, never mutated afterwards, and are safe for
// unbounded concurrent reads.
package atlas

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Background is the region index meaning "no region here". It never has
// an associated name and is never reported as a positive match.
const Background uint16 = 0

// LabeledVoxel is one non-background voxel of an atlas, positioned in
// world (MNI mm) space.
type LabeledVoxel struct {
	// X, Y, Z is the voxel center in world coordinates (mm).
	X, Y, Z float64

	// Index is the region index stored at this voxel.
	Index uint16

	// Ord is the voxel's position in the fixed row-major scan of the
	// volume (x fastest, then y, then z). Nearest-neighbor search uses
	// it to break distance ties deterministically.
	Ord int
}

// Atlas is one immutable named reference atlas: a discretized label
// volume plus its region table. Construct with New or load bundled data
// through Open; do not share the backing slices after construction.
type Atlas struct {
	name       string
	nx, ny, nz int

	// affine maps homogeneous voxel coordinates to world mm; inverse is
	// its precomputed inverse for the lookup direction.
	affine  *mat.Dense
	inverse *mat.Dense

	// labels holds region indices in x-fastest row-major order:
	// labels[x + nx*(y + ny*z)].
	labels  []uint16
	regions map[uint16]string

	labeledOnce sync.Once
	labeled     []LabeledVoxel
}

// New constructs an atlas from raw parts. affine is the row-major 4x4
// voxel-to-world matrix; labels must hold nx*ny*nz region indices in
// x-fastest order; regions must not map the background index.
func New(name string, nx, ny, nz int, affine []float64, labels []uint16, regions map[uint16]string) (*Atlas, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("atlas %q: invalid dimensions %dx%dx%d", name, nx, ny, nz)
	}
	if len(affine) != 16 {
		return nil, fmt.Errorf("atlas %q: affine must have 16 elements, got %d", name, len(affine))
	}
	if len(labels) != nx*ny*nz {
		return nil, fmt.Errorf("atlas %q: label volume has %d voxels, expected %d", name, len(labels), nx*ny*nz)
	}
	if _, ok := regions[Background]; ok {
		return nil, fmt.Errorf("atlas %q: region table maps the background index", name)
	}

	a := mat.NewDense(4, 4, affine)
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, fmt.Errorf("atlas %q: affine is not invertible: %w", name, err)
	}

	return &Atlas{
		name:    name,
		nx:      nx,
		ny:      ny,
		nz:      nz,
		affine:  a,
		inverse: &inv,
		labels:  labels,
		regions: regions,
	}, nil
}

// Name returns the atlas name, e.g. "aal".
func (a *Atlas) Name() string { return a.name }

// Dims returns the grid dimensions in voxels.
func (a *Atlas) Dims() (nx, ny, nz int) { return a.nx, a.ny, a.nz }

// RegionCount returns the number of named regions in the region table.
func (a *Atlas) RegionCount() int { return len(a.regions) }

// VoxelToWorld maps a voxel grid index to the world (mm) position of
// the voxel center.
func (a *Atlas) VoxelToWorld(vx, vy, vz int) (x, y, z float64) {
	v := []float64{float64(vx), float64(vy), float64(vz), 1}
	return a.apply(a.affine, v)
}

func (a *Atlas) apply(m *mat.Dense, v []float64) (x, y, z float64) {
	var out [3]float64
	for r := 0; r < 3; r++ {
		var s float64
		for c := 0; c < 4; c++ {
			s += m.At(r, c) * v[c]
		}
		out[r] = s
	}
	return out[0], out[1], out[2]
}

// RegionIndexAt returns the region index stored at the given integer
// world coordinate (mm). Coordinates outside the grid and unlabeled
// voxels both yield Background; neither is an error.
func (a *Atlas) RegionIndexAt(x, y, z int) uint16 {
	vx, vy, vz, ok := a.worldToVoxel(float64(x), float64(y), float64(z))
	if !ok {
		return Background
	}
	return a.labels[vx+a.nx*(vy+a.ny*vz)]
}

// worldToVoxel maps a world position through the inverse affine and
// rounds to the nearest grid index. ok is false when the position falls
// outside the volume.
func (a *Atlas) worldToVoxel(x, y, z float64) (vx, vy, vz int, ok bool) {
	fx, fy, fz := a.apply(a.inverse, []float64{x, y, z, 1})
	vx = int(math.Round(fx))
	vy = int(math.Round(fy))
	vz = int(math.Round(fz))
	if vx < 0 || vx >= a.nx || vy < 0 || vy >= a.ny || vz < 0 || vz >= a.nz {
		return 0, 0, 0, false
	}
	return vx, vy, vz, true
}

// NameForIndex returns the region name for a region index. ok is false
// for the background index and for indices missing from the region
// table; callers report those as the no-match label, not as errors.
func (a *Atlas) NameForIndex(idx uint16) (name string, ok bool) {
	if idx == Background {
		return "", false
	}
	name, ok = a.regions[idx]
	return name, ok
}

// LabeledVoxels returns every non-background voxel with its world
// position, in row-major scan order. The slice is computed on first use
// and cached for the atlas lifetime; concurrent first calls are safe.
// Callers must not modify the returned slice.
func (a *Atlas) LabeledVoxels() []LabeledVoxel {
	a.labeledOnce.Do(func() {
		voxels := make([]LabeledVoxel, 0, len(a.labels)/8)
		i := 0
		for vz := 0; vz < a.nz; vz++ {
			for vy := 0; vy < a.ny; vy++ {
				for vx := 0; vx < a.nx; vx++ {
					if idx := a.labels[i]; idx != Background {
						x, y, z := a.VoxelToWorld(vx, vy, vz)
						voxels = append(voxels, LabeledVoxel{
							X: x, Y: y, Z: z,
							Index: idx,
							Ord:   i,
						})
					}
					i++
				}
			}
		}
		a.labeled = voxels
	})
	return a.labeled
}
