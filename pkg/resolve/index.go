package resolve

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// voxelPoint adapts one labeled atlas voxel to the kd-tree interfaces.
// Distances are kept squared throughout the search; ord carries the
// row-major scan position used to break ties.
type voxelPoint struct {
	x, y, z float64
	index   uint16
	ord     int
}

// Compare implements the kdtree.Comparable interface
func (p voxelPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(voxelPoint)
	switch d {
	case 0:
		return p.x - q.x
	case 1:
		return p.y - q.y
	case 2:
		return p.z - q.z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p voxelPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p voxelPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(voxelPoint)
	dx := p.x - q.x
	dy := p.y - q.y
	dz := p.z - q.z
	return dx*dx + dy*dy + dz*dz
}

// voxelPoints is a collection of voxelPoint that satisfies kdtree.Interface
type voxelPoints []voxelPoint

func (p voxelPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p voxelPoints) Len() int                              { return len(p) }
func (p voxelPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p voxelPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(voxelPlane{voxelPoints: p, Dim: d}, kdtree.MedianOfRandoms(voxelPlane{voxelPoints: p, Dim: d}, 100))
}

// voxelPlane implements sort.Interface and kdtree.SortSlicer for voxelPoints
type voxelPlane struct {
	voxelPoints
	kdtree.Dim
}

func (p voxelPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.voxelPoints[i].x < p.voxelPoints[j].x
	case 1:
		return p.voxelPoints[i].y < p.voxelPoints[j].y
	case 2:
		return p.voxelPoints[i].z < p.voxelPoints[j].z
	default:
		panic("illegal dimension")
	}
}

func (p voxelPlane) Slice(start, end int) kdtree.SortSlicer {
	return voxelPlane{voxelPoints: p.voxelPoints[start:end], Dim: p.Dim}
}

func (p voxelPlane) Swap(i, j int) {
	p.voxelPoints[i], p.voxelPoints[j] = p.voxelPoints[j], p.voxelPoints[i]
}
