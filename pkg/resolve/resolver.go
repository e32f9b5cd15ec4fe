// Package resolve answers "what region is at this coordinate" for a
// single atlas: an O(1) exact-voxel lookup with a nearest-neighbor
// fallback over all labeled voxels, backed by a kd-tree built once per
// atlas on first use.
package resolve

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/kdtree"

	"mnilabel/internal/models"
	"mnilabel/pkg/atlas"
)

// Resolver resolves integer MNI coordinates against the atlases of one
// store. It is safe for concurrent use; the per-atlas search index is
// built on first nearest-neighbor query and reused afterwards.
type Resolver struct {
	store *atlas.Store

	mu    sync.Mutex
	trees map[string]*kdtree.Tree
}

// NewResolver creates a resolver over the given store.
func NewResolver(store *atlas.Store) *Resolver {
	return &Resolver{
		store: store,
		trees: make(map[string]*kdtree.Tree),
	}
}

// Resolve locates the region at c in the named atlas.
//
// The exact-voxel lookup always runs first. On a miss with
// searchNearest false the result is a no-match, with no search
// performed. On a miss with searchNearest true the nearest labeled
// voxel wins; among equidistant voxels the one earliest in the
// volume's row-major scan order (x fastest, then y, then z) is chosen,
// so results are deterministic and independent of index layout.
//
// The only error is an UnknownAtlasError for an atlas the store does
// not hold. "No region here" is a result, not an error.
func (r *Resolver) Resolve(atlasName string, c models.Coordinate, searchNearest bool) (models.Resolution, error) {
	a, err := r.store.Atlas(atlasName)
	if err != nil {
		return models.Resolution{}, err
	}

	if idx := a.RegionIndexAt(c.X, c.Y, c.Z); idx != atlas.Background {
		return models.Resolution{
			Outcome:  models.OutcomeExact,
			Index:    idx,
			Distance: 0,
		}, nil
	}

	if !searchNearest {
		return models.Resolution{Outcome: models.OutcomeNoMatch}, nil
	}

	tree := r.tree(a)
	if tree == nil {
		// No labeled voxels at all in this atlas.
		return models.Resolution{Outcome: models.OutcomeNoMatch}, nil
	}

	q := voxelPoint{x: float64(c.X), y: float64(c.Y), z: float64(c.Z)}
	nearest, minDist := tree.Nearest(q)
	best := nearest.(voxelPoint)

	// Collect every voxel at the minimal distance and apply the scan
	// order tie-break. Coordinates are integer-valued, so squared
	// distances compare exactly.
	keeper := kdtree.NewDistKeeper(minDist)
	tree.NearestSet(keeper, q)
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue
		}
		p := cd.Comparable.(voxelPoint)
		if cd.Dist == minDist && p.ord < best.ord {
			best = p
		}
	}

	return models.Resolution{
		Outcome:  models.OutcomeNearest,
		Index:    best.index,
		Distance: math.Sqrt(minDist),
	}, nil
}

// tree returns the nearest-neighbor index for a, building it on first
// use. Concurrent first calls are serialized; the built tree is
// published under the lock and read-only afterwards.
func (r *Resolver) tree(a *atlas.Atlas) *kdtree.Tree {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.trees[a.Name()]; ok {
		return t
	}

	voxels := a.LabeledVoxels()
	if len(voxels) == 0 {
		r.trees[a.Name()] = nil
		return nil
	}

	points := make(voxelPoints, len(voxels))
	for i, v := range voxels {
		points[i] = voxelPoint{x: v.X, y: v.Y, z: v.Z, index: v.Index, ord: v.Ord}
	}
	t := kdtree.New(points, true)
	r.trees[a.Name()] = t
	return t
}
