package resolve

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"mnilabel/internal/models"
	"mnilabel/pkg/atlas"
)

// identity1mm is a 1mm isotropic voxel-to-world affine with the given
// world origin.
func identity1mm(ox, oy, oz float64) []float64 {
	return []float64{
		1, 0, 0, ox,
		0, 1, 0, oy,
		0, 0, 1, oz,
		0, 0, 0, 1,
	}
}

// buildAtlas constructs an atlas on an n^3 grid with origin placing
// voxel (0,0,0) at world (-off,-off,-off), with the given labeled
// voxels keyed by world coordinate.
func buildAtlas(t *testing.T, name string, n, off int, voxels map[models.Coordinate]uint16, regions map[uint16]string) *atlas.Atlas {
	t.Helper()
	labels := make([]uint16, n*n*n)
	for c, idx := range voxels {
		vx, vy, vz := c.X+off, c.Y+off, c.Z+off
		if vx < 0 || vx >= n || vy < 0 || vy >= n || vz < 0 || vz >= n {
			t.Fatalf("Voxel %+v outside the %d^3 grid", c, n)
		}
		labels[vx+n*(vy+n*vz)] = idx
	}
	a, err := atlas.New(name, n, n, n, identity1mm(float64(-off), float64(-off), float64(-off)), labels, regions)
	if err != nil {
		t.Fatalf("Failed to build atlas: %v", err)
	}
	return a
}

// bruteforceNearest is the reference nearest-neighbor search: linear
// scan over all labeled voxels, minimum distance, earliest scan ordinal
// on ties.
func bruteforceNearest(a *atlas.Atlas, c models.Coordinate) (uint16, float64, bool) {
	var (
		found   bool
		bestSq  float64
		bestOrd int
		bestIdx uint16
	)
	for _, v := range a.LabeledVoxels() {
		dx := float64(c.X) - v.X
		dy := float64(c.Y) - v.Y
		dz := float64(c.Z) - v.Z
		sq := dx*dx + dy*dy + dz*dz
		if !found || sq < bestSq || (sq == bestSq && v.Ord < bestOrd) {
			found = true
			bestSq = sq
			bestOrd = v.Ord
			bestIdx = v.Index
		}
	}
	return bestIdx, math.Sqrt(bestSq), found
}

// TestResolveExactMatch verifies the fast path: a labeled coordinate
// resolves with distance 0 whether or not nearest search is enabled.
func TestResolveExactMatch(t *testing.T) {
	a := buildAtlas(t, "aal", 9, 4,
		map[models.Coordinate]uint16{{X: 1, Y: 0, Z: 0}: 72},
		map[uint16]string{72: "Caudate_R"})
	r := NewResolver(atlas.NewStore(a))

	for _, searchNearest := range []bool{true, false} {
		res, err := r.Resolve("aal", models.Coordinate{X: 1, Y: 0, Z: 0}, searchNearest)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if res.Outcome != models.OutcomeExact {
			t.Errorf("searchNearest=%v: expected exact outcome, got %v", searchNearest, res.Outcome)
		}
		if res.Index != 72 {
			t.Errorf("searchNearest=%v: expected index 72, got %d", searchNearest, res.Index)
		}
		if res.Distance != 0 {
			t.Errorf("searchNearest=%v: expected distance 0, got %g", searchNearest, res.Distance)
		}
	}
}

// TestResolveNoMatchWithoutSearch verifies that a miss with nearest
// search disabled returns a no-match result without searching.
func TestResolveNoMatchWithoutSearch(t *testing.T) {
	a := buildAtlas(t, "aal", 9, 4,
		map[models.Coordinate]uint16{{X: 4, Y: 4, Z: 4}: 1},
		map[uint16]string{1: "Somewhere"})
	r := NewResolver(atlas.NewStore(a))

	res, err := r.Resolve("aal", models.Coordinate{X: 0, Y: 0, Z: 0}, false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Outcome != models.OutcomeNoMatch {
		t.Errorf("Expected no-match outcome, got %v", res.Outcome)
	}
	if res.Index != 0 {
		t.Errorf("Expected background index, got %d", res.Index)
	}
}

// TestResolveNearest verifies the fallback distance and label on a
// hand-built case.
func TestResolveNearest(t *testing.T) {
	a := buildAtlas(t, "aal", 21, 10,
		map[models.Coordinate]uint16{
			{X: 3, Y: 4, Z: 0}: 5, // distance 5 from origin
			{X: 9, Y: 0, Z: 0}: 6, // distance 9
		},
		map[uint16]string{5: "Near", 6: "Far"})
	r := NewResolver(atlas.NewStore(a))

	res, err := r.Resolve("aal", models.Coordinate{}, true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Outcome != models.OutcomeNearest {
		t.Errorf("Expected nearest outcome, got %v", res.Outcome)
	}
	if res.Index != 5 {
		t.Errorf("Expected index 5, got %d", res.Index)
	}
	if math.Abs(res.Distance-5) > 1e-12 {
		t.Errorf("Expected distance 5, got %g", res.Distance)
	}
}

// TestResolveNearestMatchesBruteforce cross-checks the kd-tree search
// against the linear-scan reference on randomized volumes.
func TestResolveNearestMatchesBruteforce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const n, off = 17, 8

	voxels := make(map[models.Coordinate]uint16)
	regions := make(map[uint16]string)
	for i := 0; i < 120; i++ {
		c := models.Coordinate{
			X: rng.Intn(n) - off,
			Y: rng.Intn(n) - off,
			Z: rng.Intn(n) - off,
		}
		idx := uint16(1 + rng.Intn(30))
		voxels[c] = idx
		regions[idx] = "R"
	}
	a := buildAtlas(t, "rand", n, off, voxels, regions)
	r := NewResolver(atlas.NewStore(a))

	for i := 0; i < 200; i++ {
		q := models.Coordinate{
			X: rng.Intn(3*n) - 3*off,
			Y: rng.Intn(3*n) - 3*off,
			Z: rng.Intn(3*n) - 3*off,
		}
		res, err := r.Resolve("rand", q, true)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		wantIdx, wantDist, _ := bruteforceNearest(a, q)
		if res.Outcome == models.OutcomeExact {
			if a.RegionIndexAt(q.X, q.Y, q.Z) != res.Index {
				t.Errorf("Query %+v: exact index mismatch", q)
			}
			continue
		}
		if res.Index != wantIdx {
			t.Errorf("Query %+v: expected index %d, got %d", q, wantIdx, res.Index)
		}
		if math.Abs(res.Distance-wantDist) > 1e-9 {
			t.Errorf("Query %+v: expected distance %g, got %g", q, wantDist, res.Distance)
		}
	}
}

// TestResolveTieBreak verifies the deterministic tie-break: of several
// equidistant voxels, the earliest in row-major scan order wins.
func TestResolveTieBreak(t *testing.T) {
	// Both voxels are distance 2 from the origin. (0,0,-2) scans before
	// (0,0,2) because z iterates outermost.
	a := buildAtlas(t, "tie", 9, 4,
		map[models.Coordinate]uint16{
			{X: 0, Y: 0, Z: 2}:  8,
			{X: 0, Y: 0, Z: -2}: 3,
		},
		map[uint16]string{8: "High", 3: "Low"})
	r := NewResolver(atlas.NewStore(a))

	for i := 0; i < 5; i++ {
		res, err := r.Resolve("tie", models.Coordinate{}, true)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if res.Index != 3 {
			t.Errorf("Tie should resolve to the voxel earliest in scan order (index 3), got %d", res.Index)
		}
		if res.Distance != 2 {
			t.Errorf("Expected distance 2, got %g", res.Distance)
		}
	}
}

// TestResolveEmptyAtlas verifies that an atlas with no labeled voxels
// yields a no-match result even with nearest search enabled.
func TestResolveEmptyAtlas(t *testing.T) {
	a := buildAtlas(t, "empty", 5, 2, nil, nil)
	r := NewResolver(atlas.NewStore(a))

	res, err := r.Resolve("empty", models.Coordinate{}, true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Outcome != models.OutcomeNoMatch {
		t.Errorf("Expected no-match outcome, got %v", res.Outcome)
	}
}

// TestResolveUnknownAtlas verifies error propagation from the store.
func TestResolveUnknownAtlas(t *testing.T) {
	r := NewResolver(atlas.NewStore())

	_, err := r.Resolve("nope", models.Coordinate{}, true)
	var uerr *atlas.UnknownAtlasError
	if !errors.As(err, &uerr) {
		t.Fatalf("Expected UnknownAtlasError, got %v", err)
	}
}

// TestResolveConcurrent verifies that concurrent first queries racing
// to build the index all see consistent results.
func TestResolveConcurrent(t *testing.T) {
	a := buildAtlas(t, "aal", 9, 4,
		map[models.Coordinate]uint16{{X: 2, Y: 0, Z: 0}: 7},
		map[uint16]string{7: "R"})
	r := NewResolver(atlas.NewStore(a))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Resolve("aal", models.Coordinate{}, true)
			if err != nil {
				t.Errorf("Resolve failed: %v", err)
				return
			}
			if res.Index != 7 || res.Distance != 2 {
				t.Errorf("Expected (7, 2), got (%d, %g)", res.Index, res.Distance)
			}
		}()
	}
	wg.Wait()
}
