package atlas

import (
	"sync"
	"testing"
)

// testAffine returns a 1mm isotropic voxel-to-world affine with the
// given world origin.
func testAffine(ox, oy, oz float64) []float64 {
	return []float64{
		1, 0, 0, ox,
		0, 1, 0, oy,
		0, 0, 1, oz,
		0, 0, 0, 1,
	}
}

// testAtlas builds a 5x5x5 atlas with origin (-2,-2,-2), a voxel of
// region 7 at world (1,0,0) and a voxel of region 9 at world (-2,-2,-2).
func testAtlas(t *testing.T) *Atlas {
	t.Helper()
	labels := make([]uint16, 5*5*5)
	// world (1,0,0) -> voxel (3,2,2); world (-2,-2,-2) -> voxel (0,0,0)
	labels[3+5*(2+5*2)] = 7
	labels[0] = 9
	a, err := New("test", 5, 5, 5, testAffine(-2, -2, -2), labels, map[uint16]string{
		7: "Region_Seven",
		9: "Region_Nine",
	})
	if err != nil {
		t.Fatalf("Failed to build test atlas: %v", err)
	}
	return a
}

// TestNewValidation verifies that malformed inputs are rejected.
func TestNewValidation(t *testing.T) {
	affine := testAffine(0, 0, 0)
	labels := make([]uint16, 8)

	if _, err := New("t", 0, 2, 2, affine, nil, nil); err == nil {
		t.Error("Expected error for zero dimension")
	}
	if _, err := New("t", 2, 2, 2, affine[:12], labels, nil); err == nil {
		t.Error("Expected error for short affine")
	}
	if _, err := New("t", 2, 2, 2, affine, labels[:5], nil); err == nil {
		t.Error("Expected error for mismatched label count")
	}
	if _, err := New("t", 2, 2, 2, affine, labels, map[uint16]string{0: "bg"}); err == nil {
		t.Error("Expected error for region table mapping the background index")
	}

	singular := make([]float64, 16)
	if _, err := New("t", 2, 2, 2, singular, labels, nil); err == nil {
		t.Error("Expected error for singular affine")
	}
}

// TestRegionIndexAt verifies exact lookup, unlabeled voxels, and
// out-of-grid coordinates.
func TestRegionIndexAt(t *testing.T) {
	a := testAtlas(t)

	if got := a.RegionIndexAt(1, 0, 0); got != 7 {
		t.Errorf("Expected index 7 at (1,0,0), got %d", got)
	}
	if got := a.RegionIndexAt(-2, -2, -2); got != 9 {
		t.Errorf("Expected index 9 at (-2,-2,-2), got %d", got)
	}
	if got := a.RegionIndexAt(0, 0, 0); got != Background {
		t.Errorf("Expected background at unlabeled (0,0,0), got %d", got)
	}
	// Outside the 5x5x5 grid entirely: a valid "no data" result.
	if got := a.RegionIndexAt(100, 100, 100); got != Background {
		t.Errorf("Expected background outside the grid, got %d", got)
	}
	if got := a.RegionIndexAt(-50, 0, 0); got != Background {
		t.Errorf("Expected background outside the grid, got %d", got)
	}
}

// TestNameForIndex verifies name lookup including the background
// sentinel and indices missing from the region table.
func TestNameForIndex(t *testing.T) {
	a := testAtlas(t)

	name, ok := a.NameForIndex(7)
	if !ok || name != "Region_Seven" {
		t.Errorf("Expected (Region_Seven, true), got (%q, %v)", name, ok)
	}
	if _, ok := a.NameForIndex(Background); ok {
		t.Error("Background index should have no name")
	}
	if _, ok := a.NameForIndex(42); ok {
		t.Error("Index missing from the region table should have no name")
	}
}

// TestLabeledVoxels verifies the labeled voxel scan: content, row-major
// order, and caching across concurrent first access.
func TestLabeledVoxels(t *testing.T) {
	a := testAtlas(t)

	var wg sync.WaitGroup
	results := make([][]LabeledVoxel, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.LabeledVoxels()
		}(i)
	}
	wg.Wait()

	voxels := results[0]
	if len(voxels) != 2 {
		t.Fatalf("Expected 2 labeled voxels, got %d", len(voxels))
	}
	for _, r := range results[1:] {
		if &r[0] != &voxels[0] {
			t.Error("LabeledVoxels should return the same cached slice on every call")
		}
	}

	// Row-major scan order: voxel (0,0,0) precedes voxel (3,2,2).
	if voxels[0].Index != 9 || voxels[1].Index != 7 {
		t.Errorf("Expected scan order [9 7], got [%d %d]", voxels[0].Index, voxels[1].Index)
	}
	if voxels[0].Ord >= voxels[1].Ord {
		t.Errorf("Scan ordinals should increase: %d vs %d", voxels[0].Ord, voxels[1].Ord)
	}
	if voxels[1].X != 1 || voxels[1].Y != 0 || voxels[1].Z != 0 {
		t.Errorf("Expected world position (1,0,0), got (%g,%g,%g)",
			voxels[1].X, voxels[1].Y, voxels[1].Z)
	}
	if voxels[0].X != -2 || voxels[0].Y != -2 || voxels[0].Z != -2 {
		t.Errorf("Expected world position (-2,-2,-2), got (%g,%g,%g)",
			voxels[0].X, voxels[0].Y, voxels[0].Z)
	}
}

// TestVoxelToWorld verifies the affine application.
func TestVoxelToWorld(t *testing.T) {
	a := testAtlas(t)
	x, y, z := a.VoxelToWorld(3, 2, 2)
	if x != 1 || y != 0 || z != 0 {
		t.Errorf("Expected (1,0,0), got (%g,%g,%g)", x, y, z)
	}
}
