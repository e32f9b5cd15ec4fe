// Package locate is the request-level entry point: it validates the
// requested atlas names, rounds real-valued MNI input to the integer
// grid, fans the resolver out across atlases and assembles the
// aggregate result.
package locate

import (
	"mnilabel/internal/models"
	"mnilabel/pkg/atlas"
	"mnilabel/pkg/resolve"
)

// Params controls one locate request.
type Params struct {
	// Atlases names the atlases to query, in the order results should
	// appear. Empty means every atlas in the store, in load order.
	Atlases []string

	// SearchNearest enables the nearest-neighbor fallback when the
	// coordinate itself holds no labeled voxel.
	SearchNearest bool
}

// DefaultParams returns the standard request parameters: all atlases,
// nearest-neighbor search enabled.
func DefaultParams() Params {
	return Params{SearchNearest: true}
}

// Service resolves coordinates against every atlas of one store.
type Service struct {
	store    *atlas.Store
	resolver *resolve.Resolver
}

// NewService creates a service over the given store.
func NewService(store *atlas.Store) *Service {
	return &Service{
		store:    store,
		resolver: resolve.NewResolver(store),
	}
}

// Store returns the atlas store the service resolves against.
func (s *Service) Store() *atlas.Store {
	return s.store
}

// Locate resolves the real-valued MNI coordinate (x, y, z) against the
// requested atlases.
//
// All requested names are validated up front: if any is unknown the
// whole request fails with an UnknownAtlasError listing every bad name
// and no resolution runs. The coordinate is rounded once
// (half-away-from-zero) and each atlas is resolved in request order.
func (s *Service) Locate(x, y, z float64, params Params) (models.ResultSet, error) {
	names := params.Atlases
	if len(names) == 0 {
		names = s.store.Names()
	}
	if err := s.store.Validate(names); err != nil {
		return nil, err
	}

	c := models.RoundCoordinate(x, y, z)
	results := make(models.ResultSet, 0, len(names))
	for _, name := range names {
		res, err := s.resolver.Resolve(name, c, params.SearchNearest)
		if err != nil {
			return nil, err
		}
		res.Label = s.labelFor(name, res)
		results = append(results, models.AtlasResult{Atlas: name, Resolution: res})
	}
	return results, nil
}

// labelFor translates a resolution's region index to its name. A
// missing region table entry reports the no-match label rather than an
// error, per the atlas consistency rules.
func (s *Service) labelFor(atlasName string, res models.Resolution) string {
	if !res.Matched() {
		return models.NoLabel
	}
	a, err := s.store.Atlas(atlasName)
	if err != nil {
		return models.NoLabel
	}
	if name, ok := a.NameForIndex(res.Index); ok {
		return name
	}
	return models.NoLabel
}
