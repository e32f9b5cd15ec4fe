package models

import (
	"strconv"
)

// NoLabel is the label reported when a query has no region name,
// either because no labeled voxel matched or because the matched
// region index is missing from the atlas's region table. It is
// distinguishable from every real region name.
const NoLabel = "no_label_found"

// Outcome classifies how a single-atlas resolution concluded.
type Outcome int

const (
	// OutcomeExact means the query coordinate itself holds a labeled voxel.
	OutcomeExact Outcome = iota

	// OutcomeNearest means the label comes from the closest labeled voxel,
	// found by nearest-neighbor search.
	OutcomeNearest

	// OutcomeNoMatch means no label is reported: the coordinate is
	// unlabeled and nearest-neighbor search was not requested, or the
	// atlas holds no labeled voxels at all.
	OutcomeNoMatch
)

// Resolution is the result of resolving one coordinate against one atlas.
// The three outcomes are explicit so callers can switch over them rather
// than probe sentinel values.
type Resolution struct {
	// Outcome says whether the coordinate matched exactly, matched via
	// nearest-neighbor fallback, or did not match at all.
	Outcome Outcome

	// Index is the region index of the matched voxel. Zero (the
	// background sentinel) when Outcome is OutcomeNoMatch.
	Index uint16

	// Label is the region name for Index, or NoLabel when no name exists.
	Label string

	// Distance is the Euclidean distance in mm from the query coordinate
	// to the matched voxel: 0 for exact matches, positive for
	// nearest-neighbor matches, undefined (zero value, see Outcome)
	// for no-match results.
	Distance float64
}

// Matched reports whether the resolution carries a region, exactly or
// via nearest-neighbor fallback.
func (r Resolution) Matched() bool {
	return r.Outcome != OutcomeNoMatch
}

// AtlasResult pairs an atlas name with the resolution it produced.
type AtlasResult struct {
	// Atlas is the name the atlas was requested under, e.g. "aal".
	Atlas string

	// Resolution is the single-atlas outcome for the query coordinate.
	Resolution Resolution
}

// ResultSet is the aggregate outcome of one multi-atlas request,
// ordered as the atlases were requested.
type ResultSet []AtlasResult

// FlatEntry is one key/value pair of the flattened result view,
// keyed "<atlas>.distance" or "<atlas>.label".
type FlatEntry struct {
	Key   string
	Value string
}

// Flatten renders the result set as ordered "<atlas>.distance" and
// "<atlas>.label" entries, one pair per atlas in request order. The
// distance entry is omitted for no-match resolutions, where distance
// is undefined.
func (rs ResultSet) Flatten() []FlatEntry {
	entries := make([]FlatEntry, 0, 2*len(rs))
	for _, ar := range rs {
		if ar.Resolution.Matched() {
			entries = append(entries, FlatEntry{
				Key:   ar.Atlas + ".distance",
				Value: strconv.FormatFloat(ar.Resolution.Distance, 'g', -1, 64),
			})
		}
		entries = append(entries, FlatEntry{
			Key:   ar.Atlas + ".label",
			Value: ar.Resolution.Label,
		})
	}
	return entries
}
