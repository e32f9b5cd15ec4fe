// Package assets embeds the bundled atlas reference data for
// compile-time inclusion: one ".atl.gz" label volume and one ".tsv"
// region table per atlas.
//
// Usage:
//
//	store, err := atlas.Open(assets.FS)
package assets

import "embed"

//go:embed *.atl.gz *.tsv
var FS embed.FS
