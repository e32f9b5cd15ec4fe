package atlas

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// UnknownAtlasError reports every requested atlas name that the store
// does not hold. It is returned before any resolution work begins.
type UnknownAtlasError struct {
	// Names lists all offending atlas names, in request order.
	Names []string
}

func (e *UnknownAtlasError) Error() string {
	return fmt.Sprintf("unknown atlas(es): %s", strings.Join(e.Names, ", "))
}

// Store holds the loaded atlases for one process. It is immutable after
// construction and safe for concurrent use.
type Store struct {
	atlases map[string]*Atlas
	order   []string
}

// NewStore builds a store from already-constructed atlases, preserving
// the given order. Mainly useful for tests and importers; production
// code loads bundled data with Open.
func NewStore(atlases ...*Atlas) *Store {
	s := &Store{atlases: make(map[string]*Atlas, len(atlases))}
	for _, a := range atlases {
		if _, dup := s.atlases[a.Name()]; dup {
			continue
		}
		s.atlases[a.Name()] = a
		s.order = append(s.order, a.Name())
	}
	return s
}

// Open loads the named atlases from a filesystem holding
// "<name>.atl.gz" label volumes and "<name>.tsv" region tables, such
// as the embedded assets package or a data directory. With no names it
// loads every atlas found on the filesystem, sorted by name.
func Open(fsys fs.FS, names ...string) (*Store, error) {
	if len(names) == 0 {
		var err error
		names, err = discover(fsys)
		if err != nil {
			return nil, err
		}
	}

	s := &Store{atlases: make(map[string]*Atlas, len(names))}
	for _, name := range names {
		if _, dup := s.atlases[name]; dup {
			continue
		}
		a, err := loadAtlas(fsys, name)
		if err != nil {
			return nil, err
		}
		s.atlases[name] = a
		s.order = append(s.order, name)
	}
	return s, nil
}

// discover lists atlas names present on the filesystem, identified by
// their volume files.
func discover(fsys fs.FS) ([]string, error) {
	matches, err := fs.Glob(fsys, "*"+volumeExt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan atlas data: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no atlas volumes (*%s) found", volumeExt)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(m, volumeExt))
	}
	sort.Strings(names)
	return names, nil
}

// Names returns the loaded atlas names in load order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Atlas returns the named atlas, or an UnknownAtlasError if the store
// does not hold it.
func (s *Store) Atlas(name string) (*Atlas, error) {
	a, ok := s.atlases[name]
	if !ok {
		return nil, &UnknownAtlasError{Names: []string{name}}
	}
	return a, nil
}

// Validate checks a set of requested atlas names against the store and
// returns a single UnknownAtlasError naming every unsupported one, or
// nil if all are held.
func (s *Store) Validate(names []string) error {
	var bad []string
	for _, name := range names {
		if _, ok := s.atlases[name]; !ok {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		return &UnknownAtlasError{Names: bad}
	}
	return nil
}
