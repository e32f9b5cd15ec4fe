package atlas

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

// Bundled atlas data lives in two files per atlas: a gzip-compressed
// binary label volume and a plain-text region table.
const (
	volumeExt = ".atl.gz"
	tableExt  = ".tsv"
)

// volumeMagic and volumeVersion identify the label volume format:
// magic, version, uint16 dimensions, a row-major 4x4 float64
// voxel-to-world affine, then nx*ny*nz uint16 region indices in
// x-fastest order. All integers and floats are little-endian.
var volumeMagic = [4]byte{'M', 'N', 'I', 'A'}

const volumeVersion uint16 = 1

type volumeHeader struct {
	Magic      [4]byte
	Version    uint16
	Nx, Ny, Nz uint16
	Affine     [16]float64
}

// loadAtlas reads "<name>.atl.gz" and "<name>.tsv" from fsys and
// assembles the atlas.
func loadAtlas(fsys fs.FS, name string) (*Atlas, error) {
	volFile, err := fsys.Open(name + volumeExt)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume for atlas %q: %w", name, err)
	}
	defer volFile.Close()

	nx, ny, nz, affine, labels, err := ReadVolume(volFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read volume for atlas %q: %w", name, err)
	}

	tabFile, err := fsys.Open(name + tableExt)
	if err != nil {
		return nil, fmt.Errorf("failed to open region table for atlas %q: %w", name, err)
	}
	defer tabFile.Close()

	regions, err := ReadRegionTable(tabFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read region table for atlas %q: %w", name, err)
	}

	return New(name, nx, ny, nz, affine, labels, regions)
}

// ReadVolume decodes a gzip-compressed label volume. The returned
// affine is the row-major 4x4 voxel-to-world matrix.
func ReadVolume(r io.Reader) (nx, ny, nz int, affine []float64, labels []uint16, err error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	var hdr volumeHeader
	if err := binary.Read(zr, binary.LittleEndian, &hdr); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("failed to read volume header: %w", err)
	}
	if hdr.Magic != volumeMagic {
		return 0, 0, 0, nil, nil, fmt.Errorf("bad magic %q in volume header", hdr.Magic[:])
	}
	if hdr.Version != volumeVersion {
		return 0, 0, 0, nil, nil, fmt.Errorf("unsupported volume format version %d", hdr.Version)
	}

	nx, ny, nz = int(hdr.Nx), int(hdr.Ny), int(hdr.Nz)
	if nx == 0 || ny == 0 || nz == 0 {
		return 0, 0, 0, nil, nil, fmt.Errorf("degenerate volume dimensions %dx%dx%d", nx, ny, nz)
	}

	labels = make([]uint16, nx*ny*nz)
	if err := binary.Read(zr, binary.LittleEndian, labels); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("failed to read label data: %w", err)
	}

	return nx, ny, nz, hdr.Affine[:], labels, nil
}

// WriteVolume encodes a label volume in the bundled format.
func WriteVolume(w io.Writer, nx, ny, nz int, affine []float64, labels []uint16) error {
	if len(affine) != 16 {
		return fmt.Errorf("affine must have 16 elements, got %d", len(affine))
	}
	if len(labels) != nx*ny*nz {
		return fmt.Errorf("label volume has %d voxels, expected %d", len(labels), nx*ny*nz)
	}
	if nx > 0xffff || ny > 0xffff || nz > 0xffff {
		return fmt.Errorf("dimensions %dx%dx%d exceed format limits", nx, ny, nz)
	}

	hdr := volumeHeader{
		Magic:   volumeMagic,
		Version: volumeVersion,
		Nx:      uint16(nx),
		Ny:      uint16(ny),
		Nz:      uint16(nz),
	}
	copy(hdr.Affine[:], affine)

	zw := gzip.NewWriter(w)
	if err := binary.Write(zw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("failed to write volume header: %w", err)
	}
	if err := binary.Write(zw, binary.LittleEndian, labels); err != nil {
		return fmt.Errorf("failed to write label data: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return nil
}

// ReadRegionTable parses a region table: one "index<TAB>name" per line,
// blank lines and lines starting with '#' ignored. The background index
// 0 must not appear.
func ReadRegionTable(r io.Reader) (map[uint16]string, error) {
	regions := make(map[uint16]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idxStr, name, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: expected \"index<TAB>name\", got %q", lineNo, line)
		}
		idx, err := strconv.ParseUint(strings.TrimSpace(idxStr), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid region index %q: %w", lineNo, idxStr, err)
		}
		if uint16(idx) == Background {
			return nil, fmt.Errorf("line %d: region index 0 is reserved for background", lineNo)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("line %d: empty region name", lineNo)
		}
		if _, dup := regions[uint16(idx)]; dup {
			return nil, fmt.Errorf("line %d: duplicate region index %d", lineNo, idx)
		}
		regions[uint16(idx)] = name
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read region table: %w", err)
	}
	return regions, nil
}

// WriteRegionTable writes a region table sorted by index.
func WriteRegionTable(w io.Writer, regions map[uint16]string) error {
	indices := make([]int, 0, len(regions))
	for idx := range regions {
		indices = append(indices, int(idx))
	}
	sort.Ints(indices)
	for _, idx := range indices {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", idx, regions[uint16(idx)]); err != nil {
			return fmt.Errorf("failed to write region table: %w", err)
		}
	}
	return nil
}
