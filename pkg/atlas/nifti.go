package atlas

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

// NIfTI-1 datatype codes accepted for label images. Label atlases are
// integer volumes; floating-point images are rejected.
const (
	niftiTypeUint8  = 2
	niftiTypeInt16  = 4
	niftiTypeInt32  = 8
	niftiTypeUint16 = 512
)

// nifti1Header is the fixed 348-byte NIfTI-1 header. Field layout
// follows the official nifti1.h definition; unused fields are kept so
// the struct reads in one binary.Read call.
type nifti1Header struct {
	SizeofHdr     int32      // must be 348
	Unused1       [35]byte
	DimInfo       int8
	Dim           [8]int16   // dim[0] = number of dimensions
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32    // byte offset of the image data
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     int8
	XyztUnits     int8
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Unused2       [8]byte
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32 // rows of the voxel-to-world affine
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte    // "n+1\0" (single file) or "ni1\0"
}

// ReadNIfTILabels parses a NIfTI-1 integer label image (.nii, gzipped
// or not) and returns its grid dimensions, voxel-to-world affine and
// label data in the layout New expects. The image must carry an sform
// affine; quaternion-only orientations are not supported.
func ReadNIfTILabels(r io.Reader) (nx, ny, nz int, affine []float64, labels []uint16, err error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(2); err == nil && head[0] == 0x1f && head[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return 0, 0, 0, nil, nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer zr.Close()
		return readNIfTILabels(zr)
	}
	return readNIfTILabels(br)
}

func readNIfTILabels(r io.Reader) (nx, ny, nz int, affine []float64, labels []uint16, err error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("failed to read NIfTI data: %w", err)
	}
	if len(raw) < 348 {
		return 0, 0, 0, nil, nil, fmt.Errorf("NIfTI file too short: %d bytes", len(raw))
	}

	// The header does not declare its own byte order; a sane SizeofHdr
	// under one order decides it.
	var hdr nifti1Header
	order := binary.ByteOrder(binary.LittleEndian)
	if err := binary.Read(bytes.NewReader(raw), order, &hdr); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("failed to parse NIfTI header: %w", err)
	}
	if hdr.SizeofHdr != 348 {
		order = binary.BigEndian
		if err := binary.Read(bytes.NewReader(raw), order, &hdr); err != nil {
			return 0, 0, 0, nil, nil, fmt.Errorf("failed to parse NIfTI header: %w", err)
		}
		if hdr.SizeofHdr != 348 {
			return 0, 0, 0, nil, nil, fmt.Errorf("not a NIfTI-1 file: sizeof_hdr = %d", hdr.SizeofHdr)
		}
	}
	if hdr.Magic[0] != 'n' || (hdr.Magic[1] != '+' && hdr.Magic[1] != 'i') || hdr.Magic[2] != '1' {
		return 0, 0, 0, nil, nil, fmt.Errorf("bad NIfTI magic %q", hdr.Magic[:])
	}

	if hdr.Dim[0] < 3 {
		return 0, 0, 0, nil, nil, fmt.Errorf("expected a 3-D image, got %d dimension(s)", hdr.Dim[0])
	}
	for d := int16(4); d <= hdr.Dim[0]; d++ {
		if hdr.Dim[d] > 1 {
			return 0, 0, 0, nil, nil, fmt.Errorf("expected a 3-D image, dimension %d has extent %d", d, hdr.Dim[d])
		}
	}
	nx, ny, nz = int(hdr.Dim[1]), int(hdr.Dim[2]), int(hdr.Dim[3])
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return 0, 0, 0, nil, nil, fmt.Errorf("degenerate image dimensions %dx%dx%d", nx, ny, nz)
	}

	if hdr.SformCode <= 0 {
		return 0, 0, 0, nil, nil, fmt.Errorf("image carries no sform affine (sform_code = %d)", hdr.SformCode)
	}
	affine = make([]float64, 16)
	for c := 0; c < 4; c++ {
		affine[c] = float64(hdr.SrowX[c])
		affine[4+c] = float64(hdr.SrowY[c])
		affine[8+c] = float64(hdr.SrowZ[c])
	}
	affine[15] = 1

	offset := int(hdr.VoxOffset)
	if offset < 348 || offset > len(raw) {
		return 0, 0, 0, nil, nil, fmt.Errorf("invalid vox_offset %d", offset)
	}
	data := raw[offset:]

	n := nx * ny * nz
	labels = make([]uint16, n)
	switch hdr.Datatype {
	case niftiTypeUint8:
		if len(data) < n {
			return 0, 0, 0, nil, nil, fmt.Errorf("truncated image data: %d bytes for %d voxels", len(data), n)
		}
		for i := 0; i < n; i++ {
			labels[i] = uint16(data[i])
		}
	case niftiTypeInt16:
		if len(data) < 2*n {
			return 0, 0, 0, nil, nil, fmt.Errorf("truncated image data: %d bytes for %d voxels", len(data), n)
		}
		for i := 0; i < n; i++ {
			v := int16(order.Uint16(data[2*i:]))
			if v < 0 {
				return 0, 0, 0, nil, nil, fmt.Errorf("negative label %d at voxel %d", v, i)
			}
			labels[i] = uint16(v)
		}
	case niftiTypeUint16:
		if len(data) < 2*n {
			return 0, 0, 0, nil, nil, fmt.Errorf("truncated image data: %d bytes for %d voxels", len(data), n)
		}
		for i := 0; i < n; i++ {
			labels[i] = order.Uint16(data[2*i:])
		}
	case niftiTypeInt32:
		if len(data) < 4*n {
			return 0, 0, 0, nil, nil, fmt.Errorf("truncated image data: %d bytes for %d voxels", len(data), n)
		}
		for i := 0; i < n; i++ {
			v := int32(order.Uint32(data[4*i:]))
			if v < 0 || v > 0xffff {
				return 0, 0, 0, nil, nil, fmt.Errorf("label %d at voxel %d out of range for the volume format", v, i)
			}
			labels[i] = uint16(v)
		}
	default:
		return 0, 0, 0, nil, nil, fmt.Errorf("unsupported NIfTI datatype %d (need an integer label image)", hdr.Datatype)
	}

	return nx, ny, nz, affine, labels, nil
}
