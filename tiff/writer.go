// Package tiff writes the rasterizer's strip stream as a monochrome
// baseline TIFF: 1 bit per sample, photometric min-is-white, optionally
// compressed with CCITT Group 3 1-D Modified Huffman run lengths
// (Compression=2), the encoding photoplot RIPs expect.
package tiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Compression selects the strip encoding.
type Compression uint16

const (
	// CompressionNone stores strips as raw packed bits.
	CompressionNone Compression = 1
	// CompressionCCITTRLE stores strips as Modified Huffman run lengths.
	CompressionCCITTRLE Compression = 2
)

// TIFF tag and type constants (TIFF 6.0, sections 2 and 8).
const (
	leHeader = "II\x2A\x00"

	dtShort    = 3
	dtLong     = 4
	dtRational = 5

	tImageWidth                = 256
	tImageLength               = 257
	tBitsPerSample             = 258
	tCompression               = 259
	tPhotometricInterpretation = 262
	tStripOffsets              = 273
	tRowsPerStrip              = 278
	tStripByteCounts           = 279
	tXResolution               = 282
	tYResolution               = 283
	tPlanarConfig              = 284
	tResolutionUnit            = 296

	photometricMinIsWhite = 0
	resolutionUnitInch    = 2
	planarConfigContig    = 1
)

// ErrMissingStrips is returned by Close when fewer rows were written
// than the declared image height.
var ErrMissingStrips = errors.New("tiff: image incomplete")

// Options describes the image being written.
type Options struct {
	Width        int     // pixels per row
	Height       int     // total rows
	DPI          float64 // x and y resolution, dots per inch
	RowsPerStrip int
	Compression  Compression
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Width < 1 || o.Height < 1 {
		return fmt.Errorf("tiff: image size %dx%d invalid", o.Width, o.Height)
	}
	if o.DPI < 1 {
		return errors.New("tiff: resolution must be >= 1 dpi")
	}
	if o.RowsPerStrip < 1 {
		return errors.New("tiff: rows per strip must be >= 1")
	}
	switch o.Compression {
	case CompressionNone, CompressionCCITTRLE:
	default:
		return fmt.Errorf("tiff: unsupported compression %d", o.Compression)
	}
	return nil
}

// Writer emits a single-image little-endian TIFF. Strips arrive through
// WriteStrip in top-to-bottom order; Close writes the image file
// directory and patches the header.
type Writer struct {
	w    io.WriteSeeker
	opts Options

	bytesPerRow  int
	pos          int64
	rowsWritten  int
	stripOffsets []uint32
	stripCounts  []uint32
	closed       bool
}

// NewWriter writes the TIFF header and returns a writer ready to
// receive strips.
func NewWriter(w io.WriteSeeker, opts Options) (*Writer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	tw := &Writer{
		w:           w,
		opts:        opts,
		bytesPerRow: (opts.Width + 7) / 8,
	}
	// Header: byte order, magic, and a placeholder IFD offset patched
	// by Close.
	var hdr [8]byte
	copy(hdr[:], leHeader)
	if _, err := w.Write(hdr[:]); err != nil {
		return nil, err
	}
	tw.pos = 8
	return tw, nil
}

// WriteStrip encodes and writes one strip of rows scan lines.
// buf holds rows * ceil(Width/8) packed bytes.
func (t *Writer) WriteStrip(buf []byte, rows int) error {
	if t.closed {
		return errors.New("tiff: writer closed")
	}
	if len(buf) != rows*t.bytesPerRow {
		return fmt.Errorf("tiff: strip size %d does not match %d rows", len(buf), rows)
	}
	if t.rowsWritten+rows > t.opts.Height {
		return fmt.Errorf("tiff: %d rows exceed image height %d", t.rowsWritten+rows, t.opts.Height)
	}

	data := buf
	if t.opts.Compression == CompressionCCITTRLE {
		enc := make([]byte, 0, len(buf))
		for r := 0; r < rows; r++ {
			enc = encodeRowMH(enc, buf[r*t.bytesPerRow:(r+1)*t.bytesPerRow], t.opts.Width)
		}
		data = enc
	}

	if _, err := t.w.Write(data); err != nil {
		return err
	}
	t.stripOffsets = append(t.stripOffsets, uint32(t.pos))
	t.stripCounts = append(t.stripCounts, uint32(len(data)))
	t.pos += int64(len(data))
	t.rowsWritten += rows
	return nil
}

// Close writes the IFD and finishes the file. The underlying writer is
// not closed.
func (t *Writer) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.rowsWritten != t.opts.Height {
		return fmt.Errorf("%w: %d of %d rows written", ErrMissingStrips, t.rowsWritten, t.opts.Height)
	}

	le := binary.LittleEndian
	nStrips := len(t.stripOffsets)

	// Out-of-line value area: strip offset and byte count arrays (when
	// more than one strip) and the two resolution rationals.
	valueBase := uint32(t.pos)
	var values []byte
	arrayOffset := func(a []uint32) (offset uint32) {
		offset = valueBase + uint32(len(values))
		for _, v := range a {
			values = le.AppendUint32(values, v)
		}
		return offset
	}
	var offsetsAt, countsAt uint32
	if nStrips > 1 {
		offsetsAt = arrayOffset(t.stripOffsets)
		countsAt = arrayOffset(t.stripCounts)
	}
	dpi := uint32(t.opts.DPI + 0.5)
	xresAt := arrayOffset([]uint32{dpi, 1})
	yresAt := arrayOffset([]uint32{dpi, 1})

	type entry struct {
		tag, typ uint16
		count    uint32
		value    uint32
	}
	entries := []entry{
		{tImageWidth, dtLong, 1, uint32(t.opts.Width)},
		{tImageLength, dtLong, 1, uint32(t.opts.Height)},
		{tBitsPerSample, dtShort, 1, 1},
		{tCompression, dtShort, 1, uint32(t.opts.Compression)},
		{tPhotometricInterpretation, dtShort, 1, photometricMinIsWhite},
	}
	if nStrips > 1 {
		entries = append(entries, entry{tStripOffsets, dtLong, uint32(nStrips), offsetsAt})
	} else {
		entries = append(entries, entry{tStripOffsets, dtLong, 1, t.stripOffsets[0]})
	}
	entries = append(entries, entry{tRowsPerStrip, dtLong, 1, uint32(t.opts.RowsPerStrip)})
	if nStrips > 1 {
		entries = append(entries, entry{tStripByteCounts, dtLong, uint32(nStrips), countsAt})
	} else {
		entries = append(entries, entry{tStripByteCounts, dtLong, 1, t.stripCounts[0]})
	}
	entries = append(entries,
		entry{tXResolution, dtRational, 1, xresAt},
		entry{tYResolution, dtRational, 1, yresAt},
		entry{tPlanarConfig, dtShort, 1, planarConfigContig},
		entry{tResolutionUnit, dtShort, 1, resolutionUnitInch},
	)

	ifdOffset := valueBase + uint32(len(values))
	ifd := make([]byte, 0, 2+len(entries)*12+4)
	ifd = le.AppendUint16(ifd, uint16(len(entries)))
	for _, e := range entries {
		ifd = le.AppendUint16(ifd, e.tag)
		ifd = le.AppendUint16(ifd, e.typ)
		ifd = le.AppendUint32(ifd, e.count)
		if e.typ == dtShort && e.count == 1 {
			ifd = le.AppendUint16(ifd, uint16(e.value))
			ifd = le.AppendUint16(ifd, 0)
		} else {
			ifd = le.AppendUint32(ifd, e.value)
		}
	}
	ifd = le.AppendUint32(ifd, 0) // no further IFDs

	if _, err := t.w.Write(values); err != nil {
		return err
	}
	if _, err := t.w.Write(ifd); err != nil {
		return err
	}

	// Patch the header's IFD offset.
	if _, err := t.w.Seek(4, io.SeekStart); err != nil {
		return err
	}
	var buf [4]byte
	le.PutUint32(buf[:], ifdOffset)
	if _, err := t.w.Write(buf[:]); err != nil {
		return err
	}
	_, err := t.w.Seek(0, io.SeekEnd)
	return err
}
