// Package bmp encodes raw BGRA pixel buffers as uncompressed 24-bit Windows
// bitmaps.
//
// The layout matches the classic BITMAPFILEHEADER + BITMAPINFOHEADER pair with
// a negative height, so rows are stored top-down in the same order as the
// capture buffer. Rows are padded to 4-byte boundaries as the format requires.
package bmp

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	fileHeaderSize = 14
	infoHeaderSize = 40
	bitsPerPixel   = 24
)

// Encode writes a 24-bit BMP built from the BGRA input buffer. The alpha
// channel is dropped; input stride must be exactly width*4.
func Encode(w io.Writer, bgra []byte, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("bmp: invalid dimensions %dx%d", width, height)
	}
	if need := width * height * 4; len(bgra) < need {
		return fmt.Errorf("bmp: buffer too small: have %d bytes, need %d", len(bgra), need)
	}

	stride := width * 3
	pad := (4 - stride%4) & 3
	dataSize := (stride + pad) * height
	offset := fileHeaderSize + infoHeaderSize

	var header [fileHeaderSize + infoHeaderSize]byte
	header[0] = 'B'
	header[1] = 'M'
	binary.LittleEndian.PutUint32(header[2:6], uint32(offset+dataSize))
	binary.LittleEndian.PutUint32(header[10:14], uint32(offset))
	binary.LittleEndian.PutUint32(header[14:18], infoHeaderSize)
	binary.LittleEndian.PutUint32(header[18:22], uint32(width))
	binary.LittleEndian.PutUint32(header[22:26], uint32(int32(-height)))
	binary.LittleEndian.PutUint16(header[26:28], 1)
	binary.LittleEndian.PutUint16(header[28:30], bitsPerPixel)
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	row := make([]byte, stride+pad)
	for y := 0; y < height; y++ {
		src := bgra[y*width*4:]
		for x := 0; x < width; x++ {
			row[x*3+0] = src[x*4+0]
			row[x*3+1] = src[x*4+1]
			row[x*3+2] = src[x*4+2]
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
