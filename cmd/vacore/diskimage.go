package main

// flatImage adapts a raw floppy-image file to pkg/drive.Disk. Real ADF
// dumps store decoded sector data rather than the MFM-encoded bitstream
// pkg/disk's shift register clocks in, so this treats the file as one
// flat byte stream split evenly across the standard 80-cylinder,
// double-sided geometry: good enough to exercise insertion, stepping,
// and the disk controller's sync/FIFO path against real file bytes
// without implementing a full MFM encoder.
type flatImage struct {
	data       []byte
	cylinders  int
	sides      int
	trackBytes int
}

const (
	imageCylinders = 80
	imageSides     = 2
)

// newFlatImage wraps raw and derives a per-track byte count from its
// length. A zero-length image still produces a usable (if silent) disk:
// ReadByteAt then always returns 0xFF via the empty-track fallback.
func newFlatImage(raw []byte) *flatImage {
	img := &flatImage{data: raw, cylinders: imageCylinders, sides: imageSides}
	tracks := img.cylinders * img.sides
	if len(raw) > 0 && tracks > 0 {
		img.trackBytes = len(raw) / tracks
	}
	return img
}

func (img *flatImage) ReadByteAt(cylinder, side, offset int) uint8 {
	if img.trackBytes == 0 {
		return 0xFF
	}
	start := (cylinder*img.sides + side) * img.trackBytes
	idx := start + offset%img.trackBytes
	if idx < 0 || idx >= len(img.data) {
		return 0xFF
	}
	return img.data[idx]
}

func (img *flatImage) TrackLength(cylinder, side int) int {
	if img.trackBytes == 0 {
		return 1
	}
	return img.trackBytes
}
