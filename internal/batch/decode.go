package batch

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Decoded is a batch read back from its packed upload.
type Decoded struct {
	Vertices []Vertex
	UVs      [][2]float32
	Indices  []uint32
}

// Decode unpacks bytes produced by End.
func Decode(data []byte) (Decoded, error) {
	if len(data)%QuadBytes != 0 {
		return Decoded{}, fmt.Errorf("batch: %d bytes is not a whole number of quads", len(data))
	}
	n := len(data) / QuadBytes
	d := Decoded{
		Vertices: make([]Vertex, 4*n),
		UVs:      make([][2]float32, 4*n),
		Indices:  make([]uint32, 6*n),
	}
	off := 0
	for i := range d.Vertices {
		off = readFloats(data, off, d.Vertices[i].Pos[:])
		off = readFloats(data, off, d.Vertices[i].Color[:])
	}
	for i := range d.UVs {
		off = readFloats(data, off, d.UVs[i][:])
	}
	for i := range d.Indices {
		d.Indices[i] = binary.LittleEndian.Uint32(data[off:])
		off += IndexSize
	}
	return d, nil
}

func readFloats(src []byte, off int, dst []float32) int {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
		off += 4
	}
	return off
}
