package store

import (
	"encoding/binary"
	"math"
)

// encodeVector serializes a float32 vector into the little-endian raw
// blob format sqlite-vec's vec0 columns accept. This codec has nothing
// to do with whether the extension is actually loaded in this build, so
// it lives outside the laminark_vector build-tag split.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is encodeVector's inverse: it reads a little-endian raw
// blob back into a float32 vector.
func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
