// internal/register/decode.go
package register

import (
	"encoding/binary"
	"math"
)

// Decode turns raw input-register words into float values, one per word pair.
//
// The meter sends each float as a word pair that does not match the host
// layout. The words are reversed, each consecutive pair is reinterpreted as a
// float32 in the host's native byte order, and the floats are reversed back
// into device order.
//
// No words, or an odd number of words, is "no update": ok is false and the
// caller must keep its previous values.
// No IO. No side effects.
func Decode(words []uint16) (values []float64, ok bool) {
	if len(words) == 0 || len(words)%WordsPerRegister != 0 {
		return nil, false
	}

	n := len(words)
	buf := make([]byte, 2*n)

	// reversed words laid out in native order
	for i := 0; i < n; i++ {
		binary.NativeEndian.PutUint16(buf[2*i:], words[n-1-i])
	}

	count := n / WordsPerRegister
	values = make([]float64, count)
	for i := 0; i < count; i++ {
		f := math.Float32frombits(binary.NativeEndian.Uint32(buf[4*i:]))
		values[count-1-i] = float64(f)
	}

	return values, true
}
