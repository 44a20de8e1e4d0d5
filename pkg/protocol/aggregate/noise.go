package aggregate

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/crypto/chacha20"
)

// chachaStream draws IEEE-754 doubles uniform on [0,1) from a
// chacha20 keystream, following spec.md section 4.9's "discrete-Laplace
// DP noise generation via chacha20-seeded PRSS streams".
type chachaStream struct {
	c *chacha20.Cipher
}

func newChachaStream(seed [32]byte) (*chachaStream, error) {
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
	if err != nil {
		return nil, fmt.Errorf("aggregate: chacha20 stream: %w", err)
	}
	return &chachaStream{c: c}, nil
}

func (s *chachaStream) uniform() float64 {
	var buf [8]byte
	s.c.XORKeyStream(buf[:], buf[:])
	v := binary.LittleEndian.Uint64(buf[:])
	// Standard 53-bit-mantissa uniform-double construction.
	return float64(v>>11) / float64(uint64(1)<<53)
}

// sampleGeometric draws a Geometric(1-p) variate via inverse CDF.
func sampleGeometric(s *chachaStream, p float64) int64 {
	u := s.uniform()
	if u <= 0 {
		u = 1e-300
	}
	return int64(math.Floor(math.Log(u) / math.Log(p)))
}

// sampleDiscreteLaplaceComponent draws one discrete-Laplace(scale)
// variate as the difference of two independent geometric draws (Inusah
// and Kozubowski's construction).
func sampleDiscreteLaplaceComponent(s *chachaStream, scale float64) int64 {
	p := math.Exp(-1 / scale)
	return sampleGeometric(s, p) - sampleGeometric(s, p)
}
