package crypto

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/monereum/engine/types"
)

// HashStream deterministic sequence of hashes bound to a master seed.
// Each step is keccak(seed ‖ previous), so the whole stream is reproducible from the seed alone.
type HashStream struct {
	lock    sync.Mutex
	seed    types.Hash
	current types.Hash
}

// NewHashStream starts a stream at keccak(seed ‖ uint256(domain))
func NewHashStream(seed types.Hash, domain uint64) *HashStream {
	var word types.Hash
	binary.BigEndian.PutUint64(word[types.HashSize-8:], domain)
	return &HashStream{
		seed:    seed,
		current: Keccak256Var(seed[:], word[:]),
	}
}

// Current value, without advancing
func (s *HashStream) Current() types.Hash {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.current
}

// Next returns the current value and advances the stream
func (s *HashStream) Next() types.Hash {
	s.lock.Lock()
	defer s.lock.Unlock()
	v := s.current
	s.current = Keccak256Var(s.seed[:], s.current[:])
	return v
}

// Read fills buf from successive stream values, so a HashStream can stand in for a random source
func (s *HashStream) Read(buf []byte) (n int, err error) {
	for n < len(buf) {
		v := s.Next()
		n += copy(buf[n:], v[:])
	}
	return n, nil
}

var _ io.Reader = (*HashStream)(nil)
