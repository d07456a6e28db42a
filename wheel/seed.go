package wheel

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// SeededSource derives uniform draws from a server seed, an identity and a
// monotonically increasing nonce. Publishing the seed hash up front and the
// seed itself afterwards lets a client re-run the draw and audit the
// outcome.
type SeededSource struct {
	serverSeed string
	identity   string
	nonce      uint64
	lastHash   string
}

// NewSeededSource creates a seeded source starting at the given nonce.
func NewSeededSource(serverSeed, identity string, nonce uint64) *SeededSource {
	return &SeededSource{
		serverSeed: serverSeed,
		identity:   identity,
		nonce:      nonce,
	}
}

// Float64 returns the next uniform value in [0, 1) and advances the nonce.
func (s *SeededSource) Float64() float64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", s.serverSeed, s.identity, s.nonce)))
	s.lastHash = hex.EncodeToString(sum[:])
	s.nonce++

	// First 8 bytes of the digest, scaled into [0, 1). 1 << 53 keeps the
	// value exactly representable as a float64.
	v := binary.BigEndian.Uint64(sum[:8]) >> 11
	return float64(v) / float64(1<<53)
}

// Nonce returns the nonce of the next draw.
func (s *SeededSource) Nonce() uint64 {
	return s.nonce
}

// Proof describes the last draw for auditing.
type Proof struct {
	ServerSeedHash string `json:"serverSeedHash"`
	Identity       string `json:"identity"`
	Nonce          uint64 `json:"nonce"`
	ResultHash     string `json:"resultHash"`
}

// LastProof returns the audit record of the most recent draw. The server
// seed itself is disclosed only through the seed-rotation flow; the proof
// carries its hash.
func (s *SeededSource) LastProof() Proof {
	seedHash := sha256.Sum256([]byte(s.serverSeed))
	return Proof{
		ServerSeedHash: hex.EncodeToString(seedHash[:]),
		Identity:       s.identity,
		Nonce:          s.nonce - 1,
		ResultHash:     s.lastHash,
	}
}
