package app

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// NumberGenerator produces guest-facing booking numbers: BK + YYYYMMDD + four
// random digits. Not unique by construction; the creator relies on the
// database unique key and retries on collision.
type NumberGenerator struct {
	now    func() time.Time
	suffix func() int
}

func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{now: time.Now, suffix: randomSuffix}
}

func (g *NumberGenerator) Next() string {
	return fmt.Sprintf("BK%s%04d", g.now().UTC().Format("20060102"), g.suffix())
}

// randomSuffix draws 0..9999 from crypto/rand; concurrency-safe without a
// seeded source.
func randomSuffix() int {
	var b [2]byte
	if _, err := crand.Read(b[:]); err != nil {
		return int(time.Now().UnixNano() % 10000)
	}
	return int(binary.BigEndian.Uint16(b[:])) % 10000
}
