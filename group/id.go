package group

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// processStart anchors the monotonic component of generated IDs.
var processStart = time.Now()

// NewID returns a fresh group identifier made of three base-36 parts:
// wall-clock milliseconds, nanoseconds on the monotonic clock since process
// start, and 122 random bits. Two IDs minted in the same millisecond still
// differ in the second and third parts.
func NewID() string {
	wall := strconv.FormatInt(time.Now().UnixMilli(), 36)
	mono := strconv.FormatInt(int64(time.Since(processStart)), 36)

	random := uuid.New()
	bits := new(big.Int).SetBytes(random[:]).Text(36)

	return strings.Join([]string{wall, mono, bits}, "-")
}
