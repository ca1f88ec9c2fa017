package ir

import (
	"crypto/sha256"
	"sort"

	"github.com/holiman/uint256"
)

// FingerprintInput is the fixed set of fields spec §4.9 says the
// compile-result cache key is computed over: "{block set, port wiring,
// transform chains, default sources, bus configuration, seed}".
type FingerprintInput struct {
	BlockSet         []string // sorted block ids + their type + param hash
	Wiring           []string // "srcBlock.srcPort->dstBlock.dstPort"
	TransformChains  []string // "wireKey:stepId:paramsHash"
	DefaultSources   []string // "blockId.portId=value"
	BusConfiguration []string // "busName:combineMode:publisherList"
	Seed             uint64
}

// Compute folds the fingerprint input into a single 256-bit value via
// SHA-256, matching spec §4.9's "fingerprint over" those fields exactly —
// equal inputs (after the deterministic sort below) always fold to an
// equal Fingerprint, which is the only property the compile-result cache
// depends on.
func Compute(in FingerprintInput) Fingerprint {
	sorted := func(ss []string) []string {
		cp := append([]string(nil), ss...)
		sort.Strings(cp)
		return cp
	}

	h := sha256.New()
	write := func(ss []string) {
		for _, s := range ss {
			h.Write([]byte(s))
			h.Write([]byte{0})
		}
		h.Write([]byte{0xff})
	}
	write(sorted(in.BlockSet))
	write(sorted(in.Wiring))
	write(sorted(in.TransformChains))
	write(sorted(in.DefaultSources))
	write(sorted(in.BusConfiguration))

	var seedBuf [8]byte
	for i := 0; i < 8; i++ {
		seedBuf[i] = byte(in.Seed >> (8 * i))
	}
	h.Write(seedBuf[:])

	sum := h.Sum(nil)
	var fp uint256.Int
	fp.SetBytes(sum)
	return fp
}
