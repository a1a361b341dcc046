package vocab

const fastLookupSize = 256

// PairLookup maps an adjacent token pair to its packed merge info
// (rank << 32 | merged token). Pairs of two low identifiers, which in a
// byte-level vocabulary are the single bytes and hottest merges, sit in a
// dense table; everything else falls back to a map.
type PairLookup struct {
	fastLookup [fastLookupSize * fastLookupSize]uint64
	fallback   map[uint64]uint64
}

const noPair = ^uint64(0)

func packPair(a, b Token) uint64 {
	return uint64(a)<<32 | uint64(b)
}

func newPairLookup(n int) *PairLookup {
	pl := &PairLookup{fallback: make(map[uint64]uint64, n)}
	for i := range pl.fastLookup {
		pl.fastLookup[i] = noPair
	}
	return pl
}

// add records a merge rule unless the pair already has a lower rank.
func (pl *PairLookup) add(a, b Token, rank uint32, merged Token) {
	if _, exists := pl.Lookup(a, b); exists {
		return
	}
	info := uint64(rank)<<32 | uint64(merged)
	if a < fastLookupSize && b < fastLookupSize {
		pl.fastLookup[a*fastLookupSize+b] = info
		return
	}
	pl.fallback[packPair(a, b)] = info
}

// Lookup returns the packed merge info of (a, b).
func (pl *PairLookup) Lookup(a, b Token) (uint64, bool) {
	if a < fastLookupSize && b < fastLookupSize {
		value := pl.fastLookup[a*fastLookupSize+b]
		if value != noPair {
			return value, true
		}
		return 0, false
	}

	value, ok := pl.fallback[packPair(a, b)]
	return value, ok
}
