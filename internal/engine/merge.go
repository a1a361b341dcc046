package engine

import (
	"sync"

	"github.com/bpetok/bpe-openai/internal/utils"
	"github.com/bpetok/bpe-openai/internal/vocab"
)

// encodeScratch holds the per-piece working state of the merge loop. Slot i
// is the fragment starting at byte i of the piece; dead slots are unlinked
// from the list.
type encodeScratch struct {
	tokens []vocab.Token
	prev   []int
	next   []int
	live   []uint32
	heap   utils.MergeHeap
}

var scratchPool = sync.Pool{
	New: func() any { return &encodeScratch{} },
}

func acquireScratch() *encodeScratch {
	return scratchPool.Get().(*encodeScratch)
}

func releaseScratch(sc *encodeScratch) {
	sc.heap.Reset()
	scratchPool.Put(sc)
}

func (sc *encodeScratch) prepare(n int) {
	if cap(sc.tokens) < n {
		sc.tokens = make([]vocab.Token, n)
		sc.prev = make([]int, n)
		sc.next = make([]int, n)
		sc.live = make([]uint32, n)
	}
	sc.tokens = sc.tokens[:n]
	sc.prev = sc.prev[:n]
	sc.next = sc.next[:n]
	sc.live = sc.live[:n]
	sc.heap.Reset()
}

// merge runs byte-pair merging over piece and leaves the surviving fragments
// linked from slot 0. It returns the number of merges applied, so the piece
// encodes to len(piece)-merges tokens.
//
// The lowest-ranked adjacent pair merges first and ties go to the leftmost
// pair. Candidates are kept in a heap and invalidated lazily through
// per-slot versions instead of rescanning the piece after each merge.
func (sc *encodeScratch) merge(store *vocab.Store, piece string) int {
	n := len(piece)
	sc.prepare(n)

	tokens, prev, next, live := sc.tokens, sc.prev, sc.next, sc.live
	for i := 0; i < n; i++ {
		tokens[i] = store.ByteToken(piece[i])
		prev[i] = i - 1
		next[i] = i + 1
		live[i] = 0
	}
	next[n-1] = -1

	h := &sc.heap

	pushIfMergeable := func(i int) {
		j := next[i]
		if j == -1 {
			return
		}
		end := next[j]
		if end == -1 {
			end = n
		}

		rank, merged, ok := store.Merge(tokens[i], tokens[j], piece[i:end])
		if !ok {
			return
		}
		h.Push(utils.MergeCand{
			Rank:   rank,
			Pos:    i,
			Merged: merged,
			VerL:   live[i],
			VerR:   live[j],
		})
	}

	for i := 0; i != -1 && next[i] != -1; i = next[i] {
		pushIfMergeable(i)
	}

	merges := 0
	for {
		c, ok := h.Pop()
		if !ok {
			break
		}

		i := c.Pos
		j := next[i]
		if j == -1 {
			continue
		}
		// a slot only changes its right neighbor by absorbing it, which bumps
		// its own version, so matching versions pin the exact pair.
		if live[i] != c.VerL || live[j] != c.VerR {
			continue
		}

		tokens[i] = c.Merged

		nj := next[j]
		next[i] = nj
		if nj != -1 {
			prev[nj] = i
		}
		prev[j], next[j] = -1, -1

		live[i]++
		live[j]++
		merges++

		if pi := prev[i]; pi != -1 {
			pushIfMergeable(pi)
		}
		pushIfMergeable(i)
	}

	return merges
}
