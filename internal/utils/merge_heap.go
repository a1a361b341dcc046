package utils

const (
	defaultHeapPrealloc = 64
)

// MergeCand is one mergeable pair of adjacent fragments. Pos is the left
// fragment's slot, which is also its byte offset inside the piece, so
// ordering by Pos orders candidates left to right.
type MergeCand struct {
	Rank   uint32 // lower wins
	Pos    int    // lower wins on tie to enforce leftmost
	Merged uint32 // token produced by the merge
	VerL   uint32
	VerR   uint32
}

// MergeHeap is a binary min-heap of merge candidates ordered by (Rank, Pos).
// The zero value is ready to use.
type MergeHeap struct {
	items []MergeCand
}

// NewMergeHeap returns a heap with room for n candidates.
func NewMergeHeap(n int) *MergeHeap {
	if n < defaultHeapPrealloc {
		n = defaultHeapPrealloc
	}
	return &MergeHeap{items: make([]MergeCand, 0, n)}
}

func (h *MergeHeap) Len() int {
	return len(h.items)
}

func (h *MergeHeap) less(a, b MergeCand) bool {
	if a.Rank != b.Rank {
		return a.Rank < b.Rank
	}
	return a.Pos < b.Pos
}

func (h *MergeHeap) Push(c MergeCand) {
	h.items = append(h.items, c)
	h.up(len(h.items) - 1)
}

func (h *MergeHeap) Pop() (MergeCand, bool) {
	if len(h.items) == 0 {
		return MergeCand{}, false
	}

	n := len(h.items) - 1
	h.items[0], h.items[n] = h.items[n], h.items[0]

	result := h.items[n]
	h.items = h.items[:n]

	if len(h.items) > 0 {
		h.down(0)
	}

	return result, true
}

func (h *MergeHeap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(h.items[i], h.items[parent]) {
			break
		}
		h.items[parent], h.items[i] = h.items[i], h.items[parent]
		i = parent
	}
}

func (h *MergeHeap) down(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		right := 2*i + 2
		smallest := i

		if left < n && h.less(h.items[left], h.items[smallest]) {
			smallest = left
		}
		if right < n && h.less(h.items[right], h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// Reset empties the heap and keeps its backing array for reuse.
func (h *MergeHeap) Reset() {
	h.items = h.items[:0]
}
