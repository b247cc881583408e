package marketdata

import (
	"container/heap"
	"sync"
)

// rankedItem wraps a scored symbol with its heap position.
type rankedItem struct {
	scored ScoredSymbol
	index  int
}

// SentimentRanker is a max-heap of symbols by sentiment score, used by the
// periodic scan to pick the top-N candidates.
type SentimentRanker struct {
	mu    sync.RWMutex
	items []*rankedItem
	index map[string]int // symbol -> heap index
}

// NewSentimentRanker creates an empty ranker.
func NewSentimentRanker() *SentimentRanker {
	r := &SentimentRanker{
		items: make([]*rankedItem, 0),
		index: make(map[string]int),
	}
	heap.Init(r)
	return r
}

func (r *SentimentRanker) Len() int { return len(r.items) }

// Less orders higher scores first; mentions break ties.
func (r *SentimentRanker) Less(i, j int) bool {
	a, b := r.items[i].scored, r.items[j].scored
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Mentions > b.Mentions
}

func (r *SentimentRanker) Swap(i, j int) {
	r.items[i], r.items[j] = r.items[j], r.items[i]
	r.items[i].index = i
	r.items[j].index = j
	r.index[r.items[i].scored.Symbol] = i
	r.index[r.items[j].scored.Symbol] = j
}

func (r *SentimentRanker) Push(x interface{}) {
	item := x.(*rankedItem)
	item.index = len(r.items)
	r.items = append(r.items, item)
	r.index[item.scored.Symbol] = item.index
}

func (r *SentimentRanker) Pop() interface{} {
	old := r.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	r.items = old[:n-1]
	delete(r.index, item.scored.Symbol)
	return item
}

// Update inserts or rescores a symbol.
func (r *SentimentRanker) Update(scored ScoredSymbol) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, exists := r.index[scored.Symbol]; exists {
		r.items[idx].scored = scored
		heap.Fix(r, idx)
		return
	}
	heap.Push(r, &rankedItem{scored: scored})
}

// TopN pops the n best symbols, emptying them from the ranker.
func (r *SentimentRanker) TopN(n int) []ScoredSymbol {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > len(r.items) {
		n = len(r.items)
	}

	out := make([]ScoredSymbol, 0, n)
	for i := 0; i < n; i++ {
		item := heap.Pop(r).(*rankedItem)
		out = append(out, item.scored)
	}
	return out
}
