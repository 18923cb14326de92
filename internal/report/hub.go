package report

import "sync"

const defaultHistoryLimit = 500

// Hub keeps a bounded history of trial results and pushes every new result to its
// subscribers. Slow subscribers miss results rather than block the run.
type Hub struct {
	mu           sync.RWMutex
	history      []TrialResult
	historyLimit int
	subscribers  map[chan TrialResult]struct{}
	summary      *Summary
}

// NewHub builds a hub retaining at most historyLimit results (500 when non-positive).
func NewHub(historyLimit int) *Hub {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Hub{
		historyLimit: historyLimit,
		subscribers:  make(map[chan TrialResult]struct{}),
	}
}

// ReportTrial records a result and notifies subscribers.
func (h *Hub) ReportTrial(r TrialResult) {
	h.mu.Lock()
	h.history = append(h.history, r)
	if len(h.history) > h.historyLimit {
		h.history = h.history[len(h.history)-h.historyLimit:]
	}
	for ch := range h.subscribers {
		select {
		case ch <- r:
		default:
		}
	}
	h.mu.Unlock()
}

// ReportSummary stores the final summary.
func (h *Hub) ReportSummary(s Summary) {
	h.mu.Lock()
	h.summary = &s
	h.mu.Unlock()
}

// History returns a copy of the stored results, oldest first.
func (h *Hub) History() []TrialResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]TrialResult, len(h.history))
	copy(out, h.history)
	return out
}

// Summary returns the last reported summary, if any.
func (h *Hub) Summary() (Summary, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.summary == nil {
		return Summary{}, false
	}
	return *h.summary, true
}

// Subscribe registers a listener for live results. The returned function unsubscribes
// and closes the channel.
func (h *Hub) Subscribe() (<-chan TrialResult, func()) {
	ch := make(chan TrialResult, 16)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}
