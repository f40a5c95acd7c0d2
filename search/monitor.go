package search

import (
	"sync"

	"github.com/poiesic/omnisearch/core"
)

// Monitor provides hooks to observe the search process.
type Monitor interface {
	Start(query string, kind core.SearchKind)
	AfterLexical(results []core.SearchResult)
	AfterSemantic(results []core.SearchResult)
	Finish(results []core.SearchResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.SearchKind)   {}
func (n *noopMonitor) AfterLexical(_ []core.SearchResult)  {}
func (n *noopMonitor) AfterSemantic(_ []core.SearchResult) {}
func (n *noopMonitor) Finish(_ []core.SearchResult)        {}

// Stats is a point-in-time copy of StatsMonitor counters.
type Stats struct {
	Queries      int
	ByKind       map[core.SearchKind]int
	LexicalHits  int
	SemanticHits int
	Empty        int
}

// StatsMonitor counts queries per search kind and hits per phase. It is safe
// for concurrent searches.
type StatsMonitor struct {
	mu    sync.Mutex
	stats Stats
}

var _ Monitor = (*StatsMonitor)(nil)

// NewStatsMonitor creates a monitor with zeroed counters.
func NewStatsMonitor() *StatsMonitor {
	return &StatsMonitor{stats: Stats{ByKind: map[core.SearchKind]int{}}}
}

func (m *StatsMonitor) Start(_ string, kind core.SearchKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Queries++
	m.stats.ByKind[kind]++
}

func (m *StatsMonitor) AfterLexical(results []core.SearchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.LexicalHits += len(results)
}

func (m *StatsMonitor) AfterSemantic(results []core.SearchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SemanticHits += len(results)
}

func (m *StatsMonitor) Finish(results []core.SearchResult) {
	if len(results) > 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Empty++
}

// Snapshot returns a copy of the counters.
func (m *StatsMonitor) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.stats
	out.ByKind = make(map[core.SearchKind]int, len(m.stats.ByKind))
	for k, v := range m.stats.ByKind {
		out.ByKind[k] = v
	}
	return out
}
